// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Migration is one versioned schema change. Statements run in order inside a
// single transaction.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrate applies every migration newer than the recorded schema version and
// returns the resulting version. Safe to call multiple times.
func Migrate(ctx context.Context, conn *sql.DB) (int, error) {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, conn)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		err := WithTx(ctx, conn, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("statement %q: %w", firstLine(stmt), err)
				}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO schema_migrations (version, name, applied_at)
				VALUES ($1, $2, $3)
			`, m.Version, m.Name, time.Now().UTC())
			return err
		})
		if err != nil {
			return current, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		current = m.Version
	}

	return current, nil
}

// SchemaVersion returns the highest applied migration version, 0 when none.
func SchemaVersion(ctx context.Context, q Querier) (int, error) {
	var version sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// LatestVersion is the version the schema reaches after Migrate.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

// Types stay within what both PostgreSQL and SQLite accept. Identifiers minted
// by the application are TEXT (uuid); member ids come from the member
// directory and are BIGINT.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "member directory",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS member (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL,
				church_id BIGINT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				tithe_category TEXT NOT NULL DEFAULT '',
				donor_category TEXT NOT NULL DEFAULT '',
				engagement TEXT NOT NULL DEFAULT '',
				classification TEXT NOT NULL DEFAULT '',
				attendance_count INTEGER NOT NULL DEFAULT 0,
				attendance_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
				birth_date TIMESTAMP,
				declared_age INTEGER,
				baptism_date TIMESTAMP,
				joined_at TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_member_church_id ON member(church_id)`,
		},
	},
	{
		Version: 2,
		Name:    "election configs",
		Statements: []string{`
			CREATE TABLE election_config (
				id TEXT PRIMARY KEY,
				church_id BIGINT NOT NULL,
				church_name TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				positions TEXT NOT NULL,
				position_descriptions TEXT NOT NULL DEFAULT '{}',
				criteria TEXT NOT NULL DEFAULT '{}',
				max_nominations INTEGER NOT NULL DEFAULT 1 CHECK (max_nominations >= 1),
				removed_candidates TEXT NOT NULL DEFAULT '[]',
				current_leaders TEXT NOT NULL DEFAULT '{}',
				status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'paused')),
				created_by BIGINT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX idx_election_config_church_id ON election_config(church_id)`,
			`CREATE TABLE election_voter (
				config_id TEXT NOT NULL REFERENCES election_config(id) ON DELETE CASCADE,
				member_id BIGINT NOT NULL,
				PRIMARY KEY (config_id, member_id)
			)`,
			`CREATE INDEX idx_election_voter_member_id ON election_voter(member_id)`,
		},
	},
	{
		Version: 3,
		Name:    "election runtime",
		Statements: []string{`
			CREATE TABLE election (
				id TEXT PRIMARY KEY,
				config_id TEXT NOT NULL REFERENCES election_config(id) ON DELETE CASCADE,
				run INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'completed')),
				current_position INTEGER NOT NULL DEFAULT 0,
				current_phase TEXT NOT NULL DEFAULT 'nomination' CHECK (current_phase IN ('nomination', 'voting', 'completed')),
				result_announced BOOLEAN NOT NULL DEFAULT FALSE,
				version INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP,
				UNIQUE (config_id, run)
			)`,
			`CREATE INDEX idx_election_config_id ON election(config_id)`,
			`CREATE TABLE election_candidate (
				election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
				position_index INTEGER NOT NULL,
				position_name TEXT NOT NULL,
				member_id BIGINT NOT NULL,
				name TEXT NOT NULL,
				tither_recurring BOOLEAN NOT NULL DEFAULT FALSE,
				donor_recurring BOOLEAN NOT NULL DEFAULT FALSE,
				attendance_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
				months_in_church INTEGER NOT NULL DEFAULT 0,
				nominations INTEGER NOT NULL DEFAULT 0,
				votes INTEGER NOT NULL DEFAULT 0,
				phase TEXT NOT NULL DEFAULT 'nomination',
				PRIMARY KEY (election_id, position_index, member_id)
			)`,
		},
	},
	{
		Version: 4,
		Name:    "vote ledger",
		Statements: []string{`
			CREATE TABLE election_vote (
				id TEXT PRIMARY KEY,
				election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
				voter_id BIGINT NOT NULL,
				position_index INTEGER NOT NULL,
				candidate_id BIGINT NOT NULL,
				vote_type TEXT NOT NULL CHECK (vote_type IN ('nomination', 'vote')),
				slot INTEGER NOT NULL CHECK (slot >= 1),
				created_at TIMESTAMP NOT NULL,
				UNIQUE (election_id, voter_id, position_index, candidate_id, vote_type),
				UNIQUE (election_id, voter_id, position_index, vote_type, slot)
			)`,
			`CREATE INDEX idx_election_vote_position ON election_vote(election_id, position_index, vote_type)`,
		},
	},
	{
		Version: 5,
		Name:    "announced results",
		Statements: []string{`
			CREATE TABLE position_result (
				election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
				position_index INTEGER NOT NULL,
				position_name TEXT NOT NULL,
				winner_id BIGINT NOT NULL,
				winner_name TEXT NOT NULL,
				votes INTEGER NOT NULL,
				total_votes INTEGER NOT NULL,
				percentage DOUBLE PRECISION NOT NULL,
				tie BOOLEAN NOT NULL DEFAULT FALSE,
				announced_by BIGINT NOT NULL,
				announced_at TIMESTAMP NOT NULL,
				PRIMARY KEY (election_id, position_index)
			)`,
		},
	},
}
