// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/eligibility"
	"github.com/danielhkuo/quickly-elect/models"
)

// BuildPool evaluates every member against every position of cfg and returns
// one candidate per passing pair, ordered by position then member id.
// Removed candidates stay in the pool; they are filtered when read so that
// restoring them needs no rebuild.
func BuildPool(cfg models.ElectionConfig, members []models.Member, now time.Time) []models.Candidate {
	var pool []models.Candidate
	for i, position := range cfg.Positions {
		for _, m := range members {
			res := eligibility.Evaluate(m, cfg.Criteria, position, now)
			if !res.Eligible {
				continue
			}
			pool = append(pool, models.Candidate{
				PositionIndex:     i,
				PositionName:      position,
				ID:                m.ID,
				Name:              m.Name,
				TitherRecurring:   m.TitheCategory == models.RecurrenceRecurring,
				DonorRecurring:    m.DonorCategory == models.RecurrenceRecurring,
				AttendancePercent: m.AttendancePercent,
				MonthsInChurch:    res.MonthsInChurch,
				Phase:             models.PhaseNomination,
			})
		}
	}
	return pool
}

// PoolSizes counts candidates per position name. Every position is present.
func PoolSizes(cfg models.ElectionConfig, pool []models.Candidate) map[string]int {
	sizes := make(map[string]int, len(cfg.Positions))
	for _, p := range cfg.Positions {
		sizes[p] = 0
	}
	for _, c := range pool {
		sizes[c.PositionName]++
	}
	return sizes
}

func insertPool(ctx context.Context, tx *sql.Tx, electionID string, pool []models.Candidate) error {
	for _, c := range pool {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO election_candidate (
				election_id, position_index, position_name, member_id, name,
				tither_recurring, donor_recurring, attendance_percent, months_in_church,
				nominations, votes, phase
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10)
			ON CONFLICT DO NOTHING
		`, electionID, c.PositionIndex, c.PositionName, c.ID, c.Name,
			c.TitherRecurring, c.DonorRecurring, c.AttendancePercent, c.MonthsInChurch, c.Phase)
		if err != nil {
			return fmt.Errorf("failed to insert candidate %d for %q: %w", c.ID, c.PositionName, err)
		}
	}
	return nil
}

const candidateColumns = `election_id, position_index, position_name, member_id, name,
	tither_recurring, donor_recurring, attendance_percent, months_in_church,
	nominations, votes, phase`

func scanCandidate(row scanner) (models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(&c.ElectionID, &c.PositionIndex, &c.PositionName, &c.ID, &c.Name,
		&c.TitherRecurring, &c.DonorRecurring, &c.AttendancePercent, &c.MonthsInChurch,
		&c.Nominations, &c.Votes, &c.Phase)
	return c, err
}

// loadCandidates returns the pool of one position ordered by member id,
// removed candidates included.
func loadCandidates(ctx context.Context, q db.Querier, electionID string, position int) ([]models.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+candidateColumns+`
		FROM election_candidate
		WHERE election_id = $1 AND position_index = $2
		ORDER BY member_id
	`, electionID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
