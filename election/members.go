// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// MemberDirectory is the read-only view of church membership the engine
// needs. Member records are owned elsewhere.
type MemberDirectory interface {
	ChurchMembers(ctx context.Context, churchID int64) ([]models.Member, error)
	Member(ctx context.Context, id int64) (models.Member, error)
}

// SQLDirectory reads members from the shared member table. It also resolves
// request callers.
type SQLDirectory struct {
	db *sql.DB
}

var (
	_ MemberDirectory = (*SQLDirectory)(nil)
	_ auth.Resolver   = (*SQLDirectory)(nil)
)

func NewSQLDirectory(conn *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: conn}
}

const memberColumns = `id, name, church_id, role, tithe_category, donor_category,
	engagement, classification, attendance_count, attendance_percent,
	birth_date, declared_age, baptism_date, joined_at`

// ChurchMembers returns every member of churchID ordered by id.
func (d *SQLDirectory) ChurchMembers(ctx context.Context, churchID int64) ([]models.Member, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM member
		WHERE church_id = $1
		ORDER BY id
	`, churchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Member returns one member or ErrNotFound.
func (d *SQLDirectory) Member(ctx context.Context, id int64) (models.Member, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM member WHERE id = $1`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	return m, err
}

// ResolveCaller implements auth.Resolver.
func (d *SQLDirectory) ResolveCaller(ctx context.Context, id int64) (auth.Caller, error) {
	m, err := d.Member(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return auth.Caller{}, auth.ErrUnknownCaller
	}
	if err != nil {
		return auth.Caller{}, err
	}
	return auth.Caller{ID: m.ID, Name: m.Name, ChurchID: m.ChurchID, Role: m.Role}, nil
}

// UpsertMember writes a member snapshot. Used by seeding and tests; the
// engine itself never writes members.
func UpsertMember(ctx context.Context, q db.Querier, m models.Member) error {
	role := m.Role
	if role == "" {
		role = auth.RoleMember
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO member (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			church_id = EXCLUDED.church_id,
			role = EXCLUDED.role,
			tithe_category = EXCLUDED.tithe_category,
			donor_category = EXCLUDED.donor_category,
			engagement = EXCLUDED.engagement,
			classification = EXCLUDED.classification,
			attendance_count = EXCLUDED.attendance_count,
			attendance_percent = EXCLUDED.attendance_percent,
			birth_date = EXCLUDED.birth_date,
			declared_age = EXCLUDED.declared_age,
			baptism_date = EXCLUDED.baptism_date,
			joined_at = EXCLUDED.joined_at
	`, m.ID, m.Name, m.ChurchID, role, m.TitheCategory, m.DonorCategory,
		m.Engagement, m.Classification, m.AttendanceCount, m.AttendancePercent,
		m.BirthDate, m.DeclaredAge, m.BaptismDate, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert member %d: %w", m.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.Name, &m.ChurchID, &m.Role, &m.TitheCategory, &m.DonorCategory,
		&m.Engagement, &m.Classification, &m.AttendanceCount, &m.AttendancePercent,
		&m.BirthDate, &m.DeclaredAge, &m.BaptismDate, &m.JoinedAt)
	return m, err
}
