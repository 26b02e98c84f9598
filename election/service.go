// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// Service is the election engine. It holds no election state of its own;
// every call reads the latest committed rows.
type Service struct {
	db      *sql.DB
	members MemberDirectory
	log     *zap.Logger
	now     func() time.Time
}

func NewService(conn *sql.DB, members MemberDirectory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:      conn,
		members: members,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func requireAdmin(caller auth.Caller) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: administrative role required", ErrForbidden)
	}
	return nil
}

const configColumns = `id, church_id, church_name, title, description, positions,
	position_descriptions, criteria, max_nominations, removed_candidates,
	current_leaders, status, created_by, created_at, updated_at`

func scanConfig(row scanner) (models.ElectionConfig, error) {
	var c models.ElectionConfig
	err := row.Scan(&c.ID, &c.ChurchID, &c.ChurchName, &c.Title, &c.Description, &c.Positions,
		&c.PositionDescriptions, &c.Criteria, &c.MaxNominationsPerVoter, &c.RemovedCandidates,
		&c.CurrentLeaders, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// loadConfig reads a config with its voter roster.
func loadConfig(ctx context.Context, q db.Querier, id string) (models.ElectionConfig, error) {
	row := q.QueryRowContext(ctx, `SELECT `+configColumns+` FROM election_config WHERE id = $1`, id)
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ElectionConfig{}, fmt.Errorf("%w: config %s", ErrNotFound, id)
	}
	if err != nil {
		return models.ElectionConfig{}, fmt.Errorf("failed to load config: %w", err)
	}

	c.Voters, err = loadVoters(ctx, q, id)
	if err != nil {
		return models.ElectionConfig{}, err
	}
	return c, nil
}

func loadVoters(ctx context.Context, q db.Querier, configID string) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT member_id FROM election_voter WHERE config_id = $1 ORDER BY member_id
	`, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voters: %w", err)
	}
	defer rows.Close()

	voters := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		voters = append(voters, id)
	}
	return voters, rows.Err()
}

// visibleConfig loads a config the caller is allowed to see. Configs of other
// churches are reported as missing.
func (s *Service) visibleConfig(ctx context.Context, q db.Querier, caller auth.Caller, id string) (models.ElectionConfig, error) {
	if id == "" {
		return models.ElectionConfig{}, fmt.Errorf("%w: configId is required", ErrValidation)
	}
	cfg, err := loadConfig(ctx, q, id)
	if err != nil {
		return models.ElectionConfig{}, err
	}
	if !caller.CanAccessChurch(cfg.ChurchID) {
		return models.ElectionConfig{}, fmt.Errorf("%w: config %s", ErrNotFound, id)
	}
	return cfg, nil
}

const electionColumns = `id, config_id, run, status, current_position, current_phase,
	result_announced, version, created_at, updated_at, completed_at`

func scanElection(row scanner) (models.Election, error) {
	var e models.Election
	err := row.Scan(&e.ID, &e.ConfigID, &e.Run, &e.Status, &e.CurrentPosition, &e.CurrentPhase,
		&e.ResultAnnounced, &e.Version, &e.CreatedAt, &e.UpdatedAt, &e.CompletedAt)
	return e, err
}

// currentElection returns the latest run of a config, whatever its status.
func currentElection(ctx context.Context, q db.Querier, cfg models.ElectionConfig) (models.Election, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+electionColumns+`
		FROM election
		WHERE config_id = $1
		ORDER BY run DESC
		LIMIT 1
	`, cfg.ID)
	e, err := scanElection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, fmt.Errorf("%w: no election for config %s", ErrNotFound, cfg.ID)
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to load election: %w", err)
	}
	e.PositionName = cfg.Positions.Name(e.CurrentPosition)
	return e, nil
}

func loadElection(ctx context.Context, q db.Querier, id string) (models.Election, error) {
	row := q.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM election WHERE id = $1`, id)
	e, err := scanElection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, fmt.Errorf("%w: election %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to load election: %w", err)
	}
	return e, nil
}

// requireRunning rejects paused and completed elections.
func requireRunning(e models.Election) error {
	switch e.Status {
	case models.ElectionActive:
		return nil
	case models.ElectionPaused:
		return fmt.Errorf("%w: election is paused", ErrInvalidState)
	default:
		return fmt.Errorf("%w: election is completed", ErrInvalidState)
	}
}

// checkVersion rejects a request built from a stale election version.
func checkVersion(e models.Election, version *int) error {
	if version != nil && *version != e.Version {
		return fmt.Errorf("%w: election version is %d, request was built from %d", ErrConflict, e.Version, *version)
	}
	return nil
}

// saveElection writes e back with a compare-and-set on the version that was
// read. The returned election carries the incremented version.
func (s *Service) saveElection(ctx context.Context, q db.Querier, e models.Election) (models.Election, error) {
	e.UpdatedAt = s.now()
	res, err := q.ExecContext(ctx, `
		UPDATE election
		SET status = $1, current_position = $2, current_phase = $3, result_announced = $4,
			completed_at = $5, updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`, e.Status, e.CurrentPosition, e.CurrentPhase, e.ResultAnnounced,
		e.CompletedAt, e.UpdatedAt, e.ID, e.Version)
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to update election: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Election{}, err
	}
	if n == 0 {
		return models.Election{}, fmt.Errorf("%w: election %s was modified concurrently", ErrConflict, e.ID)
	}
	e.Version++
	return e, nil
}

func (s *Service) complete(e models.Election) models.Election {
	now := s.now()
	e.Status = models.ElectionCompleted
	e.CurrentPhase = models.PhaseCompleted
	e.CompletedAt = &now
	return e
}
