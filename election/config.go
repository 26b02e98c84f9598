// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// CreateConfig stores a new draft config. Non-super-admins always create
// configs for their own church.
func (s *Service) CreateConfig(ctx context.Context, caller auth.Caller, req models.ConfigRequest) (models.ElectionConfig, error) {
	if err := requireAdmin(caller); err != nil {
		return models.ElectionConfig{}, err
	}

	churchID := caller.ChurchID
	if caller.IsSuperAdmin() && req.ChurchID != 0 {
		churchID = req.ChurchID
	}

	positions, err := normalizePositions(req.Positions)
	if err != nil {
		return models.ElectionConfig{}, err
	}
	if len(positions) == 0 {
		return models.ElectionConfig{}, fmt.Errorf("%w: at least one position is required", ErrValidation)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.ElectionConfig{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	maxNominations := req.MaxNominationsPerVoter
	switch {
	case maxNominations == 0:
		maxNominations = models.DefaultMaxNominations
	case maxNominations < 0:
		return models.ElectionConfig{}, fmt.Errorf("%w: maxNominationsPerVoter must be at least 1", ErrValidation)
	}

	var criteria models.Criteria
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	if err := criteria.Validate(); err != nil {
		return models.ElectionConfig{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	voters, err := normalizeMemberIDs("voters", req.Voters)
	if err != nil {
		return models.ElectionConfig{}, err
	}
	removed, err := normalizeMemberIDs("removedCandidates", req.RemovedCandidates)
	if err != nil {
		return models.ElectionConfig{}, err
	}

	descriptions := models.PositionDescriptions(req.PositionDescriptions)
	if descriptions == nil {
		descriptions = models.PositionDescriptions{}
	}

	now := s.now()
	cfg := models.ElectionConfig{
		ID:                     uuid.NewString(),
		ChurchID:               churchID,
		ChurchName:             strings.TrimSpace(req.ChurchName),
		Title:                  title,
		Description:            strings.TrimSpace(req.Description),
		Positions:              positions,
		PositionDescriptions:   descriptions,
		Voters:                 voters,
		Criteria:               criteria,
		MaxNominationsPerVoter: maxNominations,
		RemovedCandidates:      removed,
		CurrentLeaders:         models.Leaders{},
		Status:                 models.ConfigDraft,
		CreatedBy:              caller.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO election_config (`+configColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, cfg.ID, cfg.ChurchID, cfg.ChurchName, cfg.Title, cfg.Description, cfg.Positions,
			cfg.PositionDescriptions, cfg.Criteria, cfg.MaxNominationsPerVoter, cfg.RemovedCandidates,
			cfg.CurrentLeaders, cfg.Status, cfg.CreatedBy, cfg.CreatedAt, cfg.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert config: %w", err)
		}
		return replaceVoters(ctx, tx, cfg.ID, voters)
	})
	if err != nil {
		return models.ElectionConfig{}, err
	}

	s.log.Info("config created",
		zap.String("config_id", cfg.ID),
		zap.Int64("church_id", cfg.ChurchID),
		zap.Int("positions", len(cfg.Positions)),
		zap.Int("voters", len(cfg.Voters)),
	)
	return cfg, nil
}

// UpdateConfig applies the non-empty fields of req. Positions cannot change
// while an election of the config is still running.
func (s *Service) UpdateConfig(ctx context.Context, caller auth.Caller, id string, req models.ConfigRequest) (models.ElectionConfig, error) {
	if err := requireAdmin(caller); err != nil {
		return models.ElectionConfig{}, err
	}

	cfg, err := s.visibleConfig(ctx, s.db, caller, id)
	if err != nil {
		return models.ElectionConfig{}, err
	}

	if len(req.Positions) > 0 {
		positions, err := normalizePositions(req.Positions)
		if err != nil {
			return models.ElectionConfig{}, err
		}
		if !slices.Equal(positions, cfg.Positions) {
			e, err := currentElection(ctx, s.db, cfg)
			switch {
			case err == nil && e.Status != models.ElectionCompleted:
				return models.ElectionConfig{}, fmt.Errorf("%w: positions cannot change while an election is running", ErrInvalidState)
			case err != nil && !errors.Is(err, ErrNotFound):
				return models.ElectionConfig{}, err
			}
			cfg.Positions = positions
		}
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		cfg.Title = title
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		cfg.Description = desc
	}
	if name := strings.TrimSpace(req.ChurchName); name != "" {
		cfg.ChurchName = name
	}
	if req.PositionDescriptions != nil {
		cfg.PositionDescriptions = req.PositionDescriptions
	}
	if req.Criteria != nil {
		if err := req.Criteria.Validate(); err != nil {
			return models.ElectionConfig{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		cfg.Criteria = *req.Criteria
	}
	switch {
	case req.MaxNominationsPerVoter < 0:
		return models.ElectionConfig{}, fmt.Errorf("%w: maxNominationsPerVoter must be at least 1", ErrValidation)
	case req.MaxNominationsPerVoter > 0:
		cfg.MaxNominationsPerVoter = req.MaxNominationsPerVoter
	}
	if req.RemovedCandidates != nil {
		removed, err := normalizeMemberIDs("removedCandidates", req.RemovedCandidates)
		if err != nil {
			return models.ElectionConfig{}, err
		}
		cfg.RemovedCandidates = removed
	}
	if req.Voters != nil {
		voters, err := normalizeMemberIDs("voters", req.Voters)
		if err != nil {
			return models.ElectionConfig{}, err
		}
		cfg.Voters = voters
	}
	cfg.UpdatedAt = s.now()

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE election_config
			SET church_name = $1, title = $2, description = $3, positions = $4,
				position_descriptions = $5, criteria = $6, max_nominations = $7,
				removed_candidates = $8, updated_at = $9
			WHERE id = $10
		`, cfg.ChurchName, cfg.Title, cfg.Description, cfg.Positions,
			cfg.PositionDescriptions, cfg.Criteria, cfg.MaxNominationsPerVoter,
			cfg.RemovedCandidates, cfg.UpdatedAt, cfg.ID)
		if err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
		if req.Voters == nil {
			return nil
		}
		return replaceVoters(ctx, tx, cfg.ID, cfg.Voters)
	})
	if err != nil {
		return models.ElectionConfig{}, err
	}

	s.log.Info("config updated", zap.String("config_id", cfg.ID))
	return cfg, nil
}

// GetConfig returns a config visible to the caller.
func (s *Service) GetConfig(ctx context.Context, caller auth.Caller, id string) (models.ElectionConfig, error) {
	return s.visibleConfig(ctx, s.db, caller, id)
}

// LatestConfig returns the most recently created config of the caller's
// church.
func (s *Service) LatestConfig(ctx context.Context, caller auth.Caller) (models.ElectionConfig, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM election_config
		WHERE church_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, caller.ChurchID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ElectionConfig{}, fmt.Errorf("%w: no config for church %d", ErrNotFound, caller.ChurchID)
	}
	if err != nil {
		return models.ElectionConfig{}, fmt.Errorf("failed to query config: %w", err)
	}
	return loadConfig(ctx, s.db, id)
}

// ListConfigs returns the configs visible to the caller, newest first.
func (s *Service) ListConfigs(ctx context.Context, caller auth.Caller) ([]models.ElectionConfig, error) {
	query := `SELECT ` + configColumns + ` FROM election_config`
	var args []any
	if !caller.IsSuperAdmin() {
		query += ` WHERE church_id = $1`
		args = append(args, caller.ChurchID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	configs := []models.ElectionConfig{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		configs = append(configs, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rosters are read after the config cursor is closed
	for i := range configs {
		configs[i].Voters, err = loadVoters(ctx, s.db, configs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return configs, nil
}

// DeleteConfig removes a config and every election, candidate, ballot and
// result that belongs to it.
func (s *Service) DeleteConfig(ctx context.Context, caller auth.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, err := s.visibleConfig(ctx, s.db, caller, id); err != nil {
		return err
	}

	statements := []string{
		`DELETE FROM election_vote WHERE election_id IN (SELECT id FROM election WHERE config_id = $1)`,
		`DELETE FROM position_result WHERE election_id IN (SELECT id FROM election WHERE config_id = $1)`,
		`DELETE FROM election_candidate WHERE election_id IN (SELECT id FROM election WHERE config_id = $1)`,
		`DELETE FROM election WHERE config_id = $1`,
		`DELETE FROM election_voter WHERE config_id = $1`,
		`DELETE FROM election_config WHERE id = $1`,
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete config: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("config deleted", zap.String("config_id", id), zap.Int64("caller_id", caller.ID))
	return nil
}

// ToggleStatus flips a config between active and paused and mirrors the
// status onto its running election. Resuming a config that never started
// starts it.
func (s *Service) ToggleStatus(ctx context.Context, caller auth.Caller, id string) (models.ToggleStatusResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return models.ToggleStatusResponse{}, err
	}
	cfg, err := s.visibleConfig(ctx, s.db, caller, id)
	if err != nil {
		return models.ToggleStatusResponse{}, err
	}

	next := models.ConfigActive
	if cfg.Status == models.ConfigActive {
		next = models.ConfigPaused
	}

	e, err := currentElection(ctx, s.db, cfg)
	if errors.Is(err, ErrNotFound) && next == models.ConfigActive {
		started, err := s.Start(ctx, caller, cfg.ID)
		if err != nil {
			return models.ToggleStatusResponse{}, err
		}
		return models.ToggleStatusResponse{
			ConfigID: cfg.ID,
			Status:   models.ConfigActive,
			Election: &started.Election,
			Started:  true,
		}, nil
	}
	hasElection := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.ToggleStatusResponse{}, err
	}

	resp := models.ToggleStatusResponse{ConfigID: cfg.ID, Status: next}
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE election_config SET status = $1, updated_at = $2 WHERE id = $3
		`, next, s.now(), cfg.ID)
		if err != nil {
			return fmt.Errorf("failed to update config status: %w", err)
		}

		if !hasElection || e.Status == models.ElectionCompleted {
			return nil
		}
		e.Status = models.ElectionActive
		if next == models.ConfigPaused {
			e.Status = models.ElectionPaused
		}
		e, err = s.saveElection(ctx, tx, e)
		if err != nil {
			return err
		}
		resp.Election = &e
		return nil
	})
	if err != nil {
		return models.ToggleStatusResponse{}, err
	}

	s.log.Info("config status toggled",
		zap.String("config_id", cfg.ID),
		zap.String("from", cfg.Status),
		zap.String("to", next),
	)
	return resp, nil
}

// SetMaxNominations changes the per-voter nomination cap. Ballots already
// cast are kept.
func (s *Service) SetMaxNominations(ctx context.Context, caller auth.Caller, req models.SetMaxNominationsRequest) (models.ElectionConfig, error) {
	if err := requireAdmin(caller); err != nil {
		return models.ElectionConfig{}, err
	}
	if req.MaxNominations < 1 {
		return models.ElectionConfig{}, fmt.Errorf("%w: maxNominations must be at least 1", ErrValidation)
	}
	cfg, err := s.visibleConfig(ctx, s.db, caller, req.ConfigID)
	if err != nil {
		return models.ElectionConfig{}, err
	}

	cfg.MaxNominationsPerVoter = req.MaxNominations
	cfg.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE election_config SET max_nominations = $1, updated_at = $2 WHERE id = $3
	`, cfg.MaxNominationsPerVoter, cfg.UpdatedAt, cfg.ID)
	if err != nil {
		return models.ElectionConfig{}, fmt.Errorf("failed to update max nominations: %w", err)
	}

	s.log.Info("max nominations set",
		zap.String("config_id", cfg.ID),
		zap.Int("max_nominations", cfg.MaxNominationsPerVoter),
	)
	return cfg, nil
}

func replaceVoters(ctx context.Context, tx *sql.Tx, configID string, voters []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM election_voter WHERE config_id = $1`, configID); err != nil {
		return fmt.Errorf("failed to clear voters: %w", err)
	}
	for _, v := range voters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO election_voter (config_id, member_id) VALUES ($1, $2)
		`, configID, v)
		if err != nil {
			return fmt.Errorf("failed to insert voter %d: %w", v, err)
		}
	}
	return nil
}

func normalizePositions(in []string) (models.PositionList, error) {
	out := make(models.PositionList, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: position names cannot be empty", ErrValidation)
		}
		if slices.Contains(out, p) {
			return nil, fmt.Errorf("%w: duplicate position %q", ErrValidation, p)
		}
		out = append(out, p)
	}
	return out, nil
}

func normalizeMemberIDs(field string, ids []int64) (models.MemberIDs, error) {
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: %s contains invalid member id %d", ErrValidation, field, id)
		}
	}
	out := models.NewMemberIDs(ids)
	if out == nil {
		out = models.MemberIDs{}
	}
	return out, nil
}
