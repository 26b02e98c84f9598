// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// Start opens the nomination phase of the first position. The latest
// unfinished election of the config is reused with its ballots, candidates
// and results purged; otherwise a new run is created. Either way the
// candidate pool is rebuilt from current member data.
func (s *Service) Start(ctx context.Context, caller auth.Caller, configID string) (models.StartResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return models.StartResponse{}, err
	}
	cfg, err := s.visibleConfig(ctx, s.db, caller, configID)
	if err != nil {
		return models.StartResponse{}, err
	}
	if len(cfg.Positions) == 0 {
		return models.StartResponse{}, fmt.Errorf("%w: config has no positions", ErrInvalidState)
	}

	members, err := s.members.ChurchMembers(ctx, cfg.ChurchID)
	if err != nil {
		return models.StartResponse{}, fmt.Errorf("failed to load members: %w", err)
	}
	now := s.now()
	pool := BuildPool(cfg, members, now)

	var (
		e      models.Election
		reused bool
	)
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		latest, err := currentElection(ctx, tx, cfg)
		switch {
		case err == nil && latest.Status != models.ElectionCompleted:
			reused = true
			if err := purgeElection(ctx, tx, latest.ID); err != nil {
				return err
			}
			latest.Status = models.ElectionActive
			latest.CurrentPosition = 0
			latest.CurrentPhase = models.PhaseNomination
			latest.ResultAnnounced = false
			latest.CompletedAt = nil
			e, err = s.saveElection(ctx, tx, latest)
			if err != nil {
				return err
			}
		case err == nil || errors.Is(err, ErrNotFound):
			run := 1
			if err == nil {
				run = latest.Run + 1
			}
			e = models.Election{
				ID:              uuid.NewString(),
				ConfigID:        cfg.ID,
				Run:             run,
				Status:          models.ElectionActive,
				CurrentPosition: 0,
				CurrentPhase:    models.PhaseNomination,
				Version:         1,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO election (`+electionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, e.ID, e.ConfigID, e.Run, e.Status, e.CurrentPosition, e.CurrentPhase,
				e.ResultAnnounced, e.Version, e.CreatedAt, e.UpdatedAt, e.CompletedAt)
			if err != nil {
				return fmt.Errorf("failed to insert election: %w", err)
			}
		default:
			return err
		}

		// Older runs are superseded
		_, err = tx.ExecContext(ctx, `
			UPDATE election
			SET status = 'completed', completed_at = $1, updated_at = $2, version = version + 1
			WHERE config_id = $3 AND id <> $4 AND status <> 'completed'
		`, now, now, cfg.ID, e.ID)
		if err != nil {
			return fmt.Errorf("failed to supersede elections: %w", err)
		}

		if err := insertPool(ctx, tx, e.ID, pool); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE election_config SET status = $1, current_leaders = $2, updated_at = $3 WHERE id = $4
		`, models.ConfigActive, models.Leaders{}, now, cfg.ID)
		if err != nil {
			return fmt.Errorf("failed to activate config: %w", err)
		}
		return nil
	})
	if db.IsUniqueViolation(err) {
		return models.StartResponse{}, fmt.Errorf("%w: config %s was started concurrently", ErrConflict, cfg.ID)
	}
	if err != nil {
		return models.StartResponse{}, err
	}
	e.PositionName = cfg.Positions.Name(e.CurrentPosition)

	s.log.Info("election started",
		zap.String("config_id", cfg.ID),
		zap.String("election_id", e.ID),
		zap.Int("run", e.Run),
		zap.Bool("reused", reused),
		zap.Int("candidates", len(pool)),
	)
	return models.StartResponse{
		ElectionID: e.ID,
		Election:   e,
		Reused:     reused,
		Pool:       PoolSizes(cfg, pool),
	}, nil
}

func purgeElection(ctx context.Context, tx *sql.Tx, electionID string) error {
	for _, stmt := range []string{
		`DELETE FROM election_vote WHERE election_id = $1`,
		`DELETE FROM position_result WHERE election_id = $1`,
		`DELETE FROM election_candidate WHERE election_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, electionID); err != nil {
			return fmt.Errorf("failed to purge election: %w", err)
		}
	}
	return nil
}

// controlTarget loads the running election a control request applies to.
func (s *Service) controlTarget(ctx context.Context, q db.Querier, caller auth.Caller, configID string, version *int) (models.ElectionConfig, models.Election, error) {
	cfg, err := s.visibleConfig(ctx, q, caller, configID)
	if err != nil {
		return models.ElectionConfig{}, models.Election{}, err
	}
	e, err := currentElection(ctx, q, cfg)
	if err != nil {
		return models.ElectionConfig{}, models.Election{}, err
	}
	if err := requireRunning(e); err != nil {
		return models.ElectionConfig{}, models.Election{}, err
	}
	if err := checkVersion(e, version); err != nil {
		return models.ElectionConfig{}, models.Election{}, err
	}
	return cfg, e, nil
}

// AdvancePhase moves the current position from nomination to voting. During
// voting on the last position a target phase of "completed" finishes the
// election.
func (s *Service) AdvancePhase(ctx context.Context, caller auth.Caller, req models.AdvancePhaseRequest) (models.Election, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Election{}, err
	}

	var from string
	var e models.Election
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cfg, current, err := s.controlTarget(ctx, tx, caller, req.ConfigID, req.Version)
		if err != nil {
			return err
		}
		from = current.CurrentPhase
		last := current.CurrentPosition == len(cfg.Positions)-1

		switch {
		case from == models.PhaseNomination && (req.Phase == "" || req.Phase == models.PhaseVoting):
			current.CurrentPhase = models.PhaseVoting
			current.ResultAnnounced = false
			_, err := tx.ExecContext(ctx, `
				UPDATE election_candidate SET phase = $1
				WHERE election_id = $2 AND position_index = $3 AND nominations > 0
			`, models.PhaseVoting, current.ID, current.CurrentPosition)
			if err != nil {
				return fmt.Errorf("failed to tag candidates: %w", err)
			}
		case from == models.PhaseVoting && last && (req.Phase == "" || req.Phase == models.PhaseCompleted):
			current = s.complete(current)
		case from == models.PhaseVoting && req.Phase == models.PhaseNomination:
			return fmt.Errorf("%w: use reset-voting to reopen the position", ErrInvalidState)
		case from == models.PhaseVoting:
			return fmt.Errorf("%w: voting on %q is open; use advance-position to move on", ErrInvalidState, current.PositionName)
		default:
			return fmt.Errorf("%w: cannot move from %s to %q", ErrInvalidState, from, req.Phase)
		}

		e, err = s.saveElection(ctx, tx, current)
		if err != nil {
			return err
		}
		e.PositionName = cfg.Positions.Name(e.CurrentPosition)
		return nil
	})
	if err != nil {
		return models.Election{}, err
	}

	s.log.Info("phase advanced",
		zap.String("config_id", e.ConfigID),
		zap.String("election_id", e.ID),
		zap.String("position", e.PositionName),
		zap.String("from", from),
		zap.String("to", e.CurrentPhase),
	)
	return e, nil
}

// AdvancePosition closes the current position and opens nomination on the
// next one. The last position has no successor; the election is finished
// there with advance-phase to "completed".
func (s *Service) AdvancePosition(ctx context.Context, caller auth.Caller, req models.AdvancePositionRequest) (models.Election, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Election{}, err
	}

	var from int
	var e models.Election
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cfg, current, err := s.controlTarget(ctx, tx, caller, req.ConfigID, req.Version)
		if err != nil {
			return err
		}
		from = current.CurrentPosition
		next := from + 1
		if next >= len(cfg.Positions) {
			return fmt.Errorf("%w: %q is the last position; use advance-phase to complete the election", ErrInvalidState, current.PositionName)
		}
		if req.Position != nil && *req.Position != next {
			return fmt.Errorf("%w: next position is %d, request targets %d", ErrConflict, next, *req.Position)
		}

		current.CurrentPosition = next
		current.CurrentPhase = models.PhaseNomination
		current.ResultAnnounced = false

		e, err = s.saveElection(ctx, tx, current)
		if err != nil {
			return err
		}
		e.PositionName = cfg.Positions.Name(e.CurrentPosition)
		return nil
	})
	if err != nil {
		return models.Election{}, err
	}

	s.log.Info("position advanced",
		zap.String("config_id", e.ConfigID),
		zap.String("election_id", e.ID),
		zap.Int("from", from),
		zap.Int("to", e.CurrentPosition),
		zap.String("phase", e.CurrentPhase),
	)
	return e, nil
}

// ResetVoting deletes the votes of the current position and reopens voting.
// Nominations are kept.
func (s *Service) ResetVoting(ctx context.Context, caller auth.Caller, req models.ResetVotingRequest) (models.ResetVotingResponse, error) {
	if err := requireAdmin(caller); err != nil {
		return models.ResetVotingResponse{}, err
	}

	var resp models.ResetVotingResponse
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cfg, current, err := s.controlTarget(ctx, tx, caller, req.ConfigID, req.Version)
		if err != nil {
			return err
		}
		if current.CurrentPhase != models.PhaseVoting {
			return fmt.Errorf("%w: %q is not in voting", ErrInvalidState, current.PositionName)
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM election_vote
			WHERE election_id = $1 AND position_index = $2 AND vote_type = 'vote'
		`, current.ID, current.CurrentPosition)
		if err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return err
		}
		resp.DeletedVotes = int(deleted)

		for _, stmt := range []string{
			`UPDATE election_candidate SET votes = 0 WHERE election_id = $1 AND position_index = $2`,
			`DELETE FROM position_result WHERE election_id = $1 AND position_index = $2`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, current.ID, current.CurrentPosition); err != nil {
				return fmt.Errorf("failed to reset position: %w", err)
			}
		}

		if _, ok := cfg.CurrentLeaders[current.PositionName]; ok {
			delete(cfg.CurrentLeaders, current.PositionName)
			if err := saveLeaders(ctx, tx, cfg, s.now()); err != nil {
				return err
			}
		}

		current.ResultAnnounced = false
		resp.Election, err = s.saveElection(ctx, tx, current)
		if err != nil {
			return err
		}
		resp.Election.PositionName = cfg.Positions.Name(resp.Election.CurrentPosition)
		return nil
	})
	if err != nil {
		return models.ResetVotingResponse{}, err
	}

	s.log.Info("voting reset",
		zap.String("config_id", resp.Election.ConfigID),
		zap.String("election_id", resp.Election.ID),
		zap.String("position", resp.Election.PositionName),
		zap.Int("deleted_votes", resp.DeletedVotes),
	)
	return resp, nil
}

// AnnounceResult freezes the leader of the current position. A tied leader
// is only announced when the request explicitly accepts the tie.
func (s *Service) AnnounceResult(ctx context.Context, caller auth.Caller, req models.AnnounceResultRequest) (models.PositionTally, error) {
	if err := requireAdmin(caller); err != nil {
		return models.PositionTally{}, err
	}

	var tally models.PositionTally
	var e models.Election
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cfg, current, err := s.controlTarget(ctx, tx, caller, req.ConfigID, req.Version)
		if err != nil {
			return err
		}
		if current.CurrentPhase != models.PhaseVoting {
			return fmt.Errorf("%w: results are announced during voting", ErrInvalidState)
		}
		if current.ResultAnnounced {
			return fmt.Errorf("%w: result for %q was already announced", ErrInvalidState, current.PositionName)
		}

		tally, err = positionTally(ctx, tx, cfg, current.ID, current.CurrentPosition)
		if err != nil {
			return err
		}
		if tally.Leader == nil {
			return fmt.Errorf("%w: no votes for %q", ErrInvalidState, current.PositionName)
		}
		if tally.Tie && !req.AcceptTie {
			return fmt.Errorf("%w: candidates %v are tied; resend with acceptTie to announce", ErrInvalidState, tally.TiedCandidates)
		}

		now := s.now()
		result := models.PositionResult{
			ElectionID:    current.ID,
			PositionIndex: current.CurrentPosition,
			PositionName:  tally.PositionName,
			WinnerID:      tally.Leader.CandidateID,
			WinnerName:    tally.Leader.Name,
			Votes:         tally.Leader.Votes,
			TotalVotes:    tally.TotalVotes,
			Percentage:    tally.Leader.Percentage,
			Tie:           tally.Tie,
			AnnouncedBy:   caller.ID,
			AnnouncedAt:   now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO position_result (
				election_id, position_index, position_name, winner_id, winner_name,
				votes, total_votes, percentage, tie, announced_by, announced_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, result.ElectionID, result.PositionIndex, result.PositionName, result.WinnerID, result.WinnerName,
			result.Votes, result.TotalVotes, result.Percentage, result.Tie, result.AnnouncedBy, result.AnnouncedAt)
		if err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		tally.Result = &result

		if cfg.CurrentLeaders == nil {
			cfg.CurrentLeaders = models.Leaders{}
		}
		cfg.CurrentLeaders[result.PositionName] = models.Leader{
			CandidateID: result.WinnerID,
			Name:        result.WinnerName,
			Votes:       result.Votes,
			Percentage:  result.Percentage,
			AnnouncedAt: now,
		}
		if err := saveLeaders(ctx, tx, cfg, now); err != nil {
			return err
		}

		current.ResultAnnounced = true
		e, err = s.saveElection(ctx, tx, current)
		return err
	})
	if db.IsUniqueViolation(err) {
		return models.PositionTally{}, fmt.Errorf("%w: result was announced concurrently", ErrConflict)
	}
	if err != nil {
		return models.PositionTally{}, err
	}

	s.log.Info("result announced",
		zap.String("config_id", e.ConfigID),
		zap.String("election_id", e.ID),
		zap.String("position", tally.PositionName),
		zap.Int64("winner_id", tally.Result.WinnerID),
		zap.Int("votes", tally.Result.Votes),
		zap.Int("total_votes", tally.TotalVotes),
		zap.Bool("tie", tally.Tie),
	)
	return tally, nil
}

func saveLeaders(ctx context.Context, q db.Querier, cfg models.ElectionConfig, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE election_config SET current_leaders = $1, updated_at = $2 WHERE id = $3
	`, cfg.CurrentLeaders, now, cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to update leaders: %w", err)
	}
	return nil
}
