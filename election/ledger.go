// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/eligibility"
	"github.com/danielhkuo/quickly-elect/models"
)

// Cast appends a nomination or vote for the current position of the config.
//
// The store enforces the limits: the ledger is unique per (voter, position,
// candidate, type) and per (voter, position, type, slot). A nomination takes
// the next free slot up to the cap; a vote always takes slot 1. A racing
// duplicate therefore fails on insert and is reported as Conflict or
// LimitExceeded, never recorded twice.
func (s *Service) Cast(ctx context.Context, cmd models.CastBallot) (models.CastBallotResponse, error) {
	wantPhase, ok := phaseForKind(cmd.Kind)
	if !ok {
		return models.CastBallotResponse{}, fmt.Errorf("%w: unknown ballot kind %q", ErrValidation, cmd.Kind)
	}
	if cmd.CandidateID <= 0 {
		return models.CastBallotResponse{}, fmt.Errorf("%w: candidateId is required", ErrValidation)
	}
	if cmd.ConfigID == "" {
		return models.CastBallotResponse{}, fmt.Errorf("%w: configId is required", ErrValidation)
	}

	cfg, err := loadConfig(ctx, s.db, cmd.ConfigID)
	if err != nil {
		return models.CastBallotResponse{}, err
	}
	if !cfg.IsVoter(cmd.VoterID) {
		return models.CastBallotResponse{}, fmt.Errorf("%w: member %d is not on the voter roster", ErrForbidden, cmd.VoterID)
	}

	e, err := currentElection(ctx, s.db, cfg)
	if err != nil {
		return models.CastBallotResponse{}, err
	}
	if err := requireRunning(e); err != nil {
		return models.CastBallotResponse{}, err
	}
	if e.CurrentPhase != wantPhase {
		return models.CastBallotResponse{}, fmt.Errorf("%w: %q is in %s, not %s", ErrInvalidState, e.PositionName, e.CurrentPhase, wantPhase)
	}
	if e.ResultAnnounced {
		return models.CastBallotResponse{}, fmt.Errorf("%w: result for %q was already announced", ErrInvalidState, e.PositionName)
	}

	if cfg.RemovedCandidates.Contains(cmd.CandidateID) {
		return models.CastBallotResponse{}, fmt.Errorf("%w: candidate %d was removed", ErrNotFound, cmd.CandidateID)
	}
	candidate, err := loadCandidate(ctx, s.db, e.ID, e.CurrentPosition, cmd.CandidateID)
	if err != nil {
		return models.CastBallotResponse{}, err
	}
	if cfg.Criteria.PositionLimit.Enabled {
		held, err := heldPositions(ctx, s.db, e.ID, e.CurrentPosition)
		if err != nil {
			return models.CastBallotResponse{}, err
		}
		if !eligibility.WithinPositionLimit(cfg.Criteria, held[cmd.CandidateID]) {
			return models.CastBallotResponse{}, fmt.Errorf("%w: candidate %d %s", ErrNotFound, cmd.CandidateID, eligibility.ReasonPositionLimit)
		}
	}
	if cmd.Kind == models.VoteTypeVote && candidate.Nominations == 0 {
		return models.CastBallotResponse{}, fmt.Errorf("%w: candidate %d was not nominated", ErrInvalidState, cmd.CandidateID)
	}

	cast, err := castCount(ctx, s.db, e.ID, cmd.VoterID, e.CurrentPosition, cmd.Kind)
	if err != nil {
		return models.CastBallotResponse{}, err
	}
	limit := 1
	if cmd.Kind == models.VoteTypeNomination {
		limit = cfg.MaxNominationsPerVoter
	}
	if dup, err := hasBallot(ctx, s.db, e.ID, cmd.VoterID, e.CurrentPosition, cmd.CandidateID, cmd.Kind); err != nil {
		return models.CastBallotResponse{}, err
	} else if dup {
		return models.CastBallotResponse{}, alreadyCast(cmd)
	}
	if cast >= limit {
		return models.CastBallotResponse{}, overLimit(cmd, e, cast, limit)
	}

	ballot, err := s.record(ctx, cmd, e, limit)
	if db.IsUniqueViolation(err) {
		err = s.classifyRejected(ctx, cmd, e, limit)
		if errors.Is(err, errSlotTaken) {
			// The racing nomination has committed, so its slot is visible now
			ballot, err = s.record(ctx, cmd, e, limit)
			if db.IsUniqueViolation(err) {
				err = s.classifyRejected(ctx, cmd, e, limit)
			}
		}
	}
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrLimitExceeded) {
			return models.CastBallotResponse{}, err
		}
		return models.CastBallotResponse{}, fmt.Errorf("failed to record ballot: %w", err)
	}

	s.log.Debug("ballot recorded",
		zap.String("election_id", e.ID),
		zap.Int("position", e.CurrentPosition),
		zap.Int64("voter_id", cmd.VoterID),
		zap.Int64("candidate_id", cmd.CandidateID),
		zap.String("vote_type", cmd.Kind),
		zap.Int("slot", ballot.Slot),
	)

	resp := models.CastBallotResponse{
		BallotID:    ballot.ID,
		ElectionID:  e.ID,
		Position:    e.PositionName,
		CandidateID: cmd.CandidateID,
		VoteType:    cmd.Kind,
		Message:     "Vote recorded",
	}
	if cmd.Kind == models.VoteTypeNomination {
		resp.RemainingNominations = max(limit-ballot.Slot, 0)
		resp.Message = "Nomination recorded"
	}
	return resp, nil
}

// record writes one ballot and bumps the candidate counter. The slot is
// taken from the ledger inside the transaction, after the election row is
// locked at the version the caller validated against.
func (s *Service) record(ctx context.Context, cmd models.CastBallot, e models.Election, limit int) (models.Ballot, error) {
	ballot := models.Ballot{
		ID:            uuid.NewString(),
		ElectionID:    e.ID,
		VoterID:       cmd.VoterID,
		PositionIndex: e.CurrentPosition,
		CandidateID:   cmd.CandidateID,
		VoteType:      cmd.Kind,
		CreatedAt:     s.now(),
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := lockElection(ctx, tx, e); err != nil {
			return err
		}

		cast, err := castCount(ctx, tx, e.ID, cmd.VoterID, e.CurrentPosition, cmd.Kind)
		if err != nil {
			return err
		}
		if cast >= limit {
			return overLimit(cmd, e, cast, limit)
		}
		ballot.Slot = cast + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO election_vote (
				id, election_id, voter_id, position_index, candidate_id, vote_type, slot, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, ballot.ID, ballot.ElectionID, ballot.VoterID, ballot.PositionIndex,
			ballot.CandidateID, ballot.VoteType, ballot.Slot, ballot.CreatedAt)
		if err != nil {
			return err
		}

		counter := `UPDATE election_candidate SET votes = votes + 1`
		if cmd.Kind == models.VoteTypeNomination {
			counter = `UPDATE election_candidate SET nominations = nominations + 1`
		}
		_, err = tx.ExecContext(ctx, counter+`
			WHERE election_id = $1 AND position_index = $2 AND member_id = $3
		`, ballot.ElectionID, ballot.PositionIndex, ballot.CandidateID)
		if err != nil {
			return fmt.Errorf("failed to update candidate counter: %w", err)
		}
		return nil
	})
	return ballot, err
}

// lockElection takes the row lock of the election and fails when a control
// action has bumped its version since e was read. The no-op update blocks
// concurrent control actions until the ballot commits, and on PostgreSQL
// re-evaluates the version against the latest committed row.
func lockElection(ctx context.Context, tx *sql.Tx, e models.Election) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE election SET version = version WHERE id = $1 AND version = $2
	`, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("failed to lock election: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: election changed while casting, reload and retry", ErrConflict)
	}
	return nil
}

var errSlotTaken = fmt.Errorf("%w: another nomination was recorded at the same time, retry", ErrConflict)

func overLimit(cmd models.CastBallot, e models.Election, cast, limit int) error {
	if cmd.Kind == models.VoteTypeVote {
		return fmt.Errorf("%w: member %d already voted for %q", ErrConflict, cmd.VoterID, e.PositionName)
	}
	return fmt.Errorf("%w: %d of %d nominations used", ErrLimitExceeded, cast, limit)
}

// classifyRejected explains a ledger insert the store refused.
func (s *Service) classifyRejected(ctx context.Context, cmd models.CastBallot, e models.Election, limit int) error {
	dup, err := hasBallot(ctx, s.db, e.ID, cmd.VoterID, e.CurrentPosition, cmd.CandidateID, cmd.Kind)
	if err != nil {
		return err
	}
	if dup {
		return alreadyCast(cmd)
	}
	if cmd.Kind == models.VoteTypeVote {
		return fmt.Errorf("%w: member %d already voted for %q", ErrConflict, cmd.VoterID, e.PositionName)
	}

	// A concurrent nomination took the slot but the cap is not reached yet
	cast, err := castCount(ctx, s.db, e.ID, cmd.VoterID, e.CurrentPosition, cmd.Kind)
	if err != nil {
		return err
	}
	if cast < limit {
		return errSlotTaken
	}
	return fmt.Errorf("%w: all %d nominations used", ErrLimitExceeded, limit)
}

func alreadyCast(cmd models.CastBallot) error {
	return fmt.Errorf("%w: member %d already cast this %s for candidate %d", ErrConflict, cmd.VoterID, cmd.Kind, cmd.CandidateID)
}

func phaseForKind(kind string) (string, bool) {
	switch kind {
	case models.VoteTypeNomination:
		return models.PhaseNomination, true
	case models.VoteTypeVote:
		return models.PhaseVoting, true
	}
	return "", false
}

func loadCandidate(ctx context.Context, q db.Querier, electionID string, position int, memberID int64) (models.Candidate, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+candidateColumns+`
		FROM election_candidate
		WHERE election_id = $1 AND position_index = $2 AND member_id = $3
	`, electionID, position, memberID)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, fmt.Errorf("%w: member %d is not a candidate for this position", ErrNotFound, memberID)
	}
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to load candidate: %w", err)
	}
	return c, nil
}

func castCount(ctx context.Context, q db.Querier, electionID string, voterID int64, position int, kind string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM election_vote
		WHERE election_id = $1 AND voter_id = $2 AND position_index = $3 AND vote_type = $4
	`, electionID, voterID, position, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return n, nil
}

func hasBallot(ctx context.Context, q db.Querier, electionID string, voterID int64, position int, candidateID int64, kind string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM election_vote
		WHERE election_id = $1 AND voter_id = $2 AND position_index = $3
		  AND candidate_id = $4 AND vote_type = $5
	`, electionID, voterID, position, candidateID, kind).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check ballot: %w", err)
	}
	return n > 0, nil
}

// heldPositions counts the announced wins per member in the election,
// leaving out the position being decided.
func heldPositions(ctx context.Context, q db.Querier, electionID string, current int) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT winner_id, COUNT(*) FROM position_result
		WHERE election_id = $1 AND position_index <> $2
		GROUP BY winner_id
	`, electionID, current)
	if err != nil {
		return nil, fmt.Errorf("failed to count held positions: %w", err)
	}
	defer rows.Close()

	held := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		held[id] = n
	}
	return held, rows.Err()
}
