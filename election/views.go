// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/eligibility"
	"github.com/danielhkuo/quickly-elect/models"
)

// VotingInterface is what a voter sees for the current position: the
// selectable candidates and their own nominations and vote. Vote counts are
// only shown once the result is announced.
func (s *Service) VotingInterface(ctx context.Context, caller auth.Caller, configID string) (models.VotingInterface, error) {
	cfg, err := loadConfig(ctx, s.db, configID)
	if err != nil {
		return models.VotingInterface{}, err
	}
	if !cfg.IsVoter(caller.ID) {
		return models.VotingInterface{}, fmt.Errorf("%w: member %d is not on the voter roster", ErrForbidden, caller.ID)
	}
	e, err := currentElection(ctx, s.db, cfg)
	if err != nil {
		return models.VotingInterface{}, err
	}

	view := models.VotingInterface{
		ConfigID:            cfg.ID,
		Title:               cfg.Title,
		Election:            e,
		PositionName:        e.PositionName,
		PositionDescription: cfg.PositionDescriptions[e.PositionName],
		TotalPositions:      len(cfg.Positions),
		Candidates:          []models.VotingCandidate{},
		MaxNominations:      cfg.MaxNominationsPerVoter,
		MyNominations:       []int64{},
		VotersCount:         len(cfg.Voters),
	}
	if e.Status == models.ElectionCompleted {
		view.AllVotesCast = true
		return view, nil
	}

	mine, err := voterBallots(ctx, s.db, e.ID, caller.ID, e.CurrentPosition)
	if err != nil {
		return models.VotingInterface{}, err
	}
	votedFor := map[int64]bool{}
	nominated := map[int64]bool{}
	for _, b := range mine {
		switch b.VoteType {
		case models.VoteTypeNomination:
			nominated[b.CandidateID] = true
			view.MyNominations = append(view.MyNominations, b.CandidateID)
		case models.VoteTypeVote:
			votedFor[b.CandidateID] = true
			id := b.CandidateID
			view.MyVote = &id
			view.HasVoted = true
		}
	}
	view.RemainingNominations = max(cfg.MaxNominationsPerVoter-len(view.MyNominations), 0)

	candidates, err := loadCandidates(ctx, s.db, e.ID, e.CurrentPosition)
	if err != nil {
		return models.VotingInterface{}, err
	}
	tally, err := positionTally(ctx, s.db, cfg, e.ID, e.CurrentPosition)
	if err != nil {
		return models.VotingInterface{}, err
	}
	view.Result = tally.Result

	var held map[int64]int
	if cfg.Criteria.PositionLimit.Enabled {
		held, err = heldPositions(ctx, s.db, e.ID, e.CurrentPosition)
		if err != nil {
			return models.VotingInterface{}, err
		}
	}

	for _, c := range candidates {
		if cfg.RemovedCandidates.Contains(c.ID) {
			continue
		}
		if !eligibility.WithinPositionLimit(cfg.Criteria, held[c.ID]) {
			continue
		}
		if e.CurrentPhase == models.PhaseVoting && c.Nominations == 0 {
			continue
		}
		vc := models.VotingCandidate{
			ID:          c.ID,
			Name:        c.Name,
			Nominations: c.Nominations,
			NominatedBy: nominated[c.ID],
			VotedBy:     votedFor[c.ID],
		}
		if e.ResultAnnounced {
			votes := c.Votes
			pct := Percentage(votes, tally.TotalVotes)
			vc.Votes = &votes
			vc.Percentage = &pct
		}
		view.Candidates = append(view.Candidates, vc)
	}

	view.VotesCast, err = countVoters(ctx, s.db, e.ID, e.CurrentPosition)
	if err != nil {
		return models.VotingInterface{}, err
	}
	view.AllVotesCast = allVotesCast(e, view.VotesCast, view.VotersCount)
	return view, nil
}

// Dashboard is the administrator's view of a config: the tally of every
// position of the current election and turnout on the current position.
func (s *Service) Dashboard(ctx context.Context, caller auth.Caller, configID string) (models.Dashboard, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Dashboard{}, err
	}
	cfg, err := s.visibleConfig(ctx, s.db, caller, configID)
	if err != nil {
		return models.Dashboard{}, err
	}

	d := models.Dashboard{
		Config:      cfg,
		Positions:   []models.PositionTally{},
		VotersCount: len(cfg.Voters),
	}
	e, err := currentElection(ctx, s.db, cfg)
	if errors.Is(err, ErrNotFound) {
		return d, nil
	}
	if err != nil {
		return models.Dashboard{}, err
	}
	d.Election = &e

	for i := range cfg.Positions {
		t, err := positionTally(ctx, s.db, cfg, e.ID, i)
		if err != nil {
			return models.Dashboard{}, err
		}
		d.Positions = append(d.Positions, t)
	}

	d.VotesCast, err = countVoters(ctx, s.db, e.ID, e.CurrentPosition)
	if err != nil {
		return models.Dashboard{}, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM election_vote
		WHERE election_id = $1 AND position_index = $2 AND vote_type = 'nomination'
	`, e.ID, e.CurrentPosition).Scan(&d.NominationsCast)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("failed to count nominations: %w", err)
	}
	d.AllVotesCast = allVotesCast(e, d.VotesCast, d.VotersCount)
	return d, nil
}

// VoteLog returns every ledger row of an election in the order it was cast.
func (s *Service) VoteLog(ctx context.Context, caller auth.Caller, electionID string) ([]models.Ballot, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	e, err := loadElection(ctx, s.db, electionID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.visibleConfig(ctx, s.db, caller, e.ConfigID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.election_id, v.voter_id, COALESCE(m.name, ''), v.position_index,
			v.candidate_id, COALESCE(c.name, ''), v.vote_type, v.slot, v.created_at
		FROM election_vote v
		LEFT JOIN member m ON m.id = v.voter_id
		LEFT JOIN election_candidate c
			ON c.election_id = v.election_id
			AND c.position_index = v.position_index
			AND c.member_id = v.candidate_id
		WHERE v.election_id = $1
		ORDER BY v.created_at, v.id
	`, e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote log: %w", err)
	}
	defer rows.Close()

	log := []models.Ballot{}
	for rows.Next() {
		var b models.Ballot
		if err := rows.Scan(&b.ID, &b.ElectionID, &b.VoterID, &b.VoterName, &b.PositionIndex,
			&b.CandidateID, &b.CandidateName, &b.VoteType, &b.Slot, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.PositionName = cfg.Positions.Name(b.PositionIndex)
		log = append(log, b)
	}
	return log, rows.Err()
}

// ActiveElections lists the unfinished elections the caller may vote in.
func (s *Service) ActiveElections(ctx context.Context, caller auth.Caller) ([]models.ActiveElection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.title, c.church_name, c.positions,
			e.id, e.config_id, e.run, e.status, e.current_position, e.current_phase,
			e.result_announced, e.version, e.created_at, e.updated_at, e.completed_at
		FROM election e
		JOIN election_config c ON c.id = e.config_id
		JOIN election_voter v ON v.config_id = c.id
		WHERE v.member_id = $1 AND e.status <> 'completed'
		ORDER BY e.created_at DESC, e.id
	`, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active elections: %w", err)
	}
	defer rows.Close()

	active := []models.ActiveElection{}
	for rows.Next() {
		var a models.ActiveElection
		var positions models.PositionList
		e := &a.Election
		if err := rows.Scan(&a.Title, &a.ChurchName, &positions,
			&e.ID, &e.ConfigID, &e.Run, &e.Status, &e.CurrentPosition, &e.CurrentPhase,
			&e.ResultAnnounced, &e.Version, &e.CreatedAt, &e.UpdatedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		a.ConfigID = e.ConfigID
		e.PositionName = positions.Name(e.CurrentPosition)
		a.PositionName = e.PositionName
		active = append(active, a)
	}
	return active, rows.Err()
}

// allVotesCast is true once every voter voted on the current position or
// the result was announced early.
func allVotesCast(e models.Election, votesCast, voters int) bool {
	if e.ResultAnnounced {
		return true
	}
	return voters > 0 && votesCast >= voters
}

func countVoters(ctx context.Context, q db.Querier, electionID string, position int) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT voter_id) FROM election_vote
		WHERE election_id = $1 AND position_index = $2 AND vote_type = 'vote'
	`, electionID, position).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

func voterBallots(ctx context.Context, q db.Querier, electionID string, voterID int64, position int) ([]models.Ballot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, candidate_id, vote_type, slot, created_at
		FROM election_vote
		WHERE election_id = $1 AND voter_id = $2 AND position_index = $3
		ORDER BY vote_type, slot
	`, electionID, voterID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	var out []models.Ballot
	for rows.Next() {
		b := models.Ballot{ElectionID: electionID, VoterID: voterID, PositionIndex: position}
		if err := rows.Scan(&b.ID, &b.CandidateID, &b.VoteType, &b.Slot, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
