// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

// Percentage returns votes as a share of total, rounded to two decimals.
// Zero when no votes were cast.
func Percentage(votes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(total)*10000) / 100
}

// Resolve ranks rows by votes, highest first, with the lower candidate id
// first among equals, and fills in percentages against totalVotes.
//
// The leader is the top row when it has at least one vote. Ties are not
// broken: Tie is set and TiedCandidates lists everyone sharing the top count
// so an administrator can decide before announcing. Leader is then the
// tied candidate with the lowest id.
func Resolve(index int, name string, rows []models.TallyRow, totalVotes int) models.PositionTally {
	ranked := make([]models.TallyRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Votes != ranked[j].Votes {
			return ranked[i].Votes > ranked[j].Votes
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})
	for i := range ranked {
		ranked[i].Percentage = Percentage(ranked[i].Votes, totalVotes)
	}

	t := models.PositionTally{
		PositionIndex: index,
		PositionName:  name,
		TotalVotes:    totalVotes,
		Rows:          ranked,
	}
	if len(ranked) == 0 || ranked[0].Votes == 0 {
		return t
	}

	leader := ranked[0]
	t.Leader = &leader
	for _, r := range ranked {
		if r.Votes != leader.Votes {
			break
		}
		t.TiedCandidates = append(t.TiedCandidates, r.CandidateID)
	}
	if len(t.TiedCandidates) > 1 {
		t.Tie = true
	} else {
		t.TiedCandidates = nil
	}
	return t
}

// positionTally aggregates the vote ledger of one position. Candidates in
// the config's removed list are left out of the rows, but their ballots
// still count toward the total. Candidates without any nomination or vote
// are omitted.
func positionTally(ctx context.Context, q db.Querier, cfg models.ElectionConfig, electionID string, index int) (models.PositionTally, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.member_id, c.name, c.nominations,
			(SELECT COUNT(*) FROM election_vote v
			 WHERE v.election_id = c.election_id
			   AND v.position_index = c.position_index
			   AND v.candidate_id = c.member_id
			   AND v.vote_type = 'vote')
		FROM election_candidate c
		WHERE c.election_id = $1 AND c.position_index = $2
		ORDER BY c.member_id
	`, electionID, index)
	if err != nil {
		return models.PositionTally{}, fmt.Errorf("failed to tally position: %w", err)
	}

	tallyRows := []models.TallyRow{}
	for rows.Next() {
		var r models.TallyRow
		if err := rows.Scan(&r.CandidateID, &r.Name, &r.Nominations, &r.Votes); err != nil {
			rows.Close()
			return models.PositionTally{}, err
		}
		if cfg.RemovedCandidates.Contains(r.CandidateID) {
			continue
		}
		if r.Nominations == 0 && r.Votes == 0 {
			continue
		}
		tallyRows = append(tallyRows, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.PositionTally{}, err
	}

	var total int
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM election_vote
		WHERE election_id = $1 AND position_index = $2 AND vote_type = 'vote'
	`, electionID, index).Scan(&total)
	if err != nil {
		return models.PositionTally{}, fmt.Errorf("failed to count votes: %w", err)
	}

	t := Resolve(index, cfg.Positions.Name(index), tallyRows, total)

	result, err := loadResult(ctx, q, electionID, index)
	switch {
	case err == nil:
		t.Result = &result
	case !errors.Is(err, sql.ErrNoRows):
		return models.PositionTally{}, err
	}
	return t, nil
}

func loadResult(ctx context.Context, q db.Querier, electionID string, index int) (models.PositionResult, error) {
	var r models.PositionResult
	err := q.QueryRowContext(ctx, `
		SELECT election_id, position_index, position_name, winner_id, winner_name,
			votes, total_votes, percentage, tie, announced_by, announced_at
		FROM position_result
		WHERE election_id = $1 AND position_index = $2
	`, electionID, index).Scan(&r.ElectionID, &r.PositionIndex, &r.PositionName, &r.WinnerID,
		&r.WinnerName, &r.Votes, &r.TotalVotes, &r.Percentage, &r.Tie, &r.AnnouncedBy, &r.AnnouncedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("failed to load result: %w", err)
	}
	return r, err
}
