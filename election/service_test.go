// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/testutil"
)

type fixture struct {
	db    *sql.DB
	svc   *election.Service
	admin auth.Caller
	cfg   models.ElectionConfig
}

// newFixture creates voters 1..3, candidates 10 and 11 and a config over
// positions with voters 1..3.
func newFixture(t *testing.T, positions []string, maxNominations int) fixture {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	svc := testutil.NewTestService(t, conn)
	admin := testutil.CreateTestAdmin(t, conn)
	testutil.CreateTestMembers(t, conn, 1, 2, 3, 10, 11)
	cfg := testutil.CreateTestConfig(t, svc, admin, positions, []int64{1, 2, 3}, maxNominations)

	return fixture{db: conn, svc: svc, admin: admin, cfg: cfg}
}

func (f fixture) start(t *testing.T) models.StartResponse {
	t.Helper()
	resp, err := f.svc.Start(context.Background(), f.admin, f.cfg.ID)
	require.NoError(t, err)
	return resp
}

func (f fixture) cast(voter, candidate int64, kind string) error {
	_, err := f.svc.Cast(context.Background(), models.CastBallot{
		ConfigID:    f.cfg.ID,
		VoterID:     voter,
		CandidateID: candidate,
		Kind:        kind,
	})
	return err
}

func (f fixture) toVoting(t *testing.T) models.Election {
	t.Helper()
	e, err := f.svc.AdvancePhase(context.Background(), f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	return e
}

func TestStart_ThenDashboardIsZeroed(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)

	resp := f.start(t)
	assert.False(t, resp.Reused)
	assert.Equal(t, 1, resp.Election.Run)
	// 5 members plus the administrator, no criteria
	assert.Equal(t, map[string]int{"Elder": 6, "Deacon": 6}, resp.Pool)

	d, err := f.svc.Dashboard(context.Background(), f.admin, f.cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Election)
	assert.Equal(t, 0, d.Election.CurrentPosition)
	assert.Equal(t, models.PhaseNomination, d.Election.CurrentPhase)
	assert.False(t, d.Election.ResultAnnounced)
	assert.Equal(t, models.ConfigActive, d.Config.Status)
	assert.Zero(t, d.VotesCast)
	assert.Zero(t, d.NominationsCast)
	assert.False(t, d.AllVotesCast)
	require.Len(t, d.Positions, 2)
	for _, p := range d.Positions {
		assert.Zero(t, p.TotalVotes)
		assert.Nil(t, p.Leader)
	}
}

func TestStart_ReusesUnfinishedElection(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	first := f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))

	second := f.start(t)

	assert.True(t, second.Reused)
	assert.Equal(t, first.ElectionID, second.ElectionID)
	assert.Greater(t, second.Election.Version, first.Election.Version)

	log, err := f.svc.VoteLog(context.Background(), f.admin, second.ElectionID)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestStart_CompletedElectionStartsNewRun(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	first := f.start(t)
	f.toVoting(t)
	_, err := f.svc.AdvancePhase(context.Background(), f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseCompleted})
	require.NoError(t, err)

	second := f.start(t)

	assert.False(t, second.Reused)
	assert.NotEqual(t, first.ElectionID, second.ElectionID)
	assert.Equal(t, 2, second.Election.Run)
}

func TestStart_RebuildsPoolFromCurrentMembers(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)

	testutil.CreateTestMember(t, f.db, models.Member{ID: 12})
	resp := f.start(t)

	assert.Equal(t, 7, resp.Pool["Elder"])
}

func TestStart_RequiresAdmin(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)

	_, err := f.svc.Start(context.Background(), testutil.Caller(1), f.cfg.ID)
	assert.ErrorIs(t, err, election.ErrForbidden)
}

func TestStart_UnknownConfig(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)

	_, err := f.svc.Start(context.Background(), f.admin, "missing")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestNomination_CapEnforced(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 2)
	testutil.CreateTestMember(t, f.db, models.Member{ID: 12})
	f.start(t)

	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(1, 11, models.VoteTypeNomination))

	err := f.cast(1, 12, models.VoteTypeNomination)
	assert.ErrorIs(t, err, election.ErrLimitExceeded)

	view, err := f.svc.VotingInterface(context.Background(), testutil.Caller(1), f.cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, view.MyNominations)
	assert.Zero(t, view.RemainingNominations)
}

func TestNomination_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 3)
	f.start(t)

	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	assert.ErrorIs(t, f.cast(1, 10, models.VoteTypeNomination), election.ErrConflict)
}

func TestCast_Preconditions(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	testutil.CreateTestMember(t, f.db, models.Member{ID: 50, ChurchID: 99})

	// No election yet
	assert.ErrorIs(t, f.cast(1, 10, models.VoteTypeNomination), election.ErrNotFound)

	f.start(t)

	tests := []struct {
		name      string
		voter     int64
		candidate int64
		kind      string
		want      error
	}{
		{"not on roster", 10, 11, models.VoteTypeNomination, election.ErrForbidden},
		{"vote during nomination", 1, 10, models.VoteTypeVote, election.ErrInvalidState},
		{"candidate from another church", 1, 50, models.VoteTypeNomination, election.ErrNotFound},
		{"unknown kind", 1, 10, "abstain", election.ErrValidation},
		{"missing candidate", 1, 0, models.VoteTypeNomination, election.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.cast(tt.voter, tt.candidate, tt.kind), tt.want)
		})
	}
}

func TestVote_SecondVoteIsConflict(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(2, 11, models.VoteTypeNomination))
	f.toVoting(t)

	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))
	assert.ErrorIs(t, f.cast(1, 11, models.VoteTypeVote), election.ErrConflict)
	assert.ErrorIs(t, f.cast(1, 10, models.VoteTypeVote), election.ErrConflict)
}

func TestVote_OnlyNominatedCandidates(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	f.toVoting(t)

	assert.ErrorIs(t, f.cast(1, 11, models.VoteTypeVote), election.ErrInvalidState)
	assert.ErrorIs(t, f.cast(2, 10, models.VoteTypeNomination), election.ErrInvalidState)
}

func TestScenario_SingleElderUnanimous(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	f.start(t)

	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(2, 11, models.VoteTypeNomination))
	require.NoError(t, f.cast(3, 11, models.VoteTypeNomination))
	f.toVoting(t)
	for _, voter := range []int64{1, 2, 3} {
		require.NoError(t, f.cast(voter, 11, models.VoteTypeVote))
	}

	d, err := f.svc.Dashboard(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	elder := d.Positions[0]
	require.NotNil(t, elder.Leader)
	assert.Equal(t, int64(11), elder.Leader.CandidateID)
	assert.Equal(t, 3, elder.Leader.Votes)
	assert.Equal(t, 100.0, elder.Leader.Percentage)
	assert.Equal(t, 2, elder.Leader.Nominations)
	assert.False(t, elder.Tie)
	assert.Equal(t, 3, d.VotesCast)
	assert.True(t, d.AllVotesCast)

	tally, err := f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	require.NotNil(t, tally.Result)
	assert.Equal(t, int64(11), tally.Result.WinnerID)
	assert.Equal(t, f.admin.ID, tally.Result.AnnouncedBy)

	cfg, err := f.svc.GetConfig(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), cfg.CurrentLeaders["Elder"].CandidateID)

	view, err := f.svc.VotingInterface(ctx, testutil.Caller(1), f.cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	require.Len(t, view.Candidates, 2)
	winner := view.Candidates[1]
	assert.Equal(t, int64(11), winner.ID)
	require.NotNil(t, winner.Votes)
	assert.Equal(t, 3, *winner.Votes)
	assert.True(t, winner.VotedBy)
	assert.True(t, view.HasVoted)
}

func TestAnnounce_EarlyClosureForcesAllVotesCast(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	f.toVoting(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))

	view, err := f.svc.VotingInterface(ctx, testutil.Caller(2), f.cfg.ID)
	require.NoError(t, err)
	assert.False(t, view.AllVotesCast)
	require.Len(t, view.Candidates, 1)
	assert.Nil(t, view.Candidates[0].Votes)

	_, err = f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)

	view, err = f.svc.VotingInterface(ctx, testutil.Caller(2), f.cfg.ID)
	require.NoError(t, err)
	assert.True(t, view.AllVotesCast)
	assert.Equal(t, 1, view.VotesCast)

	// Closed for further votes
	assert.ErrorIs(t, f.cast(2, 10, models.VoteTypeVote), election.ErrInvalidState)
	_, err = f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
}

func TestAnnounce_TieNeedsAcceptance(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(2, 11, models.VoteTypeNomination))
	f.toVoting(t)
	require.NoError(t, f.cast(1, 11, models.VoteTypeVote))
	require.NoError(t, f.cast(2, 10, models.VoteTypeVote))

	_, err := f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)

	tally, err := f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID, AcceptTie: true})
	require.NoError(t, err)
	assert.True(t, tally.Tie)
	assert.Equal(t, []int64{10, 11}, tally.TiedCandidates)
	assert.Equal(t, int64(10), tally.Result.WinnerID)
	assert.True(t, tally.Result.Tie)
	assert.Equal(t, 50.0, tally.Result.Percentage)
}

func TestAnnounce_NoVotes(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	f.toVoting(t)

	_, err := f.svc.AnnounceResult(context.Background(), f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
}

func TestResetVoting_TwiceIsSafe(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	f.toVoting(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))
	require.NoError(t, f.cast(2, 10, models.VoteTypeVote))
	_, err := f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)

	first, err := f.svc.ResetVoting(ctx, f.admin, models.ResetVotingRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, first.DeletedVotes)
	assert.Equal(t, models.PhaseVoting, first.Election.CurrentPhase)
	assert.False(t, first.Election.ResultAnnounced)

	second, err := f.svc.ResetVoting(ctx, f.admin, models.ResetVotingRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	assert.Zero(t, second.DeletedVotes)
	assert.Equal(t, models.PhaseVoting, second.Election.CurrentPhase)

	// Nominations survive, leaders cache and result are cleared
	d, err := f.svc.Dashboard(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	elder := d.Positions[0]
	require.Len(t, elder.Rows, 1)
	assert.Equal(t, 1, elder.Rows[0].Nominations)
	assert.Zero(t, elder.Rows[0].Votes)
	assert.Nil(t, elder.Result)
	assert.NotContains(t, d.Config.CurrentLeaders, "Elder")

	// Voters may vote again
	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))
}

func TestResetVoting_OutsideVoting(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)

	_, err := f.svc.ResetVoting(context.Background(), f.admin, models.ResetVotingRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
}

func TestAdvancePosition_RoundTrip(t *testing.T) {
	positions := []string{"Elder", "Deacon", "Teen Leader"}
	f := newFixture(t, positions, 1)
	ctx := context.Background()
	f.start(t)

	for i := 1; i < len(positions); i++ {
		e, err := f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
		require.NoError(t, err)
		assert.Equal(t, i, e.CurrentPosition)
		assert.Equal(t, positions[i], e.PositionName)
		assert.Equal(t, models.PhaseNomination, e.CurrentPhase)
		assert.False(t, e.ResultAnnounced)
	}

	// The last position has no successor
	_, err := f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
	f.toVoting(t)
	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)

	e, err := f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, e.CurrentPhase)
	assert.Equal(t, models.ElectionCompleted, e.Status)
	assert.NotNil(t, e.CompletedAt)

	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
	assert.ErrorIs(t, f.cast(1, 10, models.VoteTypeNomination), election.ErrInvalidState)
}

func TestAdvancePosition_AfterVoting(t *testing.T) {
	positions := []string{"Elder", "Deacon"}
	f := newFixture(t, positions, 1)
	f.start(t)
	f.toVoting(t)

	e, err := f.svc.AdvancePosition(context.Background(), f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CurrentPosition)
	assert.Equal(t, models.PhaseNomination, e.CurrentPhase)
}

func TestAdvancePosition_TargetMustBeNext(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)
	f.start(t)
	f.toVoting(t)

	stale := 0
	_, err := f.svc.AdvancePosition(context.Background(), f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID, Position: &stale})
	assert.ErrorIs(t, err, election.ErrConflict)

	next := 1
	e, err := f.svc.AdvancePosition(context.Background(), f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID, Position: &next})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CurrentPosition)
}

func TestAdvancePhase_Transitions(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)
	ctx := context.Background()
	f.start(t)

	_, err := f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseCompleted})
	assert.ErrorIs(t, err, election.ErrInvalidState)

	e, err := f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseVoting})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, e.CurrentPhase)

	// Not the last position: advance-position moves on
	_, err = f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)
	_, err = f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseNomination})
	assert.ErrorIs(t, err, election.ErrInvalidState)

	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	f.toVoting(t)

	e, err = f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Phase: models.PhaseCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, e.CurrentPhase)
	assert.Equal(t, models.ElectionCompleted, e.Status)
}

func TestControl_StaleVersionIsConflict(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)
	ctx := context.Background()
	started := f.start(t)

	v := started.Election.Version
	e, err := f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID, Version: &v})
	require.NoError(t, err)
	assert.Equal(t, v+1, e.Version)

	// A second administrator acting on the state they saw before
	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID, Version: &v})
	assert.ErrorIs(t, err, election.ErrConflict)

	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID, Version: &e.Version})
	require.NoError(t, err)
}

func TestControl_MissingElectionIsNotFound(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)

	_, err := f.svc.AdvancePhase(context.Background(), f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrNotFound)
	_, err = f.svc.ResetVoting(context.Background(), f.admin, models.ResetVotingRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestControl_ForbiddenForMembers(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	f.start(t)
	member := testutil.Caller(1)
	ctx := context.Background()

	_, err := f.svc.AdvancePhase(ctx, member, models.AdvancePhaseRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrForbidden)
	_, err = f.svc.AdvancePosition(ctx, member, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrForbidden)
	_, err = f.svc.ResetVoting(ctx, member, models.ResetVotingRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrForbidden)
	_, err = f.svc.AnnounceResult(ctx, member, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrForbidden)
	_, err = f.svc.ToggleStatus(ctx, member, f.cfg.ID)
	assert.ErrorIs(t, err, election.ErrForbidden)
	_, err = f.svc.SetMaxNominations(ctx, member, models.SetMaxNominationsRequest{ConfigID: f.cfg.ID, MaxNominations: 3})
	assert.ErrorIs(t, err, election.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteConfig(ctx, member, f.cfg.ID), election.ErrForbidden)
	_, err = f.svc.Dashboard(ctx, member, f.cfg.ID)
	assert.ErrorIs(t, err, election.ErrForbidden)
}

func TestToggleStatus_PauseAndResume(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))

	paused, err := f.svc.ToggleStatus(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConfigPaused, paused.Status)
	require.NotNil(t, paused.Election)
	assert.Equal(t, models.ElectionPaused, paused.Election.Status)

	assert.ErrorIs(t, f.cast(2, 10, models.VoteTypeNomination), election.ErrInvalidState)
	_, err = f.svc.AdvancePhase(ctx, f.admin, models.AdvancePhaseRequest{ConfigID: f.cfg.ID})
	assert.ErrorIs(t, err, election.ErrInvalidState)

	resumed, err := f.svc.ToggleStatus(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConfigActive, resumed.Status)
	assert.False(t, resumed.Started)
	assert.Equal(t, models.ElectionActive, resumed.Election.Status)
	// Position and phase are untouched
	assert.Equal(t, 0, resumed.Election.CurrentPosition)
	assert.Equal(t, models.PhaseNomination, resumed.Election.CurrentPhase)

	require.NoError(t, f.cast(2, 10, models.VoteTypeNomination))
}

func TestToggleStatus_ResumeWithoutElectionStarts(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)

	resp, err := f.svc.ToggleStatus(context.Background(), f.admin, f.cfg.ID)
	require.NoError(t, err)
	assert.True(t, resp.Started)
	assert.Equal(t, models.ConfigActive, resp.Status)
	require.NotNil(t, resp.Election)
	assert.Equal(t, models.PhaseNomination, resp.Election.CurrentPhase)
}

func TestRemovedCandidate_HiddenButVotesKept(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	started := f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(2, 11, models.VoteTypeNomination))
	f.toVoting(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))
	require.NoError(t, f.cast(2, 11, models.VoteTypeVote))

	_, err := f.svc.UpdateConfig(ctx, f.admin, f.cfg.ID, models.ConfigRequest{RemovedCandidates: []int64{10}})
	require.NoError(t, err)

	log, err := f.svc.VoteLog(ctx, f.admin, started.ElectionID)
	require.NoError(t, err)
	assert.Len(t, log, 4)

	view, err := f.svc.VotingInterface(ctx, testutil.Caller(3), f.cfg.ID)
	require.NoError(t, err)
	require.Len(t, view.Candidates, 1)
	assert.Equal(t, int64(11), view.Candidates[0].ID)

	d, err := f.svc.Dashboard(ctx, f.admin, f.cfg.ID)
	require.NoError(t, err)
	elder := d.Positions[0]
	require.Len(t, elder.Rows, 1)
	assert.Equal(t, 2, elder.TotalVotes)
	assert.Equal(t, int64(11), elder.Leader.CandidateID)
	assert.Equal(t, 50.0, elder.Leader.Percentage)

	assert.ErrorIs(t, f.cast(3, 10, models.VoteTypeVote), election.ErrNotFound)
}

func TestActiveElections(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)
	ctx := context.Background()

	active, err := f.svc.ActiveElections(ctx, testutil.Caller(1))
	require.NoError(t, err)
	assert.Empty(t, active)

	f.start(t)

	active, err = f.svc.ActiveElections(ctx, testutil.Caller(1))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.cfg.ID, active[0].ConfigID)
	assert.Equal(t, "Elder", active[0].PositionName)

	// Candidates who are not voters see nothing
	active, err = f.svc.ActiveElections(ctx, testutil.Caller(10))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestVoteLog_Details(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 2)
	ctx := context.Background()
	started := f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(1, 11, models.VoteTypeNomination))

	log, err := f.svc.VoteLog(ctx, f.admin, started.ElectionID)
	require.NoError(t, err)
	require.Len(t, log, 2)

	slots := map[int64]int{}
	for _, b := range log {
		assert.Equal(t, "Member 1", b.VoterName)
		assert.Equal(t, "Elder", b.PositionName)
		assert.Equal(t, models.VoteTypeNomination, b.VoteType)
		slots[b.CandidateID] = b.Slot
	}
	assert.ElementsMatch(t, []int{1, 2}, []int{slots[10], slots[11]})

	_, err = f.svc.VoteLog(ctx, f.admin, "missing")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestCast_PositionLimitExcludesWinners(t *testing.T) {
	f := newFixture(t, []string{"Elder", "Deacon"}, 1)
	ctx := context.Background()
	criteria := models.Criteria{PositionLimit: models.PositionLimitCriterion{Enabled: true, MaxPositions: 1}}
	_, err := f.svc.UpdateConfig(ctx, f.admin, f.cfg.ID, models.ConfigRequest{Criteria: &criteria})
	require.NoError(t, err)
	f.start(t)

	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	require.NoError(t, f.cast(2, 11, models.VoteTypeNomination))
	f.toVoting(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeVote))
	require.NoError(t, f.cast(2, 10, models.VoteTypeVote))
	require.NoError(t, f.cast(3, 11, models.VoteTypeVote))
	tally, err := f.svc.AnnounceResult(ctx, f.admin, models.AnnounceResultRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)
	require.Equal(t, int64(10), tally.Result.WinnerID)

	// The winner stays visible on the position they won
	view, err := f.svc.VotingInterface(ctx, testutil.Caller(2), f.cfg.ID)
	require.NoError(t, err)
	assert.Len(t, view.Candidates, 2)

	_, err = f.svc.AdvancePosition(ctx, f.admin, models.AdvancePositionRequest{ConfigID: f.cfg.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, f.cast(1, 10, models.VoteTypeNomination), election.ErrNotFound)
	require.NoError(t, f.cast(1, 11, models.VoteTypeNomination))

	view, err = f.svc.VotingInterface(ctx, testutil.Caller(2), f.cfg.ID)
	require.NoError(t, err)
	require.NotEmpty(t, view.Candidates)
	for _, c := range view.Candidates {
		assert.NotEqual(t, int64(10), c.ID)
	}
}

func TestRecord_StaleElectionIsConflict(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	started := f.start(t)
	require.NoError(t, f.cast(1, 10, models.VoteTypeNomination))
	f.toVoting(t)

	// A ballot validated against the nomination phase lands after voting opened
	cmd := models.CastBallot{ConfigID: f.cfg.ID, VoterID: 2, CandidateID: 10, Kind: models.VoteTypeNomination}
	_, err := f.svc.Record(ctx, cmd, started.Election, 1)
	assert.ErrorIs(t, err, election.ErrConflict)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM election_vote WHERE voter_id = 2`).Scan(&n))
	assert.Zero(t, n)
}

func TestLockElection(t *testing.T) {
	f := newFixture(t, []string{"Elder"}, 1)
	ctx := context.Background()
	started := f.start(t)
	current := f.toVoting(t)

	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.ErrorIs(t, election.LockElection(ctx, tx, started.Election), election.ErrConflict)
	assert.NoError(t, election.LockElection(ctx, tx, current))
}
