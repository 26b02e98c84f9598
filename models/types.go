// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Config status constants
const (
	ConfigDraft  = "draft"
	ConfigActive = "active"
	ConfigPaused = "paused"
)

// Election status constants
const (
	ElectionActive    = "active"
	ElectionPaused    = "paused"
	ElectionCompleted = "completed"
)

// Phase constants
const (
	PhaseNomination = "nomination"
	PhaseVoting     = "voting"
	PhaseCompleted  = "completed"
)

// Ledger vote types
const (
	VoteTypeNomination = "nomination"
	VoteTypeVote       = "vote"
)

const DefaultMaxNominations = 1

// Request types

type ConfigRequest struct {
	ChurchID             int64             `json:"churchId"`
	ChurchName           string            `json:"churchName"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Positions            []string          `json:"positions"`
	PositionDescriptions map[string]string `json:"positionDescriptions"`
	Voters               []int64           `json:"voters"`
	// nil means empty on create and unchanged on update
	Criteria *Criteria `json:"criteria"`
	// 0 means default on create and unchanged on update
	MaxNominationsPerVoter int `json:"maxNominationsPerVoter"`
	// nil means unchanged on update
	RemovedCandidates []int64 `json:"removedCandidates"`
}

// UnmarshalJSON also accepts position descriptions under
// "position_descriptions".
func (r *ConfigRequest) UnmarshalJSON(data []byte) error {
	type plain ConfigRequest
	aux := struct {
		*plain
		Descriptions map[string]string `json:"position_descriptions"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.PositionDescriptions == nil && aux.Descriptions != nil {
		r.PositionDescriptions = aux.Descriptions
	}
	return nil
}

type StartRequest struct {
	ConfigID string `json:"configId"`
}

// Control requests carry the election version they were built from; when
// present a stale version is rejected.

type AdvancePhaseRequest struct {
	ConfigID string `json:"configId"`
	Phase    string `json:"phase,omitempty"`
	Version  *int   `json:"version,omitempty"`
}

type AdvancePositionRequest struct {
	ConfigID string `json:"configId"`
	Position *int   `json:"position,omitempty"`
	Version  *int   `json:"version,omitempty"`
}

type ResetVotingRequest struct {
	ConfigID string `json:"configId"`
	Version  *int   `json:"version,omitempty"`
}

type AnnounceResultRequest struct {
	ConfigID  string `json:"configId"`
	AcceptTie bool   `json:"acceptTie,omitempty"`
	Version   *int   `json:"version,omitempty"`
}

type SetMaxNominationsRequest struct {
	ConfigID       string `json:"configId"`
	MaxNominations int    `json:"maxNominations"`
}

type NominateRequest struct {
	ConfigID    string `json:"configId"`
	CandidateID int64  `json:"candidateId"`
}

// VoteRequest casts a vote, or a nomination when Phase is "nomination".
type VoteRequest struct {
	ConfigID    string `json:"configId"`
	CandidateID int64  `json:"candidateId"`
	Phase       string `json:"phase,omitempty"`
}

// CastBallot is the single internal command behind /nominate and /vote. It is
// resolved against the current election, position and phase of the config.
type CastBallot struct {
	ConfigID    string
	VoterID     int64
	CandidateID int64
	Kind        string // VoteTypeNomination or VoteTypeVote
}

// Response types

type StartResponse struct {
	ElectionID string         `json:"electionId"`
	Election   Election       `json:"election"`
	Reused     bool           `json:"reused"`
	Pool       map[string]int `json:"pool"` // position name -> eligible candidates
}

type ToggleStatusResponse struct {
	ConfigID string    `json:"configId"`
	Status   string    `json:"status"`
	Election *Election `json:"election,omitempty"`
	Started  bool      `json:"started"`
}

type DeleteConfigResponse struct {
	ConfigID string `json:"configId"`
	Deleted  bool   `json:"deleted"`
}

type ResetVotingResponse struct {
	Election     Election `json:"election"`
	DeletedVotes int      `json:"deletedVotes"`
}

type CastBallotResponse struct {
	BallotID             string `json:"ballotId"`
	ElectionID           string `json:"electionId"`
	Position             string `json:"position"`
	CandidateID          int64  `json:"candidateId"`
	VoteType             string `json:"voteType"`
	RemainingNominations int    `json:"remainingNominations"`
	Message              string `json:"message"`
}

// Domain types

// Member is the attribute snapshot of a church member, owned by the member
// directory.
type Member struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	ChurchID          int64      `json:"churchId"`
	Role              string     `json:"role"`
	TitheCategory     string     `json:"titheCategory"`
	DonorCategory     string     `json:"donorCategory"`
	Engagement        string     `json:"engagement"`
	Classification    string     `json:"classification"`
	AttendanceCount   int        `json:"attendanceCount"`
	AttendancePercent float64    `json:"attendancePercent"`
	BirthDate         *time.Time `json:"birthDate,omitempty"`
	DeclaredAge       *int       `json:"declaredAge,omitempty"`
	BaptismDate       *time.Time `json:"baptismDate,omitempty"`
	JoinedAt          *time.Time `json:"joinedAt,omitempty"`
}

type ElectionConfig struct {
	ID                     string               `json:"id"`
	ChurchID               int64                `json:"churchId"`
	ChurchName             string               `json:"churchName"`
	Title                  string               `json:"title"`
	Description            string               `json:"description"`
	Positions              PositionList         `json:"positions"`
	PositionDescriptions   PositionDescriptions `json:"positionDescriptions"`
	Voters                 []int64              `json:"voters"`
	Criteria               Criteria             `json:"criteria"`
	MaxNominationsPerVoter int                  `json:"maxNominationsPerVoter"`
	RemovedCandidates      MemberIDs            `json:"removedCandidates"`
	CurrentLeaders         Leaders              `json:"currentLeaders"`
	Status                 string               `json:"status"`
	CreatedBy              int64                `json:"createdBy"`
	CreatedAt              time.Time            `json:"createdAt"`
	UpdatedAt              time.Time            `json:"updatedAt"`
}

// IsVoter reports whether memberID is on the voter roster.
func (c ElectionConfig) IsVoter(memberID int64) bool {
	for _, v := range c.Voters {
		if v == memberID {
			return true
		}
	}
	return false
}

// Election is one run of a config.
type Election struct {
	ID              string     `json:"id"`
	ConfigID        string     `json:"configId"`
	Run             int        `json:"run"`
	Status          string     `json:"status"`
	CurrentPosition int        `json:"currentPosition"`
	CurrentPhase    string     `json:"currentPhase"`
	ResultAnnounced bool       `json:"resultAnnounced"`
	Version         int        `json:"version"`
	PositionName    string     `json:"positionName"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Candidate is a member's standing for one position in one election.
type Candidate struct {
	ElectionID        string  `json:"electionId"`
	PositionIndex     int     `json:"positionIndex"`
	PositionName      string  `json:"positionName"`
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	TitherRecurring   bool    `json:"titherRecurring"`
	DonorRecurring    bool    `json:"donorRecurring"`
	AttendancePercent float64 `json:"attendancePercent"`
	MonthsInChurch    int     `json:"monthsInChurch"`
	Nominations       int     `json:"nominations"`
	Votes             int     `json:"votes"`
	Phase             string  `json:"phase"`
}

// Ballot is one ledger row.
type Ballot struct {
	ID            string    `json:"id"`
	ElectionID    string    `json:"electionId"`
	VoterID       int64     `json:"voterId"`
	VoterName     string    `json:"voterName,omitempty"`
	PositionIndex int       `json:"positionIndex"`
	PositionName  string    `json:"positionName,omitempty"`
	CandidateID   int64     `json:"candidateId"`
	CandidateName string    `json:"candidateName,omitempty"`
	VoteType      string    `json:"voteType"`
	Slot          int       `json:"slot"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Tally types

type TallyRow struct {
	CandidateID int64   `json:"candidateId"`
	Name        string  `json:"name"`
	Nominations int     `json:"nominations"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

type PositionTally struct {
	PositionIndex  int             `json:"positionIndex"`
	PositionName   string          `json:"positionName"`
	TotalVotes     int             `json:"totalVotes"`
	Rows           []TallyRow      `json:"rows"`
	Leader         *TallyRow       `json:"leader,omitempty"`
	Tie            bool            `json:"tie"`
	TiedCandidates []int64         `json:"tiedCandidates,omitempty"`
	Result         *PositionResult `json:"result,omitempty"`
}

// PositionResult is the frozen winner of a position.
type PositionResult struct {
	ElectionID    string    `json:"electionId"`
	PositionIndex int       `json:"positionIndex"`
	PositionName  string    `json:"positionName"`
	WinnerID      int64     `json:"winnerId"`
	WinnerName    string    `json:"winnerName"`
	Votes         int       `json:"votes"`
	TotalVotes    int       `json:"totalVotes"`
	Percentage    float64   `json:"percentage"`
	Tie           bool      `json:"tie"`
	AnnouncedBy   int64     `json:"announcedBy"`
	AnnouncedAt   time.Time `json:"announcedAt"`
}

type Dashboard struct {
	Config          ElectionConfig  `json:"config"`
	Election        *Election       `json:"election"`
	Positions       []PositionTally `json:"positions"`
	VotersCount     int             `json:"votersCount"`
	VotesCast       int             `json:"votesCast"`
	NominationsCast int             `json:"nominationsCast"`
	AllVotesCast    bool            `json:"allVotesCast"`
}

type VotingCandidate struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Nominations int      `json:"nominations"`
	Votes       *int     `json:"votes,omitempty"`
	Percentage  *float64 `json:"percentage,omitempty"`
	NominatedBy bool     `json:"nominatedByMe"`
	VotedBy     bool     `json:"votedByMe"`
}

type VotingInterface struct {
	ConfigID             string            `json:"configId"`
	Title                string            `json:"title"`
	Election             Election          `json:"election"`
	PositionName         string            `json:"positionName"`
	PositionDescription  string            `json:"positionDescription,omitempty"`
	TotalPositions       int               `json:"totalPositions"`
	Candidates           []VotingCandidate `json:"candidates"`
	MaxNominations       int               `json:"maxNominations"`
	MyNominations        []int64           `json:"myNominations"`
	RemainingNominations int               `json:"remainingNominations"`
	HasVoted             bool              `json:"hasVoted"`
	MyVote               *int64            `json:"myVote,omitempty"`
	VotersCount          int               `json:"votersCount"`
	VotesCast            int               `json:"votesCast"`
	AllVotesCast         bool              `json:"allVotesCast"`
	Result               *PositionResult   `json:"result,omitempty"`
}

type ActiveElection struct {
	ConfigID     string   `json:"configId"`
	Title        string   `json:"title"`
	ChurchName   string   `json:"churchName"`
	Election     Election `json:"election"`
	PositionName string   `json:"positionName"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
