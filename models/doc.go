// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - ConfigRequest: positions, voters, criteria, nomination cap
  - StartRequest, AdvancePhaseRequest, AdvancePositionRequest,
    ResetVotingRequest, AnnounceResultRequest: control operations keyed by
    configId, with an optional election version
  - SetMaxNominationsRequest: new nomination cap
  - NominateRequest, VoteRequest: voter ballots

# Response Types

  - StartResponse: election and candidate pool sizes
  - ToggleStatusResponse, ResetVotingResponse, CastBallotResponse
  - Dashboard, VotingInterface, ActiveElection: read views
  - ErrorResponse: error, code, message

# Domain Types

  - Member: attribute snapshot read from the member directory
  - ElectionConfig: one nomination campaign
  - Election: one run of a config with its position and phase pointer
  - Candidate: a member's standing for one position
  - Ballot: one nomination or vote in the ledger
  - PositionTally, PositionResult: aggregated and announced results

# Stored JSON

Criteria, PositionList, PositionDescriptions, MemberIDs and Leaders are
stored as JSON text columns and implement sql.Scanner and driver.Valuer.

# Constants

Config status: draft, active, paused. Election status: active, paused,
completed. Phases:

	PhaseNomination = "nomination"
	PhaseVoting     = "voting"
	PhaseCompleted  = "completed"
*/
package models
