// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election implements the nomination and election engine.

# Service

A Service wraps the database, the member directory and a zap logger:

	svc := election.NewService(db, election.NewSQLDirectory(db), log)

It keeps no state between calls. Every operation takes the resolved
auth.Caller and returns one of the package's sentinel errors (ErrForbidden,
ErrNotFound, ErrInvalidState, ErrLimitExceeded, ErrConflict, ErrValidation)
wrapped with context.

# Lifecycle

A config lists positions in order. Start creates (or rewinds) an election at
position 0 in the nomination phase and builds the candidate pool:

	nomination --AdvancePhase--> voting --AdvancePosition--> next position, nomination
	                                    \--ResetVoting--> voting (votes deleted)
	voting on the last position --AdvancePhase("completed")--> completed

AdvancePosition also skips a position still in nomination. It is refused on
the last position, which has no successor.

ToggleStatus pauses and resumes; a paused election accepts no writes.

Every control mutation increments the election version with a
compare-and-set update, so two administrators acting on the same state
cannot both succeed.

# Ledger

Cast records nominations and votes. Uniqueness constraints on the ledger
table enforce the nomination cap and the single vote per voter and position;
candidate counters are updated with atomic increments in the same
transaction.

# Results

Resolve ranks candidates by votes, then by candidate id. Ties are reported,
not broken: AnnounceResult refuses a tied position unless the request
accepts the tie.
*/
package election
