// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP adapters of the Quickly Elect API.

# Handler Types

Each handler embeds the same base: the election engine, the caller
resolver, configuration and a logger.

  - ConfigHandler: config create, update, read, list, toggle and delete
  - ControlHandler: election start and control operations
  - VotingHandler: nominate, vote, voting interface and active elections
  - ResultsHandler: dashboard and vote log

Handlers are created with the engine and the caller resolver:

	votingHandler := handlers.NewVotingHandler(svc, directory, cfg, log)

# Caller Identity

Every request must carry X-User-ID. When a caller secret is configured the
X-User-Signature header must hold the matching HMAC. The id is resolved
against the member directory; unknown ids are 401.

# Errors

Engine errors map to a status and a machine readable code:

	ErrUnauthenticated  401 unauthenticated
	ErrForbidden        403 forbidden
	ErrNotFound         404 not_found
	ErrInvalidState     409 invalid_state
	ErrLimitExceeded    409 limit_exceeded
	ErrConflict         409 conflict
	ErrValidation       400 validation_error
	anything else       500 internal

Internal errors are logged with the request id and answered with a generic
message.

# Ballots

POST /elections/nominate always records a nomination. POST /elections/vote
records a vote, or a nomination when the body says "phase": "nomination".
Either way the ballot must match the current phase of the election.
*/
package handlers
