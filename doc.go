// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Elect API server.

Quickly Elect runs church officer elections: an administrator configures the
positions, the voter roster and the eligibility criteria, then walks the
assembly through nomination and voting one position at a time.

# Commands

	quickly-elect serve   -d elect.db            # migrate, then listen
	quickly-elect migrate -d postgres://... -t postgres

serve stops gracefully on SIGINT or SIGTERM, giving in-flight requests ten
seconds to finish.

# Configuration

Flags win over environment variables, which win over a .env file:

  - DATABASE_URL (-d): database location, required
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - PORT (-p): server port (default: 3318)
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - CALLER_SECRET (--caller-secret): enables X-User-Signature checks
  - ALLOWED_ORIGIN (--allowed-origin): CORS origin

# Architecture

  - election: the engine (configs, runtime control, ledger, tallies, views)
  - eligibility: pure candidate eligibility rules
  - handlers: HTTP adapters over the engine
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, request logging, JSON helpers
  - models: request, response and domain types
  - auth: caller identity
  - db: connections and migrations
  - cliparse: configuration parsing
  - logger: zap construction

See package documentation for each component.
*/
package main
