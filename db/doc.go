// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, versioned migrations and driver error
classification.

# Connections

Open accepts either driver registered by the server:

	conn, err := db.Open(ctx, db.DriverPostgres, "postgres://...")
	conn, err := db.Open(ctx, db.DriverSQLite, "file:elect.db")

SQLite connections are capped at one open connection.

# Migrations

Migrate applies each pending migration once, in its own transaction, and
records it in schema_migrations:

	version, err := db.Migrate(ctx, conn)

Runtime code assumes the schema is at LatestVersion.

# Tables

  - member: member directory shared with the rest of the application (read only here)
  - election_config: one nomination campaign (positions, criteria, limits)
  - election_voter: voter roster, one row per (config, member)
  - election: runtime instance of a config (phase/position pointer, version)
  - election_candidate: eligible candidates per (election, position)
  - election_vote: append-only nomination/vote ledger
  - position_result: announced winner per (election, position)

# Relationships

	election_config 1──* election_voter
	election_config 1──* election
	election 1──* election_candidate
	election 1──* election_vote
	election 1──* position_result

# Ledger Constraints

election_vote carries two unique keys:

  - (election_id, voter_id, position_index, candidate_id, vote_type): no identical cast twice
  - (election_id, voter_id, position_index, vote_type, slot): the nth cast of a voter takes slot n,
    so concurrent casts racing for the same slot fail in the store

IsUniqueViolation recognises these failures from both lib/pq and modernc sqlite.
*/
package db
