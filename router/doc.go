// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Elect API.

# Route Registration

NewRouter builds the election engine over the database and returns a
configured http.ServeMux:

	mux := router.NewRouter(db, cfg, log)

Every /elections route is wrapped with middleware.WithLogging. CORS is
applied by the caller around the whole mux.

# Endpoints

Operations:

	GET /health
	GET /

Config store:

	POST   /elections/config                   - Create config (admin)
	GET    /elections/config                   - Newest config of the caller's church
	GET    /elections/configs                  - All visible configs
	GET    /elections/config/{id}              - One config
	PUT    /elections/config/{id}              - Partial update (admin)
	PUT    /elections/config/{id}/toggle-status - Active/paused (admin)
	DELETE /elections/config/{configId}        - Cascading delete (admin)

Election control (admin):

	POST /elections/start
	POST /elections/advance-phase
	POST /elections/advance-position
	POST /elections/announce-result
	POST /elections/reset-voting
	POST /elections/set-max-nominations

Ballots and views:

	POST /elections/nominate
	POST /elections/vote
	GET  /elections/voting/{configId}
	GET  /elections/active
	GET  /elections/dashboard/{configId}   - admin
	GET  /elections/vote-log/{electionId}  - admin
*/
package router
