// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/handlers"
	"github.com/danielhkuo/quickly-elect/middleware"
)

// Banner is served on GET /
const Banner = "quickly-elect API v1"

func NewRouter(db *sql.DB, cfg cliparse.Config, log *zap.Logger) *http.ServeMux {
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()

	// The member directory backs both candidate pools and caller resolution
	directory := election.NewSQLDirectory(db)
	svc := election.NewService(db, directory, log)

	// Initialize handlers
	configHandler := handlers.NewConfigHandler(svc, directory, cfg, log)
	controlHandler := handlers.NewControlHandler(svc, directory, cfg, log)
	votingHandler := handlers.NewVotingHandler(svc, directory, cfg, log)
	resultsHandler := handlers.NewResultsHandler(svc, directory, cfg, log)

	logged := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(log, h)
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Config store (admin writes, church-scoped reads)
	mux.HandleFunc("POST /elections/config", logged(configHandler.CreateConfig))
	mux.HandleFunc("GET /elections/config", logged(configHandler.LatestConfig))
	mux.HandleFunc("GET /elections/configs", logged(configHandler.ListConfigs))
	mux.HandleFunc("GET /elections/config/{id}", logged(configHandler.GetConfig))
	mux.HandleFunc("PUT /elections/config/{id}", logged(configHandler.UpdateConfig))
	mux.HandleFunc("PUT /elections/config/{id}/toggle-status", logged(configHandler.ToggleStatus))
	mux.HandleFunc("DELETE /elections/config/{configId}", logged(configHandler.DeleteConfig))

	// Election control (admin)
	mux.HandleFunc("POST /elections/start", logged(controlHandler.Start))
	mux.HandleFunc("POST /elections/advance-phase", logged(controlHandler.AdvancePhase))
	mux.HandleFunc("POST /elections/advance-position", logged(controlHandler.AdvancePosition))
	mux.HandleFunc("POST /elections/announce-result", logged(controlHandler.AnnounceResult))
	mux.HandleFunc("POST /elections/reset-voting", logged(controlHandler.ResetVoting))
	mux.HandleFunc("POST /elections/set-max-nominations", logged(controlHandler.SetMaxNominations))

	// Ballots and voter views
	mux.HandleFunc("POST /elections/nominate", logged(votingHandler.Nominate))
	mux.HandleFunc("POST /elections/vote", logged(votingHandler.Vote))
	mux.HandleFunc("GET /elections/voting/{configId}", logged(votingHandler.VotingInterface))
	mux.HandleFunc("GET /elections/active", logged(votingHandler.ActiveElections))

	// Results (admin)
	mux.HandleFunc("GET /elections/dashboard/{configId}", logged(resultsHandler.Dashboard))
	mux.HandleFunc("GET /elections/vote-log/{electionId}", logged(resultsHandler.VoteLog))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Banner))
	})

	return mux
}
