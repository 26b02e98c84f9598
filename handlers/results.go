// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
)

// ResultsHandler serves the administrative read views.
type ResultsHandler struct {
	base
}

func NewResultsHandler(svc *election.Service, callers auth.Resolver, cfg cliparse.Config, log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{base: newBase(svc, callers, cfg, log)}
}

// Dashboard handles GET /elections/dashboard/{configId}
// Returns the per-position tallies, winners and participation counts.
func (h *ResultsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dash, err := h.svc.Dashboard(r.Context(), caller, r.PathValue("configId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, dash)
}

// VoteLog handles GET /elections/vote-log/{electionId}
func (h *ResultsHandler) VoteLog(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ballots, err := h.svc.VoteLog(r.Context(), caller, r.PathValue("electionId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, ballots)
}
