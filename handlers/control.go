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
	"github.com/danielhkuo/quickly-elect/models"
)

// ControlHandler serves the administrative election controls. Every
// operation requires an administrative caller.
type ControlHandler struct {
	base
}

func NewControlHandler(svc *election.Service, callers auth.Resolver, cfg cliparse.Config, log *zap.Logger) *ControlHandler {
	return &ControlHandler{base: newBase(svc, callers, cfg, log)}
}

// Start handles POST /elections/start
// Fresh and reused elections both answer 200; the body tells them apart.
func (h *ControlHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.StartRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	resp, err := h.svc.Start(r.Context(), caller, req.ConfigID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// AdvancePhase handles POST /elections/advance-phase
func (h *ControlHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.AdvancePhaseRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	e, err := h.svc.AdvancePhase(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// AdvancePosition handles POST /elections/advance-position
func (h *ControlHandler) AdvancePosition(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.AdvancePositionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	e, err := h.svc.AdvancePosition(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// AnnounceResult handles POST /elections/announce-result
func (h *ControlHandler) AnnounceResult(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.AnnounceResultRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	tally, err := h.svc.AnnounceResult(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, tally)
}

// ResetVoting handles POST /elections/reset-voting
func (h *ControlHandler) ResetVoting(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.ResetVotingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	resp, err := h.svc.ResetVoting(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// SetMaxNominations handles POST /elections/set-max-nominations
func (h *ControlHandler) SetMaxNominations(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.SetMaxNominationsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	cfg, err := h.svc.SetMaxNominations(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}
