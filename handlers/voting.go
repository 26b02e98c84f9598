// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type VotingHandler struct {
	base
}

func NewVotingHandler(svc *election.Service, callers auth.Resolver, cfg cliparse.Config, log *zap.Logger) *VotingHandler {
	return &VotingHandler{base: newBase(svc, callers, cfg, log)}
}

// Nominate handles POST /elections/nominate
func (h *VotingHandler) Nominate(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.NominateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	h.cast(w, r, models.CastBallot{
		ConfigID:    req.ConfigID,
		VoterID:     caller.ID,
		CandidateID: req.CandidateID,
		Kind:        models.VoteTypeNomination,
	})
}

// Vote handles POST /elections/vote
// The optional phase selects the ballot kind; absent means a vote.
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	kind, err := kindForPhase(req.Phase)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cast(w, r, models.CastBallot{
		ConfigID:    req.ConfigID,
		VoterID:     caller.ID,
		CandidateID: req.CandidateID,
		Kind:        kind,
	})
}

func (h *VotingHandler) cast(w http.ResponseWriter, r *http.Request, cmd models.CastBallot) {
	resp, err := h.svc.Cast(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// VotingInterface handles GET /elections/voting/{configId}
func (h *VotingHandler) VotingInterface(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.svc.VotingInterface(r.Context(), caller, r.PathValue("configId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}

// ActiveElections handles GET /elections/active
func (h *VotingHandler) ActiveElections(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	active, err := h.svc.ActiveElections(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, active)
}

func kindForPhase(phase string) (string, error) {
	switch phase {
	case "", models.PhaseVoting:
		return models.VoteTypeVote, nil
	case models.PhaseNomination:
		return models.VoteTypeNomination, nil
	}
	return "", fmt.Errorf("%w: unknown phase %q", election.ErrValidation, phase)
}
