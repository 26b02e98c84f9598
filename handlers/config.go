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

type ConfigHandler struct {
	base
}

func NewConfigHandler(svc *election.Service, callers auth.Resolver, cfg cliparse.Config, log *zap.Logger) *ConfigHandler {
	return &ConfigHandler{base: newBase(svc, callers, cfg, log)}
}

// CreateConfig handles POST /elections/config
func (h *ConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.ConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	cfg, err := h.svc.CreateConfig(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// UpdateConfig handles PUT /elections/config/{id}
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.ConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		h.badJSON(w)
		return
	}

	cfg, err := h.svc.UpdateConfig(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// GetConfig handles GET /elections/config/{id}
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cfg, err := h.svc.GetConfig(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// LatestConfig handles GET /elections/config
// Returns the newest config of the caller's church.
func (h *ConfigHandler) LatestConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cfg, err := h.svc.LatestConfig(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// ListConfigs handles GET /elections/configs
func (h *ConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	configs, err := h.svc.ListConfigs(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, configs)
}

// ToggleStatus handles PUT /elections/config/{id}/toggle-status
func (h *ConfigHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.svc.ToggleStatus(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// DeleteConfig handles DELETE /elections/config/{configId}
// Removes the config with all of its elections, candidates and ledger rows.
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	configID := r.PathValue("configId")
	if err := h.svc.DeleteConfig(r.Context(), caller, configID); err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.DeleteConfigResponse{
		ConfigID: configID,
		Deleted:  true,
	})
}
