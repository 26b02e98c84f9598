// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
)

// Error codes returned in the "code" field of error bodies
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeInvalidState    = "invalid_state"
	CodeLimitExceeded   = "limit_exceeded"
	CodeConflict        = "conflict"
	CodeValidation      = "validation_error"
	CodeInternal        = "internal"
)

// base holds what every handler needs: the engine, the caller resolver,
// configuration and a logger.
type base struct {
	svc     *election.Service
	callers auth.Resolver
	cfg     cliparse.Config
	log     *zap.Logger
}

func newBase(svc *election.Service, callers auth.Resolver, cfg cliparse.Config, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{svc: svc, callers: callers, cfg: cfg, log: log}
}

// caller resolves the identity forwarded by the gateway.
func (b base) caller(r *http.Request) (auth.Caller, error) {
	id, err := auth.CallerIDFromRequest(r, b.cfg.CallerSecret)
	if err != nil {
		return auth.Caller{}, fmt.Errorf("%w: %v", election.ErrUnauthenticated, err)
	}

	c, err := b.callers.ResolveCaller(r.Context(), id)
	if errors.Is(err, auth.ErrUnknownCaller) {
		return auth.Caller{}, fmt.Errorf("%w: unknown caller %d", election.ErrUnauthenticated, id)
	}
	if err != nil {
		return auth.Caller{}, fmt.Errorf("resolve caller: %w", err)
	}
	return c, nil
}

// fail writes the error body for err. Internal errors are logged and their
// detail is kept out of the response.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		b.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.Error(err),
		)
		message = "internal error"
	}
	middleware.ErrorResponse(w, status, code, message)
}

// badJSON rejects an unparseable request body.
func (b base) badJSON(w http.ResponseWriter) {
	middleware.ErrorResponse(w, http.StatusBadRequest, CodeValidation, "invalid JSON")
}

// errorStatus maps engine errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, election.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, election.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, election.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, election.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, election.ErrLimitExceeded):
		return http.StatusConflict, CodeLimitExceeded
	case errors.Is(err, election.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, election.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	}
	return http.StatusInternalServerError, CodeInternal
}
