// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Headers set by the upstream authentication collaborator
const (
	HeaderUserID        = "X-User-ID"
	HeaderUserSignature = "X-User-Signature"
)

// Member roles
const (
	RoleSuperAdmin = "superadmin"
	RolePastor     = "pastor"
	RoleAdmin      = "admin"
	RoleMember     = "member"
)

var (
	ErrMissingCaller    = errors.New("missing caller id")
	ErrInvalidCaller    = errors.New("invalid caller id")
	ErrInvalidSignature = errors.New("invalid caller signature")
	ErrUnknownCaller    = errors.New("unknown caller")
)

// Caller is the resolved identity behind a request.
type Caller struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ChurchID int64  `json:"churchId"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the caller may run administrative operations.
func (c Caller) IsAdmin() bool {
	switch c.Role {
	case RoleSuperAdmin, RolePastor, RoleAdmin:
		return true
	}
	return false
}

// IsSuperAdmin reports whether the caller is exempt from church scoping.
func (c Caller) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}

// CanAccessChurch reports whether the caller may see records of churchID.
func (c Caller) CanAccessChurch(churchID int64) bool {
	return c.IsSuperAdmin() || c.ChurchID == churchID
}

// Resolver maps a caller id to its identity. Implementations return
// ErrUnknownCaller when the id does not exist.
type Resolver interface {
	ResolveCaller(ctx context.Context, id int64) (Caller, error)
}

// SignCallerID creates the HMAC signature the gateway attaches to a caller id.
// Deterministic, so it can be verified without storage.
func SignCallerID(callerID int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(callerID, 10)))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner headers
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// VerifyCallerID checks the signature for callerID.
func VerifyCallerID(callerID int64, signature, secret string) error {
	expected := SignCallerID(callerID, secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// CallerIDFromRequest extracts the caller id from the request headers.
// When secret is non-empty the signature header must match.
func CallerIDFromRequest(r *http.Request, secret string) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return 0, ErrMissingCaller
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCaller
	}

	if secret != "" {
		if err := VerifyCallerID(id, r.Header.Get(HeaderUserSignature), secret); err != nil {
			return 0, err
		}
	}
	return id, nil
}
