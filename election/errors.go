// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import "errors"

// Operations wrap these with context; callers match them with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrLimitExceeded   = errors.New("limit exceeded")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation error")
)
