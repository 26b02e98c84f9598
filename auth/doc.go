// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth resolves the caller behind a request.

Authentication happens upstream. The gateway forwards the resolved member id
in the X-User-ID header:

	id, err := auth.CallerIDFromRequest(r, cfg.CallerSecret)

# Signatures

When a caller secret is configured the gateway also sends X-User-Signature,
an HMAC-SHA256 of the decimal id:

	sig := auth.SignCallerID(42, secret)
	err := auth.VerifyCallerID(42, sig, secret)

The signature is URL-safe base64 without padding. It is deterministic, so
validation needs no storage.

# Roles

A Resolver turns the id into a Caller with a role and church:

  - superadmin: administrative, sees every church
  - pastor, admin: administrative within their church
  - anything else: plain member
*/
package auth
