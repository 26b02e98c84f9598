// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Commands built with cobra register the same flags on their own flag set:

	cliparse.AddFlags(cmd.Flags())
	cfg, err := cliparse.FromFlags(cmd.Flags())

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - LogLevel: debug, info, warn or error (default: info)
  - CallerSecret: HMAC secret for X-User-Signature (optional)
  - AllowedOrigin: CORS origin (optional, echoes the request origin when empty)

# CLI Flags

	-p, --port           Server port
	-d, --database-url   Database URL
	-t, --database-type  sqlite or postgres
	--log-level          Log level
	--caller-secret      Caller signature secret
	--allowed-origin     CORS origin

# Environment Variables

Flags fall back to environment variables, read with cleanenv:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	LOG_LEVEL      → --log-level
	CALLER_SECRET  → --caller-secret
	ALLOWED_ORIGIN → --allowed-origin

A .env file in the working directory is loaded first with godotenv; real
environment variables are never overwritten by it. CLI flags take precedence
over everything.
*/
package cliparse
