// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "DATABASE_TYPE", "LOG_LEVEL", "CALLER_SECRET", "ALLOWED_ORIGIN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, root.PersistentFlags().Lookup("database-url"))
}

func TestMigrateCommand(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "elect.db")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "-d", path, "-t", cliparse.DatabaseSQLite})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "schema version")

	// Running again is a no-op at the same version
	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "-d", path})
	require.NoError(t, root.Execute())
	assert.Equal(t, fmt.Sprintf("schema version %d\n", db.LatestVersion()), out.String())
}

func TestMigrateCommand_MissingDatabase(t *testing.T) {
	clearEnv(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"migrate"})

	assert.Error(t, root.Execute())
}

func TestServe_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elect.db")
	cfg := cliparse.Config{
		Port:         0,
		DatabaseURL:  path,
		DatabaseType: cliparse.DatabaseSQLite,
		LogLevel:     "debug",
	}

	// Long enough to migrate and start listening
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, serve(ctx, cfg, zaptest.NewLogger(t)))

	// The schema was applied before listening
	conn, err := db.Open(context.Background(), db.DriverSQLite, path)
	require.NoError(t, err)
	defer conn.Close()
	version, err := db.SchemaVersion(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, db.LatestVersion(), version)
}
