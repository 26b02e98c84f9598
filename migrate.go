// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliparse.FromFlags(cmd.Flags())
			if err != nil {
				return err
			}

			dbConn, err := db.Open(cmd.Context(), cfg.DatabaseType, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer dbConn.Close()

			version, err := db.Migrate(cmd.Context(), dbConn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
