// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quickly-elect/cliparse"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quickly-elect",
		Short:         "Church nomination and election service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cliparse.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
