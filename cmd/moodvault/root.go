// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/moodvault/moodvault/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the moodvault CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moodvault",
		Short: "Moodvault - accounts, mood tokens, and collectibles",
		Long: `Moodvault runs the account, session, token ledger, and collectible
services backed by PostgreSQL, with optional Redis session storage.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile == "" {
				configFile = xdg.DefaultConfigPath()
			}
		},
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewVerifyCmd())

	return cmd
}
