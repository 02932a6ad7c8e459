// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"github.com/spf13/cobra"

	authpg "github.com/moodvault/moodvault/internal/auth/postgres"
	"github.com/moodvault/moodvault/internal/store"
)

// NewSweepCmd creates the sweep subcommand, a one-shot expired session
// cleanup for cron-style scheduling.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		RunE:  runSweep,
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := store.NewPool(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions := authpg.NewSessionRepository(pool)
	removed, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Removed %d expired sessions\n", removed)
	return nil
}
