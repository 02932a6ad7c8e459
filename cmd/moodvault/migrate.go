// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/moodvault/moodvault/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with its up/down/status/force
// subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations (drops all tables and data)",
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show current migration version and pending migrations",
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the migration version without running migrations",
			Long: `Set the migration version without running migrations. Use only to
recover from a dirty state after fixing the database by hand.`,
			Args: cobra.ExactArgs(1),
			RunE: runMigrateForce,
		},
	)

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			cmd.PrintErrln("warning: failed to close migrator:", closeErr)
		}
	}()

	return fn(migrator)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *store.Migrator) error {
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations applied")
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *store.Migrator) error {
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("Migrations rolled back")
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m *store.Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}

		if version == 0 {
			cmd.Println("No migrations applied")
		} else {
			name, err := store.MigrationName(version)
			if err != nil {
				return err
			}
			if name == "" {
				name = "unknown"
			}
			cmd.Printf("Current version: %d (%s)\n", version, name)
		}
		if dirty {
			cmd.Println("WARNING: migration state is dirty; use 'migrate force' after fixing the database")
		}

		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("Schema up to date")
			return nil
		}
		for _, v := range pending {
			name, err := store.MigrationName(v)
			if err != nil {
				return err
			}
			cmd.Printf("Pending: %d (%s)\n", v, name)
		}
		return nil
	})
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return oops.Code("INVALID_VERSION").
			With("argument", args[0]).
			Errorf("version must be an integer")
	}
	if version < 0 {
		return oops.Code("INVALID_VERSION").
			Errorf("version must be non-negative, got %d", version)
	}

	return withMigrator(cmd, func(m *store.Migrator) error {
		if err := m.Force(version); err != nil {
			return err
		}
		cmd.Printf("Forced migration version to %d\n", version)
		return nil
	})
}
