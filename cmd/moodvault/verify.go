// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/moodvault/moodvault/internal/ledger"
	ledgerpg "github.com/moodvault/moodvault/internal/ledger/postgres"
	"github.com/moodvault/moodvault/internal/store"
)

// NewVerifyCmd creates the verify subcommand, which audits every account's
// cached balance against its ledger entries.
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Audit cached balances against the ledger entry log",
		RunE:  runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
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

	svc, err := ledger.NewService(ledgerpg.NewRepository(pool))
	if err != nil {
		return err
	}

	rows, err := pool.Query(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return oops.Code("LEDGER_VERIFY_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var ids []ulid.ULID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return oops.Code("LEDGER_VERIFY_FAILED").Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return oops.Code("LEDGER_VERIFY_FAILED").With("id", idStr).Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return oops.Code("LEDGER_VERIFY_FAILED").Wrap(err)
	}

	var drifted int
	for _, id := range ids {
		if err := svc.Verify(ctx, id); err != nil {
			drifted++
			cmd.PrintErrf("DRIFT %s: %v\n", id, err)
		}
	}

	if drifted > 0 {
		return oops.Code("LEDGER_VERIFY_FAILED").
			With("accounts", len(ids)).
			With("drifted", drifted).
			Errorf("%d of %d accounts have balance drift", drifted, len(ids))
	}
	cmd.Printf("Verified %d accounts, no drift\n", len(ids))
	return nil
}
