// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package postgres provides the PostgreSQL-backed ledger repository.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/ledger"
)

// DB is the subset of pgxpool.Pool the repository uses. Tests substitute a
// pgxmock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements ledger.Repository using PostgreSQL. Every mutation
// locks the account row with SELECT ... FOR UPDATE before checking the
// balance, so concurrent debits against one account serialize in the
// database and cannot overdraw it. The entry log in ledger_entries is
// authoritative; accounts.token_balance is the cached running balance and
// is only written here, inside the same transaction as the entry insert.
type Repository struct {
	db DB
}

// NewRepository creates a new ledger Repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// ApplyEntryTx records one entry inside an existing transaction and returns
// the resulting balance. Exported so other repositories can bundle a ledger
// movement with their own writes in a single transaction.
func ApplyEntryTx(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		SELECT token_balance FROM accounts WHERE id = $1 FOR UPDATE
	`, entry.AccountID.String()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("LEDGER_ACCOUNT_NOT_FOUND").
			With("account_id", entry.AccountID.String()).
			Wrap(ledger.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "lock account").
			With("account_id", entry.AccountID.String()).
			Wrap(err)
	}

	next := balance + entry.Amount
	if next < 0 {
		return 0, oops.Code("LEDGER_INSUFFICIENT_BALANCE").
			With("account_id", entry.AccountID.String()).
			With("amount", entry.Amount).
			With("balance", balance).
			Wrap(ledger.ErrInsufficientBalance)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, amount, reason, ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		entry.ID.String(),
		entry.AccountID.String(),
		entry.Amount,
		string(entry.Reason),
		entry.Ref,
		entry.CreatedAt,
	)
	if err != nil {
		return 0, oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "insert entry").
			With("account_id", entry.AccountID.String()).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts SET token_balance = $1, updated_at = $2 WHERE id = $3
	`, next, entry.CreatedAt, entry.AccountID.String())
	if err != nil {
		return 0, oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "update balance").
			With("account_id", entry.AccountID.String()).
			Wrap(err)
	}

	return next, nil
}

// Apply records a single entry and returns the resulting balance.
func (r *Repository) Apply(ctx context.Context, entry *ledger.Entry) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	balance, err := ApplyEntryTx(ctx, tx, entry)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return balance, nil
}

// ApplyPair records a debit and a credit in one transaction. Both account
// rows are locked in ID order first, so two opposing transfers cannot
// deadlock on each other.
func (r *Repository) ApplyPair(ctx context.Context, debit, credit *ledger.Entry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	first, second := debit.AccountID, credit.AccountID
	if second.Compare(first) < 0 {
		first, second = second, first
	}
	for _, id := range []ulid.ULID{first, second} {
		if err := lockAccount(ctx, tx, id); err != nil {
			return err
		}
	}

	if _, err := ApplyEntryTx(ctx, tx, debit); err != nil {
		return err
	}
	if _, err := ApplyEntryTx(ctx, tx, credit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, id ulid.ULID) error {
	_, err := tx.Exec(ctx, `
		SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE
	`, id.String())
	if err != nil {
		return oops.Code("LEDGER_APPLY_FAILED").
			With("operation", "lock account").
			With("account_id", id.String()).
			Wrap(err)
	}
	return nil
}

// Balance returns the cached running balance for an account.
func (r *Repository) Balance(ctx context.Context, accountID ulid.ULID) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `
		SELECT token_balance FROM accounts WHERE id = $1
	`, accountID.String()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("LEDGER_ACCOUNT_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(ledger.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("LEDGER_BALANCE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return balance, nil
}

// EntriesByAccount returns entries newest first, capped at limit. A limit
// of zero or less returns everything.
func (r *Repository) EntriesByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*ledger.Entry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, amount, reason, ref, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, accountID.String(), lim)
	if err != nil {
		return nil, oops.Code("LEDGER_ENTRIES_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("LEDGER_ENTRIES_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return entries, nil
}

// SumEntries recomputes the balance from the entry log.
func (r *Repository) SumEntries(ctx context.Context, accountID ulid.ULID) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1
	`, accountID.String()).Scan(&sum)
	if err != nil {
		return 0, oops.Code("LEDGER_SUM_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return sum, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		entry          ledger.Entry
		idStr, acctStr string
		reasonStr      string
	)
	err := row.Scan(&idStr, &acctStr, &entry.Amount, &reasonStr, &entry.Ref, &entry.CreatedAt)
	if err != nil {
		return nil, oops.Code("LEDGER_SCAN_FAILED").Wrap(err)
	}

	entry.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("LEDGER_INVALID_ID").With("id", idStr).Wrap(err)
	}
	entry.AccountID, err = ulid.Parse(acctStr)
	if err != nil {
		return nil, oops.Code("LEDGER_INVALID_ACCOUNT_ID").
			With("account_id", acctStr).
			Wrap(err)
	}
	entry.Reason = ledger.Reason(reasonStr)
	return &entry, nil
}

// Compile-time interface check.
var _ ledger.Repository = (*Repository)(nil)
