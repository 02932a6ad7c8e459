// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package memory provides an in-memory ledger repository, used by tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/ledger"
)

// Repository implements ledger.Repository with in-memory maps. A single
// mutex covers the balance check and the entry append, so concurrent debits
// against the same account serialize and can never overdraw it.
type Repository struct {
	mu       sync.RWMutex
	balances map[ulid.ULID]int64
	entries  map[ulid.ULID][]*ledger.Entry
}

// NewRepository creates an empty in-memory ledger.
func NewRepository() *Repository {
	return &Repository{
		balances: make(map[ulid.ULID]int64),
		entries:  make(map[ulid.ULID][]*ledger.Entry),
	}
}

// copyEntry returns a copy so callers cannot mutate stored state.
func copyEntry(e *ledger.Entry) *ledger.Entry {
	dup := *e
	return &dup
}

// applyLocked records one entry. Caller holds the write lock.
func (r *Repository) applyLocked(entry *ledger.Entry) (int64, error) {
	next := r.balances[entry.AccountID] + entry.Amount
	if next < 0 {
		return 0, oops.Code("LEDGER_INSUFFICIENT_BALANCE").
			With("account_id", entry.AccountID.String()).
			With("amount", entry.Amount).
			With("balance", r.balances[entry.AccountID]).
			Wrap(ledger.ErrInsufficientBalance)
	}
	r.balances[entry.AccountID] = next
	r.entries[entry.AccountID] = append(r.entries[entry.AccountID], copyEntry(entry))
	return next, nil
}

// Apply records a single entry and returns the resulting balance.
func (r *Repository) Apply(_ context.Context, entry *ledger.Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(entry)
}

// ApplyPair records a debit and a credit under one lock. The debit is
// checked first; nothing is recorded if it would overdraw.
func (r *Repository) ApplyPair(_ context.Context, debit, credit *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.applyLocked(debit); err != nil {
		return err
	}
	if _, err := r.applyLocked(credit); err != nil {
		// Credits cannot overdraw, but keep the pair atomic anyway.
		r.balances[debit.AccountID] -= debit.Amount
		list := r.entries[debit.AccountID]
		r.entries[debit.AccountID] = list[:len(list)-1]
		return err
	}
	return nil
}

// Balance returns the current balance. Unknown accounts have balance zero.
func (r *Repository) Balance(_ context.Context, accountID ulid.ULID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[accountID], nil
}

// EntriesByAccount returns entries newest first, capped at limit.
func (r *Repository) EntriesByAccount(_ context.Context, accountID ulid.ULID, limit int) ([]*ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.entries[accountID]
	out := make([]*ledger.Entry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, copyEntry(stored[i]))
	}
	return out, nil
}

// SumEntries recomputes the balance from the entry log.
func (r *Repository) SumEntries(_ context.Context, accountID ulid.ULID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, e := range r.entries[accountID] {
		sum += e.Amount
	}
	return sum, nil
}

// Compile-time interface check.
var _ ledger.Repository = (*Repository)(nil)
