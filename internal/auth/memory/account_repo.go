// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package memory provides in-memory auth repositories, used by tests and
// single-process deployments.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/auth"
)

// AccountRepository implements auth.AccountRepository with an in-memory map.
// The uniqueness check and insert in Create hold one lock, so concurrent
// registrations of the same username cannot both succeed.
type AccountRepository struct {
	mu       sync.RWMutex
	byID     map[ulid.ULID]*auth.Account
	byName   map[string]ulid.ULID // lowercase username -> id
}

// NewAccountRepository creates an empty in-memory account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:   make(map[ulid.ULID]*auth.Account),
		byName: make(map[string]ulid.ULID),
	}
}

// copyAccount returns a copy so callers cannot mutate stored state.
func copyAccount(a *auth.Account) *auth.Account {
	dup := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		dup.LockedUntil = &t
	}
	return &dup
}

// Create stores a new account, failing on duplicate usernames.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(account.Username)
	if _, exists := r.byName[key]; exists {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("username", account.Username).
			Wrap(auth.ErrDuplicateUsername)
	}

	r.byID[account.ID] = copyAccount(account)
	r.byName[key] = account.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.byID[id]
	if !exists {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return copyAccount(account), nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byName[strings.ToLower(username)]
	if !exists {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	return copyAccount(r.byID[id]), nil
}

// Update updates an existing account. TokenBalance is deliberately not
// copied from the argument; only the ledger writes balances.
func (r *AccountRepository) Update(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.byID[account.ID]
	if !exists {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", account.ID.String()).
			Wrap(auth.ErrNotFound)
	}

	dup := copyAccount(account)
	dup.TokenBalance = stored.TokenBalance
	r.byID[account.ID] = dup
	return nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
