// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package ledger

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reason categorizes why tokens moved.
type Reason string

// Entry reasons.
const (
	ReasonJournal   Reason = "journal"
	ReasonCheckIn   Reason = "check_in"
	ReasonChallenge Reason = "challenge"
	ReasonMint      Reason = "mint"
	ReasonBurn      Reason = "burn"
	ReasonTransfer  Reason = "transfer"
	ReasonGrant     Reason = "grant"
)

// Valid reports whether the reason is one of the known categories.
func (r Reason) Valid() bool {
	switch r {
	case ReasonJournal, ReasonCheckIn, ReasonChallenge,
		ReasonMint, ReasonBurn, ReasonTransfer, ReasonGrant:
		return true
	}
	return false
}

// Entry is a single immutable ledger record. Amount is positive for
// credits and negative for debits. Ref optionally names what the entry
// relates to, such as a collectible ID or the peer account in a transfer.
type Entry struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	Amount    int64
	Reason    Reason
	Ref       string
	CreatedAt time.Time
}

// NewEntry creates a ledger entry with a fresh ID. Amount may be negative;
// validation of sign conventions belongs to the Service operations.
func NewEntry(accountID ulid.ULID, amount int64, reason Reason, ref string) (*Entry, error) {
	if !reason.Valid() {
		return nil, oops.Code("LEDGER_INVALID_REASON").
			With("reason", string(reason)).
			Errorf("unknown entry reason")
	}
	if amount == 0 {
		return nil, oops.Code("LEDGER_ZERO_AMOUNT").
			Errorf("entry amount must be non-zero")
	}
	return &Entry{
		ID:        ulid.Make(),
		AccountID: accountID,
		Amount:    amount,
		Reason:    reason,
		Ref:       ref,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Repository persists ledger entries and answers balance queries. Apply and
// ApplyPair must be atomic: the balance check, the entry insert, and the
// balance update happen as one unit, and concurrent debits serialize per
// account.
type Repository interface {
	// Apply records a single entry and returns the resulting balance.
	// Returns ErrInsufficientBalance without recording anything when a
	// debit would take the balance below zero.
	Apply(ctx context.Context, entry *Entry) (int64, error)

	// ApplyPair records a debit and a credit atomically: both land or
	// neither does. Used for transfers.
	ApplyPair(ctx context.Context, debit, credit *Entry) error

	// Balance returns the current balance for an account. Accounts with
	// no entries have balance zero.
	Balance(ctx context.Context, accountID ulid.ULID) (int64, error)

	// EntriesByAccount returns entries for an account, newest first,
	// capped at limit. A limit of zero or less means no cap.
	EntriesByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*Entry, error)

	// SumEntries recomputes the balance from the entry log alone,
	// bypassing any cached balance.
	SumEntries(ctx context.Context, accountID ulid.ULID) (int64, error)
}
