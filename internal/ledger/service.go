// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service exposes the ledger operations the rest of the system uses to
// move tokens. All mutations go through the Repository's atomic Apply
// paths; the service adds argument validation, logging, and metrics.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a ledger service backed by the given repository.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("LEDGER_INVALID_CONFIG").Errorf("repository is required")
	}
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Credit adds tokens to an account and returns the new balance.
func (s *Service) Credit(ctx context.Context, accountID ulid.ULID, amount int64, reason Reason, ref string) (int64, error) {
	if amount <= 0 {
		recordOperation(reason, statusInvalid)
		return 0, oops.Code("LEDGER_INVALID_AMOUNT").
			With("amount", amount).
			Errorf("credit amount must be positive")
	}

	entry, err := NewEntry(accountID, amount, reason, ref)
	if err != nil {
		recordOperation(reason, statusInvalid)
		return 0, err
	}

	balance, err := s.repo.Apply(ctx, entry)
	if err != nil {
		recordOperation(reason, statusError)
		return 0, err
	}

	recordOperation(reason, statusSuccess)
	s.logger.DebugContext(ctx, "ledger credit applied",
		slog.String("account_id", accountID.String()),
		slog.Int64("amount", amount),
		slog.String("reason", string(reason)),
		slog.Int64("balance", balance))
	return balance, nil
}

// Debit removes tokens from an account and returns the new balance.
// Fails with ErrInsufficientBalance when the account cannot cover it.
func (s *Service) Debit(ctx context.Context, accountID ulid.ULID, amount int64, reason Reason, ref string) (int64, error) {
	if amount <= 0 {
		recordOperation(reason, statusInvalid)
		return 0, oops.Code("LEDGER_INVALID_AMOUNT").
			With("amount", amount).
			Errorf("debit amount must be positive")
	}

	entry, err := NewEntry(accountID, -amount, reason, ref)
	if err != nil {
		recordOperation(reason, statusInvalid)
		return 0, err
	}

	balance, err := s.repo.Apply(ctx, entry)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			recordOperation(reason, statusInsufficient)
		} else {
			recordOperation(reason, statusError)
		}
		return 0, err
	}

	recordOperation(reason, statusSuccess)
	s.logger.DebugContext(ctx, "ledger debit applied",
		slog.String("account_id", accountID.String()),
		slog.Int64("amount", amount),
		slog.String("reason", string(reason)),
		slog.Int64("balance", balance))
	return balance, nil
}

// Transfer moves tokens between two accounts atomically. The debit and
// credit land together or not at all, and the sender cannot go negative.
func (s *Service) Transfer(ctx context.Context, from, to ulid.ULID, amount int64, ref string) error {
	if amount <= 0 {
		recordOperation(ReasonTransfer, statusInvalid)
		return oops.Code("LEDGER_INVALID_AMOUNT").
			With("amount", amount).
			Errorf("transfer amount must be positive")
	}
	if from == to {
		recordOperation(ReasonTransfer, statusInvalid)
		return oops.Code("LEDGER_SELF_TRANSFER").
			With("account_id", from.String()).
			Errorf("cannot transfer to the same account")
	}

	debit, err := NewEntry(from, -amount, ReasonTransfer, ref)
	if err != nil {
		recordOperation(ReasonTransfer, statusInvalid)
		return err
	}
	credit, err := NewEntry(to, amount, ReasonTransfer, ref)
	if err != nil {
		recordOperation(ReasonTransfer, statusInvalid)
		return err
	}

	if err := s.repo.ApplyPair(ctx, debit, credit); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			recordOperation(ReasonTransfer, statusInsufficient)
		} else {
			recordOperation(ReasonTransfer, statusError)
		}
		return err
	}

	recordOperation(ReasonTransfer, statusSuccess)
	s.logger.InfoContext(ctx, "tokens transferred",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int64("amount", amount))
	return nil
}

// Balance returns an account's current balance.
func (s *Service) Balance(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return s.repo.Balance(ctx, accountID)
}

// Entries returns an account's history, newest first, capped at limit.
func (s *Service) Entries(ctx context.Context, accountID ulid.ULID, limit int) ([]*Entry, error) {
	return s.repo.EntriesByAccount(ctx, accountID, limit)
}

// Verify recomputes the balance from the entry log and compares it with
// the backend's answer. Returns ErrBalanceMismatch on drift.
func (s *Service) Verify(ctx context.Context, accountID ulid.ULID) error {
	cached, err := s.repo.Balance(ctx, accountID)
	if err != nil {
		return err
	}
	summed, err := s.repo.SumEntries(ctx, accountID)
	if err != nil {
		return err
	}
	if cached != summed {
		s.logger.ErrorContext(ctx, "ledger balance drift detected",
			slog.String("account_id", accountID.String()),
			slog.Int64("cached", cached),
			slog.Int64("summed", summed))
		return oops.Code("LEDGER_BALANCE_MISMATCH").
			With("account_id", accountID.String()).
			With("cached", cached).
			With("summed", summed).
			Wrap(ErrBalanceMismatch)
	}
	return nil
}
