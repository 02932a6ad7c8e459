// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package collectible

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/ledger"
)

// Service exposes the collectible operations. Ownership and state are
// checked here for early, well-coded failures, then checked again inside
// the repository's atomic transition so concurrent callers cannot race
// past the service-level check.
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

// NewService creates a collectible service backed by the given repository.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("COLLECTIBLE_INVALID_CONFIG").Errorf("repository is required")
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

// Create registers a new unminted collectible owned by ownerID. Passing
// zero for reclaimValue uses the default of half the mint cost.
func (s *Service) Create(ctx context.Context, ownerID ulid.ULID, name string, attrs Attributes, mintCost, reclaimValue int64) (*Collectible, error) {
	c, err := New(ownerID, name, attrs, mintCost, reclaimValue)
	if err != nil {
		recordTransition(actionCreate, statusInvalid)
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		recordTransition(actionCreate, statusError)
		return nil, err
	}

	recordTransition(actionCreate, statusSuccess)
	s.logger.InfoContext(ctx, "collectible created",
		slog.String("collectible_id", c.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.String("name", name))
	return c, nil
}

// Get retrieves a collectible by ID.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Collectible, error) {
	return s.repo.Get(ctx, id)
}

// ListByOwner returns an account's collectibles, newest first, optionally
// filtered by state.
func (s *Service) ListByOwner(ctx context.Context, ownerID ulid.ULID, states ...State) ([]*Collectible, error) {
	return s.repo.ListByOwner(ctx, ownerID, states...)
}

// Mint activates an unminted collectible, debiting the mint cost from the
// caller. Only the owner can mint, and a collectible mints at most once.
func (s *Service) Mint(ctx context.Context, callerID, id ulid.ULID) (*Collectible, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		recordTransition(actionMint, statusError)
		return nil, err
	}
	if !c.OwnedBy(callerID) {
		recordTransition(actionMint, statusDenied)
		return nil, oops.Code("COLLECTIBLE_NOT_OWNER").
			With("collectible_id", id.String()).
			With("caller_id", callerID.String()).
			Wrap(ErrNotOwner)
	}
	if !c.CanMint() {
		recordTransition(actionMint, statusInvalid)
		return nil, oops.Code("COLLECTIBLE_INVALID_STATE").
			With("collectible_id", id.String()).
			With("state", string(c.State)).
			Wrap(ErrInvalidState)
	}

	var debit *ledger.Entry
	if c.MintCost > 0 {
		debit, err = ledger.NewEntry(callerID, -c.MintCost, ledger.ReasonMint, id.String())
		if err != nil {
			recordTransition(actionMint, statusError)
			return nil, err
		}
	}

	mintedAt := nowUTC()
	if err := s.repo.Mint(ctx, id, callerID, mintedAt, debit); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			recordTransition(actionMint, statusInsufficient)
		} else {
			recordTransition(actionMint, statusError)
		}
		return nil, err
	}

	recordTransition(actionMint, statusSuccess)
	s.logger.InfoContext(ctx, "collectible minted",
		slog.String("collectible_id", id.String()),
		slog.String("owner_id", callerID.String()),
		slog.Int64("mint_cost", c.MintCost))
	return s.repo.Get(ctx, id)
}

// Burn retires a minted collectible, crediting the reclaim value to the
// caller. Only the current owner can burn, and burned is terminal.
func (s *Service) Burn(ctx context.Context, callerID, id ulid.ULID) (*Collectible, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		recordTransition(actionBurn, statusError)
		return nil, err
	}
	if !c.OwnedBy(callerID) {
		recordTransition(actionBurn, statusDenied)
		return nil, oops.Code("COLLECTIBLE_NOT_OWNER").
			With("collectible_id", id.String()).
			With("caller_id", callerID.String()).
			Wrap(ErrNotOwner)
	}
	if !c.CanBurn() {
		recordTransition(actionBurn, statusInvalid)
		return nil, oops.Code("COLLECTIBLE_INVALID_STATE").
			With("collectible_id", id.String()).
			With("state", string(c.State)).
			Wrap(ErrInvalidState)
	}

	var credit *ledger.Entry
	if c.ReclaimValue > 0 {
		credit, err = ledger.NewEntry(callerID, c.ReclaimValue, ledger.ReasonBurn, id.String())
		if err != nil {
			recordTransition(actionBurn, statusError)
			return nil, err
		}
	}

	burnedAt := nowUTC()
	if err := s.repo.Burn(ctx, id, callerID, burnedAt, credit); err != nil {
		recordTransition(actionBurn, statusError)
		return nil, err
	}

	recordTransition(actionBurn, statusSuccess)
	s.logger.InfoContext(ctx, "collectible burned",
		slog.String("collectible_id", id.String()),
		slog.String("owner_id", callerID.String()),
		slog.Int64("reclaim_value", c.ReclaimValue))
	return s.repo.Get(ctx, id)
}

// Gift transfers a minted collectible to another account. The recipient
// becomes the owner and may gift it onward.
func (s *Service) Gift(ctx context.Context, callerID, id, toID ulid.ULID) error {
	if callerID == toID {
		recordTransition(actionGift, statusInvalid)
		return oops.Code("COLLECTIBLE_SELF_GIFT").
			With("collectible_id", id.String()).
			Errorf("cannot gift a collectible to yourself")
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		recordTransition(actionGift, statusError)
		return err
	}
	if !c.OwnedBy(callerID) {
		recordTransition(actionGift, statusDenied)
		return oops.Code("COLLECTIBLE_NOT_OWNER").
			With("collectible_id", id.String()).
			With("caller_id", callerID.String()).
			Wrap(ErrNotOwner)
	}
	if !c.CanGift() {
		recordTransition(actionGift, statusInvalid)
		return oops.Code("COLLECTIBLE_INVALID_STATE").
			With("collectible_id", id.String()).
			With("state", string(c.State)).
			Wrap(ErrInvalidState)
	}

	if err := s.repo.Gift(ctx, id, callerID, toID, nowUTC()); err != nil {
		recordTransition(actionGift, statusError)
		return err
	}

	recordTransition(actionGift, statusSuccess)
	s.logger.InfoContext(ctx, "collectible gifted",
		slog.String("collectible_id", id.String()),
		slog.String("from", callerID.String()),
		slog.String("to", toID.String()))
	return nil
}
