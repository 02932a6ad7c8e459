// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package memory provides an in-memory collectible repository, used by
// tests and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/collectible"
	"github.com/moodvault/moodvault/internal/ledger"
)

// Registry implements collectible.Repository with an in-memory map. A
// single mutex serializes lifecycle transitions per process, so a
// collectible cannot be minted or burned twice by concurrent callers. The
// ledger entry is applied while the mutex is held; if the debit fails the
// transition is never made.
type Registry struct {
	mu     sync.RWMutex
	byID   map[ulid.ULID]*collectible.Collectible
	tokens ledger.Repository
}

// NewRegistry creates an empty registry. The ledger repository receives
// the mint and burn entries.
func NewRegistry(tokens ledger.Repository) *Registry {
	return &Registry{
		byID:   make(map[ulid.ULID]*collectible.Collectible),
		tokens: tokens,
	}
}

// copyCollectible returns a copy so callers cannot mutate stored
// state.
func copyCollectible(c *collectible.Collectible) *collectible.Collectible {
	dup := *c
	if c.MintedAt != nil {
		t := *c.MintedAt
		dup.MintedAt = &t
	}
	if c.BurnedAt != nil {
		t := *c.BurnedAt
		dup.BurnedAt = &t
	}
	if c.GiftedAt != nil {
		t := *c.GiftedAt
		dup.GiftedAt = &t
	}
	return &dup
}

// Create stores a new unminted collectible.
func (r *Registry) Create(_ context.Context, c *collectible.Collectible) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID]; exists {
		return oops.Code("COLLECTIBLE_DUPLICATE").
			With("collectible_id", c.ID.String()).
			Errorf("collectible already exists")
	}
	r.byID[c.ID] = copyCollectible(c)
	return nil
}

// Get retrieves a collectible by ID.
func (r *Registry) Get(_ context.Context, id ulid.ULID) (*collectible.Collectible, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("COLLECTIBLE_NOT_FOUND").
			With("collectible_id", id.String()).
			Wrap(collectible.ErrNotFound)
	}
	return copyCollectible(c), nil
}

// ListByOwner returns an account's collectibles, newest first.
func (r *Registry) ListByOwner(_ context.Context, ownerID ulid.ULID, states ...collectible.State) ([]*collectible.Collectible, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*collectible.Collectible
	for _, c := range r.byID {
		if c.OwnerID != ownerID {
			continue
		}
		if len(states) > 0 && !stateIn(c.State, states) {
			continue
		}
		out = append(out, copyCollectible(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func stateIn(s collectible.State, states []collectible.State) bool {
	for _, want := range states {
		if s == want {
			return true
		}
	}
	return false
}

// locked fetches a collectible and re-checks ownership and state under the
// write lock, so transitions stay serialized.
func (r *Registry) locked(id, ownerID ulid.ULID, want collectible.State) (*collectible.Collectible, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("COLLECTIBLE_NOT_FOUND").
			With("collectible_id", id.String()).
			Wrap(collectible.ErrNotFound)
	}
	if c.OwnerID != ownerID {
		return nil, oops.Code("COLLECTIBLE_NOT_OWNER").
			With("collectible_id", id.String()).
			With("caller_id", ownerID.String()).
			Wrap(collectible.ErrNotOwner)
	}
	if c.State != want {
		return nil, oops.Code("COLLECTIBLE_INVALID_STATE").
			With("collectible_id", id.String()).
			With("state", string(c.State)).
			Wrap(collectible.ErrInvalidState)
	}
	return c, nil
}

// Mint transitions unminted to minted, applying the debit first. A nil
// debit means the collectible is free to mint.
func (r *Registry) Mint(ctx context.Context, id, ownerID ulid.ULID, mintedAt time.Time, debit *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.locked(id, ownerID, collectible.StateUnminted)
	if err != nil {
		return err
	}

	if debit != nil {
		if _, err := r.tokens.Apply(ctx, debit); err != nil {
			return err
		}
	}

	c.State = collectible.StateMinted
	c.MintedAt = &mintedAt
	c.UpdatedAt = mintedAt
	return nil
}

// Burn transitions minted to burned, applying the credit. A nil credit
// means nothing is reclaimed.
func (r *Registry) Burn(ctx context.Context, id, ownerID ulid.ULID, burnedAt time.Time, credit *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.locked(id, ownerID, collectible.StateMinted)
	if err != nil {
		return err
	}

	if credit != nil {
		if _, err := r.tokens.Apply(ctx, credit); err != nil {
			return err
		}
	}

	c.State = collectible.StateBurned
	c.BurnedAt = &burnedAt
	c.UpdatedAt = burnedAt
	return nil
}

// Gift moves ownership of a minted collectible.
func (r *Registry) Gift(_ context.Context, id, fromID, toID ulid.ULID, giftedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.locked(id, fromID, collectible.StateMinted)
	if err != nil {
		return err
	}

	c.OwnerID = toID
	c.GiftedAt = &giftedAt
	c.UpdatedAt = giftedAt
	return nil
}

// Compile-time interface check.
var _ collectible.Repository = (*Registry)(nil)
