// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package collectible

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/ledger"
)

// State is the lifecycle state of a collectible.
type State string

// Lifecycle states. The only legal transitions are unminted to minted and
// minted to burned. Burned is terminal.
const (
	StateUnminted State = "unminted"
	StateMinted   State = "minted"
	StateBurned   State = "burned"
)

// Valid reports whether the state is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateUnminted, StateMinted, StateBurned:
		return true
	}
	return false
}

// Attributes describe what a collectible represents.
type Attributes struct {
	Category string `json:"category"`
	Rarity   string `json:"rarity"`
	Emotion  string `json:"emotion"`
}

// Collectible is a single registry item. MintCost is what minting debits
// from the owner; ReclaimValue is what burning credits back.
type Collectible struct {
	ID           ulid.ULID
	OwnerID      ulid.ULID
	Name         string
	Attributes   Attributes
	MintCost     int64
	ReclaimValue int64
	State        State
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MintedAt     *time.Time
	BurnedAt     *time.Time
	GiftedAt     *time.Time
}

// DefaultReclaimDivisor derives the reclaim value from the mint cost when
// none is given: burning returns half of what minting cost.
const DefaultReclaimDivisor = 2

// MaxNameLength bounds collectible names.
const MaxNameLength = 80

// ValidateName checks a collectible name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("COLLECTIBLE_INVALID_NAME").
			Errorf("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return oops.Code("COLLECTIBLE_INVALID_NAME").
			With("length", len(name)).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// New creates an unminted collectible owned by the given account. A
// reclaimValue of zero or less falls back to mintCost / DefaultReclaimDivisor.
func New(ownerID ulid.ULID, name string, attrs Attributes, mintCost, reclaimValue int64) (*Collectible, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if mintCost < 0 {
		return nil, oops.Code("COLLECTIBLE_INVALID_COST").
			With("mint_cost", mintCost).
			Errorf("mint cost must not be negative")
	}
	if reclaimValue <= 0 {
		reclaimValue = mintCost / DefaultReclaimDivisor
	}
	if reclaimValue > mintCost {
		return nil, oops.Code("COLLECTIBLE_INVALID_COST").
			With("mint_cost", mintCost).
			With("reclaim_value", reclaimValue).
			Errorf("reclaim value must not exceed mint cost")
	}

	now := time.Now().UTC()
	return &Collectible{
		ID:           ulid.Make(),
		OwnerID:      ownerID,
		Name:         name,
		Attributes:   attrs,
		MintCost:     mintCost,
		ReclaimValue: reclaimValue,
		State:        StateUnminted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

// CanMint reports whether the collectible can be minted.
func (c *Collectible) CanMint() bool { return c.State == StateUnminted }

// CanBurn reports whether the collectible can be burned.
func (c *Collectible) CanBurn() bool { return c.State == StateMinted }

// CanGift reports whether the collectible can be gifted.
func (c *Collectible) CanGift() bool { return c.State == StateMinted }

// OwnedBy reports whether the given account owns the collectible.
func (c *Collectible) OwnedBy(accountID ulid.ULID) bool { return c.OwnerID == accountID }

// Repository persists collectibles. Mint and Burn bundle the state
// transition with the ledger entry so the token movement and the
// transition land atomically, and a collectible can never be minted or
// burned twice even under concurrent calls.
type Repository interface {
	// Create stores a new unminted collectible.
	Create(ctx context.Context, c *Collectible) error

	// Get retrieves a collectible by ID.
	Get(ctx context.Context, id ulid.ULID) (*Collectible, error)

	// ListByOwner returns an account's collectibles, newest first. With
	// no states given, all states are included.
	ListByOwner(ctx context.Context, ownerID ulid.ULID, states ...State) ([]*Collectible, error)

	// Mint transitions unminted to minted for the given owner and applies
	// the debit entry. Nothing changes if the collectible is not unminted,
	// not owned by ownerID, or the debit would overdraw.
	Mint(ctx context.Context, id, ownerID ulid.ULID, mintedAt time.Time, debit *ledger.Entry) error

	// Burn transitions minted to burned for the given owner and applies
	// the credit entry, atomically.
	Burn(ctx context.Context, id, ownerID ulid.ULID, burnedAt time.Time, credit *ledger.Entry) error

	// Gift moves ownership of a minted collectible from one account to
	// another. No tokens move.
	Gift(ctx context.Context, id, fromID, toID ulid.ULID, giftedAt time.Time) error
}
