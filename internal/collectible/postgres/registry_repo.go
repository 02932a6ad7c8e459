// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package postgres provides the PostgreSQL-backed collectible repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/collectible"
	"github.com/moodvault/moodvault/internal/ledger"
	ledgerpg "github.com/moodvault/moodvault/internal/ledger/postgres"
)

// Registry implements collectible.Repository using PostgreSQL. Lifecycle
// transitions are conditional updates keyed on the current state, run in
// the same transaction as the ledger entry, so the token movement and the
// transition land together and double mints or burns lose the race at the
// database.
type Registry struct {
	db ledgerpg.DB
}

// NewRegistry creates a new Registry.
func NewRegistry(db ledgerpg.DB) *Registry {
	return &Registry{db: db}
}

// Create stores a new unminted collectible.
func (r *Registry) Create(ctx context.Context, c *collectible.Collectible) error {
	attrsJSON, err := json.Marshal(c.Attributes)
	if err != nil {
		return oops.Code("COLLECTIBLE_CREATE_FAILED").
			With("operation", "marshal attributes").
			Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO collectibles (
			id, owner_id, name, attributes, mint_cost, reclaim_value,
			state, created_at, updated_at, minted_at, burned_at, gifted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		c.ID.String(),
		c.OwnerID.String(),
		c.Name,
		attrsJSON,
		c.MintCost,
		c.ReclaimValue,
		string(c.State),
		c.CreatedAt,
		c.UpdatedAt,
		c.MintedAt,
		c.BurnedAt,
		c.GiftedAt,
	)
	if err != nil {
		return oops.Code("COLLECTIBLE_CREATE_FAILED").
			With("collectible_id", c.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a collectible by ID.
func (r *Registry) Get(ctx context.Context, id ulid.ULID) (*collectible.Collectible, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, owner_id, name, attributes, mint_cost, reclaim_value,
		       state, created_at, updated_at, minted_at, burned_at, gifted_at
		FROM collectibles
		WHERE id = $1
	`, id.String())

	c, err := scanCollectible(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("COLLECTIBLE_NOT_FOUND").
			With("collectible_id", id.String()).
			Wrap(collectible.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("COLLECTIBLE_GET_FAILED").
			With("collectible_id", id.String()).
			Wrap(err)
	}
	return c, nil
}

// ListByOwner returns an account's collectibles, newest first.
func (r *Registry) ListByOwner(ctx context.Context, ownerID ulid.ULID, states ...collectible.State) ([]*collectible.Collectible, error) {
	stateStrs := make([]string, len(states))
	for i, s := range states {
		stateStrs[i] = string(s)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, name, attributes, mint_cost, reclaim_value,
		       state, created_at, updated_at, minted_at, burned_at, gifted_at
		FROM collectibles
		WHERE owner_id = $1
		  AND (cardinality($2::text[]) = 0 OR state = ANY($2::text[]))
		ORDER BY created_at DESC, id DESC
	`, ownerID.String(), stateStrs)
	if err != nil {
		return nil, oops.Code("COLLECTIBLE_LIST_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var out []*collectible.Collectible
	for rows.Next() {
		c, err := scanCollectible(rows)
		if err != nil {
			return nil, oops.Code("COLLECTIBLE_LIST_FAILED").
				With("owner_id", ownerID.String()).
				Wrap(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("COLLECTIBLE_LIST_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return out, nil
}

// Mint transitions unminted to minted and applies the debit in one
// transaction. The conditional update keyed on state means only one of
// two concurrent mints can succeed.
func (r *Registry) Mint(ctx context.Context, id, ownerID ulid.ULID, mintedAt time.Time, debit *ledger.Entry) error {
	return r.transition(ctx, id, ownerID,
		collectible.StateUnminted, debit,
		`UPDATE collectibles
		 SET state = 'minted', minted_at = $3, updated_at = $3
		 WHERE id = $1 AND owner_id = $2 AND state = 'unminted'`,
		mintedAt)
}

// Burn transitions minted to burned and applies the credit in one
// transaction.
func (r *Registry) Burn(ctx context.Context, id, ownerID ulid.ULID, burnedAt time.Time, credit *ledger.Entry) error {
	return r.transition(ctx, id, ownerID,
		collectible.StateMinted, credit,
		`UPDATE collectibles
		 SET state = 'burned', burned_at = $3, updated_at = $3
		 WHERE id = $1 AND owner_id = $2 AND state = 'minted'`,
		burnedAt)
}

func (r *Registry) transition(ctx context.Context, id, ownerID ulid.ULID, want collectible.State, entry *ledger.Entry, query string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("COLLECTIBLE_TRANSITION_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, query, id.String(), ownerID.String(), at)
	if err != nil {
		return oops.Code("COLLECTIBLE_TRANSITION_FAILED").
			With("collectible_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnose(ctx, tx, id, ownerID, want)
	}

	if entry != nil {
		if _, err := ledgerpg.ApplyEntryTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("COLLECTIBLE_TRANSITION_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// diagnose turns a zero-row conditional update into the precise failure:
// missing row, wrong owner, or wrong state.
func (r *Registry) diagnose(ctx context.Context, tx pgx.Tx, id, ownerID ulid.ULID, want collectible.State) error {
	var ownerStr, stateStr string
	err := tx.QueryRow(ctx, `
		SELECT owner_id, state FROM collectibles WHERE id = $1
	`, id.String()).Scan(&ownerStr, &stateStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("COLLECTIBLE_NOT_FOUND").
			With("collectible_id", id.String()).
			Wrap(collectible.ErrNotFound)
	}
	if err != nil {
		return oops.Code("COLLECTIBLE_TRANSITION_FAILED").
			With("collectible_id", id.String()).
			Wrap(err)
	}
	if ownerStr != ownerID.String() {
		return oops.Code("COLLECTIBLE_NOT_OWNER").
			With("collectible_id", id.String()).
			With("caller_id", ownerID.String()).
			Wrap(collectible.ErrNotOwner)
	}
	if stateStr != string(want) {
		return oops.Code("COLLECTIBLE_INVALID_STATE").
			With("collectible_id", id.String()).
			With("state", stateStr).
			Wrap(collectible.ErrInvalidState)
	}
	// Row changed between the update and the re-read.
	return oops.Code("COLLECTIBLE_INVALID_STATE").
		With("collectible_id", id.String()).
		With("state", stateStr).
		Wrap(collectible.ErrInvalidState)
}

// Gift moves ownership of a minted collectible.
func (r *Registry) Gift(ctx context.Context, id, fromID, toID ulid.ULID, giftedAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("COLLECTIBLE_GIFT_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, `
		UPDATE collectibles
		SET owner_id = $3, gifted_at = $4, updated_at = $4
		WHERE id = $1 AND owner_id = $2 AND state = 'minted'
	`, id.String(), fromID.String(), toID.String(), giftedAt)
	if err != nil {
		return oops.Code("COLLECTIBLE_GIFT_FAILED").
			With("collectible_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnose(ctx, tx, id, fromID, collectible.StateMinted)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("COLLECTIBLE_GIFT_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

func scanCollectible(row pgx.Row) (*collectible.Collectible, error) {
	var (
		c               collectible.Collectible
		idStr, ownerStr string
		stateStr        string
		attrsJSON       []byte
	)
	err := row.Scan(
		&idStr,
		&ownerStr,
		&c.Name,
		&attrsJSON,
		&c.MintCost,
		&c.ReclaimValue,
		&stateStr,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.MintedAt,
		&c.BurnedAt,
		&c.GiftedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("COLLECTIBLE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	c.OwnerID, err = ulid.Parse(ownerStr)
	if err != nil {
		return nil, oops.Code("COLLECTIBLE_INVALID_OWNER_ID").
			With("owner_id", ownerStr).
			Wrap(err)
	}
	if err := json.Unmarshal(attrsJSON, &c.Attributes); err != nil {
		return nil, oops.Code("COLLECTIBLE_DECODE_FAILED").Wrap(err)
	}
	c.State = collectible.State(stateStr)
	return &c, nil
}

// Compile-time interface check.
var _ collectible.Repository = (*Registry)(nil)
