//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/moodvault/moodvault/internal/collectible"
	collpg "github.com/moodvault/moodvault/internal/collectible/postgres"
	"github.com/moodvault/moodvault/internal/ledger"
	ledgerpg "github.com/moodvault/moodvault/internal/ledger/postgres"
	"github.com/moodvault/moodvault/internal/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("moodvault_test"),
		pgcontainer.WithUsername("moodvault"),
		pgcontainer.WithPassword("moodvault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		panic(err)
	}
	if err := migrator.Up(); err != nil {
		panic(err)
	}
	_ = migrator.Close()

	testPool, err = store.NewPool(ctx, connStr)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createAccount(t *testing.T, balance int64) ulid.ULID {
	t.Helper()
	id := ulid.Make()
	now := time.Now().UTC()
	_, err := testPool.Exec(context.Background(), `
		INSERT INTO accounts (id, username, password_hash, profile, token_balance, created_at, updated_at)
		VALUES ($1, $2, 'somehash', '{}', $3, $4, $4)
	`, id.String(), "u"+id.String()[:20], balance, now)
	require.NoError(t, err)

	if balance > 0 {
		entry, err := ledger.NewEntry(id, balance, ledger.ReasonGrant, "")
		require.NoError(t, err)
		_, err = testPool.Exec(context.Background(), `
			INSERT INTO ledger_entries (id, account_id, amount, reason, ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.ID.String(), id.String(), entry.Amount, string(entry.Reason), entry.Ref, entry.CreatedAt)
		require.NoError(t, err)
	}
	return id
}

func createUnminted(t *testing.T, reg *collpg.Registry, ownerID ulid.ULID, mintCost int64) *collectible.Collectible {
	t.Helper()
	c, err := collectible.New(ownerID, "Calm Fox", collectible.Attributes{Rarity: "rare"}, mintCost, 0)
	require.NoError(t, err)
	require.NoError(t, reg.Create(context.Background(), c))
	return c
}

func TestRegistry_Integration_Lifecycle(t *testing.T) {
	reg := collpg.NewRegistry(testPool)
	tokens := ledgerpg.NewRepository(testPool)
	ctx := context.Background()

	ownerID := createAccount(t, 100)
	c := createUnminted(t, reg, ownerID, 60)

	debit, err := ledger.NewEntry(ownerID, -60, ledger.ReasonMint, c.ID.String())
	require.NoError(t, err)
	require.NoError(t, reg.Mint(ctx, c.ID, ownerID, time.Now().UTC(), debit))

	got, err := reg.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, collectible.StateMinted, got.State)
	require.NotNil(t, got.MintedAt)

	balance, err := tokens.Balance(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	credit, err := ledger.NewEntry(ownerID, 30, ledger.ReasonBurn, c.ID.String())
	require.NoError(t, err)
	require.NoError(t, reg.Burn(ctx, c.ID, ownerID, time.Now().UTC(), credit))

	balance, err = tokens.Balance(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	err = reg.Burn(ctx, c.ID, ownerID, time.Now().UTC(), nil)
	assert.ErrorIs(t, err, collectible.ErrInvalidState, "burned is terminal")
}

func TestRegistry_Integration_MintRollsBackOnOverdraw(t *testing.T) {
	reg := collpg.NewRegistry(testPool)
	tokens := ledgerpg.NewRepository(testPool)
	ctx := context.Background()

	ownerID := createAccount(t, 10)
	c := createUnminted(t, reg, ownerID, 60)

	debit, err := ledger.NewEntry(ownerID, -60, ledger.ReasonMint, c.ID.String())
	require.NoError(t, err)
	err = reg.Mint(ctx, c.ID, ownerID, time.Now().UTC(), debit)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The state transition rolled back with the debit.
	got, err := reg.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, collectible.StateUnminted, got.State)

	balance, err := tokens.Balance(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestRegistry_Integration_ConcurrentMint_OneWinner(t *testing.T) {
	reg := collpg.NewRegistry(testPool)
	tokens := ledgerpg.NewRepository(testPool)
	ctx := context.Background()

	ownerID := createAccount(t, 1000)
	c := createUnminted(t, reg, ownerID, 100)

	const attempts = 15
	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			debit, err := ledger.NewEntry(ownerID, -100, ledger.ReasonMint, c.ID.String())
			if err != nil {
				return
			}
			if err := reg.Mint(ctx, c.ID, ownerID, time.Now().UTC(), debit); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load(), "a collectible mints exactly once")

	balance, err := tokens.Balance(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance, "exactly one mint cost was charged")
}

func TestRegistry_Integration_Gift(t *testing.T) {
	reg := collpg.NewRegistry(testPool)
	ctx := context.Background()

	ownerID := createAccount(t, 0)
	friend := createAccount(t, 0)
	c := createUnminted(t, reg, ownerID, 0)

	require.NoError(t, reg.Mint(ctx, c.ID, ownerID, time.Now().UTC(), nil))
	require.NoError(t, reg.Gift(ctx, c.ID, ownerID, friend, time.Now().UTC()))

	got, err := reg.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, friend, got.OwnerID)

	err = reg.Gift(ctx, c.ID, ownerID, friend, time.Now().UTC())
	assert.ErrorIs(t, err, collectible.ErrNotOwner)

	list, err := reg.ListByOwner(ctx, friend, collectible.StateMinted)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}
