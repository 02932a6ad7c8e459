// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/moodvault/moodvault/internal/ledger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustEntry(t *testing.T, accountID ulid.ULID, amount int64, reason ledger.Reason) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewEntry(accountID, amount, reason, "")
	require.NoError(t, err)
	return entry
}

func TestRepository_Apply(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	accountID := ulid.Make()

	balance, err := repo.Apply(ctx, mustEntry(t, accountID, 100, ledger.ReasonGrant))
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = repo.Apply(ctx, mustEntry(t, accountID, -40, ledger.ReasonMint))
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestRepository_ApplyOverdraw(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	accountID := ulid.Make()

	_, err := repo.Apply(ctx, mustEntry(t, accountID, 10, ledger.ReasonGrant))
	require.NoError(t, err)

	_, err = repo.Apply(ctx, mustEntry(t, accountID, -11, ledger.ReasonMint))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The rejected debit left no trace.
	balance, err := repo.Balance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	sum, err := repo.SumEntries(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
}

func TestRepository_UnknownAccountIsZero(t *testing.T) {
	repo := NewRepository()

	balance, err := repo.Balance(context.Background(), ulid.Make())
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRepository_ApplyPair(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	from := ulid.Make()
	to := ulid.Make()

	_, err := repo.Apply(ctx, mustEntry(t, from, 100, ledger.ReasonGrant))
	require.NoError(t, err)

	debit := mustEntry(t, from, -30, ledger.ReasonTransfer)
	credit := mustEntry(t, to, 30, ledger.ReasonTransfer)
	require.NoError(t, repo.ApplyPair(ctx, debit, credit))

	fromBal, _ := repo.Balance(ctx, from)
	toBal, _ := repo.Balance(ctx, to)
	assert.Equal(t, int64(70), fromBal)
	assert.Equal(t, int64(30), toBal)
}

func TestRepository_ApplyPairOverdraw(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	from := ulid.Make()
	to := ulid.Make()

	_, err := repo.Apply(ctx, mustEntry(t, from, 10, ledger.ReasonGrant))
	require.NoError(t, err)

	debit := mustEntry(t, from, -11, ledger.ReasonTransfer)
	credit := mustEntry(t, to, 11, ledger.ReasonTransfer)
	err = repo.ApplyPair(ctx, debit, credit)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	fromBal, _ := repo.Balance(ctx, from)
	toBal, _ := repo.Balance(ctx, to)
	assert.Equal(t, int64(10), fromBal)
	assert.Zero(t, toBal)

	entries, err := repo.EntriesByAccount(ctx, from, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the failed pair recorded nothing")
}

func TestRepository_EntriesByAccount(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	accountID := ulid.Make()

	for _, amount := range []int64{10, 20, 30} {
		_, err := repo.Apply(ctx, mustEntry(t, accountID, amount, ledger.ReasonCheckIn))
		require.NoError(t, err)
	}

	all, err := repo.EntriesByAccount(ctx, accountID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(30), all[0].Amount, "newest first")

	capped, err := repo.EntriesByAccount(ctx, accountID, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, int64(30), capped[0].Amount)
	assert.Equal(t, int64(20), capped[1].Amount)
}

func TestRepository_ConcurrentDebits_NoDoubleSpend(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	accountID := ulid.Make()

	const balance = 50
	const debit = 10
	const attempts = 40

	_, err := repo.Apply(ctx, mustEntry(t, accountID, balance, ledger.ReasonGrant))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var succeeded atomic.Int64
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := ledger.NewEntry(accountID, -debit, ledger.ReasonMint, "")
			if err != nil {
				return
			}
			if _, err := repo.Apply(ctx, entry); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(balance/debit), succeeded.Load(),
		"exactly the covered debits succeed")

	final, err := repo.Balance(ctx, accountID)
	require.NoError(t, err)
	assert.Zero(t, final)

	sum, err := repo.SumEntries(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, final, sum)
}

func TestRepository_ConcurrentTransfers_ConservesTotal(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	a := ulid.Make()
	b := ulid.Make()

	_, err := repo.Apply(ctx, mustEntry(t, a, 100, ledger.ReasonGrant))
	require.NoError(t, err)
	_, err = repo.Apply(ctx, mustEntry(t, b, 100, ledger.ReasonGrant))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		go func() {
			defer wg.Done()
			debit, err := ledger.NewEntry(from, -5, ledger.ReasonTransfer, "")
			if err != nil {
				return
			}
			credit, err := ledger.NewEntry(to, 5, ledger.ReasonTransfer, "")
			if err != nil {
				return
			}
			_ = repo.ApplyPair(ctx, debit, credit) //nolint:errcheck // overdraws are expected
		}()
	}
	wg.Wait()

	aBal, _ := repo.Balance(ctx, a)
	bBal, _ := repo.Balance(ctx, b)
	assert.Equal(t, int64(200), aBal+bBal, "transfers conserve the total supply")
	assert.GreaterOrEqual(t, aBal, int64(0))
	assert.GreaterOrEqual(t, bBal, int64(0))
}
