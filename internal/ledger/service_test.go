// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package ledger_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodvault/moodvault/internal/ledger"
	ledgermem "github.com/moodvault/moodvault/internal/ledger/memory"
	"github.com/moodvault/moodvault/pkg/errutil"
)

func newTestService(t *testing.T) (*ledger.Service, *ledgermem.Repository) {
	t.Helper()
	repo := ledgermem.NewRepository()
	svc, err := ledger.NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestNewService_RequiresRepo(t *testing.T) {
	_, err := ledger.NewService(nil)
	assert.Error(t, err)
}

func TestService_CreditAndDebit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := ulid.Make()

	balance, err := svc.Credit(ctx, accountID, 100, ledger.ReasonGrant, "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = svc.Debit(ctx, accountID, 30, ledger.ReasonMint, "collectible-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	balance, err = svc.Balance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestService_InvalidAmounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := ulid.Make()

	_, err := svc.Credit(ctx, accountID, 0, ledger.ReasonGrant, "")
	errutil.AssertErrorCode(t, err, "LEDGER_INVALID_AMOUNT")

	_, err = svc.Credit(ctx, accountID, -5, ledger.ReasonGrant, "")
	errutil.AssertErrorCode(t, err, "LEDGER_INVALID_AMOUNT")

	_, err = svc.Debit(ctx, accountID, 0, ledger.ReasonMint, "")
	errutil.AssertErrorCode(t, err, "LEDGER_INVALID_AMOUNT")

	_, err = svc.Credit(ctx, accountID, 5, ledger.Reason("bribery"), "")
	errutil.AssertErrorCode(t, err, "LEDGER_INVALID_REASON")
}

func TestService_DebitInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := ulid.Make()

	_, err := svc.Credit(ctx, accountID, 10, ledger.ReasonGrant, "")
	require.NoError(t, err)

	_, err = svc.Debit(ctx, accountID, 11, ledger.ReasonMint, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The failed debit recorded nothing.
	balance, err := svc.Balance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	entries, err := svc.Entries(ctx, accountID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestService_Transfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	from := ulid.Make()
	to := ulid.Make()

	_, err := svc.Credit(ctx, from, 100, ledger.ReasonGrant, "")
	require.NoError(t, err)

	require.NoError(t, svc.Transfer(ctx, from, to, 40, "gift"))

	fromBal, err := svc.Balance(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, int64(60), fromBal)

	toBal, err := svc.Balance(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, int64(40), toBal)
}

func TestService_Transfer_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	from := ulid.Make()
	to := ulid.Make()

	_, err := svc.Credit(ctx, from, 10, ledger.ReasonGrant, "")
	require.NoError(t, err)

	err = svc.Transfer(ctx, from, to, 0, "")
	errutil.AssertErrorCode(t, err, "LEDGER_INVALID_AMOUNT")

	err = svc.Transfer(ctx, from, from, 5, "")
	errutil.AssertErrorCode(t, err, "LEDGER_SELF_TRANSFER")

	err = svc.Transfer(ctx, from, to, 11, "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Nothing moved on the failed transfer.
	toBal, err := svc.Balance(ctx, to)
	require.NoError(t, err)
	assert.Zero(t, toBal)
}

func TestService_Entries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := ulid.Make()

	amounts := []int64{10, 20, 30}
	for _, amount := range amounts {
		_, err := svc.Credit(ctx, accountID, amount, ledger.ReasonCheckIn, "")
		require.NoError(t, err)
	}

	entries, err := svc.Entries(ctx, accountID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(30), entries[0].Amount, "newest first")
	assert.Equal(t, int64(10), entries[2].Amount)

	capped, err := svc.Entries(ctx, accountID, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestService_Verify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := ulid.Make()

	_, err := svc.Credit(ctx, accountID, 100, ledger.ReasonGrant, "")
	require.NoError(t, err)
	_, err = svc.Debit(ctx, accountID, 25, ledger.ReasonMint, "")
	require.NoError(t, err)

	assert.NoError(t, svc.Verify(ctx, accountID))
}

// driftingRepo reports a cached balance that disagrees with the entry log.
type driftingRepo struct {
	ledger.Repository
	drift int64
}

func (r driftingRepo) Balance(ctx context.Context, accountID ulid.ULID) (int64, error) {
	balance, err := r.Repository.Balance(ctx, accountID)
	return balance + r.drift, err
}

func TestService_Verify_Drift(t *testing.T) {
	repo := ledgermem.NewRepository()
	svc, err := ledger.NewService(driftingRepo{Repository: repo, drift: 7})
	require.NoError(t, err)
	ctx := context.Background()
	accountID := ulid.Make()

	_, err = svc.Credit(ctx, accountID, 100, ledger.ReasonGrant, "")
	require.NoError(t, err)

	err = svc.Verify(ctx, accountID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrBalanceMismatch)
	errutil.AssertErrorCode(t, err, "LEDGER_BALANCE_MISMATCH")
}
