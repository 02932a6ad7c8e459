// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodvault/moodvault/internal/auth"
)

var sessionColumns = []string{
	"id", "account_id", "token_hash", "expires_at", "created_at", "last_seen_at",
}

func newSession(t *testing.T, accountID ulid.ULID) *auth.Session {
	t.Helper()
	_, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	session, err := auth.NewSession(accountID, hash, time.Now().Add(auth.DefaultSessionTTL))
	require.NoError(t, err)
	return session
}

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := newSession(t, ulid.Make())

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(session.ID.String(), session.AccountID.String(), session.TokenHash,
			session.ExpiresAt, session.CreatedAt, session.LastSeenAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Create(context.Background(), session))

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := newSession(t, ulid.Make())

	mock.ExpectQuery(`SELECT id, account_id, token_hash`).
		WithArgs(session.TokenHash).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow(session.ID.String(), session.AccountID.String(), session.TokenHash,
				session.ExpiresAt, session.CreatedAt, session.LastSeenAt))

	repo := NewSessionRepository(mock)
	got, err := repo.GetByTokenHash(context.Background(), session.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.AccountID, got.AccountID)

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_GetByTokenHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, account_id, token_hash`).
		WithArgs("no-such-hash").
		WillReturnError(pgx.ErrNoRows)

	repo := NewSessionRepository(mock)
	_, err = repo.GetByTokenHash(context.Background(), "no-such-hash")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_GetByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	accountID := ulid.Make()
	first := newSession(t, accountID)
	second := newSession(t, accountID)

	mock.ExpectQuery(`FROM sessions\s+WHERE account_id = \$1`).
		WithArgs(accountID.String()).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow(second.ID.String(), accountID.String(), second.TokenHash,
				second.ExpiresAt, second.CreatedAt, second.LastSeenAt).
			AddRow(first.ID.String(), accountID.String(), first.TokenHash,
				first.ExpiresAt, first.CreatedAt, first.LastSeenAt))

	repo := NewSessionRepository(mock)
	sessions, err := repo.GetByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_Touch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	lastSeen := time.Now()

	mock.ExpectExec(`UPDATE sessions SET last_seen_at`).
		WithArgs(id.String(), lastSeen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Touch(context.Background(), id, lastSeen))

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), id))

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_Delete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewSessionRepository(mock)
	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewSessionRepository(mock)
	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}
