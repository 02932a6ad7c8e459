// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionToken(t *testing.T) {
	token, hash, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, token, SessionTokenBytes*2, "token should be hex-encoded")
	assert.Len(t, hash, 64, "hash should be hex-encoded SHA-256")
	assert.Equal(t, HashSessionToken(token), hash)
}

func TestGenerateSessionToken_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		token, _, err := GenerateSessionToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "tokens must not repeat")
		seen[token] = struct{}{}
	}
}

func TestHashSessionToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashSessionToken("abc"), HashSessionToken("abc"))
	assert.NotEqual(t, HashSessionToken("abc"), HashSessionToken("abd"))
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.True(t, VerifySessionToken(token, hash))
	assert.False(t, VerifySessionToken("wrong", hash))
	assert.False(t, VerifySessionToken("", hash))
	assert.False(t, VerifySessionToken(token, ""))
}

func TestNewSession(t *testing.T) {
	accountID := ulid.Make()
	expiresAt := time.Now().Add(DefaultSessionTTL)

	session, err := NewSession(accountID, HashSessionToken("tok"), expiresAt)
	require.NoError(t, err)

	assert.NotEqual(t, ulid.ULID{}, session.ID)
	assert.Equal(t, accountID, session.AccountID)
	assert.Equal(t, expiresAt, session.ExpiresAt)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Equal(t, session.CreatedAt, session.LastSeenAt)
}

func TestNewSession_Invalid(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		accountID ulid.ULID
		tokenHash string
		expiresAt time.Time
	}{
		{"zero account", ulid.ULID{}, "hash", expiresAt},
		{"empty hash", ulid.Make(), "", expiresAt},
		{"zero expiry", ulid.Make(), "hash", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.accountID, tt.tokenHash, tt.expiresAt)
			assert.Error(t, err)
		})
	}
}

func TestSession_IsExpiredAt(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	session, err := NewSession(ulid.Make(), "hash", expiresAt)
	require.NoError(t, err)

	assert.False(t, session.IsExpiredAt(expiresAt.Add(-time.Second)))
	assert.True(t, session.IsExpiredAt(expiresAt), "expiry instant counts as expired")
	assert.True(t, session.IsExpiredAt(expiresAt.Add(time.Second)))
	assert.False(t, session.IsExpired())
}
