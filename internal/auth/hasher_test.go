// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2idHasher_HashAndVerify(t *testing.T) {
	hasher := NewArgon2idHasher()

	encoded, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"), "unexpected hash format: %s", encoded)

	valid, err := hasher.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = hasher.Verify("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestArgon2idHasher_HashesAreSalted(t *testing.T) {
	hasher := NewArgon2idHasher()

	first, err := hasher.Hash("same password")
	require.NoError(t, err)
	second, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two hashes of the same password must differ")
}

func TestArgon2idHasher_VerifyMalformedHash(t *testing.T) {
	hasher := NewArgon2idHasher()

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not a hash", "hunter2"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"missing fields", "$argon2id$v=19$m=65536"},
		{"bad params", "$argon2id$v=19$m=abc,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := hasher.Verify("password", tt.encoded)
			assert.Error(t, err)
			assert.False(t, valid)
		})
	}
}

func TestArgon2idHasher_VerifyDummyHashNeverMatches(t *testing.T) {
	hasher := NewArgon2idHasher()

	for _, password := range []string{"", "password", "AAAAAAAA"} {
		valid, err := hasher.Verify(password, dummyPasswordHash)
		require.NoError(t, err, "dummy hash must decode cleanly")
		assert.False(t, valid, "dummy hash matched password %q", password)
	}
}

func TestArgon2idHasher_EmptyPassword(t *testing.T) {
	hasher := NewArgon2idHasher()

	_, err := hasher.Hash("")
	assert.Error(t, err, "hashing an empty password should fail")
}
