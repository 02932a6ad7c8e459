// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, per the OWASP password storage cheat sheet. These are
// fixed constants; changing them only affects newly created hashes because
// verification re-reads the parameters from the stored encoding.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // KiB, so 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // derived key length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("CRED_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher derives storable password hashes and verifies candidates
// against them.
type PasswordHasher interface {
	// Hash derives a memory-hard hash of the password with a fresh random
	// salt. The result encodes algorithm, parameters, salt, and key.
	Hash(password string) (string, error)

	// Verify reports whether password matches the stored encoding.
	// Returns (true, nil) on match, (false, nil) on mismatch, and
	// (false, error) when the stored encoding cannot be parsed. Callers
	// must treat the error case as an authentication failure.
	Verify(password, encoded string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id in PHC string
// format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash derives an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("CRED_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// hashParams holds the decoded parameters of a stored hash.
type hashParams struct {
	memory  uint32
	time    uint32
	threads uint32
	salt    []byte
	key     []byte
}

// decodeHash parses a PHC argon2id string into its parameters.
func decodeHash(encoded string) (*hashParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("CRED_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("CRED_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}

	p := &hashParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}
	// The argon2 API takes threads as uint8; reject values that would be
	// silently truncated.
	if p.threads == 0 || p.threads > 255 {
		return nil, oops.Code("CRED_INVALID_HASH").Errorf("threads value %d out of range", p.threads)
	}

	var err error
	p.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}
	p.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}
	if len(p.key) == 0 || len(p.key) > 1<<10 {
		return nil, oops.Code("CRED_INVALID_HASH").Errorf("invalid derived key length: %d", len(p.key))
	}

	return p, nil
}

// Verify re-derives a key from password with the stored salt and parameters
// and compares it to the stored key in constant time.
func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	p, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, uint8(p.threads), uint32(len(p.key)))

	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}
