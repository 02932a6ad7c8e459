// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package auth provides credential, identity, and session primitives for
// Moodvault.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their
// constructors:
//   - NewAccount - creates an Account with a validated username and
//     password hash
//   - NewSession - creates a Session with a validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service coordinates registration, login, logout, and the CurrentAccount
// gate used by every authenticated operation. It depends on an
// AccountRepository, a SessionRepository, and a PasswordHasher; backends
// live under auth/memory, auth/postgres, and auth/redis.
//
// Plaintext passwords and session tokens never leave this package in logs
// or errors. Only SHA-256 hashes of session tokens are persisted.
package auth
