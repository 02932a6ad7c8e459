// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// BalanceReader reads an account's current token balance. The ledger is the
// only writer of balances; this interface is the read path used to populate
// Account.TokenBalance for callers.
type BalanceReader interface {
	Balance(ctx context.Context, accountID ulid.ULID) (int64, error)
}

// Service provides registration, login, logout, and session resolution.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	hasher   PasswordHasher
	balances BalanceReader
	logger   *slog.Logger
	ttl      time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSessionTTL overrides the fixed session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithBalanceReader wires the ledger read path so CurrentAccount returns
// the live token balance.
func WithBalanceReader(br BalanceReader) Option {
	return func(s *Service) { s.balances = br }
}

// NewService creates an authentication Service.
func NewService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
		ttl:      DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger cannot be nil")
	}
	if s.ttl <= 0 {
		return nil, oops.Errorf("session TTL must be positive")
	}
	return s, nil
}

// dummyPasswordHash is verified against when the username is unknown, so
// the unknown-user and wrong-password paths take the same time. It is not a
// credential and will never match any password.
//
//nolint:gosec // G101: fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new account with a zero token balance and opens its
// first session. Returns the account and the plaintext session token.
//
// If session creation fails after the account is stored, the account
// remains usable: the caller gets AUTH_SESSION_CREATE_FAILED and recovers
// by logging in. Retrying Register would fail with AUTH_DUPLICATE_USERNAME.
func (s *Service) Register(ctx context.Context, username, password string, profile Profile) (*Account, string, error) {
	if err := ValidateUsername(username); err != nil {
		recordRegistration(statusInvalid)
		return nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		recordRegistration(statusInvalid)
		return nil, "", err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		recordRegistration(statusError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(username, passwordHash, profile)
	if err != nil {
		recordRegistration(statusInvalid)
		return nil, "", err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			recordRegistration(statusDuplicate)
			return nil, "", oops.Code("AUTH_DUPLICATE_USERNAME").
				With("username", username).
				Wrap(err)
		}
		recordRegistration(statusError)
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	token, err := s.openSession(ctx, account.ID)
	if err != nil {
		recordRegistration(statusError)
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("username", username).
			Wrap(err)
	}

	s.logger.Info("account registered", "account_id", account.ID.String(), "username", username)
	recordRegistration(statusSuccess)
	return account, token, nil
}

// Login authenticates an account and opens a new session. Returns the
// account and the plaintext session token.
//
// Unknown-user and wrong-password failures produce the same
// AUTH_INVALID_CREDENTIALS error, and the password verification runs in
// both cases so latency does not reveal whether the username exists.
func (s *Service) Login(ctx context.Context, username, password string) (*Account, string, error) {
	account, lookupErr := s.accounts.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	accountExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			recordLogin(statusError)
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// A malformed stored hash is an authentication failure, never a
		// crash. Fail closed.
		valid = false
	}

	if !accountExists || !valid {
		if accountExists {
			account.RecordFailure()
			_ = s.accounts.Update(ctx, account) //nolint:errcheck // best effort
		}
		recordLogin(statusInvalid)
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	// Lockout is checked after verification to keep timing uniform.
	if account.IsLocked() {
		recordLogin(statusLocked)
		return nil, "", oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", account.LockedUntil).
			Errorf("account is temporarily locked")
	}

	account.RecordSuccess()
	// Login succeeds even if the counter reset cannot be stored.
	_ = s.accounts.Update(ctx, account) //nolint:errcheck // best effort

	token, err := s.openSession(ctx, account.ID)
	if err != nil {
		recordLogin(statusError)
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").Wrap(err)
	}

	if err := s.fillBalance(ctx, account); err != nil {
		recordLogin(statusError)
		return nil, "", err
	}

	recordLogin(statusSuccess)
	return account, token, nil
}

// Logout revokes the session for the given token. Revoking a missing,
// expired, or already-revoked session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// CurrentAccount resolves a session token to its account. This is the gate
// for every authenticated operation: a missing, expired, or revoked session
// fails with AUTH_REQUIRED.
func (s *Service) CurrentAccount(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, oops.Code("AUTH_REQUIRED").Errorf("authentication required")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_REQUIRED").Errorf("authentication required")
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		// Lazy cleanup; the sweep catches whatever this misses.
		_ = s.sessions.Delete(ctx, session.ID) //nolint:errcheck // best effort
		return nil, oops.Code("AUTH_REQUIRED").Errorf("authentication required")
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_REQUIRED").Errorf("authentication required")
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get account by id").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}

	_ = s.sessions.Touch(ctx, session.ID, time.Now()) //nolint:errcheck // best effort

	if err := s.fillBalance(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RevokeAllSessions removes every session for an account, for example after
// a password change.
func (s *Service) RevokeAllSessions(ctx context.Context, accountID ulid.ULID) error {
	if err := s.sessions.DeleteByAccount(ctx, accountID); err != nil {
		return oops.Code("AUTH_REVOKE_ALL_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// SweepExpiredSessions removes expired sessions and returns the count.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("AUTH_SWEEP_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

// openSession generates a token and persists a new session for the account.
func (s *Service) openSession(ctx context.Context, accountID ulid.ULID) (string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}

	session, err := NewSession(accountID, tokenHash, time.Now().Add(s.ttl))
	if err != nil {
		return "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// fillBalance populates the account's token balance from the ledger read
// path, when one is configured.
func (s *Service) fillBalance(ctx context.Context, account *Account) error {
	if s.balances == nil {
		return nil
	}
	balance, err := s.balances.Balance(ctx, account.ID)
	if err != nil {
		return oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "read token balance").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	account.TokenBalance = balance
	return nil
}
