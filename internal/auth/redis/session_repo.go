// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package redis provides a Redis-backed session store with native TTL
// expiry, for deployments that share sessions across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/auth"
)

// Key layout under the configured prefix:
//
//	<prefix>:tok:<token_hash>  -> session JSON, TTL until expiry
//	<prefix>:id:<session_id>   -> token hash, same TTL
//	<prefix>:acct:<account_id> -> set of token hashes (members pruned lazily)
const defaultKeyPrefix = "moodvault:session"

// sessionRecord is the stored JSON shape.
type sessionRecord struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	TokenHash  string    `json:"token_hash"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionRepository implements auth.SessionRepository on Redis. Expiry is
// delegated to Redis TTLs, so DeleteExpired is a no-op.
type SessionRepository struct {
	client *redis.Client
	prefix string
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix defaults to "moodvault:session".
	KeyPrefix string
}

// NewSessionRepository connects to Redis and verifies the connection.
func NewSessionRepository(ctx context.Context, cfg Config) (*SessionRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, oops.Code("STORE_UNAVAILABLE").
			With("addr", cfg.Addr).
			Wrap(err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &SessionRepository{client: client, prefix: prefix}, nil
}

// Close releases the Redis connection.
func (r *SessionRepository) Close() error {
	if err := r.client.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

func (r *SessionRepository) tokenKey(hash string) string { return r.prefix + ":tok:" + hash }
func (r *SessionRepository) idKey(id ulid.ULID) string   { return r.prefix + ":id:" + id.String() }
func (r *SessionRepository) acctKey(id ulid.ULID) string { return r.prefix + ":acct:" + id.String() }

// Create stores a new session with a TTL matching its expiry.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("session already expired")
	}

	payload, err := json.Marshal(sessionRecord{
		ID:         session.ID.String(),
		AccountID:  session.AccountID.String(),
		TokenHash:  session.TokenHash,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		LastSeenAt: session.LastSeenAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "marshal session").
			Wrap(err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tokenKey(session.TokenHash), payload, ttl)
	pipe.Set(ctx, r.idKey(session.ID), session.TokenHash, ttl)
	pipe.SAdd(ctx, r.acctKey(session.AccountID), session.TokenHash)
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	payload, err := r.client.Get(ctx, r.tokenKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").Wrap(err)
	}
	return decodeSession(payload)
}

// GetByAccount retrieves all live sessions for an account, newest first.
// Token hashes whose session key has expired are pruned from the set.
func (r *SessionRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	hashes, err := r.client.SMembers(ctx, r.acctKey(accountID)).Result()
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ACCOUNT_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	var sessions []*auth.Session
	for _, hash := range hashes {
		payload, err := r.client.Get(ctx, r.tokenKey(hash)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Session expired under us; drop the stale member.
			_ = r.client.SRem(ctx, r.acctKey(accountID), hash).Err() //nolint:errcheck // best effort
			continue
		}
		if err != nil {
			return nil, oops.Code("SESSION_GET_BY_ACCOUNT_FAILED").Wrap(err)
		}
		session, err := decodeSession(payload)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	sortSessionsNewestFirst(sessions)
	return sessions, nil
}

// Touch updates the LastSeenAt timestamp, keeping the existing TTL.
func (r *SessionRepository) Touch(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	hash, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").With("id", id.String()).Wrap(err)
	}

	payload, err := r.client.Get(ctx, r.tokenKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").With("id", id.String()).Wrap(err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	rec.LastSeenAt = lastSeen

	updated, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").Wrap(err)
	}
	if err := r.client.Set(ctx, r.tokenKey(hash), updated, redis.KeepTTL).Err(); err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	hash, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}

	session, err := r.GetByTokenHash(ctx, hash)
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.tokenKey(hash), r.idKey(id))
	if session != nil {
		pipe.SRem(ctx, r.acctKey(session.AccountID), hash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) error {
	hashes, err := r.client.SMembers(ctx, r.acctKey(accountID)).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	pipe := r.client.TxPipeline()
	for _, hash := range hashes {
		payload, err := r.client.Get(ctx, r.tokenKey(hash)).Bytes()
		if err == nil {
			if session, decodeErr := decodeSession(payload); decodeErr == nil {
				pipe.Del(ctx, r.idKey(session.ID))
			}
		}
		pipe.Del(ctx, r.tokenKey(hash))
	}
	pipe.Del(ctx, r.acctKey(accountID))
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires session keys natively.
func (r *SessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func decodeSession(payload []byte) (*auth.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", rec.ID).Wrap(err)
	}
	accountID, err := ulid.Parse(rec.AccountID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").
			With("account_id", rec.AccountID).
			Wrap(err)
	}

	return &auth.Session{
		ID:         id,
		AccountID:  accountID,
		TokenHash:  rec.TokenHash,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
		LastSeenAt: rec.LastSeenAt,
	}, nil
}

func sortSessionsNewestFirst(sessions []*auth.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
