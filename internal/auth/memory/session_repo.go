// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodvault/moodvault/internal/auth"
)

// SessionRepository implements auth.SessionRepository with in-memory maps.
// Writes are immediately visible to subsequent reads; a deleted session can
// never resolve again.
type SessionRepository struct {
	mu     sync.RWMutex
	byID   map[ulid.ULID]*auth.Session
	byHash map[string]ulid.ULID
}

// NewSessionRepository creates an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:   make(map[ulid.ULID]*auth.Session),
		byHash: make(map[string]ulid.ULID),
	}
}

func copySession(s *auth.Session) *auth.Session {
	dup := *s
	return &dup
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[session.ID] = copySession(session)
	r.byHash[session.TokenHash] = session.ID
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byHash[tokenHash]
	if !exists {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return copySession(r.byID[id]), nil
}

// GetByAccount retrieves all sessions for an account, newest first.
func (r *SessionRepository) GetByAccount(_ context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*auth.Session
	for _, s := range r.byID {
		if s.AccountID == accountID {
			sessions = append(sessions, copySession(s))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Touch updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) Touch(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.byID[id]
	if !exists {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	session.LastSeenAt = lastSeen
	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.byID[id]
	if !exists {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(r.byHash, session.TokenHash)
	delete(r.byID, id)
	return nil
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(_ context.Context, accountID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.byID {
		if s.AccountID == accountID {
			delete(r.byHash, s.TokenHash)
			delete(r.byID, id)
		}
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var count int64
	for id, s := range r.byID {
		if s.IsExpiredAt(now) {
			delete(r.byHash, s.TokenHash)
			delete(r.byID, id)
			count++
		}
	}
	return count, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
