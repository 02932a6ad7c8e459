// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package store manages the PostgreSQL connection pool and schema
// migrations shared by the repositories.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	defaultConnectTimeout = 30 * time.Second
	defaultRetryBase      = 500 * time.Millisecond
	defaultMaxRetries     = 5
)

// NewPool connects to PostgreSQL with exponential backoff and verifies the
// connection before returning. The database may still be starting when the
// process comes up, so transient failures retry.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_INVALID_URL").
			With("operation", "parse database url").
			Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(defaultMaxRetries, retry.NewExponential(defaultRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("STORE_UNAVAILABLE").
			With("operation", "connect to database").
			Wrap(err)
	}
	return pool, nil
}
