// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/moodvault/moodvault/internal/auth"
	authmem "github.com/moodvault/moodvault/internal/auth/memory"
	authpg "github.com/moodvault/moodvault/internal/auth/postgres"
	authredis "github.com/moodvault/moodvault/internal/auth/redis"
	"github.com/moodvault/moodvault/internal/collectible"
	"github.com/moodvault/moodvault/internal/ledger"
	ledgerpg "github.com/moodvault/moodvault/internal/ledger/postgres"
	"github.com/moodvault/moodvault/internal/logging"
	"github.com/moodvault/moodvault/internal/observability"
	"github.com/moodvault/moodvault/internal/store"
	"github.com/moodvault/moodvault/pkg/errutil"
)

// Default values for serve command flags.
const (
	defaultMetricsAddr   = "127.0.0.1:9100"
	defaultLogFormat     = "json"
	defaultLogLevel      = "info"
	defaultSessionStore  = "postgres"
	defaultSweepInterval = time.Hour
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the moodvault server",
		Long: `Start the moodvault server: connects to PostgreSQL, applies pending
migrations, and serves the account, ledger, and collectible services with
metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("log.format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log.level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics.addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	cmd.Flags().String("sessions.store", defaultSessionStore, "session store backend (memory, postgres, redis)")
	cmd.Flags().Duration("sessions.ttl", auth.DefaultSessionTTL, "session lifetime")
	cmd.Flags().Duration("sessions.sweep_interval", defaultSweepInterval, "expired session sweep interval")
	cmd.Flags().String("redis.addr", "", "Redis address for the redis session store")
	cmd.Flags().String("redis.password", "", "Redis password")
	cmd.Flags().Int("redis.db", 0, "Redis database number")

	return cmd
}

func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	logging.SetDefault("moodvault", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	logger.Info("starting server",
		"session_store", cfg.Sessions.Store,
		"metrics_addr", cfg.Metrics.Addr,
	)

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := applyMigrations(cfg.Database.URL, logger); err != nil {
		return err
	}

	sessions, closeSessions, err := newSessionRepository(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeSessions()

	accounts := authpg.NewAccountRepository(pool)
	ledgerRepo := ledgerpg.NewRepository(pool)

	authSvc, err := auth.NewService(accounts, sessions, auth.NewArgon2idHasher(),
		auth.WithLogger(logger),
		auth.WithSessionTTL(cfg.Sessions.TTL),
		auth.WithBalanceReader(ledgerRepo),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		auth.RegisterMetrics(obsServer.Registry())
		ledger.RegisterMetrics(obsServer.Registry())
		collectible.RegisterMetrics(obsServer.Registry())

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Periodically remove expired sessions so the store doesn't grow
	// without bound.
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		ticker := time.NewTicker(cfg.Sessions.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := authSvc.SweepExpiredSessions(ctx); err != nil {
					errutil.LogError(logger, "session sweep failed", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started")
	logger.Info("server ready")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	<-sweepDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// applyMigrations brings the schema up to date on startup.
func applyMigrations(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("schema up to date")
		return nil
	}

	logger.Info("applying migrations", "pending", len(pending))
	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

// newSessionRepository builds the configured session store. The returned
// close function releases any backend connection.
func newSessionRepository(ctx context.Context, cfg *serveConfig, pool *pgxpool.Pool) (auth.SessionRepository, func(), error) {
	switch cfg.Sessions.Store {
	case "redis":
		repo, err := authredis.NewSessionRepository(ctx, authredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Warn("error closing redis session store", "error", closeErr)
			}
		}, nil
	case "memory":
		return authmem.NewSessionRepository(), func() {}, nil
	default:
		return authpg.NewSessionRepository(pool), func() {}, nil
	}
}

// monitorServerErrors cancels the context when a server reports an error,
// so a failed component triggers graceful shutdown of the whole process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
