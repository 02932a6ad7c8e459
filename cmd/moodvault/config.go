// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package main

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// serveConfig holds configuration for the serve command. Values come from
// flag defaults, overridden by the YAML config file, overridden by flags
// set on the command line.
type serveConfig struct {
	Log struct {
		Format string `koanf:"format"`
		Level  string `koanf:"level"`
	} `koanf:"log"`
	Metrics struct {
		Addr string `koanf:"addr"`
	} `koanf:"metrics"`
	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
	Sessions struct {
		Store         string        `koanf:"store"`
		TTL           time.Duration `koanf:"ttl"`
		SweepInterval time.Duration `koanf:"sweep_interval"`
	} `koanf:"sessions"`
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`
}

// Validate checks that the configuration is usable.
func (cfg *serveConfig) Validate() error {
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", cfg.Log.Format)
	}
	switch cfg.Sessions.Store {
	case "memory", "postgres", "redis":
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("sessions.store must be 'memory', 'postgres', or 'redis', got %q", cfg.Sessions.Store)
	}
	if cfg.Sessions.Store == "redis" && cfg.Redis.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("redis.addr is required when sessions.store is 'redis'")
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database.url or DATABASE_URL is required")
	}
	if cfg.Sessions.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sessions.ttl must be positive")
	}
	if cfg.Sessions.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sessions.sweep_interval must be positive")
	}
	return nil
}

// loadServeConfig merges the config file (when given) with command-line
// flags. Flags explicitly set win over file values; file values win over
// flag defaults. database.url additionally falls back to DATABASE_URL.
func loadServeConfig(flags *pflag.FlagSet, path string) (*serveConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "merge flags").
			Wrap(err)
	}

	var cfg serveConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// databaseURL resolves the database URL for commands that only need the
// connection string.
func databaseURL() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	if configFile != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return "", oops.Code("CONFIG_LOAD_FAILED").
				With("path", configFile).
				Wrap(err)
		}
		if url := k.String("database.url"); url != "" {
			return url, nil
		}
	}
	return "", oops.Code("CONFIG_INVALID").
		Errorf("database.url or DATABASE_URL is required")
}
