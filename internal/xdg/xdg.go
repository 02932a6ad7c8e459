// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package xdg provides XDG Base Directory paths for moodvault.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "moodvault"

// ConfigDir returns the XDG config directory for moodvault.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigPath returns the path of the default config file when it
// exists, or the empty string.
func DefaultConfigPath() string {
	path := filepath.Join(ConfigDir(), "moodvault.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
