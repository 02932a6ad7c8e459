// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested account or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when registering a username that is
// already taken. Repository implementations map their storage-level unique
// constraint violation to this sentinel so the check and the insert stay one
// atomic unit.
var ErrDuplicateUsername = errors.New("username already taken")
