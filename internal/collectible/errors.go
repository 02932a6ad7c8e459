// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package collectible

import "errors"

// Sentinel errors for collectible operations. Backends wrap these with oops
// so callers can match with errors.Is while keeping structured context.
var (
	// ErrNotFound indicates the collectible does not exist.
	ErrNotFound = errors.New("collectible not found")

	// ErrNotOwner indicates the caller does not own the collectible.
	ErrNotOwner = errors.New("caller does not own collectible")

	// ErrInvalidState indicates the operation is not allowed in the
	// collectible's current state.
	ErrInvalidState = errors.New("operation not allowed in current state")
)
