// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package ledger

import "errors"

// Sentinel errors for ledger operations. Backends wrap these with oops so
// callers can match with errors.Is while keeping structured context.
var (
	// ErrNotFound indicates the requested account has no ledger presence.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientBalance indicates a debit would take the balance
	// below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceMismatch indicates the cached balance disagrees with the
	// sum of the entry log.
	ErrBalanceMismatch = errors.New("balance does not match entry log")
)
