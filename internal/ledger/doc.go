// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package ledger tracks mood-token balances as an append-only entry log.
//
// Balances are never stored as freestanding mutable counters: every change
// is an Entry, and an account's balance is the sum of its entries. Backends
// may cache the running balance but the entry log stays authoritative, and
// Verify recomputes the sum to detect drift. Debits that would take a
// balance below zero are rejected atomically, so concurrent spends of the
// same funds cannot both succeed.
package ledger
