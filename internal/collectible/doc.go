// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

// Package collectible manages the registry of mood collectibles and their
// lifecycle. A collectible starts unminted, is minted by its owner for a
// token cost, can be gifted to another account while minted, and ends
// burned, crediting the reclaim value back to whoever burned it. State
// transitions and the token movements they imply are applied atomically.
package collectible
