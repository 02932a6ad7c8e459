// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given oops code. Codes are
// the SNAKE_CASE strings the services attach, like AUTH_INVALID_CREDENTIALS
// or LEDGER_INSUFFICIENT_BALANCE.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}
