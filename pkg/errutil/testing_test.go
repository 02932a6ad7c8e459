// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/moodvault/moodvault/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("MY_CODE").Errorf("test error")
	errutil.AssertErrorCode(t, err, "MY_CODE")
}

func TestAssertErrorCode_WrappedSentinel(t *testing.T) {
	sentinel := errors.New("not found")
	err := oops.Code("THING_NOT_FOUND").Wrap(sentinel)

	errutil.AssertErrorCode(t, err, "THING_NOT_FOUND")
}
