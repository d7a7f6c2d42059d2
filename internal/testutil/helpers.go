package testutil

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// NewTestRNG creates a deterministic random number generator for tests
func NewTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// AssertPanic asserts that the given function panics
func AssertPanic(t *testing.T, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic but none occurred: %v", msgAndArgs)
		}
	}()
	f()
}

// AssertPanicIs asserts that f panics with an error wrapping target.
func AssertPanicIs(t *testing.T, f func(), target error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected panic wrapping %v but none occurred", target)
			return
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Errorf("Expected panic wrapping %v, got %v", target, r)
		}
	}()
	f()
}
