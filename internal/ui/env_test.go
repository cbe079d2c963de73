package ui

import (
	"os"
	"testing"
)

// unsetenv removes key for the rest of the test. Call t.Setenv on key first
// so the original value is restored.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}
