package testsupport

import (
	"testing"

	"discprobe/internal/config"
	"discprobe/internal/history"
)

// MustOpenHistory opens the probe history for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
