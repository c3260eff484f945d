package storage

import (
	"context"
	"errors"
	"testing"
)

var (
	_ RunHistoryStore = (*Store)(nil)
	_ AdvisoryLocker  = (*Store)(nil)
)

func TestStoreWithoutPoolReturnsErrNotConfigured(t *testing.T) {
	var store *Store
	ctx := context.Background()

	if err := store.UpsertRun(ctx, RunRecord{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("UpsertRun: %v", err)
	}
	if _, err := store.ListRecentRuns(ctx, 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListRecentRuns: %v", err)
	}
	if _, err := store.CountRuns(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("CountRuns: %v", err)
	}
	if _, _, err := store.TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("TryAdvisoryLock: %v", err)
	}
}

func TestCloseWithoutPoolIsSafe(t *testing.T) {
	var store *Store
	store.Close()
	NewStore(nil).Close()
}
