package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/storage"
)

func newTestStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return store
}

func TestCheckForUpdateSequence(t *testing.T) {
	var content atomic.Value
	content.Store("first version")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content.Load().(string)))
	}))
	defer server.Close()

	store := newTestStorage(t)
	detector := NewDetector(store, time.Second)
	ctx := context.Background()

	// no cached copy: snapshot is written and an update is reported
	updated, err := detector.CheckForUpdate(ctx, server.URL, "results.xlsx")
	if err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	if !updated {
		t.Error("expected update on first fetch")
	}

	// identical remote content: no update
	updated, err = detector.CheckForUpdate(ctx, server.URL, "results.xlsx")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if updated {
		t.Error("expected no update for unchanged content")
	}

	// remote content changed: snapshot overwritten, update reported
	content.Store("second version")
	updated, err = detector.CheckForUpdate(ctx, server.URL, "results.xlsx")
	if err != nil {
		t.Fatalf("third check failed: %v", err)
	}
	if !updated {
		t.Error("expected update after content change")
	}

	snapshot, err := detector.Snapshot(ctx, "results.xlsx")
	if err != nil {
		t.Fatalf("snapshot read failed: %v", err)
	}
	if string(snapshot) != "second version" {
		t.Errorf("snapshot not overwritten, got %q", snapshot)
	}
}

func TestCheckForUpdateFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	detector := NewDetector(newTestStorage(t), time.Second)

	if _, err := detector.CheckForUpdate(context.Background(), server.URL, "results.xlsx"); err == nil {
		t.Fatal("expected error for failing remote")
	}
}

func TestCheckForUpdateLeavesSnapshotOnError(t *testing.T) {
	store := newTestStorage(t)
	detector := NewDetector(store, time.Second)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stable"))
	}))
	if _, err := detector.CheckForUpdate(ctx, server.URL, "results.xlsx"); err != nil {
		t.Fatalf("seed check failed: %v", err)
	}
	server.Close()

	// the remote is gone now; the cycle fails but the snapshot survives
	if _, err := detector.CheckForUpdate(ctx, server.URL, "results.xlsx"); err == nil {
		t.Fatal("expected error for unreachable remote")
	}

	snapshot, err := detector.Snapshot(ctx, "results.xlsx")
	if err != nil {
		t.Fatalf("snapshot read failed: %v", err)
	}
	if string(snapshot) != "stable" {
		t.Errorf("snapshot corrupted: %q", snapshot)
	}
}
