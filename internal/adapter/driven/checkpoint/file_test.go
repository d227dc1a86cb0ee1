package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	checkpoint := entity.NewBackfillCheckpoint("run-1", start, end, false)
	checkpoint.MarkDayAttempt("2024-05-01")
	checkpoint.MarkCategory("2024-05-01", entity.CategoryContinuousLogIngest, entity.StatusCompleted)
	checkpoint.MarkDayCompleted("2024-05-01")

	if err := store.Save(ctx, checkpoint); err != nil {
		t.Fatalf("Save: %v", err)
	}

	wantPath := filepath.Join(dir, ".backfill_state_20240501_to_20240510.json")
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("expected checkpoint at %s: %v", wantPath, err)
	}

	loaded, err := store.Load(ctx, checkpoint.Key())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for an existing checkpoint")
	}
	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %q", loaded.RunID)
	}
	if !loaded.Matches(start, end) {
		t.Error("loaded checkpoint does not match the saved range")
	}
	if !loaded.DayCompleted("2024-05-01") {
		t.Error("completed day lost in round trip")
	}
	if !loaded.CategoryCompleted("2024-05-01", entity.CategoryContinuousLogIngest) {
		t.Error("category status lost in round trip")
	}

	if err := store.Delete(ctx, checkpoint.Key()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(wantPath); !os.IsNotExist(err) {
		t.Error("checkpoint file still present after Delete")
	}
}

func TestFileStoreMissingCheckpoint(t *testing.T) {
	store := NewFileStore(t.TempDir())

	loaded, err := store.Load(context.Background(), "backfill_state_20240101_to_20240102")
	if err != nil {
		t.Fatalf("a missing checkpoint must not be an error: %v", err)
	}
	if loaded != nil {
		t.Fatal("expected nil checkpoint when none was saved")
	}

	if err := store.Delete(context.Background(), "backfill_state_20240101_to_20240102"); err != nil {
		t.Fatalf("deleting a missing checkpoint must not fail: %v", err)
	}
}

func TestFileStoreCorruptedCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	key := "backfill_state_20240101_to_20240102"
	if err := os.WriteFile(filepath.Join(dir, "."+key+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("a corrupted checkpoint is treated as absent, got error %v", err)
	}
	if loaded != nil {
		t.Fatal("expected nil checkpoint for corrupted file")
	}
}
