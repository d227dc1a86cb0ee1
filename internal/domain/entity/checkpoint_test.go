package entity

import (
	"testing"
	"time"
)

func TestCheckpointKey(t *testing.T) {
	if got, want := CheckpointKey("2024-05-01", "2024-05-10"), "backfill_state_20240501_to_20240510"; got != want {
		t.Errorf("CheckpointKey = %q, want %q", got, want)
	}
}

func TestMarkDayCompletedRequiresAllCategories(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	cp := NewBackfillCheckpoint("run", start, end, false)

	cp.MarkCategory("2024-05-01", CategoryContinuousLogIngest, StatusCompleted)
	cp.MarkCategory("2024-05-01", CategoryMetricsDatapoints, StatusFailed)

	if cp.MarkDayCompleted("2024-05-01") {
		t.Fatal("a day with a failed category must not complete")
	}
	if cp.DayCompleted("2024-05-01") {
		t.Fatal("day reported completed despite the failure")
	}

	// nova tentativa corrige a categoria
	cp.MarkCategory("2024-05-01", CategoryMetricsDatapoints, StatusCompleted)
	if !cp.MarkDayCompleted("2024-05-01") {
		t.Fatal("day should complete after the retry succeeds")
	}
	if !cp.DayCompleted("2024-05-01") {
		t.Fatal("day not reported completed")
	}
}

func TestCheckpointCompleteAndLastDay(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	cp := NewBackfillCheckpoint("run", start, end, false)

	for _, date := range []string{"2024-05-01", "2024-05-02"} {
		cp.MarkCategory(date, CategoryContinuousLogIngest, StatusCompleted)
		cp.MarkDayCompleted(date)
	}

	if cp.Complete() {
		t.Fatal("checkpoint complete with one day missing")
	}
	if last, ok := cp.LastCompletedDay(); !ok || last != "2024-05-02" {
		t.Errorf("LastCompletedDay = %q, %v", last, ok)
	}
	if cp.CompletedCount() != 2 {
		t.Errorf("CompletedCount = %d, want 2", cp.CompletedCount())
	}

	cp.MarkCategory("2024-05-03", CategoryContinuousLogIngest, StatusCompleted)
	cp.MarkDayCompleted("2024-05-03")
	if !cp.Complete() {
		t.Fatal("checkpoint should be complete")
	}
}

func TestCheckpointMatches(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	cp := NewBackfillCheckpoint("run", start, end, false)

	if !cp.Matches(start, end) {
		t.Error("checkpoint must match its own range")
	}
	if cp.Matches(start, end.AddDate(0, 0, 1)) {
		t.Error("checkpoint matched a different range")
	}
}
