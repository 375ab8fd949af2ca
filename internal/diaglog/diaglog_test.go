package diaglog

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func testClock() func() time.Time {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	const total = DefaultCapacity + 5
	for i := 1; i <= total; i++ {
		store.Info(fmt.Sprintf("entry %d", i), nil)
	}
	if store.Len() != DefaultCapacity {
		t.Fatalf("expected %d retained entries, got %d", DefaultCapacity, store.Len())
	}
	entries := store.Recent("", 0)
	if got := entries[len(entries)-1].Message; got != fmt.Sprintf("entry %d", total) {
		t.Fatalf("expected newest entry to be %d, got %q", total, got)
	}
	if got := entries[0].Message; got != "entry 6" {
		t.Fatalf("expected oldest retained entry to be entry 6, got %q", got)
	}
}

type deviceError struct{ device string }

func (e *deviceError) Error() string { return "permission denied on " + e.device }

func TestErrorFoldsCapturedError(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	store.Error("device acquisition failed", &deviceError{device: "cam0"}, map[string]any{"device": "cam0"})

	entries := store.Recent(LevelError, 1)
	if len(entries) != 1 {
		t.Fatalf("expected one error entry, got %d", len(entries))
	}
	ctx := entries[0].Context
	if ctx["error"] != "permission denied on cam0" {
		t.Fatalf("expected captured error in context, got %v", ctx)
	}
	if ctx["errorType"] != "*diaglog.deviceError" {
		t.Fatalf("expected captured error type in context, got %v", ctx)
	}
	if ctx["device"] != "cam0" {
		t.Fatalf("expected caller context preserved, got %v", ctx)
	}
}

func TestErrorWithoutErrKeepsContextUntouched(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	store.Error("upload gave up", nil, map[string]any{"attempts": 3})

	entries := store.Recent(LevelError, 1)
	if len(entries) != 1 {
		t.Fatalf("expected one error entry, got %d", len(entries))
	}
	ctx := entries[0].Context
	if _, ok := ctx["error"]; ok {
		t.Fatalf("expected no error key for nil err, got %v", ctx)
	}
	if _, ok := ctx["errorType"]; ok {
		t.Fatalf("expected no errorType key for nil err, got %v", ctx)
	}
}

func TestRecentFiltersAndLimits(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	store.Info("one", nil)
	store.Warn("two", nil)
	store.Info("three", nil)
	store.Warn("four", nil)
	store.Warn("five", nil)

	warns := store.Recent(LevelWarn, 2)
	if len(warns) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warns))
	}
	if warns[0].Message != "four" || warns[1].Message != "five" {
		t.Fatalf("expected oldest-first slice of the most recent warnings, got %v", warns)
	}
}

func TestClearEmptiesHistory(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	store.Info("one", nil)
	store.Clear()
	if store.Len() != 0 {
		t.Fatalf("expected empty store after clear, got %d entries", store.Len())
	}
}

func TestExportJSONChronological(t *testing.T) {
	store := NewStore(WithClock(testClock()))
	store.Info("first", nil)
	store.Warn("second", map[string]any{"k": "v"})

	raw, err := store.ExportJSON()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("exported JSON not parseable: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "first" || entries[1].Message != "second" {
		t.Fatalf("unexpected export order: %v", entries)
	}
	if entries[0].Timestamp >= entries[1].Timestamp {
		t.Fatalf("expected increasing timestamps, got %q then %q", entries[0].Timestamp, entries[1].Timestamp)
	}
}

func TestCustomCapacity(t *testing.T) {
	store := NewStore(WithCapacity(3), WithClock(testClock()))
	for i := 1; i <= 5; i++ {
		store.Info(fmt.Sprintf("entry %d", i), nil)
	}
	entries := store.Recent("", 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].Message != "entry 3" {
		t.Fatalf("expected sliding window to keep entries 3..5, got %v", entries)
	}
}
