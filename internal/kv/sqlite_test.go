package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if value, ok, err := store.Get(ctx, "token"); err != nil || !ok || value != "abc" {
		t.Fatalf("expected abc, got %q ok=%v err=%v", value, ok, err)
	}
	if err := store.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if value, _, _ := store.Get(ctx, "token"); value != "def" {
		t.Fatalf("expected overwrite to def, got %q", value)
	}
	if err := store.Delete(ctx, "token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "token"); ok {
		t.Fatalf("expected key removed")
	}
	if err := store.Delete(ctx, "token"); err != nil {
		t.Fatalf("deleting absent key should not fail: %v", err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Set(ctx, "expiry", "12345"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "expiry")
	if err != nil || !ok || value != "12345" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}
