package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetPutDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var prefs models.Preferences
	ok, err := s.Get(ctx, PreferencesKey("u1"), &prefs)
	if err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	want := models.Preferences{DisplayName: "Ada", Timezone: "Europe/London"}
	if err := s.Put(ctx, PreferencesKey("u1"), want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	want.DisplayName = "Ada L."
	if err := s.Put(ctx, PreferencesKey("u1"), want); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	ok, err = s.Get(ctx, PreferencesKey("u1"), &prefs)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if prefs != want {
		t.Errorf("expected %+v, got %+v", want, prefs)
	}

	keys, err := s.Keys(ctx, "prefs_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key, got %v", keys)
	}

	if err := s.Delete(ctx, PreferencesKey("u1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := s.Get(ctx, PreferencesKey("u1"), &prefs); ok {
		t.Error("key should be gone after Delete")
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Put(ctx, "k", []int{1, 2, 3}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	var got []int
	if ok, err := s.Get(ctx, "k", &got); err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("unexpected value %v", got)
	}
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if p != (models.Preferences{}) {
		t.Errorf("expected empty preferences, got %+v", p)
	}
	if Location(p) != time.Local {
		t.Error("unset timezone should fall back to local time")
	}

	err = s.SavePreferences(ctx, "u1", models.Preferences{Timezone: "Mars/Olympus"})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := s.SavePreferences(ctx, "u1", models.Preferences{DisplayName: " Ada ", Timezone: "UTC"}); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	p, _ = s.Preferences(ctx, "u1")
	if p.DisplayName != "Ada" || Location(p).String() != "UTC" {
		t.Errorf("unexpected preferences %+v", p)
	}
}
