package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestMigrateLegacyTokenAdoptsFirstLegacyValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(map[string]string{"access_token": "legacy-1", "token": "legacy-2"})

	migrated, err := MigrateLegacyToken(ctx, s)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !migrated {
		t.Fatal("expected migration")
	}
	if v, ok, _ := s.Get(ctx, KeyToken); !ok || v != "legacy-1" {
		t.Fatalf("expected current token legacy-1, got %q ok=%v", v, ok)
	}
	for _, k := range LegacyTokenKeys {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Fatalf("legacy key %q still present", k)
		}
	}
}

func TestMigrateLegacyTokenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(map[string]string{"token": "old"})

	if _, err := MigrateLegacyToken(ctx, s); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	before := s.Keys()
	sort.Strings(before)

	migrated, err := MigrateLegacyToken(ctx, s)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if migrated {
		t.Fatal("second migration must be a no-op")
	}
	after := s.Keys()
	sort.Strings(after)
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("keys changed: %v -> %v", before, after)
	}
}

func TestMigrateLegacyTokenKeepsCurrentKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(map[string]string{KeyToken: "current", "access_token": "stale"})

	migrated, err := MigrateLegacyToken(ctx, s)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if migrated {
		t.Fatal("current key present, nothing should be adopted")
	}
	if v, _, _ := s.Get(ctx, KeyToken); v != "current" {
		t.Fatalf("current token overwritten: %q", v)
	}
	if _, ok, _ := s.Get(ctx, "access_token"); ok {
		t.Fatal("stale legacy key should be cleared")
	}
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(nil)
	if err := s.Set(ctx, "", "v"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if _, _, err := s.Get(ctx, ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestSetAllFallsBackToSingleWrites(t *testing.T) {
	ctx := context.Background()
	s := singleOnly{m: NewMemory(nil)}
	if err := SetAll(ctx, s, map[string]string{KeyToken: "t", KeyRole: "admin"}); err != nil {
		t.Fatalf("set all: %v", err)
	}
	if v, _, _ := s.Get(ctx, KeyRole); v != "admin" {
		t.Fatalf("expected role admin, got %q", v)
	}
}

// singleOnly hides Memory.SetMany.
type singleOnly struct{ m *Memory }

func (s singleOnly) Get(ctx context.Context, k string) (string, bool, error) { return s.m.Get(ctx, k) }
func (s singleOnly) Set(ctx context.Context, k, v string) error { return s.m.Set(ctx, k, v) }
func (s singleOnly) Delete(ctx context.Context, keys ...string) error { return s.m.Delete(ctx, keys...) }

func TestPreferencesTheme(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(nil)
	p := NewPreferences(s)

	if got := p.Theme(ctx); got != ThemeLight {
		t.Fatalf("expected default light, got %q", got)
	}
	if err := p.SetTheme(ctx, ThemeDark); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if got := p.Theme(ctx); got != ThemeDark {
		t.Fatalf("expected dark, got %q", got)
	}
	if err := p.SetTheme(ctx, "sepia"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
	_ = s.Set(ctx, KeyTheme, "garbage")
	if got := p.Theme(ctx); got != ThemeLight {
		t.Fatalf("invalid stored theme should read as light, got %q", got)
	}
}

func TestPreferencesRememberEmail(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(NewMemory(nil))

	if _, ok := p.RememberedEmail(ctx); ok {
		t.Fatal("nothing remembered yet")
	}
	if err := p.RememberEmail(ctx, "  ops@example.com "); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if v, ok := p.RememberedEmail(ctx); !ok || v != "ops@example.com" {
		t.Fatalf("expected trimmed email, got %q ok=%v", v, ok)
	}
	if err := p.RememberEmail(ctx, ""); err != nil {
		t.Fatalf("forget via empty: %v", err)
	}
	if _, ok := p.RememberedEmail(ctx); ok {
		t.Fatal("email should be forgotten")
	}
}
