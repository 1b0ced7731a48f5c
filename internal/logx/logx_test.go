package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSecureString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"short", "abc", "########"},
		{"medium", "abcdefghijkl", "########ijkl"},
		{"token", "eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJhbG########.sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecureString(tt.raw); got != tt.want {
				t.Fatalf("SecureString(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSecureStringOptions(t *testing.T) {
	got := SecureString("0123456789abcdef", SecureRune('*'), SecurePrefix(2), SecureSuffix(2))
	if got != "01********ef" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestBearer(t *testing.T) {
	got := Bearer("Bearer eyJhbGciOiJIUzI1NiJ9.payload.sig")
	if !strings.HasPrefix(got, "Bearer eyJhbG#") || strings.Contains(got, "payload") {
		t.Fatalf("bearer not masked: %q", got)
	}
}

func TestJSONLoggerMasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: "debug", JSON: true})
	l.Debug("login", slog.String("token", "eyJhbGciOiJIUzI1NiJ9.payload.sig"), slog.Any("err", errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if tok, _ := rec["token"].(string); strings.Contains(tok, "payload") {
		t.Fatalf("token leaked: %q", tok)
	}
	if _, ok := rec["err"].(map[string]any); !ok {
		t.Fatalf("expected structured err, got %#v", rec["err"])
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != slog.LevelWarn || ParseLevel("nonsense") != slog.LevelInfo {
		t.Fatal("unexpected level parsing")
	}
}
