package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestInspectReadsBackendClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"sub":       42,
		"tenant_id": 7,
		"role":      "admin",
		"exp":       exp.Unix(),
	})
	raw, err := tok.SignedString([]byte("unknown-to-client"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if c.Subject != "42" || c.TenantID != "7" || c.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Fatalf("expected exp %v, got %v", exp, c.ExpiresAt)
	}
	if c.Expired(time.Now(), 0) {
		t.Fatal("token should not be expired")
	}
	if !c.Expired(exp.Add(time.Minute), 30*time.Second) {
		t.Fatal("token should be expired past leeway")
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	for _, raw := range []string{"", "t1", "a.b", "a.b.c"} {
		if _, err := Inspect(raw); !errors.Is(err, ErrNotJWT) {
			t.Fatalf("Inspect(%q): expected ErrNotJWT, got %v", raw, err)
		}
	}
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	if (Claims{}).Expired(time.Now(), 0) {
		t.Fatal("zero exp must not expire")
	}
}

func TestManagerIssueAndParse(t *testing.T) {
	m := newHSManager(t)
	raw, err := m.Issue("u-1", "t-1", "noc")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := m.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Subject != "u-1" || c.TenantID != "t-1" || c.Role != "noc" {
		t.Fatalf("unexpected claims: %+v", c)
	}

	inspected, err := Inspect(raw)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inspected.Subject != c.Subject || !inspected.ExpiresAt.Equal(c.ExpiresAt) {
		t.Fatalf("inspect disagrees with parse: %+v vs %+v", inspected, c)
	}
}

func TestManagerParseExpired(t *testing.T) {
	m := newHSManager(t)
	past := time.Now().Add(-2 * time.Hour)
	raw, err := m.WithClock(func() time.Time { return past }).Issue("u", "t", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManagerRejectsWrongAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	ed, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, err := newHSManager(t).Issue("u", "t", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ed.Parse(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	own, err := ed.Issue("u", "t", "admin")
	if err != nil {
		t.Fatalf("ed25519 issue: %v", err)
	}
	if _, err := ed.Parse(own); err != nil {
		t.Fatalf("ed25519 parse: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
