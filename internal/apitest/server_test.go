package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func do(t *testing.T, s *Server, method, path, tok, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL()+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestLoginLockout(t *testing.T) {
	s := New(t, Config{MaxFailedAttempts: 2})
	if _, err := s.CreateAccount("ops@example.com", "correct-horse", "admin", PlanBasic); err != nil {
		t.Fatalf("create account: %v", err)
	}
	bad := `{"email":"ops@example.com","password":"nope"}`
	for i := 0; i < 2; i++ {
		if code, body := do(t, s, http.MethodPost, "/auth/login", "", bad); code != http.StatusUnauthorized || body["error"] != "Credenciales inválidas" {
			t.Fatalf("attempt %d: got %d %v", i, code, body)
		}
	}
	good := `{"email":"OPS@example.com","password":"correct-horse"}`
	if code, _ := do(t, s, http.MethodPost, "/auth/login", "", good); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while locked out, got %d", code)
	}

	s.Advance(10 * time.Minute)
	code, body := do(t, s, http.MethodPost, "/auth/login", "", good)
	if code != http.StatusOK {
		t.Fatalf("expected 200 after window, got %d %v", code, body)
	}
	if body["tenant_status"] != StatusActive || body["role"] != "admin" || body["token"] == "" {
		t.Fatalf("unexpected login body %v", body)
	}
}

func TestExpiredTokenBody(t *testing.T) {
	s := New(t, Config{TokenTTL: time.Minute})
	_, _ = s.CreateAccount("a@b.io", "password1", "admin", PlanBasic)
	tok, err := s.IssueToken("a@b.io")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code, body := do(t, s, http.MethodGet, "/auth/me", tok, ""); code != http.StatusOK || body["ok"] != true {
		t.Fatalf("me: %d %v", code, body)
	}
	s.Advance(2 * time.Minute)
	code, body := do(t, s, http.MethodGet, "/auth/me", tok, "")
	if code != http.StatusUnauthorized || body["reason"] != "expired" {
		t.Fatalf("expected expired 401, got %d %v", code, body)
	}
}

func TestSuspendedTenantBlocksWrites(t *testing.T) {
	s := New(t, Config{})
	acct, _ := s.CreateAccount("a@b.io", "password1", "admin", PlanBasic)
	tok, _ := s.IssueToken("a@b.io")
	s.SetTenantStatus(acct.TenantID, StatusSuspended)

	if code, _ := do(t, s, http.MethodGet, "/devices", tok, ""); code != http.StatusOK {
		t.Fatalf("reads stay allowed, got %d", code)
	}
	code, body := do(t, s, http.MethodPost, "/devices", tok, `{"name":"r1","ip_address":"10.0.0.1"}`)
	if code != http.StatusForbidden || body["tenant_status"] != StatusSuspended {
		t.Fatalf("expected 403 with tenant status, got %d %v", code, body)
	}
}

func TestPlanLimitAndFaults(t *testing.T) {
	s := New(t, Config{})
	acct, _ := s.CreateAccount("a@b.io", "password1", "admin", Plan{Name: "TINY", MaxDevices: 1, NextHint: "upgrade"})
	tok, _ := s.IssueToken("a@b.io")
	s.AddDevice(acct.TenantID, "r1", "10.0.0.1")

	code, body := do(t, s, http.MethodPost, "/devices", tok, `{"name":"r2","ip_address":"10.0.0.2"}`)
	if code != http.StatusPaymentRequired || body["upsell"] != true || body["required_plan_hint"] != "upgrade" {
		t.Fatalf("expected 402 upsell, got %d %v", code, body)
	}

	s.InjectFault(http.MethodGet, "/devices", Fault{Status: http.StatusInternalServerError, Body: `{"error":"boom"}`}, 1)
	if code, _ := do(t, s, http.MethodGet, "/devices", tok, ""); code != http.StatusInternalServerError {
		t.Fatalf("expected injected 500, got %d", code)
	}
	if code, _ := do(t, s, http.MethodGet, "/devices", tok, ""); code != http.StatusOK {
		t.Fatalf("fault should be consumed, got %d", code)
	}
	if n := s.Hits(http.MethodGet, "/devices"); n != 2 {
		t.Fatalf("expected 2 hits, got %d", n)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := New(t, Config{MaxFailedAttempts: 10})
	cases := []struct {
		body string
		code int
		err  string
	}{
		{`{"email":"","password":"password1"}`, http.StatusBadRequest, "email_required"},
		{`{"email":"nope","password":"password1"}`, http.StatusBadRequest, "invalid_email"},
		{`{"email":"x@y.io","password":"short"}`, http.StatusBadRequest, "weak_password"},
		{`{"email":"x@y.io","password":"password1"}`, http.StatusCreated, ""},
		{`{"email":"x@y.io","password":"password1"}`, http.StatusConflict, "email_taken"},
	}
	for _, tc := range cases {
		code, body := do(t, s, http.MethodPost, "/auth/register", "", tc.body)
		if code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.code, code)
		}
		if tc.err != "" && body["error"] != tc.err {
			t.Fatalf("%s: expected %q, got %v", tc.body, tc.err, body["error"])
		}
	}
}
