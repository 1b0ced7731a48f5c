package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/mkclient/internal/apitest"
)

const (
	testEmail    = "noc@example.com"
	testPassword = "correct-horse"
)

type harness struct {
	t     *testing.T
	srv   *apitest.Server
	acct  apitest.Account
	store string
}

func newHarness(t *testing.T, plan apitest.Plan) *harness {
	t.Helper()
	srv := apitest.New(t, apitest.Config{})
	acct, err := srv.CreateAccount(testEmail, testPassword, "admin", plan)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return &harness{t: t, srv: srv, acct: acct, store: filepath.Join(t.TempDir(), "session.json")}
}

type result struct {
	out    string
	errOut string
	err    error
}

func (c *harness) run(stdin string, args ...string) result {
	c.t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(&env{in: strings.NewReader(stdin), out: &out, errOut: &errOut})
	argv := append([]string{
		"mkctl",
		"--api-url", c.srv.URL(),
		"--store", "file",
		"--store-path", c.store,
		"--log-level", "error",
	}, args...)
	err := app.Run(argv)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func (c *harness) mustRun(stdin string, args ...string) result {
	c.t.Helper()
	r := c.run(stdin, args...)
	if r.err != nil {
		c.t.Fatalf("mkctl %v: %v\nstderr: %s", args, r.err, r.errOut)
	}
	return r
}

func (c *harness) login() {
	c.t.Helper()
	c.mustRun(testPassword+"\n", "login", "--email", testEmail)
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)

	r := c.mustRun(testPassword+"\n", "login", "--email", testEmail, "--remember")
	if !strings.Contains(r.out, "Logged in as "+testEmail) {
		t.Fatalf("unexpected login output %q", r.out)
	}

	r = c.mustRun("", "whoami")
	if !strings.Contains(r.out, "authenticated") || !strings.Contains(r.out, "admin") {
		t.Fatalf("unexpected whoami output %q", r.out)
	}

	c.mustRun("", "logout")
	if r := c.run("", "whoami"); r.err == nil || !strings.Contains(r.err.Error(), "not logged in") {
		t.Fatalf("expected not-logged-in error, got %v", r.err)
	}

	r = c.mustRun(testPassword+"\n", "login")
	if !strings.Contains(r.out, testEmail) {
		t.Fatalf("remembered email not used: %q", r.out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	r := c.run("nope-nope\n", "login", "--email", testEmail)
	if r.err == nil || r.err.Error() != "invalid email or password" {
		t.Fatalf("expected invalid credentials, got %v", r.err)
	}
	if strings.Contains(r.errOut, reloginNotice) {
		t.Fatal("a failed login must not print the re-login prompt")
	}
}

func TestRegister(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	r := c.mustRun("", "register", "--email", "ana@example.com", "--password", "password1", "--name", "Ana")
	if !strings.Contains(r.out, "Account created") {
		t.Fatalf("unexpected output %q", r.out)
	}
	if r := c.run("", "register", "--email", testEmail, "--password", "password1"); r.err == nil || !strings.Contains(r.err.Error(), "already registered") {
		t.Fatalf("expected taken email error, got %v", r.err)
	}
	if r := c.run("", "register", "--email", "ana2@example.com", "--password", "short"); r.err == nil || !strings.Contains(r.err.Error(), "8 characters") {
		t.Fatalf("expected weak password error, got %v", r.err)
	}
}

func TestDevicesUpsell(t *testing.T) {
	c := newHarness(t, apitest.Plan{Name: "TINY", MaxDevices: 1, NextHint: "Actualiza a INTERMAAT"})
	c.login()

	c.mustRun("", "devices", "add", "--name", "core", "--ip", "10.0.0.1")
	r := c.mustRun("", "devices", "list")
	if !strings.Contains(r.out, "core") || !strings.Contains(r.out, "10.0.0.1:8728") {
		t.Fatalf("unexpected list output %q", r.out)
	}

	r = c.run("", "devices", "add", "--name", "edge", "--ip", "10.0.0.2")
	if r.err == nil || !strings.Contains(r.err.Error(), "Actualiza a INTERMAAT") {
		t.Fatalf("expected plan limit error, got %v", r.err)
	}
	if !strings.Contains(r.errOut, upsellNotice) {
		t.Fatalf("expected upsell notice, got %q", r.errOut)
	}
}

func TestSuspendedTenantIsReadOnly(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	c.login()
	c.srv.SetTenantStatus(c.acct.TenantID, apitest.StatusSuspended)

	r := c.run("", "devices", "add", "--name", "edge", "--ip", "10.0.0.2")
	if r.err == nil || !strings.Contains(r.err.Error(), "suspended") {
		t.Fatalf("expected suspension error, got %v", r.err)
	}
	if !strings.Contains(r.errOut, suspendedBanner) {
		t.Fatalf("expected suspension banner, got %q", r.errOut)
	}

	r = c.run("", "devices", "add", "--name", "edge", "--ip", "10.0.0.2")
	if r.err == nil || !strings.Contains(r.err.Error(), "read-only") {
		t.Fatalf("expected local refusal, got %v", r.err)
	}
	if n := c.srv.Hits(http.MethodPost, "/devices"); n != 1 {
		t.Fatalf("refused writes must not reach the backend, got %d", n)
	}

	r = c.mustRun("", "devices", "list")
	if !strings.Contains(r.errOut, suspendedBanner) {
		t.Fatal("reads show the banner while suspended")
	}
}

func TestExpiredSessionPromptsRelogin(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	c.login()
	c.srv.Advance(2 * time.Hour)

	r := c.run("", "whoami")
	if r.err == nil || r.err != errSessionExpired {
		t.Fatalf("expected session expired, got %v", r.err)
	}
	if strings.Count(r.errOut, reloginNotice) != 1 {
		t.Fatalf("expected one re-login prompt, got %q", r.errOut)
	}
}

func TestAlertsAndLogs(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	c.login()
	dev := c.srv.AddDevice(c.acct.TenantID, "core", "10.0.0.1")
	alert := c.srv.AddAlert(c.acct.TenantID, apitest.AlertSeed{DeviceID: dev, Estado: "critico", Title: "CPU alta"})
	c.srv.AddLog(dev, "interface ether1 link down", "warning", c.srv.Now().Add(-time.Minute))

	r := c.mustRun("", "alerts", "list")
	if !strings.Contains(r.out, "CPU alta") || !strings.Contains(r.out, "Pendiente") {
		t.Fatalf("unexpected alerts output %q", r.out)
	}
	r = c.mustRun("", "alerts", "ack", "--comment", "mirando", strconv.FormatInt(alert, 10))
	if !strings.Contains(r.out, "En curso") {
		t.Fatalf("unexpected ack output %q", r.out)
	}
	if r := c.run("", "alerts", "ack", "--status", "Cerrada", strconv.FormatInt(alert, 10)); r.err == nil {
		t.Fatal("expected invalid status error")
	}

	r = c.mustRun("", "logs", "list", "--device", strconv.FormatInt(dev, 10))
	if !strings.Contains(r.out, "link down") {
		t.Fatalf("unexpected logs output %q", r.out)
	}

	csvPath := filepath.Join(t.TempDir(), "logs.csv")
	c.mustRun("", "logs", "export", "--device", strconv.FormatInt(dev, 10), "--csv", csvPath)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "timestamp_equipo,device_id,raw_log\n") || !strings.Contains(string(data), "link down") {
		t.Fatalf("unexpected csv %q", data)
	}

	pdfPath := filepath.Join(t.TempDir(), "logs.pdf")
	c.mustRun("", "logs", "export", "--device", strconv.FormatInt(dev, 10), "--pdf", pdfPath, "--limit", "50")
	if data, err := os.ReadFile(pdfPath); err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("unexpected pdf: %v", err)
	}

	if r := c.run("", "logs", "export", "--device", strconv.FormatInt(dev, 10)); r.err == nil {
		t.Fatal("expected an error without --csv or --pdf")
	}
}

func TestSubscriptionAndTheme(t *testing.T) {
	c := newHarness(t, apitest.PlanBasic)
	c.login()
	c.srv.AddDevice(c.acct.TenantID, "core", "10.0.0.1")

	r := c.mustRun("", "subscription")
	if !strings.Contains(r.out, "BASICMAAT") || !strings.Contains(r.out, "1 / 5") {
		t.Fatalf("unexpected subscription output %q", r.out)
	}

	if r := c.mustRun("", "theme", "get"); strings.TrimSpace(r.out) != "light" {
		t.Fatalf("expected light, got %q", r.out)
	}
	c.mustRun("", "theme", "set", "dark")
	c.mustRun("", "logout")
	if r := c.mustRun("", "theme", "get"); strings.TrimSpace(r.out) != "dark" {
		t.Fatalf("theme must survive logout, got %q", r.out)
	}
	if r := c.run("", "theme", "set", "sepia"); r.err == nil {
		t.Fatal("expected invalid theme error")
	}
}
