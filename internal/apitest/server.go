package apitest

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/mkclient/internal/credential"
	"github.com/MrEthical07/mkclient/internal/rate"
	"github.com/MrEthical07/mkclient/middleware"
	"github.com/MrEthical07/mkclient/token"
)

// Tenant payment states as the backend spells them.
const (
	StatusActive    = "activo"
	StatusSuspended = "suspendido"
)

// Plan is a subscription tier. MaxDevices 0 means unlimited.
type Plan struct {
	Name       string
	MaxDevices int
	NextHint   string
}

var (
	PlanBasic     = Plan{Name: "BASICMAAT", MaxDevices: 5, NextHint: "Actualiza a INTERMAAT (hasta 15 dispositivos)."}
	PlanInter     = Plan{Name: "INTERMAAT", MaxDevices: 15, NextHint: "Actualiza a PREMIUMAAT (dispositivos ilimitados)."}
	PlanUnlimited = Plan{Name: "PREMIUMAAT"}
)

// Config tunes a Server. Zero fields take defaults.
type Config struct {
	TokenTTL          time.Duration // default 1h
	MaxFailedAttempts int           // default 5
	LockoutWindow     time.Duration // default 5m
	Start             time.Time     // default wall clock at Start
	SigningKey        []byte        // default random
}

// Account identifies a created user and its tenant.
type Account struct {
	UserID   int64
	TenantID int64
}

// Fault replaces the response of a route.
type Fault struct {
	Status int
	Body   string
}

type user struct {
	id       int64
	email    string
	hash     string
	role     string
	fullName string
	tenantID int64
}

type tenant struct {
	id     int64
	plan   Plan
	status string
}

type device struct {
	id        int64
	tenantID  int64
	name      string
	ip        string
	port      int
	firmware  string
	location  string
	wanType   string
	health    string
	createdAt time.Time
}

type alert struct {
	id          int64
	tenantID    int64
	deviceID    int64
	estado      string
	title       string
	description string
	action      string
	status      string
	comment     string
	createdAt   time.Time
	updatedAt   time.Time
}

type logLine struct {
	id        int64
	deviceID  int64
	raw       string
	level     string
	at        time.Time
	createdAt time.Time
}

type queuedFault struct {
	fault     Fault
	remaining int
}

// Server is the in-process backend.
type Server struct {
	cfg     Config
	srv     *httptest.Server
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	limiter *rate.Limiter
	hasher  *credential.Hasher
	tokens  *token.Manager
	clock   atomic.Int64

	mu         sync.Mutex
	nextID     int64
	users      map[string]*user
	tenants    map[int64]*tenant
	devices    map[int64]*device
	alerts     map[int64]*alert
	logs       []*logLine
	faults     map[string]*queuedFault
	hits       map[string]int
	legacyOnly bool
}

// New starts a Server and closes it when tb finishes.
func New(tb testing.TB, cfg Config) *Server {
	tb.Helper()
	s, err := Start(cfg)
	if err != nil {
		tb.Fatalf("apitest start: %v", err)
	}
	tb.Cleanup(s.Close)
	return s
}

// Start launches a Server on a loopback port.
func Start(cfg Config) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 5 * time.Minute
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().UTC().Truncate(time.Second)
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, err
		}
	}

	hasher, err := credential.NewHasher(credential.TestParams())
	if err != nil {
		return nil, err
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("apitest: miniredis: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		mr:      mr,
		rdb:     redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		hasher:  hasher,
		users:   make(map[string]*user),
		tenants: make(map[int64]*tenant),
		devices: make(map[int64]*device),
		alerts:  make(map[int64]*alert),
		faults:  make(map[string]*queuedFault),
		hits:    make(map[string]int),
	}
	s.clock.Store(cfg.Start.UnixNano())
	s.limiter = rate.New(s.rdb, rate.Config{
		Prefix:      "apitest",
		MaxAttempts: cfg.MaxFailedAttempts,
		Window:      cfg.LockoutWindow,
	})

	mgr, err := token.NewManager(token.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: token.MethodHS256,
		PrivateKey:    cfg.SigningKey,
	})
	if err != nil {
		s.closeRedis()
		return nil, err
	}
	s.tokens = mgr.WithClock(s.Now)

	s.srv = httptest.NewServer(s.intercept(s.routes()))
	return s, nil
}

func (s *Server) routes() http.Handler {
	guard := middleware.Guard(s.tokens)
	protected := func(h http.HandlerFunc) http.Handler { return guard(h) }
	mutating := func(h http.HandlerFunc) http.Handler { return guard(s.requireActive(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.Handle("GET /api/auth/me", protected(s.handleMe))
	mux.Handle("GET /api/devices", protected(s.handleListDevices))
	mux.Handle("POST /api/devices", mutating(s.handleCreateDevice))
	mux.Handle("GET /api/devices/{id}/logs", protected(s.handleLogs))
	mux.Handle("GET /api/alerts", protected(s.handleListAlerts))
	mux.Handle("PATCH /api/alerts/{id}/status", mutating(s.handleAlertStatus))
	mux.Handle("GET /api/subscription/status", protected(s.handleSubscription(false)))
	mux.Handle("GET /api/subscriptions/subscription/status", protected(s.handleSubscription(true)))
	return mux
}

// intercept counts hits and serves queued faults ahead of the real handlers.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, strings.TrimPrefix(r.URL.Path, "/api"))
		s.mu.Lock()
		s.hits[key]++
		var fault *Fault
		if q, ok := s.faults[key]; ok {
			f := q.fault
			fault = &f
			q.remaining--
			if q.remaining <= 0 {
				delete(s.faults, key)
			}
		}
		s.mu.Unlock()

		if fault != nil {
			if fault.Body != "" {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(fault.Status)
			_, _ = w.Write([]byte(fault.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Close stops the HTTP listener and the embedded Redis.
func (s *Server) Close() {
	s.srv.Close()
	s.closeRedis()
}

func (s *Server) closeRedis() {
	_ = s.rdb.Close()
	s.mr.Close()
}

// URL returns the API base, including the "/api" prefix.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Client returns an *http.Client wired to the listener.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Now returns the server clock.
func (s *Server) Now() time.Time {
	return time.Unix(0, s.clock.Load()).UTC()
}

// Advance moves the server clock and the lockout windows forward by d.
func (s *Server) Advance(d time.Duration) {
	s.clock.Add(int64(d))
	s.mr.FastForward(d)
}

// CreateAccount adds a tenant on plan with one user holding role.
func (s *Server) CreateAccount(email, password, role string, plan Plan) (Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Account{}, err
	}
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return Account{}, errors.New("apitest: email already registered")
	}
	t := &tenant{id: s.id(), plan: plan, status: StatusActive}
	s.tenants[t.id] = t
	u := &user{id: s.id(), email: email, hash: hash, role: role, tenantID: t.id}
	s.users[email] = u
	return Account{UserID: u.id, TenantID: t.id}, nil
}

// IssueToken signs a token for email on the current server clock.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("apitest: unknown user")
	}
	return s.issue(u)
}

func (s *Server) issue(u *user) (string, error) {
	return s.tokens.Issue(strconv.FormatInt(u.id, 10), strconv.FormatInt(u.tenantID, 10), u.role)
}

// SetTenantStatus changes the payment state of a tenant.
func (s *Server) SetTenantStatus(tenantID int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[tenantID]; ok {
		t.status = status
	}
}

// SetPlan moves a tenant to plan.
func (s *Server) SetPlan(tenantID int64, plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[tenantID]; ok {
		t.plan = plan
	}
}

// AddDevice registers a device for tenantID and returns its id.
func (s *Server) AddDevice(tenantID int64, name, ip string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &device{id: s.id(), tenantID: tenantID, name: name, ip: ip, port: 8728, health: "ok", createdAt: s.Now()}
	s.devices[d.id] = d
	return d.id
}

// AlertSeed describes an alert added with AddAlert.
type AlertSeed struct {
	DeviceID    int64
	Estado      string
	Title       string
	Description string
	Action      string
	Status      string
	CreatedAt   time.Time
}

// AddAlert stores an alert for tenantID and returns its id.
func (s *Server) AddAlert(tenantID int64, seed AlertSeed) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := seed.CreatedAt
	if created.IsZero() {
		created = s.Now()
	}
	status := seed.Status
	if status == "" {
		status = "Pendiente"
	}
	a := &alert{
		id:          s.id(),
		tenantID:    tenantID,
		deviceID:    seed.DeviceID,
		estado:      seed.Estado,
		title:       seed.Title,
		description: seed.Description,
		action:      seed.Action,
		status:      status,
		createdAt:   created.UTC(),
		updatedAt:   created.UTC(),
	}
	s.alerts[a.id] = a
	return a.id
}

// AddLog appends a log line to deviceID.
func (s *Server) AddLog(deviceID int64, raw, level string, at time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &logLine{id: s.id(), deviceID: deviceID, raw: raw, level: level, at: at.UTC(), createdAt: s.Now()}
	s.logs = append(s.logs, l)
	return l.id
}

// InjectFault answers the next times requests to method and path (without the "/api"
// prefix) with f.
func (s *Server) InjectFault(method, path string, f Fault, times int) {
	if times <= 0 {
		times = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[routeKey(method, path)] = &queuedFault{fault: f, remaining: times}
}

// SetLegacySubscriptionOnly makes the primary subscription route answer 404.
func (s *Server) SetLegacySubscriptionOnly(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacyOnly = on
}

// Hits returns how many requests reached method and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, path)]
}

// id must be called with mu held.
func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}
