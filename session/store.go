package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/mkclient/signal"
	"github.com/MrEthical07/mkclient/storage"
	"github.com/MrEthical07/mkclient/token"
)

// ErrMissingToken is returned by Login when the backend accepted the credentials but
// returned no token.
var ErrMissingToken = errors.New("login response carried no token")

// LoginResult is the identity returned by a successful credential exchange.
type LoginResult struct {
	Token        string
	Role         string
	TenantStatus TenantStatus
}

// Authenticator exchanges credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (LoginResult, error)
	// Verify asks the identity-check endpoint; ok is true only on a confirmed identity.
	Verify(ctx context.Context) (ok bool, err error)
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger for persistence failures and migrations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithExpiryLeeway tolerates clock skew when checking a restored token's exp claim.
func WithExpiryLeeway(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.leeway = d
		}
	}
}

// Store is the single source of truth for the authenticated identity.
type Store struct {
	storage storage.Storage
	auth    Authenticator
	logger  *slog.Logger
	now     func() time.Time
	leeway  time.Duration

	// op serializes mutations so memory and storage are updated in the same order.
	op sync.Mutex

	mu   sync.RWMutex
	sess Session

	obsMu     sync.RWMutex
	observers []func(Session)
}

// NewStore creates a logged-out Store. Call Initialize to restore a persisted session.
func NewStore(st storage.Storage, auth Authenticator, opts ...Option) *Store {
	s := &Store{
		storage: st,
		auth:    auth,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		sess:    loggedOut(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores the persisted session and marks it ready. It is Restore followed
// by MarkReady.
func (s *Store) Initialize(ctx context.Context) Session {
	s.Restore(ctx)
	s.MarkReady()
	return s.Snapshot()
}

// Restore migrates legacy token keys and loads token, role and tenant status without
// marking the session ready. Requests sent before MarkReady carry the restored token
// but a 401 on them is treated as a startup race by the transport.
//
// A restored JWT whose exp has already passed is loaded with the expired flag set, so
// the re-login prompt is shown without a round trip.
func (s *Store) Restore(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()

	if migrated, err := storage.MigrateLegacyToken(ctx, s.storage); err != nil {
		s.logger.Warn("session: legacy key migration failed", slog.Any("err", err))
	} else if migrated {
		s.logger.Info("session: migrated legacy token key")
	}

	tok := s.read(ctx, storage.KeyToken)
	if tok == "" {
		s.commit(loggedOut())
		return
	}
	cur := s.Snapshot()
	same := cur.Token == tok
	next := Session{
		Token:        tok,
		Role:         s.read(ctx, storage.KeyRole),
		TenantStatus: ParseTenantStatus(s.read(ctx, storage.KeyTenantStatus)),
		AuthReady:    same && cur.AuthReady,
		Expired:      same && cur.Expired,
	}
	if c, err := token.Inspect(tok); err == nil && c.Expired(s.now(), s.leeway) {
		next.Expired = true
	}
	s.commit(next)
}

// MarkReady sets AuthReady when a token is held. It never clears the flag.
func (s *Store) MarkReady() {
	s.op.Lock()
	defer s.op.Unlock()

	cur := s.Snapshot()
	if cur.Token == "" || cur.AuthReady {
		return
	}
	cur.AuthReady = true
	s.commit(cur)
}

// Login exchanges credentials and adopts the returned identity. Authenticator errors are
// returned unchanged and leave the current session untouched.
func (s *Store) Login(ctx context.Context, identifier, secret string) (LoginResult, error) {
	res, err := s.auth.Login(ctx, identifier, secret)
	if err != nil {
		return LoginResult{}, err
	}
	if res.Token == "" {
		return LoginResult{}, ErrMissingToken
	}
	if res.TenantStatus == "" {
		res.TenantStatus = TenantActive
	}

	s.op.Lock()
	defer s.op.Unlock()

	s.commit(Session{
		Token:        res.Token,
		Role:         res.Role,
		TenantStatus: res.TenantStatus,
		AuthReady:    true,
	})
	s.persist(ctx, res.Token, res.Role, res.TenantStatus)
	return res, nil
}

// Logout clears the in-memory session and then removes every session key from storage.
func (s *Store) Logout(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()

	s.commit(loggedOut())
	if err := s.storage.Delete(ctx, storage.SessionKeys()...); err != nil {
		s.logger.Warn("session: clearing storage failed", slog.Any("err", err))
	}
}

// MarkExpired flags the session as expired and keeps the token. It is a no-op without
// a token or when already expired.
func (s *Store) MarkExpired() {
	s.op.Lock()
	defer s.op.Unlock()

	cur := s.Snapshot()
	if cur.Token == "" || cur.Expired {
		return
	}
	cur.Expired = true
	s.commit(cur)
}

// Verify reports whether the backend confirms the current token. It returns false
// without a network call when no token is held, and on any error.
func (s *Store) Verify(ctx context.Context) bool {
	if s.Token() == "" {
		return false
	}
	ok, err := s.auth.Verify(ctx)
	if err != nil {
		s.logger.Debug("session: verify failed", slog.Any("err", err))
		return false
	}
	return ok
}

// SetTenantStatus records a tenant status reported by the backend. It is ignored while
// logged out.
func (s *Store) SetTenantStatus(ctx context.Context, status TenantStatus) {
	s.op.Lock()
	defer s.op.Unlock()

	cur := s.Snapshot()
	if cur.Token == "" || cur.TenantStatus == status {
		return
	}
	cur.TenantStatus = status
	s.commit(cur)
	s.write(ctx, storage.KeyTenantStatus, string(status))
}

// AdoptToken installs a token obtained outside Login, such as a renewed token handed
// over by another process. It clears the expired flag and marks the session ready.
// An empty role keeps the current role; an empty token is ignored.
func (s *Store) AdoptToken(ctx context.Context, tok, role string) {
	if tok == "" {
		return
	}
	s.op.Lock()
	defer s.op.Unlock()

	cur := s.Snapshot()
	if role == "" {
		role = cur.Role
	}
	next := Session{
		Token:        tok,
		Role:         role,
		TenantStatus: cur.TenantStatus,
		AuthReady:    true,
	}
	if cur.Token == "" {
		next.TenantStatus = TenantActive
	}
	s.commit(next)
	s.persist(ctx, next.Token, next.Role, next.TenantStatus)
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string { return s.Snapshot().Token }

// Role returns the role tag, or "".
func (s *Store) Role() string { return s.Snapshot().Role }

// TenantStatus returns the tenant payment status.
func (s *Store) TenantStatus() TenantStatus { return s.Snapshot().TenantStatus }

// AuthReady reports whether dependent requests may be sent.
func (s *Store) AuthReady() bool { return s.Snapshot().AuthReady }

// Expired reports whether the transport flagged the session as expired.
func (s *Store) Expired() bool { return s.Snapshot().Expired }

// State returns the derived authentication state.
func (s *Store) State() State { return s.Snapshot().State() }

// Claims decodes the current token without verifying it. ok is false when logged out
// or when the token is opaque.
func (s *Store) Claims() (token.Claims, bool) {
	tok := s.Token()
	if tok == "" {
		return token.Claims{}, false
	}
	c, err := token.Inspect(tok)
	if err != nil {
		return token.Claims{}, false
	}
	return c, true
}

// OnChange registers fn to run after every committed mutation with the new snapshot.
// fn runs on the mutating goroutine and must not call mutating Store methods.
func (s *Store) OnChange(fn func(Session)) {
	if fn == nil {
		return
	}
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// commit replaces the in-memory session and notifies observers. Callers hold s.op.
func (s *Store) commit(next Session) {
	if next.Token == "" {
		next = loggedOut()
	}
	s.mu.Lock()
	prev := s.sess
	s.sess = next
	s.mu.Unlock()

	if prev == next {
		return
	}
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(next)
	}
}

func (s *Store) persist(ctx context.Context, tok, role string, status TenantStatus) {
	values := map[string]string{
		storage.KeyToken:        tok,
		storage.KeyTenantStatus: string(status),
	}
	if role != "" {
		values[storage.KeyRole] = role
	}
	if err := storage.SetAll(ctx, s.storage, values); err != nil {
		s.logger.Warn("session: persisting session failed", slog.Any("err", err))
	}
	if role == "" {
		if err := s.storage.Delete(ctx, storage.KeyRole); err != nil {
			s.logger.Warn("session: clearing role failed", slog.Any("err", err))
		}
	}
}

func (s *Store) write(ctx context.Context, key, value string) {
	if err := s.storage.Set(ctx, key, value); err != nil {
		s.logger.Warn("session: persisting key failed", slog.String("key", key), slog.Any("err", err))
	}
}

func (s *Store) read(ctx context.Context, key string) string {
	v, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("session: reading key failed", slog.String("key", key), slog.Any("err", err))
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// Bind subscribes the store to bus signals: session-expired marks the session expired,
// tenant-status-changed records the carried status and forced-logout logs out. The
// returned function removes the subscriptions.
func (s *Store) Bind(bus *signal.Bus) (unbind func()) {
	subs := []*signal.Subscription{
		bus.Subscribe(signal.SessionExpired, func(context.Context, signal.Signal) {
			s.MarkExpired()
		}),
		bus.Subscribe(signal.TenantStatusChanged, func(ctx context.Context, sig signal.Signal) {
			s.SetTenantStatus(ctx, ParseTenantStatus(sig.TenantStatus))
		}),
		bus.Subscribe(signal.ForcedLogout, func(ctx context.Context, sig signal.Signal) {
			s.logger.Info("session: forced logout", slog.String("reason", sig.Reason))
			s.Logout(ctx)
		}),
	}
	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}
