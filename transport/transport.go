package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/mkclient/signal"
)

// SessionView is the read side of the session store used at send and classify time.
type SessionView interface {
	Token() string
	AuthReady() bool
}

// Config holds the classifier constants.
type Config struct {
	// RaceRetryDelay is how long a startup-race 401 waits before its single retry.
	RaceRetryDelay time.Duration
	// DebounceWindow collapses repeated signals with the same key.
	DebounceWindow time.Duration
	// AuthPaths are path fragments of the credential endpoints; a 401 there is expected.
	AuthPaths []string
	// SubscriptionPath is the subscription surface location.
	SubscriptionPath string
	// UpsellTarget is where a 402 navigates.
	UpsellTarget string
	// MaxErrorBody bounds how much of an error body is read for classification.
	MaxErrorBody int64
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		RaceRetryDelay:   120 * time.Millisecond,
		DebounceWindow:   500 * time.Millisecond,
		AuthPaths:        []string{"/auth/login", "/auth/register"},
		SubscriptionPath: "/subscription",
		UpsellTarget:     "/subscription?upsell=1",
		MaxErrorBody:     64 << 10,
	}
}

// Debounce keys.
const (
	keyExpired        = "401-expired"
	keyExpiredDefault = "401-default"
	keyPayment        = "402"
)

var expiredMessage = regexp.MustCompile(`(?i)token (expired|expirado)`)

// Option customizes a Transport.
type Option func(*Transport)

// WithConfig replaces the classifier constants. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(t *Transport) {
		def := DefaultConfig()
		if cfg.RaceRetryDelay <= 0 {
			cfg.RaceRetryDelay = def.RaceRetryDelay
		}
		if cfg.DebounceWindow <= 0 {
			cfg.DebounceWindow = def.DebounceWindow
		}
		if len(cfg.AuthPaths) == 0 {
			cfg.AuthPaths = def.AuthPaths
		}
		if cfg.SubscriptionPath == "" {
			cfg.SubscriptionPath = def.SubscriptionPath
		}
		if cfg.UpsellTarget == "" {
			cfg.UpsellTarget = def.UpsellTarget
		}
		if cfg.MaxErrorBody <= 0 {
			cfg.MaxErrorBody = def.MaxErrorBody
		}
		t.cfg = cfg
	}
}

// WithNavigator sets the navigator used for 402 redirects.
func WithNavigator(n Navigator) Option {
	return func(t *Transport) {
		if n != nil {
			t.nav = n
		}
	}
}

// WithObserver sets the classification observer.
func WithObserver(o Observer) Option {
	return func(t *Transport) {
		if o != nil {
			t.obs = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock sets the clock used by the debouncer.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// Transport injects the bearer token and classifies error responses.
type Transport struct {
	base    http.RoundTripper
	session SessionView
	bus     *signal.Bus
	nav     Navigator
	obs     Observer
	logger  *slog.Logger
	now     func() time.Time
	cfg     Config

	debounce *Debouncer
}

// New wraps base, or http.DefaultTransport when base is nil.
func New(base http.RoundTripper, session SessionView, bus *signal.Bus, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:    base,
		session: session,
		bus:     bus,
		nav:     NewMemoryNavigator("/"),
		obs:     noopObserver{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.debounce = NewDebouncer(t.cfg.DebounceWindow, t.now)
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	getBody, err := bodySource(req)
	if err != nil {
		return nil, err
	}
	return t.send(req, getBody)
}

func (t *Transport) send(req *http.Request, getBody func() (io.ReadCloser, error)) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := req.Clone(ctx)
	out.Body = nil
	out.GetBody = getBody
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	if tok := t.session.Token(); tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		resp.Body.Close()
		return nil, ctxErr
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	return t.classify(req, getBody, resp)
}

func (t *Transport) classify(req *http.Request, getBody func() (io.ReadCloser, error), resp *http.Response) (*http.Response, error) {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return t.unauthorized(req, getBody, resp)
	case http.StatusPaymentRequired:
		t.paymentRequired(req.Context())
	case http.StatusForbidden, http.StatusLocked:
		if b, ok := DecodeErrorBody(peekBody(resp, t.cfg.MaxErrorBody)).(TenantStatusBody); ok {
			t.emit(req.Context(), strconv.Itoa(resp.StatusCode), signal.TenantStatus(b.Status))
		}
	}
	return resp, nil
}

func (t *Transport) unauthorized(req *http.Request, getBody func() (io.ReadCloser, error), resp *http.Response) (*http.Response, error) {
	ctx := req.Context()

	switch b := DecodeErrorBody(peekBody(resp, t.cfg.MaxErrorBody)).(type) {
	case ReasonBody:
		if b.Reason == signal.ReasonExpired || expiredMessage.MatchString(b.Message) {
			t.emit(ctx, keyExpired, signal.Expired(signal.ReasonExpired))
			return resp, nil
		}
	case EmptyBody, TenantStatusBody, UnrecognizedBody:
	}

	if t.isAuthPath(req) || t.session.Token() == "" {
		return resp, nil
	}

	attempt := AttemptFrom(ctx)
	if !t.session.AuthReady() && attempt == 0 {
		return t.retry(req, getBody, resp, attempt+1)
	}

	t.emit(ctx, keyExpiredDefault, signal.Expired(""))
	return resp, nil
}

// retry resends req once after the race delay. The retried response is classified on
// its own, with the attempt counter preventing a second retry.
func (t *Transport) retry(req *http.Request, getBody func() (io.ReadCloser, error), first *http.Response, attempt int) (*http.Response, error) {
	ctx := req.Context()
	timer := time.NewTimer(t.cfg.RaceRetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		first.Body.Close()
		return nil, ctx.Err()
	case <-timer.C:
	}

	io.Copy(io.Discard, first.Body)
	first.Body.Close()

	t.obs.Retried()
	t.logger.Debug("transport: retrying request that raced session initialization",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)
	return t.send(req.WithContext(WithAttempt(ctx, attempt)), getBody)
}

func (t *Transport) paymentRequired(ctx context.Context) {
	if !t.debounce.Allow(keyPayment) {
		t.obs.Suppressed(signal.SubscriptionUpsell)
		return
	}
	if locationPath(t.nav.Location()) != t.cfg.SubscriptionPath {
		t.nav.Navigate(t.cfg.UpsellTarget)
		t.obs.Navigated()
		return
	}
	t.publish(ctx, signal.Upsell())
}

func (t *Transport) emit(ctx context.Context, key string, sig signal.Signal) {
	if !t.debounce.Allow(key) {
		t.obs.Suppressed(sig.Kind)
		return
	}
	t.publish(ctx, sig)
}

func (t *Transport) publish(ctx context.Context, sig signal.Signal) {
	t.obs.Classified(sig.Kind)
	t.logger.Debug("transport: classified response", slog.String("signal", string(sig.Kind)))
	if t.bus != nil {
		t.bus.Publish(context.WithoutCancel(ctx), sig)
	}
}

func (t *Transport) isAuthPath(req *http.Request) bool {
	for _, p := range t.cfg.AuthPaths {
		if strings.Contains(req.URL.Path, p) {
			return true
		}
	}
	return false
}

// bodySource returns a function producing fresh copies of req's body, buffering the
// body when the request cannot rewind it. It returns nil for bodiless requests.
func bodySource(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}
