package mkclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/mkclient/api"
	internalmetrics "github.com/MrEthical07/mkclient/internal/metrics"
	"github.com/MrEthical07/mkclient/session"
	"github.com/MrEthical07/mkclient/signal"
	"github.com/MrEthical07/mkclient/storage"
	"github.com/MrEthical07/mkclient/transport"
)

// Client is a monitoring API client whose session follows the backend's responses.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	storage    storage.Storage
	prefs      *storage.Preferences
	bus        *signal.Bus
	store      *session.Store
	transport  *transport.Transport
	navigator  transport.Navigator
	api        *api.Client
	metrics    *internalmetrics.Metrics
	dispatcher *signal.Dispatcher

	unbind    func()
	closers   []func() error
	closeOnce sync.Once
	closed    atomic.Bool
	suspended atomic.Bool
}

// Initialize migrates legacy storage keys, restores the persisted session and marks it
// ready. With Session.VerifyOnInitialize a restored, unexpired token is confirmed with
// the backend; a rejection surfaces through the classifier as a session-expired signal.
func (c *Client) Initialize(ctx context.Context) Session {
	if migrated, err := storage.MigrateLegacyToken(ctx, c.storage); err != nil {
		c.logger.Warn("mkclient: legacy key migration failed", slog.Any("err", err))
	} else if migrated {
		c.metrics.Inc(internalmetrics.MetricTokenMigrated)
	}

	s := c.store.Initialize(ctx)
	if c.cfg.Session.VerifyOnInitialize && s.Token != "" && !s.Expired {
		c.Verify(ctx)
		s = c.store.Snapshot()
	}
	return s
}

// Login exchanges credentials for a session. On failure the current session is left
// as it was and the error matches one of the backend error classes.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	if c.closed.Load() {
		return Session{}, ErrClosed
	}
	if _, err := c.store.Login(ctx, email, password); err != nil {
		if errors.Is(err, api.ErrRateLimited) {
			c.metrics.Inc(internalmetrics.MetricLoginRateLimited)
		}
		c.metrics.Inc(internalmetrics.MetricLoginFailure)
		return c.store.Snapshot(), err
	}
	c.metrics.Inc(internalmetrics.MetricLoginSuccess)
	return c.store.Snapshot(), nil
}

// Logout drops the session from memory and storage.
func (c *Client) Logout(ctx context.Context) {
	c.store.Logout(ctx)
	c.metrics.Inc(internalmetrics.MetricLogout)
}

// Register creates a tenant and its administrator. It does not log in.
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.api.Auth().Register(ctx, in); err != nil {
		c.metrics.Inc(internalmetrics.MetricRegisterFailure)
		return err
	}
	c.metrics.Inc(internalmetrics.MetricRegisterSuccess)
	return nil
}

// Verify asks the backend whether the session is still valid. It never modifies the
// session itself.
func (c *Client) Verify(ctx context.Context) bool {
	ok := c.store.Verify(ctx)
	if ok {
		c.metrics.Inc(internalmetrics.MetricVerifySuccess)
	} else {
		c.metrics.Inc(internalmetrics.MetricVerifyFailure)
	}
	return ok
}

// Session returns a snapshot of the current session.
func (c *Client) Session() Session {
	return c.store.Snapshot()
}

// State returns the lifecycle state of the current session.
func (c *Client) State() SessionState {
	return c.store.State()
}

// Claims returns the unverified claims of the current token.
func (c *Client) Claims() (Claims, bool) {
	return c.store.Claims()
}

// OnSessionChange registers fn to run after every session change.
func (c *Client) OnSessionChange(fn func(Session)) {
	c.store.OnChange(fn)
}

// Subscribe registers fn for signals of kind.
func (c *Client) Subscribe(kind SignalKind, fn func(context.Context, Signal)) *signal.Subscription {
	return c.bus.Subscribe(kind, fn)
}

// SubscribeAll registers fn for every signal.
func (c *Client) SubscribeAll(fn func(context.Context, Signal)) *signal.Subscription {
	return c.bus.SubscribeAll(fn)
}

// ForceLogout publishes a forced-logout signal. Every subscriber, including the
// session, drops the session.
func (c *Client) ForceLogout(ctx context.Context, reason string) {
	c.metrics.Inc(internalmetrics.MetricSignalForcedLogout)
	c.bus.Publish(ctx, signal.Logout(reason))
}

// Navigator returns the navigator driven by 402 responses.
func (c *Client) Navigator() transport.Navigator {
	return c.navigator
}

// Preferences returns the theme and remembered-email preferences.
func (c *Client) Preferences() *storage.Preferences {
	return c.prefs
}

// Devices returns the device resource.
func (c *Client) Devices() *Devices {
	return &Devices{c: c, api: c.api.Devices()}
}

// Alerts returns the alert resource.
func (c *Client) Alerts() *Alerts {
	return &Alerts{c: c, api: c.api.Alerts()}
}

// Logs returns the device log resource.
func (c *Client) Logs() *api.Logs {
	return c.api.Logs()
}

// Subscription returns the subscription resource.
func (c *Client) Subscription() *api.Subscription {
	return c.api.Subscription()
}

// Identity calls the identity-check endpoint.
func (c *Client) Identity(ctx context.Context) (api.Identity, error) {
	return c.api.Auth().Me(ctx)
}

// MetricsSnapshot returns the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// SignalsDropped returns how many signals the sink dispatcher dropped.
func (c *Client) SignalsDropped() uint64 {
	return c.dispatcher.Dropped()
}

// Close detaches the session from the signal bus, drains the sink dispatcher and
// closes connections the client opened itself. It is idempotent.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.unbind != nil {
			c.unbind()
		}
		c.dispatcher.Close()
		for _, fn := range c.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// guardWrite refuses writes while the tenant is suspended.
func (c *Client) guardWrite() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.store.Snapshot().Suspended() {
		return ErrTenantSuspendedLocal
	}
	return nil
}

func (c *Client) trackSuspension(s Session) {
	now := s.Token != "" && s.Suspended()
	if was := c.suspended.Swap(now); !was && now {
		c.metrics.Inc(internalmetrics.MetricTenantSuspended)
		c.logger.Warn("mkclient: tenant suspended", slog.String("tenant_status", string(s.TenantStatus)))
	}
}

// Devices is the device resource. Create is refused locally while the tenant is
// suspended.
type Devices struct {
	c   *Client
	api *api.Devices
}

// List returns the tenant's devices.
func (d *Devices) List(ctx context.Context) ([]Device, error) {
	return d.api.List(ctx)
}

// Create registers a device and returns its id.
func (d *Devices) Create(ctx context.Context, in DeviceInput) (int64, error) {
	if err := d.c.guardWrite(); err != nil {
		return 0, err
	}
	return d.api.Create(ctx, in)
}

// Alerts is the alert resource. UpdateStatus is refused locally while the tenant is
// suspended.
type Alerts struct {
	c   *Client
	api *api.Alerts
}

// List returns alerts matching f.
func (a *Alerts) List(ctx context.Context, f AlertFilter) ([]Alert, error) {
	return a.api.List(ctx, f)
}

// UpdateStatus moves alert id to a new operational state.
func (a *Alerts) UpdateStatus(ctx context.Context, id int64, u AlertStatusUpdate) (string, error) {
	if err := a.c.guardWrite(); err != nil {
		return "", err
	}
	return a.api.UpdateStatus(ctx, id, u)
}
