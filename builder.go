package mkclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/mkclient/api"
	"github.com/MrEthical07/mkclient/internal/logx"
	internalmetrics "github.com/MrEthical07/mkclient/internal/metrics"
	"github.com/MrEthical07/mkclient/middleware"
	"github.com/MrEthical07/mkclient/session"
	"github.com/MrEthical07/mkclient/signal"
	"github.com/MrEthical07/mkclient/storage"
	"github.com/MrEthical07/mkclient/transport"
)

// Builder assembles a [Client]. A Builder is single use.
type Builder struct {
	config Config

	storage    storage.Storage
	redis      redis.UniversalClient
	logger     *slog.Logger
	navigator  transport.Navigator
	httpClient *http.Client
	sink       signal.Sink
	clock      func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. The Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the session storage and takes precedence over Storage.Backend.
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis supplies the client used by the redis storage backend. The caller keeps
// ownership and closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger. Without one, a logger is built from Config.Log.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithNavigator sets where 402 responses navigate to. Defaults to an in-memory
// navigator at "/".
func (b *Builder) WithNavigator(n transport.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithHTTPClient sets the client whose Transport carries the requests. Its Transport
// is wrapped, not replaced; the client itself is not modified.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithSignalSink forwards every signal to sink through an asynchronous dispatcher.
// It enables Signals in the configuration.
func (b *Builder) WithSignalSink(sink signal.Sink) *Builder {
	b.sink = sink
	b.config.Signals.Enabled = true
	return b
}

// WithClock sets the time source of the session store and the classifier.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the client. It performs no network
// I/O; call [Client.Initialize] to restore the persisted session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logx.New(os.Stderr, logx.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		metrics: internalmetrics.New(internalmetrics.Config{Enabled: cfg.Metrics.Enabled, EnableLatency: cfg.Metrics.EnableLatencyHistograms}),
		bus:     signal.NewBus(signal.WithLogger(logger), signal.WithClock(now)),
	}

	// -------- STORAGE --------
	st, err := b.buildStorage(c, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.storage = &countingStorage{inner: st, metrics: c.metrics}
	c.prefs = storage.NewPreferences(c.storage)

	// -------- HTTP STACK --------
	var base http.RoundTripper
	timeout := cfg.API.Timeout
	if b.httpClient != nil {
		base = b.httpClient.Transport
		if b.httpClient.Timeout > 0 {
			timeout = b.httpClient.Timeout
		}
	}
	chain := middleware.Chain(base,
		middleware.RequestID(),
		middleware.UserAgent(cfg.API.UserAgent),
		latency(c.metrics),
		middleware.Logging(logger),
	)

	// The session store and the classifier reference each other through the
	// authenticator, so the api client is created against a late-bound transport.
	httpClient := &http.Client{Timeout: timeout}
	apiClient, err := api.New(cfg.API.BaseURL, httpClient)
	if err != nil {
		return nil, err
	}
	c.api = apiClient

	c.store = session.NewStore(c.storage, apiClient.Auth(),
		session.WithLogger(logger),
		session.WithClock(now),
		session.WithExpiryLeeway(cfg.Session.ExpiryLeeway),
	)

	c.navigator = b.navigator
	if c.navigator == nil {
		c.navigator = transport.NewMemoryNavigator("/")
	}
	c.transport = transport.New(chain, c.store, c.bus,
		transport.WithConfig(cfg.Transport.classifier()),
		transport.WithNavigator(c.navigator),
		transport.WithObserver(metricsObserver{m: c.metrics}),
		transport.WithLogger(logger),
		transport.WithClock(now),
	)
	httpClient.Transport = c.transport

	// -------- SIGNALS --------
	c.unbind = c.store.Bind(c.bus)
	c.store.OnChange(c.trackSuspension)
	c.dispatcher = signal.NewDispatcher(signal.DispatcherConfig{
		Enabled:    cfg.Signals.Enabled,
		BufferSize: cfg.Signals.BufferSize,
		DropIfFull: cfg.Signals.DropIfFull,
	}, b.sink)
	c.dispatcher.Attach(c.bus)

	b.built = true
	return c, nil
}

func (b *Builder) buildStorage(c *Client, cfg Config, logger *slog.Logger) (storage.Storage, error) {
	if b.storage != nil {
		return b.storage, nil
	}
	switch cfg.Storage.Backend {
	case StorageFile:
		opts := []storage.FileOption{storage.WithFileLogger(logger)}
		if cfg.Storage.Passphrase != "" {
			opts = append(opts, storage.WithPassphrase(cfg.Storage.Passphrase))
		}
		f, err := storage.NewFile(cfg.Storage.Path, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
		return f, nil
	case StorageRedis:
		client := b.redis
		if client == nil {
			if cfg.Storage.RedisAddr == "" {
				return nil, fmt.Errorf("%w: redis backend needs WithRedis or Storage.RedisAddr", ErrStorageInit)
			}
			owned := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
			c.closers = append(c.closers, owned.Close)
			client = owned
		}
		return storage.NewRedis(client, cfg.Storage.RedisPrefix, cfg.Storage.Namespace, cfg.Storage.TTL), nil
	default:
		return storage.NewMemory(nil), nil
	}
}
