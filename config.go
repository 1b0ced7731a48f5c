package mkclient

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/mkclient/transport"
)

// Config defines every tunable of a [Client].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
	Signals   SignalsConfig   `yaml:"signals"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend.
type APIConfig struct {
	// BaseURL includes the API prefix, e.g. "https://noc.example.com/api".
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig tunes response classification. See [transport.Config].
type TransportConfig struct {
	RaceRetryDelay   time.Duration `yaml:"race_retry_delay"`
	DebounceWindow   time.Duration `yaml:"debounce_window"`
	AuthPaths        []string      `yaml:"auth_paths"`
	SubscriptionPath string        `yaml:"subscription_path"`
	UpsellTarget     string        `yaml:"upsell_target"`
	MaxErrorBody     int64         `yaml:"max_error_body"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Backend string `yaml:"backend"`

	// File backend.
	Path       string `yaml:"path"`
	Passphrase string `yaml:"passphrase"`

	// Redis backend.
	RedisAddr   string        `yaml:"redis_addr"`
	RedisPrefix string        `yaml:"redis_prefix"`
	Namespace   string        `yaml:"namespace"`
	TTL         time.Duration `yaml:"ttl"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes the session store.
type SessionConfig struct {
	// ExpiryLeeway is applied when checking a restored token's exp claim.
	ExpiryLeeway time.Duration `yaml:"expiry_leeway"`
	// VerifyOnInitialize calls the identity check after restoring a token.
	VerifyOnInitialize bool `yaml:"verify_on_initialize"`
}

// SignalsConfig controls asynchronous delivery of signals to a sink.
type SignalsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig configures the logger built when none is injected.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns a configuration that validates once API.BaseURL is set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	tc := transport.DefaultConfig()
	return Config{
		API: APIConfig{
			Timeout:   30 * time.Second,
			UserAgent: "mkclient/1",
		},
		Transport: TransportConfig{
			RaceRetryDelay:   tc.RaceRetryDelay,
			DebounceWindow:   tc.DebounceWindow,
			AuthPaths:        tc.AuthPaths,
			SubscriptionPath: tc.SubscriptionPath,
			UpsellTarget:     tc.UpsellTarget,
			MaxErrorBody:     tc.MaxErrorBody,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "mk",
			Namespace:   "default",
		},
		Session: SessionConfig{
			ExpiryLeeway: 0,
		},
		Signals: SignalsConfig{
			Enabled:    false,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Transport.AuthPaths = append([]string(nil), cfg.Transport.AuthPaths...)
	return out
}

func (c TransportConfig) classifier() transport.Config {
	return transport.Config{
		RaceRetryDelay:   c.RaceRetryDelay,
		DebounceWindow:   c.DebounceWindow,
		AuthPaths:        append([]string(nil), c.AuthPaths...),
		SubscriptionPath: c.SubscriptionPath,
		UpsellTarget:     c.UpsellTarget,
		MaxErrorBody:     c.MaxErrorBody,
	}
}

// Validate checks c and returns the first problem found.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Transport
	if c.Transport.RaceRetryDelay <= 0 {
		return errors.New("Transport RaceRetryDelay must be > 0")
	}
	if c.Transport.RaceRetryDelay > 5*time.Second {
		return errors.New("Transport RaceRetryDelay must be <= 5s")
	}
	if c.Transport.DebounceWindow < 0 {
		return errors.New("Transport DebounceWindow must be >= 0")
	}
	if len(c.Transport.AuthPaths) == 0 {
		return errors.New("Transport AuthPaths must not be empty")
	}
	for _, p := range c.Transport.AuthPaths {
		if strings.TrimSpace(p) == "" {
			return errors.New("Transport AuthPaths must not contain blank entries")
		}
	}
	if !strings.HasPrefix(c.Transport.SubscriptionPath, "/") {
		return errors.New("Transport SubscriptionPath must start with /")
	}
	if !strings.HasPrefix(c.Transport.UpsellTarget, "/") {
		return errors.New("Transport UpsellTarget must start with /")
	}
	if c.Transport.MaxErrorBody <= 0 {
		return errors.New("Transport MaxErrorBody must be > 0")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("Storage Path is required for the file backend")
		}
	case StorageRedis:
		if c.Storage.TTL < 0 {
			return errors.New("Storage TTL must be >= 0")
		}
	default:
		return fmt.Errorf("Storage Backend must be %q, %q or %q", StorageMemory, StorageFile, StorageRedis)
	}

	// Session
	if c.Session.ExpiryLeeway < 0 || c.Session.ExpiryLeeway > 2*time.Minute {
		return errors.New("Session ExpiryLeeway must be between 0 and 2m")
	}

	// Signals
	if c.Signals.Enabled && c.Signals.BufferSize <= 0 {
		return errors.New("Signals BufferSize must be > 0 when enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("Log Level must be debug, info, warn or error")
	}

	return nil
}

// LoadConfig reads a YAML file over the defaults and applies MK_* environment
// overrides. An empty path only applies the environment.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrConfigLoad, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("MK_API_URL", &cfg.API.BaseURL)
	str("MK_STORE", &cfg.Storage.Backend)
	str("MK_STORE_PATH", &cfg.Storage.Path)
	str("MK_STORE_PASSPHRASE", &cfg.Storage.Passphrase)
	str("MK_REDIS_ADDR", &cfg.Storage.RedisAddr)
	str("MK_REDIS_NAMESPACE", &cfg.Storage.Namespace)
	str("MK_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("MK_LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MK_LOG_JSON: %v", ErrConfigLoad, err)
		}
		cfg.Log.JSON = b
	}
	if v, ok := lookup("MK_API_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: MK_API_TIMEOUT: %v", ErrConfigLoad, err)
		}
		cfg.API.Timeout = d
	}
	return nil
}
