package mkclient

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "https://noc.example.com/api"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with base url",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "missing base url",
			mutate: func(c *Config) {
				c.API.BaseURL = ""
			},
			wantValid: false,
		},
		{
			name: "relative base url",
			mutate: func(c *Config) {
				c.API.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "race retry delay zero",
			mutate: func(c *Config) {
				c.Transport.RaceRetryDelay = 0
			},
			wantValid: false,
		},
		{
			name: "race retry delay too long",
			mutate: func(c *Config) {
				c.Transport.RaceRetryDelay = 6 * time.Second
			},
			wantValid: false,
		},
		{
			name: "debounce disabled",
			mutate: func(c *Config) {
				c.Transport.DebounceWindow = 0
			},
			wantValid: true,
		},
		{
			name: "blank auth path",
			mutate: func(c *Config) {
				c.Transport.AuthPaths = []string{"/auth/login", " "}
			},
			wantValid: false,
		},
		{
			name: "upsell target not absolute",
			mutate: func(c *Config) {
				c.Transport.UpsellTarget = "subscription"
			},
			wantValid: false,
		},
		{
			name: "file backend without path",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageFile
			},
			wantValid: false,
		},
		{
			name: "file backend with path",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageFile
				c.Storage.Path = "/tmp/session.json"
			},
			wantValid: true,
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Storage.Backend = "sqlite"
			},
			wantValid: false,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.Session.ExpiryLeeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "signals enabled without buffer",
			mutate: func(c *Config) {
				c.Signals.Enabled = true
				c.Signals.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "unknown log level",
			mutate: func(c *Config) {
				c.Log.Level = "verbose"
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesAuthPaths(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)
	clone.Transport.AuthPaths[0] = "/changed"
	if cfg.Transport.AuthPaths[0] == "/changed" {
		t.Fatal("clone must not share AuthPaths")
	}
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mk.yaml")
	yaml := `
api:
  base_url: https://noc.example.com/api
  timeout: 5s
transport:
  race_retry_delay: 50ms
storage:
  backend: file
  path: /var/lib/mk/session.json
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MK_LOG_JSON", "true")
	t.Setenv("MK_STORE_PATH", "/tmp/override.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Timeout != 5*time.Second || cfg.Transport.RaceRetryDelay != 50*time.Millisecond {
		t.Fatalf("durations not decoded: %+v %+v", cfg.API, cfg.Transport)
	}
	if cfg.Transport.DebounceWindow != 500*time.Millisecond {
		t.Fatalf("defaults must survive partial files, got %v", cfg.Transport.DebounceWindow)
	}
	if cfg.Storage.Path != "/tmp/override.json" || !cfg.Log.JSON || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected merged config %+v %+v", cfg.Storage, cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad for missing file, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("api: [unclosed"), 0o600)
	if _, err := LoadConfig(path); !errors.Is(err, ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad for bad yaml, got %v", err)
	}

	env := map[string]string{"MK_LOG_JSON": "maybe"}
	cfg := defaultConfig()
	err := applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if !errors.Is(err, ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad for bad bool, got %v", err)
	}
}
