package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/urfave/cli/v2"

	mkclient "github.com/MrEthical07/mkclient"
	"github.com/MrEthical07/mkclient/internal/logx"
)

// env carries the process streams and the resolved configuration into commands.
type env struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg    mkclient.Config
	logger *slog.Logger
}

// Surface locations reported to the client. A 402 only navigates away from anything
// other than the subscription surface.
const (
	locationHome         = "/"
	locationDevices      = "/devices"
	locationAlerts       = "/alerts"
	locationLogs         = "/logs"
	locationSubscription = "/subscription"
)

const (
	reloginNotice   = "Your session has expired. Run `mkctl login` to sign in again."
	suspendedBanner = "Tenant suspended: read-only mode until the subscription is paid. Run `mkctl subscription` for details."
	upsellNotice    = "Device limit reached for the current plan. Run `mkctl subscription` to review upgrade options."
)

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:      "mkctl",
		Usage:     "Manage monitored routers, alerts and logs from the terminal",
		Version:   version,
		Reader:    e.in,
		Writer:    e.out,
		ErrWriter: e.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"MK_CONFIG"}},
			&cli.StringFlag{Name: "api-url", Usage: "backend base URL including the /api prefix"},
			&cli.StringFlag{Name: "store", Usage: "session storage: file, redis or memory"},
			&cli.StringFlag{Name: "store-path", Usage: "file storage path"},
			&cli.StringFlag{Name: "redis-addr", Usage: "redis address for the redis storage"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "log-json", Usage: "log as JSON"},
		},
		Before: e.setup,
		Commands: []*cli.Command{
			loginCommand(e),
			logoutCommand(e),
			whoamiCommand(e),
			registerCommand(e),
			devicesCommand(e),
			alertsCommand(e),
			logsCommand(e),
			subscriptionCommand(e),
			themeCommand(e),
		},
	}
}

// setup resolves the configuration: defaults, then the YAML file, then MK_* variables,
// then flags.
func (e *env) setup(c *cli.Context) error {
	cfg, err := mkclient.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("api-url") {
		cfg.API.BaseURL = c.String("api-url")
	}
	if c.IsSet("store") {
		cfg.Storage.Backend = c.String("store")
	}
	if c.IsSet("store-path") {
		cfg.Storage.Path = c.String("store-path")
	}
	if c.IsSet("redis-addr") {
		cfg.Storage.RedisAddr = c.String("redis-addr")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-json") {
		cfg.Log.JSON = c.Bool("log-json")
	}

	// A memory store forgets the session when the process exits.
	if cfg.Storage.Backend == mkclient.StorageMemory && !c.IsSet("store") {
		cfg.Storage.Backend = mkclient.StorageFile
	}
	if cfg.Storage.Backend == mkclient.StorageFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStorePath()
	}

	e.cfg = cfg
	e.logger = logx.New(e.errOut, logx.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Color: true})
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mkctl", "session.json")
}

// open builds a client positioned at location and restores the stored session.
// Session notices are printed as the corresponding signals arrive.
func (e *env) open(ctx context.Context, location string) (*mkclient.Client, *terminalNavigator, error) {
	nav := &terminalNavigator{location: location, out: e.errOut}
	client, err := mkclient.New().
		WithConfig(e.cfg).
		WithLogger(e.logger).
		WithNavigator(nav).
		Build()
	if err != nil {
		return nil, nil, err
	}

	client.Subscribe(mkclient.SignalSessionExpired, func(context.Context, mkclient.Signal) {
		fmt.Fprintln(e.errOut, reloginNotice)
	})
	client.Subscribe(mkclient.SignalSubscriptionUpsell, func(context.Context, mkclient.Signal) {
		fmt.Fprintln(e.errOut, upsellNotice)
	})
	client.Subscribe(mkclient.SignalTenantStatusChanged, func(_ context.Context, sig mkclient.Signal) {
		if mkclient.ParseTenantStatus(sig.TenantStatus) == mkclient.TenantSuspended {
			fmt.Fprintln(e.errOut, suspendedBanner)
		}
	})

	client.Initialize(ctx)
	return client, nav, nil
}

// withSession opens a client and runs fn when a session is held. An expired session
// prints the re-login prompt instead.
func (e *env) withSession(c *cli.Context, location string, fn func(context.Context, *mkclient.Client) error) error {
	client, _, err := e.open(c.Context, location)
	if err != nil {
		return err
	}
	defer client.Close()

	switch client.State() {
	case mkclient.StateUnauthenticated:
		return errors.New("not logged in: run `mkctl login`")
	case mkclient.StateExpired:
		fmt.Fprintln(e.errOut, reloginNotice)
		return errSessionExpired
	}
	if client.Session().Suspended() {
		fmt.Fprintln(e.errOut, suspendedBanner)
	}
	return explain(fn(c.Context, client))
}

var errSessionExpired = errors.New("session expired")

// explain rewrites backend failures into messages an operator can act on.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *mkclient.APIError
	switch {
	case errors.Is(err, mkclient.ErrTenantSuspendedLocal):
		return errors.New("refused: the tenant is suspended and only read-only commands are available")
	case errors.Is(err, mkclient.ErrUpsellRequired):
		if errors.As(err, &apiErr) && apiErr.RequiredPlanHint != "" {
			return fmt.Errorf("plan limit reached: %s", apiErr.RequiredPlanHint)
		}
		return errors.New("plan limit reached")
	case errors.Is(err, mkclient.ErrTenantSuspended):
		return errors.New("refused: the tenant is suspended")
	case errors.Is(err, mkclient.ErrUnauthorized):
		return errSessionExpired
	case errors.Is(err, mkclient.ErrRateLimited):
		return errors.New("too many failed attempts: wait a few minutes before trying again")
	}
	return err
}

// terminalNavigator tracks the command's surface and reports redirects on the
// terminal.
type terminalNavigator struct {
	mu       sync.Mutex
	location string
	out      io.Writer
}

func (n *terminalNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *terminalNavigator) Navigate(target string) {
	n.mu.Lock()
	n.location = target
	n.mu.Unlock()
	fmt.Fprintln(n.out, upsellNotice)
}
