package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	mkclient "github.com/MrEthical07/mkclient"
)

const dateLayout = "2006-01-02"

func loginCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and keep the session for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "account email; defaults to the remembered one"},
			&cli.StringFlag{Name: "password", Usage: "password; prompted for when omitted", EnvVars: []string{"MK_PASSWORD"}},
			&cli.BoolFlag{Name: "remember", Usage: "remember the email for the next login"},
		},
		Action: func(c *cli.Context) error {
			client, _, err := e.open(c.Context, locationHome)
			if err != nil {
				return err
			}
			defer client.Close()
			prefs := client.Preferences()

			email := strings.TrimSpace(c.String("email"))
			if email == "" {
				remembered, ok := prefs.RememberedEmail(c.Context)
				if !ok {
					return errors.New("--email is required")
				}
				email = remembered
			}
			password := c.String("password")
			if password == "" {
				if password, err = readSecret(e, "Password: "); err != nil {
					return err
				}
			}

			s, err := client.Login(c.Context, email, password)
			if err != nil {
				if errors.Is(err, mkclient.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return explain(err)
			}

			if c.Bool("remember") {
				err = prefs.RememberEmail(c.Context, email)
			} else {
				err = prefs.ForgetEmail(c.Context)
			}
			if err != nil {
				e.logger.Warn("mkctl: saving the remembered email failed", "err", err)
			}

			fmt.Fprintf(e.out, "Logged in as %s (role %s)\n", email, s.Role)
			if s.Suspended() {
				fmt.Fprintln(e.errOut, suspendedBanner)
			}
			return nil
		},
	}
}

func logoutCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session",
		Action: func(c *cli.Context) error {
			client, _, err := e.open(c.Context, locationHome)
			if err != nil {
				return err
			}
			defer client.Close()
			client.Logout(c.Context)
			fmt.Fprintln(e.out, "Logged out")
			return nil
		},
	}
}

func whoamiCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the stored session and confirm it with the backend",
		Action: func(c *cli.Context) error {
			return e.withSession(c, locationHome, func(ctx context.Context, client *mkclient.Client) error {
				id, err := client.Identity(ctx)
				if err != nil {
					return err
				}
				s := client.Session()
				w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "state\t%s\n", client.State())
				fmt.Fprintf(w, "user\t%v\n", id.Subject)
				fmt.Fprintf(w, "tenant\t%v\n", id.TenantID)
				fmt.Fprintf(w, "role\t%s\n", s.Role)
				fmt.Fprintf(w, "tenant status\t%s\n", s.TenantStatus)
				if claims, ok := client.Claims(); ok && !claims.ExpiresAt.IsZero() {
					fmt.Fprintf(w, "expires\t%s\n", claims.ExpiresAt.Local().Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func registerCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create a tenant and its administrator account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Usage: "password; prompted for when omitted", EnvVars: []string{"MK_PASSWORD"}},
			&cli.StringFlag{Name: "name", Usage: "full name"},
		},
		Action: func(c *cli.Context) error {
			client, _, err := e.open(c.Context, locationHome)
			if err != nil {
				return err
			}
			defer client.Close()

			password := c.String("password")
			if password == "" {
				if password, err = readSecret(e, "Password: "); err != nil {
					return err
				}
			}
			err = client.Register(c.Context, mkclient.RegisterInput{
				Email:    c.String("email"),
				Password: password,
				FullName: c.String("name"),
			})
			switch {
			case errors.Is(err, mkclient.ErrIdentifierTaken):
				return errors.New("that email is already registered")
			case errors.Is(err, mkclient.ErrIdentifierInvalid), errors.Is(err, mkclient.ErrIdentifierRequired):
				return errors.New("enter a valid email address")
			case errors.Is(err, mkclient.ErrWeakSecret):
				return errors.New("the password must have at least 8 characters")
			case err != nil:
				return explain(err)
			}
			fmt.Fprintln(e.out, "Account created. Run `mkctl login` to sign in.")
			return nil
		},
	}
}

func devicesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List and register routers",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered routers",
				Action: func(c *cli.Context) error {
					return e.withSession(c, locationDevices, func(ctx context.Context, client *mkclient.Client) error {
						devices, err := client.Devices().List(ctx)
						if err != nil {
							return err
						}
						w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
						fmt.Fprintln(w, "ID\tNAME\tADDRESS\tLOCATION\tHEALTH\tCREATED")
						for _, d := range devices {
							fmt.Fprintf(w, "%d\t%s\t%s:%d\t%s\t%s\t%s\n",
								d.ID, d.Name, d.IPAddress, d.Port, d.Location, d.HealthStatus,
								d.CreatedAt.Local().Format("2006-01-02 15:04"))
						}
						return w.Flush()
					})
				},
			},
			{
				Name:  "add",
				Usage: "Register a router",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "ip", Required: true, Usage: "router address"},
					&cli.IntFlag{Name: "port", Value: 8728, Usage: "API port"},
					&cli.StringFlag{Name: "username", Usage: "router API user"},
					&cli.StringFlag{Name: "password", Usage: "router API password", EnvVars: []string{"MK_DEVICE_PASSWORD"}},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "wan-type"},
				},
				Action: func(c *cli.Context) error {
					return e.withSession(c, locationDevices, func(ctx context.Context, client *mkclient.Client) error {
						id, err := client.Devices().Create(ctx, mkclient.DeviceInput{
							Name:      c.String("name"),
							IPAddress: c.String("ip"),
							Port:      c.Int("port"),
							Username:  c.String("username"),
							Password:  c.String("password"),
							Location:  c.String("location"),
							WANType:   c.String("wan-type"),
						})
						if err != nil {
							return err
						}
						fmt.Fprintf(e.out, "Device %d registered\n", id)
						return nil
					})
				},
			},
		},
	}
}

func alertsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "Review and acknowledge alerts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List alerts, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "estado", Usage: "alert severity state"},
					&cli.Int64Flag{Name: "device", Usage: "device id"},
					&cli.StringFlag{Name: "status", Usage: "operational status: Pendiente, En curso or Resuelta"},
					&cli.TimestampFlag{Name: "from", Layout: dateLayout, Usage: "first day, YYYY-MM-DD"},
					&cli.TimestampFlag{Name: "to", Layout: dateLayout, Usage: "last day, YYYY-MM-DD"},
				},
				Action: func(c *cli.Context) error {
					f := mkclient.AlertFilter{
						Estado:            c.String("estado"),
						DeviceID:          c.Int64("device"),
						OperationalStatus: c.String("status"),
					}
					f.From, f.To = dayRange(c)
					return e.withSession(c, locationAlerts, func(ctx context.Context, client *mkclient.Client) error {
						alerts, err := client.Alerts().List(ctx, f)
						if err != nil {
							return err
						}
						w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
						fmt.Fprintln(w, "ID\tDEVICE\tESTADO\tSTATUS\tTITLE\tCREATED")
						for _, a := range alerts {
							fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
								a.ID, a.DeviceID, a.Estado, a.OperationalStatus, a.Title,
								a.CreatedAt.Local().Format("2006-01-02 15:04"))
						}
						return w.Flush()
					})
				},
			},
			{
				Name:      "ack",
				Usage:     "Move an alert to a new operational status",
				ArgsUsage: "<alert-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Value: mkclient.AlertInProgress, Usage: "Pendiente, En curso or Resuelta"},
					&cli.StringFlag{Name: "comment", Aliases: []string{"m"}},
				},
				Action: func(c *cli.Context) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					return e.withSession(c, locationAlerts, func(ctx context.Context, client *mkclient.Client) error {
						status, err := client.Alerts().UpdateStatus(ctx, id, mkclient.AlertStatusUpdate{
							Status:  c.String("status"),
							Comment: c.String("comment"),
						})
						if err != nil {
							return err
						}
						fmt.Fprintf(e.out, "Alert %d is now %s\n", id, status)
						return nil
					})
				},
			},
		},
	}
}

func logsCommand(e *env) *cli.Command {
	queryFlags := []cli.Flag{
		&cli.Int64Flag{Name: "device", Required: true, Usage: "device id"},
		&cli.IntFlag{Name: "limit", Usage: "5, 10 or 20 lines (any positive number for --pdf)"},
		&cli.TimestampFlag{Name: "from", Layout: dateLayout, Usage: "first day, YYYY-MM-DD"},
		&cli.TimestampFlag{Name: "to", Layout: dateLayout, Usage: "last day, YYYY-MM-DD"},
	}
	query := func(c *cli.Context) mkclient.LogQuery {
		q := mkclient.LogQuery{Limit: c.Int("limit")}
		q.From, q.To = dayRange(c)
		return q
	}

	return &cli.Command{
		Name:  "logs",
		Usage: "Read and export device logs",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the latest log lines of a device",
				Flags: queryFlags,
				Action: func(c *cli.Context) error {
					return e.withSession(c, locationLogs, func(ctx context.Context, client *mkclient.Client) error {
						entries, err := client.Logs().List(ctx, c.Int64("device"), query(c))
						if err != nil {
							return err
						}
						w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
						for _, l := range entries {
							fmt.Fprintf(w, "%s\t%s\t%s\n", l.DeviceTimestamp.Local().Format(time.DateTime), l.Level, l.RawLog)
						}
						return w.Flush()
					})
				},
			},
			{
				Name:  "export",
				Usage: "Export device logs to a CSV or PDF file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "csv", Usage: "write CSV to this file"},
					&cli.StringFlag{Name: "pdf", Usage: "write PDF to this file"},
				}, queryFlags...),
				Action: func(c *cli.Context) error {
					csvPath, pdfPath := c.String("csv"), c.String("pdf")
					if (csvPath == "") == (pdfPath == "") {
						return errors.New("exactly one of --csv or --pdf is required")
					}
					return e.withSession(c, locationLogs, func(ctx context.Context, client *mkclient.Client) error {
						if pdfPath != "" {
							doc, err := client.Logs().ExportPDF(ctx, c.Int64("device"), query(c))
							if err != nil {
								return err
							}
							if err := os.WriteFile(pdfPath, doc, 0o644); err != nil {
								return err
							}
							fmt.Fprintf(e.out, "Wrote %s\n", pdfPath)
							return nil
						}
						rows, err := client.Logs().ExportCSV(ctx, c.Int64("device"), query(c))
						if err != nil {
							return err
						}
						if err := writeCSV(csvPath, rows); err != nil {
							return err
						}
						fmt.Fprintf(e.out, "Wrote %d rows to %s\n", len(rows), csvPath)
						return nil
					})
				},
			},
		},
	}
}

func subscriptionCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "subscription",
		Usage: "Show the plan, device usage and payment status",
		Action: func(c *cli.Context) error {
			return e.withSession(c, locationSubscription, func(ctx context.Context, client *mkclient.Client) error {
				st, err := client.Subscription().Status(ctx)
				if err != nil {
					return err
				}
				limit := "unlimited"
				if st.MaxDevices > 0 {
					limit = strconv.Itoa(st.MaxDevices)
				}
				w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "plan\t%s\n", st.Plan)
				fmt.Fprintf(w, "devices\t%d / %s\n", st.Used, limit)
				if st.MaxDevices > 0 {
					fmt.Fprintf(w, "remaining\t%d\n", st.Remaining())
				}
				fmt.Fprintf(w, "payment\t%s\n", st.PaymentStatus)
				if err := w.Flush(); err != nil {
					return err
				}
				if st.Suspended {
					fmt.Fprintln(e.errOut, suspendedBanner)
				}
				return nil
			})
		},
	}
}

func themeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "theme",
		Usage: "Read or change the color theme preference",
		Subcommands: []*cli.Command{
			{
				Name: "get",
				Action: func(c *cli.Context) error {
					client, _, err := e.open(c.Context, locationHome)
					if err != nil {
						return err
					}
					defer client.Close()
					fmt.Fprintln(e.out, client.Preferences().Theme(c.Context))
					return nil
				},
			},
			{
				Name:      "set",
				ArgsUsage: "light|dark",
				Action: func(c *cli.Context) error {
					client, _, err := e.open(c.Context, locationHome)
					if err != nil {
						return err
					}
					defer client.Close()
					theme := mkclient.Theme(strings.ToLower(c.Args().First()))
					if err := client.Preferences().SetTheme(c.Context, theme); err != nil {
						return fmt.Errorf("theme must be %q or %q", mkclient.ThemeLight, mkclient.ThemeDark)
					}
					fmt.Fprintln(e.out, theme)
					return nil
				},
			},
		},
	}
}

// dayRange turns the --from and --to day flags into an inclusive time range.
func dayRange(c *cli.Context) (from, to time.Time) {
	if t := c.Timestamp("from"); t != nil {
		from = *t
	}
	if t := c.Timestamp("to"); t != nil {
		to = t.Add(24*time.Hour - time.Second)
	}
	return from, to
}

func idArg(c *cli.Context) (int64, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeCSV(path string, rows []mkclient.LogRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"timestamp_equipo", "device_id", "raw_log"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.DeviceTimestamp.Format(time.RFC3339),
			strconv.FormatInt(r.DeviceID, 10),
			r.RawLog,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
