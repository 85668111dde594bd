package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/the-lmc-group/trainflow/internal/app"
	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/buildinfo"
	"github.com/the-lmc-group/trainflow/internal/realtime"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		slog.Error("trainflow exited with error", "error", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	buildinfo.Fill()

	return &cli.App{
		Name:    "trainflow",
		Usage:   "live train positions from SIRI Estimated Timetable feeds",
		Version: fmt.Sprintf("%s (%s)", buildinfo.Version, buildinfo.ShortHash()),
		Flags:   configFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the refresh loop and the HTTP API",
				Flags:  configFlags(),
				Action: serveAction,
			},
			{
				Name:  "snapshot",
				Usage: "run one refresh cycle and print the live positions as JSON",
				Flags: append(configFlags(),
					&cli.BoolFlag{Name: "upcoming", Usage: "print upcoming departures instead of running trains"},
				),
				Action: snapshotAction,
			},
		},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file seeding the environment"},
		&cli.IntFlag{Name: "port", Usage: "HTTP listen port"},
		&cli.StringFlag{Name: "env", Usage: "development, test or production"},
		&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		&cli.StringFlag{Name: "api-keys", Usage: "comma separated API keys; empty leaves the API open"},
		&cli.StringFlag{Name: "exempt-api-keys", Usage: "comma separated keys exempt from rate limiting"},
		&cli.IntFlag{Name: "rate-limit", Usage: "requests per minute per client"},
		&cli.StringFlag{Name: "providers", Usage: "provider list (YAML or JSON)"},
		&cli.StringFlag{Name: "stations", Usage: "stations JSON dataset"},
		&cli.StringFlag{Name: "stations-db", Usage: "SQLite path for the station store"},
		&cli.StringFlag{Name: "rails", Usage: "rail segments dataset, optionally gzipped"},
		&cli.StringFlag{Name: "static-dir", Usage: "map viewer assets directory"},
		&cli.DurationFlag{Name: "refresh-interval", Usage: "time between refresh cycles"},
		&cli.DurationFlag{Name: "upcoming-horizon", Usage: "drop upcoming journeys starting later than this"},
		&cli.BoolFlag{Name: "merge-providers", Value: true, Usage: "publish journeys of every provider instead of the first one only"},
	}
}

// loadConfig layers the dotenv file, the environment and then any flag set
// on the command line.
func loadConfig(c *cli.Context) (appconf.Config, error) {
	if err := appconf.LoadDotEnv(c.String("env-file")); err != nil {
		return appconf.Config{}, err
	}
	cfg, err := appconf.FromEnv(os.LookupEnv)
	if err != nil {
		return appconf.Config{}, err
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("env") {
		cfg.Env = appconf.EnvironmentFromString(c.String("env"))
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	if c.IsSet("api-keys") {
		cfg.ApiKeys = ParseAPIKeys(c.String("api-keys"))
	}
	if c.IsSet("exempt-api-keys") {
		cfg.ExemptApiKeys = ParseAPIKeys(c.String("exempt-api-keys"))
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Int("rate-limit")
	}
	if c.IsSet("providers") {
		cfg.ProvidersPath = c.String("providers")
	}
	if c.IsSet("stations") {
		cfg.StationsPath = c.String("stations")
	}
	if c.IsSet("stations-db") {
		cfg.StationsDBPath = c.String("stations-db")
	}
	if c.IsSet("rails") {
		cfg.RailsPath = c.String("rails")
	}
	if c.IsSet("static-dir") {
		cfg.StaticDir = c.String("static-dir")
	}
	if c.IsSet("refresh-interval") {
		cfg.RefreshInterval = c.Duration("refresh-interval")
	}
	if c.IsSet("upcoming-horizon") {
		cfg.UpcomingHorizon = c.Duration("upcoming-horizon")
	}
	if c.IsSet("merge-providers") {
		cfg.MergeProviders = c.Bool("merge-providers")
	}

	return cfg, cfg.Validate()
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, api := CreateServer(coreApp, cfg)
	return Run(ctx, srv, coreApp, api)
}

func snapshotAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		return err
	}
	defer shutdownApplication(coreApp, nil)

	return writeSnapshot(c.Context, coreApp, c.Bool("upcoming"), c.App.Writer)
}

// writeSnapshot runs a single refresh cycle and encodes the resulting
// positions, or upcoming departures, to w.
func writeSnapshot(ctx context.Context, coreApp *app.Application, upcoming bool, w io.Writer) error {
	err := coreApp.Manager.RefreshOnce(ctx)
	if err != nil && !errors.Is(err, realtime.ErrRefreshInProgress) {
		return err
	}

	snapshot := coreApp.Snapshot()
	if snapshot == nil {
		return errors.New("no snapshot published")
	}

	now := coreApp.Clock.Now()
	var out any
	if upcoming {
		out = coreApp.Positioner.Upcoming(snapshot.Journeys, now, coreApp.Config.UpcomingHorizon)
	} else {
		out = coreApp.Positioner.Positions(snapshot.Journeys, now)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
