package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/the-lmc-group/trainflow/internal/app"
	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/logging"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/network"
	"github.com/the-lmc-group/trainflow/internal/position"
	"github.com/the-lmc-group/trainflow/internal/realtime"
	"github.com/the-lmc-group/trainflow/internal/restapi"
	"github.com/the-lmc-group/trainflow/internal/webui"
	"github.com/the-lmc-group/trainflow/stationdb"
)

const (
	dbStatsInterval = 15 * time.Second
	shutdownTimeout = 30 * time.Second
	// feedTimeZone interprets TRAINFLOW_FAKE_NOW values written without offset.
	feedTimeZone = "Europe/Paris"
)

// ParseAPIKeys splits a comma separated key list. Empty entries are kept so
// that a malformed list is visible in the configuration.
func ParseAPIKeys(apiKeysFlag string) []string {
	return appconf.ParseList(apiKeysFlag)
}

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logging.NewStructuredLogger(os.Stdout, level, cfg.Env == appconf.Production)
}

func newClock(cfg appconf.Config, logger *slog.Logger) clock.Clock {
	loc, err := time.LoadLocation(feedTimeZone)
	if err != nil {
		logger.Warn("time zone data unavailable, replay times need an offset", slog.String("zone", feedTimeZone))
	}
	c, err := clock.FromEnv(cfg.FakeNowEnvVar, loc)
	if err != nil {
		logging.LogError(logger, "ignoring replay clock override", err)
	}
	if _, replay := c.(*clock.ReplayClock); replay {
		logger.Warn("replay clock active", slog.Time("now", c.Now()))
	}
	return c
}

// BuildApplication loads every dataset named by cfg and wires the refresh
// manager. The manager is not started.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	c := newClock(cfg, logger)
	m := metrics.NewWithLogger(logger)

	stationDB, err := stationdb.NewClient(stationdb.NewConfig(cfg.StationsDBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open station database: %w", err)
	}

	ctx := context.Background()
	if err := stationDB.ImportFromFile(ctx, cfg.StationsPath); err != nil {
		logging.SafeCloseWithLogging(stationDB, logger, "station database")
		return nil, fmt.Errorf("failed to import stations: %w", err)
	}
	stationList, err := stationDB.Stations(ctx)
	if err != nil {
		logging.SafeCloseWithLogging(stationDB, logger, "station database")
		return nil, fmt.Errorf("failed to read stations: %w", err)
	}
	stations := network.NewStations(stationList)

	providers, err := realtime.LoadProviders(cfg.ProvidersPath, os.LookupEnv)
	if err != nil {
		logging.SafeCloseWithLogging(stationDB, logger, "station database")
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	// The rail dataset is loaded eagerly so an unreadable file disables
	// snapping at startup instead of on the first read.
	rails := network.NewRailNetwork(cfg.RailsPath, logger)
	var snapper position.Snapper
	if err := rails.LoadError(); err != nil {
		logging.LogError(logger, "rail network unavailable, snapping disabled", err,
			slog.String("path", cfg.RailsPath))
		rails = nil
	} else {
		snapper = rails
	}

	store := realtime.NewStore()
	fetcher := realtime.NewFetcher(cfg.FetchTimeout, cfg.FetchRetries, m, logger)
	manager := realtime.NewManager(realtime.ManagerConfig{
		Providers:       providers,
		RefreshInterval: cfg.RefreshInterval,
		CycleTimeout:    cfg.CycleTimeout,
		UpcomingHorizon: cfg.UpcomingHorizon,
		MergeProviders:  cfg.MergeProviders,
	}, fetcher, store, c, m, logger)

	m.StartDBStatsCollector(stationDB.DB, dbStatsInterval)

	logging.LogOperation(logger, "application_built",
		slog.Int("stations", stations.Len()),
		slog.Duration("station_import", stationDB.ImportRuntime()),
		slog.Int("providers", len(realtime.EnabledProviders(providers))),
		slog.Bool("snapping", snapper != nil),
		slog.String("env", cfg.Env.String()))

	return &app.Application{
		Config:     cfg,
		Logger:     logger,
		Clock:      c,
		Metrics:    m,
		Providers:  providers,
		Store:      store,
		Manager:    manager,
		Positioner: position.NewPositioner(stations, snapper, cfg.SnapTolerance, m, logger),
		Stations:   stations,
		Rails:      rails,
		StationDB:  stationDB,
	}, nil
}

// CreateServer builds the HTTP server serving the API and the web UI.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := webui.NewWebUI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      restapi.WithMiddleware(mux, coreApp.Logger, coreApp.Metrics),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run starts the refresh loop and serves until ctx is cancelled, then shuts
// everything down in reverse order.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	defer shutdownApplication(coreApp, api)

	if err := coreApp.Manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start refresh manager: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logging.LogOperation(logger, "server_stopped")
	return nil
}

func shutdownApplication(coreApp *app.Application, api *restapi.RestAPI) {
	if api != nil {
		api.Shutdown()
	}
	if coreApp.Manager != nil {
		coreApp.Manager.Shutdown()
	}
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	if coreApp.StationDB != nil {
		logging.SafeCloseWithLogging(coreApp.StationDB, coreApp.Logger, "station database")
	}
}
