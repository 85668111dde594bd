package app

import (
	"log/slog"

	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/network"
	"github.com/the-lmc-group/trainflow/internal/position"
	"github.com/the-lmc-group/trainflow/internal/realtime"
	"github.com/the-lmc-group/trainflow/stationdb"
)

// Application holds the dependencies shared by the HTTP handlers, the debug
// pages and the refresh loop. The Manager is the only writer of Store.
type Application struct {
	Config     appconf.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Providers  []realtime.Provider
	Store      *realtime.Store
	Manager    *realtime.Manager
	Positioner *position.Positioner
	Stations   *network.Stations
	Rails      *network.RailNetwork
	StationDB  *stationdb.Client
}

// Snapshot is the current live generation, or nil before the first
// successful refresh.
func (app *Application) Snapshot() *realtime.Snapshot {
	if app == nil || app.Store == nil {
		return nil
	}
	return app.Store.Latest()
}
