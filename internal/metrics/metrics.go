// Package metrics provides the Prometheus instrumentation for trainflow.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors of the process on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Refresh loop
	RefreshCyclesTotal    *prometheus.CounterVec
	RefreshDuration       prometheus.Histogram
	RefreshSkippedTotal   prometheus.Counter
	LastSuccessfulRefresh prometheus.Gauge
	LiveJourneys          prometheus.Gauge
	ProviderFetchesTotal  *prometheus.CounterVec
	ProviderFetchDuration *prometheus.HistogramVec
	ProviderJourneys      *prometheus.GaugeVec
	SnapResultsTotal      *prometheus.CounterVec
	PositionedJourneys    prometheus.Gauge
	UnresolvedStopsTotal  prometheus.Counter

	// Station database pool
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New() *Metrics {
	return NewWithLogger(nil)
}

func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		logger:   logger,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainflow_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainflow_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		RefreshCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainflow_refresh_cycles_total",
			Help: "Refresh cycles by outcome (success, failed)",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainflow_refresh_duration_seconds",
			Help:    "Duration of a complete refresh cycle",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		RefreshSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainflow_refresh_skipped_total",
			Help: "Ticks skipped because the previous cycle was still running",
		}),
		LastSuccessfulRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_last_successful_refresh_timestamp_seconds",
			Help: "Unix time of the last snapshot published to the live store",
		}),
		LiveJourneys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_live_journeys",
			Help: "Journeys in the current live snapshot",
		}),
		ProviderFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainflow_provider_fetches_total",
			Help: "Provider fetches by provider and outcome (success, fetch_error, decode_error)",
		}, []string{"provider", "outcome"}),
		ProviderFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainflow_provider_fetch_duration_seconds",
			Help:    "Time spent fetching and decoding one provider payload",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderJourneys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trainflow_provider_journeys",
			Help: "Journeys extracted from the last successful payload of each provider",
		}, []string{"provider"}),
		SnapResultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainflow_snap_results_total",
			Help: "Rail snapping attempts by result (hit, miss)",
		}, []string{"result"}),
		PositionedJourneys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_positioned_journeys",
			Help: "Journeys positioned by the most recent live read",
		}),
		UnresolvedStopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainflow_unresolved_stops_total",
			Help: "Bracketing stops missing from the station lookup",
		}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_db_connections_open",
			Help: "Number of open station database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_db_connections_in_use",
			Help: "Number of station database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainflow_db_connections_idle",
			Help: "Number of idle station database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainflow_db_wait_seconds_total",
			Help: "Total time blocked waiting for a station database connection",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RefreshCyclesTotal,
		m.RefreshDuration,
		m.RefreshSkippedTotal,
		m.LastSuccessfulRefresh,
		m.LiveJourneys,
		m.ProviderFetchesTotal,
		m.ProviderFetchDuration,
		m.ProviderJourneys,
		m.SnapResultsTotal,
		m.PositionedJourneys,
		m.UnresolvedStopsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)

	return m
}

// ObserveProviderFetch records one provider fetch. A nil receiver is a no-op
// so callers may run without metrics.
func (m *Metrics) ObserveProviderFetch(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderFetchesTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderFetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveRefresh records a finished refresh cycle.
func (m *Metrics) ObserveRefresh(success bool, d time.Duration, liveJourneys int, at time.Time) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(d.Seconds())
	if !success {
		m.RefreshCyclesTotal.WithLabelValues("failed").Inc()
		return
	}
	m.RefreshCyclesTotal.WithLabelValues("success").Inc()
	m.LiveJourneys.Set(float64(liveJourneys))
	m.LastSuccessfulRefresh.Set(float64(at.Unix()))
}

func (m *Metrics) ObserveSkippedRefresh() {
	if m == nil {
		return
	}
	m.RefreshSkippedTotal.Inc()
}

func (m *Metrics) SetProviderJourneys(provider string, n int) {
	if m == nil {
		return
	}
	m.ProviderJourneys.WithLabelValues(provider).Set(float64(n))
}

// ObserveSnap counts a snapping attempt.
func (m *Metrics) ObserveSnap(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SnapResultsTotal.WithLabelValues("hit").Inc()
	} else {
		m.SnapResultsTotal.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) ObservePositioned(n, unresolvedStops int) {
	if m == nil {
		return
	}
	m.PositionedJourneys.Set(float64(n))
	if unresolvedStops > 0 {
		m.UnresolvedStopsTotal.Add(float64(unresolvedStops))
	}
}

// StartDBStatsCollector periodically copies db.Stats() into the pool gauges.
// Only the first call starts a collector; Shutdown stops it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add before exposing cancel so Shutdown cannot miss the goroutine.
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector and waits for it. Safe to call twice.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
