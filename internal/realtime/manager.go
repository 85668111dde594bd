package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/lifecycle"
	"github.com/the-lmc-group/trainflow/internal/logging"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/models"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultCycleTimeout    = 25 * time.Second
)

var (
	// ErrAllProvidersFailed is returned by a cycle that produced no journeys
	// to publish. The store keeps its previous snapshot.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrRefreshInProgress is returned when a cycle is already running.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)

// ManagerConfig controls the refresh loop.
type ManagerConfig struct {
	Providers       []Provider
	RefreshInterval time.Duration
	CycleTimeout    time.Duration
	// UpcomingHorizon drops upcoming journeys starting later than this; zero
	// keeps all of them.
	UpcomingHorizon time.Duration
	// MergeProviders publishes the journeys of every successful provider.
	// When false only the first enabled provider is published and the others
	// are fetched for status reporting only.
	MergeProviders bool
}

// CycleReport describes the latest refresh attempt, successful or not.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Providers []models.ProviderStatus
}

// Manager owns the refresh loop: it is the only writer of the Store.
type Manager struct {
	config    ManagerConfig
	providers []Provider
	fetcher   *Fetcher
	store     *Store
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger

	refreshing  atomic.Bool
	generation  atomic.Uint64
	lastAttempt atomic.Pointer[CycleReport]

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	startOnce    sync.Once
	wg           sync.WaitGroup
}

func NewManager(config ManagerConfig, fetcher *Fetcher, store *Store, c clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = DefaultCycleTimeout
	}
	if store == nil {
		store = NewStore()
	}
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:       config,
		providers:    EnabledProviders(config.Providers),
		fetcher:      fetcher,
		store:        store,
		clock:        c,
		metrics:      m,
		logger:       logger.With(slog.String("component", "refresh_manager")),
		ctx:          ctx,
		cancel:       cancel,
		shutdownChan: make(chan struct{}),
	}
}

func (m *Manager) Store() *Store {
	return m.store
}

// Providers returns the enabled providers in configuration order.
func (m *Manager) Providers() []Provider {
	return m.providers
}

func (m *Manager) RefreshInterval() time.Duration {
	return m.config.RefreshInterval
}

// LastAttempt reports the latest cycle, or nil before the first one.
func (m *Manager) LastAttempt() *CycleReport {
	return m.lastAttempt.Load()
}

// Start runs one cycle synchronously and then refreshes on every tick until
// Shutdown. A failing first cycle is logged and does not prevent the loop.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.providers) == 0 {
		return ErrNoProviders
	}

	started := false
	m.startOnce.Do(func() {
		started = true
		if err := m.RefreshOnce(ctx); err != nil {
			logging.LogError(m.logger, "initial refresh failed", err)
		}
		m.wg.Add(1)
		go m.refreshPeriodically()
	})
	if !started {
		return errors.New("refresh manager already started")
	}
	return nil
}

func (m *Manager) refreshPeriodically() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// cycles run beside the ticker so a slow one is skipped rather
			// than queued
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				ctx := logging.WithLogger(m.ctx, m.logger)
				err := m.RefreshOnce(ctx)
				switch {
				case errors.Is(err, ErrRefreshInProgress):
					m.logger.Warn("previous refresh still running, skipping tick")
				case err != nil:
					logging.LogError(m.logger, "refresh failed, keeping previous snapshot", err)
				}
			}()
		case <-m.shutdownChan:
			logging.LogOperation(m.logger, "shutting_down_refresh_loop")
			return
		}
	}
}

// RefreshOnce runs one fetch, extract and classify cycle and publishes the
// result. It returns ErrRefreshInProgress without doing anything when another
// cycle is running.
func (m *Manager) RefreshOnce(ctx context.Context) error {
	if !m.refreshing.CompareAndSwap(false, true) {
		m.metrics.ObserveSkippedRefresh()
		return ErrRefreshInProgress
	}
	defer m.refreshing.Store(false)

	if len(m.providers) == 0 {
		return ErrNoProviders
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.CycleTimeout)
	defer cancel()

	start := time.Now()
	startedAt := m.clock.Now()
	results := m.fetcher.FetchAll(ctx, m.providers)

	var (
		journeys  []models.VehicleJourney
		published int
		errs      []error
	)
	statuses := make([]models.ProviderStatus, 0, len(results))
	for i, r := range results {
		forwarded := r.Err == nil && (m.config.MergeProviders || i == 0)
		status := models.ProviderStatus{
			Name:        r.Provider.Name,
			Publisher:   r.Provider.Publisher,
			OK:          r.Err == nil,
			Journeys:    len(r.Journeys),
			DurationMs:  r.Duration.Milliseconds(),
			FetchedAt:   r.FetchedAt,
			Forwarded:   forwarded,
			StatusCode:  r.StatusCode,
			Description: r.Provider.Coverage,
		}
		if r.Err != nil {
			status.Error = r.Err.Error()
			errs = append(errs, r.Err)
		}
		statuses = append(statuses, status)

		if forwarded {
			published++
			journeys = append(journeys, r.Journeys...)
		}
	}

	report := &CycleReport{StartedAt: startedAt, Providers: statuses}
	defer func() {
		report.Duration = time.Since(start)
		m.lastAttempt.Store(report)
	}()

	if published == 0 {
		err := fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
		report.Err = err
		m.metrics.ObserveRefresh(false, time.Since(start), 0, startedAt)
		return err
	}

	now := m.clock.Now()
	live := lifecycle.FilterLive(journeys, now, m.config.UpcomingHorizon)
	snapshot := &Snapshot{
		Generation:  m.generation.Add(1),
		LastUpdated: now,
		Journeys:    live,
		Providers:   statuses,
	}
	m.store.SetLatest(snapshot)

	m.metrics.ObserveRefresh(true, time.Since(start), len(live), now)
	logging.LogOperation(m.logger, "refresh_completed",
		slog.Uint64("generation", snapshot.Generation),
		slog.Int("fetched_journeys", len(journeys)),
		slog.Int("live_journeys", len(live)),
		slog.Int("providers_ok", published),
		slog.Int("providers_failed", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Shutdown stops the loop and waits for a running cycle to finish.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
		m.cancel()
	})
	m.wg.Wait()
}
