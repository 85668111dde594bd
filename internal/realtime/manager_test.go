package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/siri"
)

var t0 = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

// switchableServer serves a fixture until failing is set.
func switchableServer(t *testing.T, fixture string, failing *atomic.Bool) *httptest.Server {
	t.Helper()
	body := readFixture(t, fixture)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestManager(providers []Provider, merge bool, m *metrics.Metrics) *Manager {
	c := clock.NewMockClock(t0.Add(5 * time.Minute))
	return NewManager(ManagerConfig{
		Providers:       providers,
		RefreshInterval: time.Hour,
		MergeProviders:  merge,
	}, newTestFetcher(0, m), NewStore(), c, m, nil)
}

func journeyIDs(journeys []models.VehicleJourney) []string {
	ids := make([]string, 0, len(journeys))
	for _, j := range journeys {
		ids = append(ids, j.Provider+"/"+j.DatedVehicleJourneyRef)
	}
	return ids
}

func TestRefreshOncePublishesLiveJourneys(t *testing.T) {
	server := fixtureServer(t, "sncf_et.json")
	m := metrics.New()
	mgr := newTestManager([]Provider{provider("sncf", server.URL, siri.FormatJSON)}, true, m)

	assert.Nil(t, mgr.Store().Latest(), "empty before the first cycle")
	require.NoError(t, mgr.RefreshOnce(context.Background()))

	snapshot := mgr.Store().Latest()
	require.NotNil(t, snapshot)
	assert.Equal(t, uint64(1), snapshot.Generation)
	assert.Equal(t, t0.Add(5*time.Minute), snapshot.LastUpdated)
	require.Len(t, snapshot.Journeys, 2)

	active := snapshot.Journeys[0]
	assert.Equal(t, models.StatusActive, active.Status)
	require.NotNil(t, active.DepartIn)
	assert.Equal(t, int64(0), *active.DepartIn)

	upcoming := snapshot.Journeys[1]
	assert.Equal(t, models.StatusUpcoming, upcoming.Status)
	require.NotNil(t, upcoming.DepartIn)
	assert.Equal(t, int64(55*60), *upcoming.DepartIn)

	require.Len(t, snapshot.Providers, 1)
	assert.True(t, snapshot.Providers[0].OK)
	assert.True(t, snapshot.Providers[0].Forwarded)
	assert.Equal(t, 2, snapshot.Providers[0].Journeys)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCyclesTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LiveJourneys))
}

func TestRefreshOnceHorizonDropsFarUpcoming(t *testing.T) {
	server := fixtureServer(t, "sncf_et.json")
	mgr := newTestManager([]Provider{provider("sncf", server.URL, siri.FormatJSON)}, true, nil)
	mgr.config.UpcomingHorizon = 30 * time.Minute

	require.NoError(t, mgr.RefreshOnce(context.Background()))
	snapshot := mgr.Store().Latest()
	require.Len(t, snapshot.Journeys, 1)
	assert.Equal(t, models.StatusActive, snapshot.Journeys[0].Status)
}

func TestRefreshOnceMergesProviders(t *testing.T) {
	sncf := fixtureServer(t, "sncf_et.json")
	idfm := fixtureServer(t, "idfm_et_lite.json")
	broken := failingServer(t)

	mgr := newTestManager([]Provider{
		provider("sncf", sncf.URL, siri.FormatJSON),
		provider("broken", broken.URL, siri.FormatJSON),
		provider("idfm", idfm.URL, siri.FormatJSON),
	}, true, nil)

	require.NoError(t, mgr.RefreshOnce(context.Background()))

	snapshot := mgr.Store().Latest()
	require.NotNil(t, snapshot)
	ids := journeyIDs(snapshot.Journeys)
	assert.Contains(t, ids, "sncf/SNCF:ServiceJourney::8837")
	assert.Contains(t, ids, "sncf/SNCF:ServiceJourney::9001")

	require.Len(t, snapshot.Providers, 3)
	assert.False(t, snapshot.Providers[1].OK)
	assert.False(t, snapshot.Providers[1].Forwarded)
	assert.Equal(t, http.StatusNotFound, snapshot.Providers[1].StatusCode)
	assert.NotEmpty(t, snapshot.Providers[1].Error)
	assert.True(t, snapshot.Providers[2].Forwarded)
}

func TestRefreshOnceFirstProviderOnly(t *testing.T) {
	sncf := fixtureServer(t, "sncf_et.json")
	idfm := fixtureServer(t, "idfm_et_lite.json")

	mgr := newTestManager([]Provider{
		provider("sncf", sncf.URL, siri.FormatJSON),
		provider("idfm", idfm.URL, siri.FormatJSON),
	}, false, nil)

	require.NoError(t, mgr.RefreshOnce(context.Background()))

	snapshot := mgr.Store().Latest()
	for _, j := range snapshot.Journeys {
		assert.Equal(t, "sncf", j.Provider)
	}
	require.Len(t, snapshot.Providers, 2)
	assert.True(t, snapshot.Providers[0].Forwarded)
	assert.True(t, snapshot.Providers[1].OK, "other providers are still fetched")
	assert.False(t, snapshot.Providers[1].Forwarded)
}

func TestRefreshOnceFirstProviderOnlyFailsWithFirstProvider(t *testing.T) {
	broken := failingServer(t)
	idfm := fixtureServer(t, "idfm_et_lite.json")

	mgr := newTestManager([]Provider{
		provider("broken", broken.URL, siri.FormatJSON),
		provider("idfm", idfm.URL, siri.FormatJSON),
	}, false, nil)

	err := mgr.RefreshOnce(context.Background())
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Nil(t, mgr.Store().Latest())
}

func TestFailedCycleKeepsPreviousSnapshot(t *testing.T) {
	var failing atomic.Bool
	server := switchableServer(t, "sncf_et.json", &failing)
	m := metrics.New()
	mgr := newTestManager([]Provider{provider("sncf", server.URL, siri.FormatJSON)}, true, m)

	require.NoError(t, mgr.RefreshOnce(context.Background()))
	before := mgr.Store().Latest()
	require.NotNil(t, before)

	failing.Store(true)
	err := mgr.RefreshOnce(context.Background())
	require.ErrorIs(t, err, ErrAllProvidersFailed)

	after := mgr.Store().Latest()
	assert.Same(t, before, after, "the previous generation stays visible")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCyclesTotal.WithLabelValues("failed")))

	report := mgr.LastAttempt()
	require.NotNil(t, report)
	require.Error(t, report.Err)
	require.Len(t, report.Providers, 1)
	assert.False(t, report.Providers[0].OK)

	failing.Store(false)
	require.NoError(t, mgr.RefreshOnce(context.Background()))
	assert.Equal(t, uint64(2), mgr.Store().Latest().Generation)
}

func TestRefreshOnceIsSingleFlight(t *testing.T) {
	m := metrics.New()
	mgr := newTestManager([]Provider{provider("sncf", "http://127.0.0.1:1/et", siri.FormatJSON)}, true, m)

	mgr.refreshing.Store(true)
	err := mgr.RefreshOnce(context.Background())
	assert.True(t, errors.Is(err, ErrRefreshInProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshSkippedTotal))
	assert.Nil(t, mgr.LastAttempt(), "a skipped cycle does not run")
}

func TestRefreshOnceWithoutProviders(t *testing.T) {
	disabled := false
	p := provider("off", "http://127.0.0.1:1/et", siri.FormatJSON)
	p.Enabled = &disabled

	mgr := newTestManager([]Provider{p}, true, nil)
	assert.ErrorIs(t, mgr.RefreshOnce(context.Background()), ErrNoProviders)
	assert.ErrorIs(t, mgr.Start(context.Background()), ErrNoProviders)
}

func TestStartRunsFirstCycleAndShutdownStops(t *testing.T) {
	server := fixtureServer(t, "sncf_et.json")
	mgr := newTestManager([]Provider{provider("sncf", server.URL, siri.FormatJSON)}, true, nil)

	require.NoError(t, mgr.Start(context.Background()))
	require.NotNil(t, mgr.Store().Latest(), "the first cycle runs before Start returns")
	assert.Error(t, mgr.Start(context.Background()), "a manager starts once")

	done := make(chan struct{})
	go func() {
		mgr.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	mgr.Shutdown()
}

func TestStoreSwapsWholeSnapshots(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.Latest())

	first := &Snapshot{Generation: 1}
	store.SetLatest(first)
	assert.Same(t, first, store.Latest())

	second := &Snapshot{Generation: 2}
	store.SetLatest(second)
	assert.Equal(t, uint64(2), store.Latest().Generation)
	assert.Equal(t, uint64(1), first.Generation)
}
