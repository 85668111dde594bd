package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/app"
	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/lifecycle"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/network"
	"github.com/the-lmc-group/trainflow/internal/position"
	"github.com/the-lmc-group/trainflow/internal/realtime"
	"github.com/the-lmc-group/trainflow/stationdb"
)

var testNow = time.Date(2025, 3, 14, 8, 5, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC)
}

// testJourneys holds one train running Alpha to Beta at testNow, two minutes
// late, and one leaving Gamma at 09:00.
func testJourneys() []models.VehicleJourney {
	return []models.VehicleJourney{
		{
			Provider:               "sncf",
			DataFrameRef:           "2025-03-14",
			DatedVehicleJourneyRef: "SNCF:ServiceJourney::8837",
			TrainNumbers:           []string{"8837"},
			RecordedCalls: []models.Call{
				{StopPointRef: "StopPoint:OCETrain TER-87000001", AimedDepartureTime: at(8, 0)},
			},
			EstimatedCalls: []models.Call{
				{StopPointRef: "StopPoint:OCETrain TER-87000002", AimedArrivalTime: at(8, 8), ExpectedArrivalTime: at(8, 10)},
			},
		},
		{
			Provider:               "idfm",
			DataFrameRef:           "2025-03-14",
			DatedVehicleJourneyRef: "SNCF:ServiceJourney::9001",
			EstimatedCalls: []models.Call{
				{StopPointRef: "StopPoint:OCETrain TER-87000003", AimedDepartureTime: at(9, 0)},
				{StopPointRef: "StopPoint:OCETrain TER-87000001", AimedArrivalTime: at(9, 30)},
			},
		},
	}
}

func testSnapshot() *realtime.Snapshot {
	return &realtime.Snapshot{
		Generation:  1,
		LastUpdated: testNow,
		Journeys:    lifecycle.FilterLive(testJourneys(), testNow, 0),
		Providers: []models.ProviderStatus{
			{Name: "sncf", Publisher: "SNCF", OK: true, Journeys: 1, Forwarded: true},
			{Name: "idfm", Publisher: "IDFM", OK: true, Journeys: 1, Forwarded: true},
		},
	}
}

func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWithClock(t, clock.NewMockClock(testNow))
}

func createTestApiWithClock(t *testing.T, c clock.Clock) *RestAPI {
	t.Helper()
	ctx := context.Background()

	stationDB, err := stationdb.NewClient(stationdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stationDB.Close() })
	require.NoError(t, stationDB.ImportFromFile(ctx, filepath.Join("..", "..", "testdata", "stations", "gares.json")))

	stationList, err := stationDB.Stations(ctx)
	require.NoError(t, err)
	stations := network.NewStations(stationList)
	rails := network.NewRailNetwork(filepath.Join("..", "..", "testdata", "network", "railSegments.json"), nil)

	m := metrics.New()
	store := realtime.NewStore()
	store.SetLatest(testSnapshot())

	application := &app.Application{
		Config: appconf.Config{
			RateLimit:       100,
			RefreshInterval: 30 * time.Second,
			SnapTolerance:   position.DefaultSnapTolerance,
			MergeProviders:  true,
		},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      c,
		Metrics:    m,
		Store:      store,
		Positioner: position.NewPositioner(stations, rails, position.DefaultSnapTolerance, m, nil),
		Stations:   stations,
		Rails:      rails,
		StationDB:  stationDB,
		Providers: []realtime.Provider{
			{Name: "sncf", URL: "https://sncf.example.org/et", Format: "json"},
			{Name: "idfm", URL: "https://idfm.example.org/et", Format: "json"},
		},
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(WithMiddleware(mux, api.Logger, api.Metrics))
	t.Cleanup(server.Close)
	return server
}

// serveApiAndRetrieveEndpoint performs a GET and decodes the JSON body into
// out, which may be nil.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string, out any) *http.Response {
	t.Helper()
	server := newTestServer(t, api)

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp
}
