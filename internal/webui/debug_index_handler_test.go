package webui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/app"
	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/network"
	"github.com/the-lmc-group/trainflow/internal/realtime"
	"github.com/the-lmc-group/trainflow/stationdb"
)

func debugRequest(webUI *WebUI, dataType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/debug/?dataType="+dataType, nil)
	rr := httptest.NewRecorder()
	webUI.debugIndexHandler(rr, req)
	return rr
}

func newDebugWebUI() *WebUI {
	now := time.Date(2025, 3, 14, 8, 5, 0, 0, time.UTC)
	store := realtime.NewStore()
	store.SetLatest(&realtime.Snapshot{
		Generation:  7,
		LastUpdated: now,
		Journeys: []models.VehicleJourney{
			{Provider: "sncf", DatedVehicleJourneyRef: "SNCF:ServiceJourney::8837"},
		},
		Providers: []models.ProviderStatus{{Name: "sncf", OK: true}},
	})

	return NewWebUI(&app.Application{
		Config: appconf.Config{Env: appconf.Development},
		Clock:  clock.NewMockClock(now),
		Store:  store,
		Stations: network.NewStations([]models.Station{
			{UIC: "87000001", Name: "Alpha", Lat: 48, Lon: 2},
		}),
	})
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI := NewWebUI(&app.Application{
		Config: appconf.Config{Env: appconf.Production},
	})

	rr := debugRequest(webUI, "snapshot")
	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_DataTypes(t *testing.T) {
	webUI := newDebugWebUI()

	tests := []struct {
		dataType string
		title    string
		contains string
	}{
		{"snapshot", "Live store - Snapshot", "generation"},
		{"providers", "Live store - Providers", "sncf"},
		{"journeys", "Live store - Vehicle journeys", "SNCF:ServiceJourney::8837"},
		{"stations", "Network - Stations", "Alpha"},
		{"rails", "Network - Rail segments", "&lt;nil&gt;"},
		{"positions", "Live store - Interpolated positions", "&lt;nil&gt;"},
		{"", "Choose a data type", "snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			rr := debugRequest(webUI, tt.dataType)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			body := rr.Body.String()
			assert.Contains(t, body, "<title>trainflow debug - "+tt.title+"</title>")
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestDebugIndexHandler_Database(t *testing.T) {
	stationDB, err := stationdb.NewClient(stationdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	defer func() { _ = stationDB.Close() }()

	webUI := NewWebUI(&app.Application{
		Config:    appconf.Config{Env: appconf.Development},
		StationDB: stationDB,
	})

	rr := debugRequest(webUI, "database")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Station database")
	assert.Contains(t, body, "stations")
	assert.Contains(t, body, ":memory:")
}

func TestDebugIndexHandler_EmptyStore(t *testing.T) {
	webUI := NewWebUI(&app.Application{
		Config: appconf.Config{Env: appconf.Development},
		Store:  realtime.NewStore(),
	})

	rr := debugRequest(webUI, "snapshot")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "no snapshot published yet")
}
