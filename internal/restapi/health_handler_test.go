package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/realtime"
)

func getHealth(t *testing.T, api *RestAPI) (int, HealthResponse) {
	t.Helper()
	var health HealthResponse
	resp := serveApiAndRetrieveEndpoint(t, api, "/healthz", &health)
	return resp.StatusCode, health
}

func TestHealthHandlerWithNilApplication(t *testing.T) {
	api := &RestAPI{Application: nil}

	w := httptest.NewRecorder()
	api.healthHandler(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "live store not initialized", resp.Detail)
}

func TestHealthHandlerStartingBeforeFirstRefresh(t *testing.T) {
	api := createTestApi(t)
	api.Store = realtime.NewStore()

	code, health := getHealth(t, api)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", health.Status)
}

func TestHealthHandlerReturnsOK(t *testing.T) {
	api := createTestApi(t)

	code, health := getHealth(t, api)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, uint64(1), health.Generation)
	assert.True(t, testNow.Equal(health.LastUpdated))
}

func TestHealthHandlerReportsStaleSnapshot(t *testing.T) {
	mockClock := clock.NewMockClock(testNow)
	api := createTestApiWithClock(t, mockClock)

	mockClock.Advance(90 * time.Second)
	_, health := getHealth(t, api)
	assert.Equal(t, "ok", health.Status, "three refresh intervals is still fresh")

	mockClock.Advance(time.Second)
	code, health := getHealth(t, api)
	assert.Equal(t, http.StatusOK, code, "a stale snapshot is still served")
	assert.Equal(t, "stale", health.Status)
	assert.Equal(t, "last successful refresh 1m31s ago", health.Detail)
}

func TestHealthHandlerDatabaseDown(t *testing.T) {
	api := createTestApi(t)
	require.NoError(t, api.StationDB.DB.Close())

	code, health := getHealth(t, api)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "database connection failed", health.Detail)
}

func TestStaleDetector(t *testing.T) {
	d := NewStaleDetector(10 * time.Second)
	snapshot := &realtime.Snapshot{LastUpdated: testNow}

	assert.False(t, d.Check(snapshot, testNow.Add(30*time.Second)))
	assert.True(t, d.Check(snapshot, testNow.Add(31*time.Second)))
	assert.True(t, d.Check(nil, testNow))
	assert.Equal(t, 5*time.Second, d.Age(snapshot, testNow.Add(5*time.Second)))

	d.WithThreshold(time.Minute)
	assert.False(t, d.Check(snapshot, testNow.Add(31*time.Second)))

	assert.Equal(t, realtime.DefaultRefreshInterval, NewStaleDetector(0).refresh)
}
