package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/the-lmc-group/trainflow/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	Generation  uint64    `json:"generation,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

// healthHandler reports 503 until the store holds a first generation, then
// ok, or stale when the last successful refresh is too old.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.Application == nil || api.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "live store not initialized",
		})
		return
	}

	if api.StationDB != nil && api.StationDB.DB != nil {
		if err := api.StationDB.DB.PingContext(r.Context()); err != nil {
			logging.LogError(api.Logger, "station DB ping failed", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{
				Status: "unavailable",
				Detail: "database connection failed",
			})
			return
		}
	}

	snapshot := api.Store.Latest()
	if snapshot == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "starting",
			Detail: "waiting for the first successful refresh",
		})
		return
	}

	response := HealthResponse{
		Status:      "ok",
		Generation:  snapshot.Generation,
		LastUpdated: snapshot.LastUpdated,
	}
	now := api.clock().Now()
	if api.staleDetector.Check(snapshot, now) {
		response.Status = "stale"
		response.Detail = fmt.Sprintf("last successful refresh %s ago", api.staleDetector.Age(snapshot, now).Round(time.Second))
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
