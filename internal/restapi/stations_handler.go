package restapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/the-lmc-group/trainflow/internal/models"
)

const (
	defaultStationSearchLimit = 20
	maxStationSearchLimit     = 100
)

// searchStationsHandler matches station names against the q parameter.
func (api *RestAPI) searchStationsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.badRequest(w, r, "missing q parameter")
		return
	}

	limit := defaultStationSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			api.badRequest(w, r, "invalid limit")
			return
		}
		limit = min(n, maxStationSearchLimit)
	}

	if api.StationDB == nil {
		api.sendJSON(w, r, []models.Station{})
		return
	}

	stations, err := api.StationDB.SearchStations(r.Context(), query, limit)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	api.sendJSON(w, r, stations)
}

// stationHandler looks a station up by UIC code or by any stop reference
// that resolves to one.
func (api *RestAPI) stationHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uic")
	station, ok := api.Stations.Get(id)
	if !ok {
		station, ok = api.Stations.Resolve(id)
	}
	if !ok {
		api.sendNotFound(w, r)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(station, api.Clock))
}
