package restapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// liveTrainsHandler positions every journey active at the request time. The
// store is only read; an empty store yields [].
func (api *RestAPI) liveTrainsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := api.Snapshot()
	if snapshot == nil || api.Positioner == nil {
		api.sendJSON(w, r, []models.InterpolatedJourney{})
		return
	}

	journeys := filterByProvider(snapshot.Journeys, r.URL.Query().Get("provider"))
	api.sendJSON(w, r, api.Positioner.Positions(journeys, api.Clock.Now()))
}

// upcomingTrainsHandler lists journeys that have not departed yet, soonest
// first. The optional horizon parameter is a Go duration such as "45m".
func (api *RestAPI) upcomingTrainsHandler(w http.ResponseWriter, r *http.Request) {
	horizon := api.Config.UpcomingHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			api.badRequest(w, r, "invalid horizon")
			return
		}
		horizon = d
	}

	snapshot := api.Snapshot()
	if snapshot == nil || api.Positioner == nil {
		api.sendJSON(w, r, []models.UpcomingJourney{})
		return
	}

	journeys := filterByProvider(snapshot.Journeys, r.URL.Query().Get("provider"))
	api.sendJSON(w, r, api.Positioner.Upcoming(journeys, api.Clock.Now(), horizon))
}

func filterByProvider(journeys []models.VehicleJourney, provider string) []models.VehicleJourney {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return journeys
	}
	out := make([]models.VehicleJourney, 0, len(journeys))
	for _, j := range journeys {
		if strings.EqualFold(j.Provider, provider) {
			out = append(out, j)
		}
	}
	return out
}
