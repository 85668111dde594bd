package restapi

import (
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// providersHandler reports the providers of the published snapshot. When the
// latest cycle failed its statuses are reported instead, so a broken feed is
// visible while the previous generation is still being served.
func (api *RestAPI) providersHandler(w http.ResponseWriter, r *http.Request) {
	data := models.ProvidersData{Providers: []models.ProviderStatus{}}

	if snapshot := api.Snapshot(); snapshot != nil {
		data.Generation = snapshot.Generation
		data.LastUpdated = snapshot.LastUpdated
		data.Journeys = len(snapshot.Journeys)
		data.Providers = snapshot.Providers
	}

	if api.Manager != nil {
		if report := api.Manager.LastAttempt(); report != nil && report.Err != nil {
			data.Providers = report.Providers
		}
	}

	api.sendJSON(w, r, data)
}
