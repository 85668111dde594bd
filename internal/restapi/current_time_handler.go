package restapi

import (
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// currentTimeHandler reports the reference time used by the read path, which
// is the replay time when a fake clock is configured.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	timeData := models.NewCurrentTimeData(api.Clock.Now())
	response := models.NewOKResponse(timeData, api.Clock)

	api.sendResponse(w, r, response)
}
