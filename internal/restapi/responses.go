package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/clock"
	"github.com/the-lmc-group/trainflow/internal/models"
)

// sendJSON writes v as the whole response body. The live contract returns
// bare arrays, so it is not wrapped in a ResponseModel.
func (api *RestAPI) sendJSON(w http.ResponseWriter, r *http.Request, v any) {
	setJSONResponseType(&w)
	body, err := json.Marshal(v)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	_, _ = w.Write(append(body, '\n'))
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	api.sendJSON(w, r, response)
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(api.clock()),
		Text:        message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) clock() clock.Clock {
	if api.Application == nil || api.Clock == nil {
		return clock.RealClock{}
	}
	return api.Clock
}
