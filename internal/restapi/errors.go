package restapi

import (
	"log/slog"
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/logging"
)

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())
	logging.LogError(logger, "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (api *RestAPI) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	api.sendError(w, r, http.StatusBadRequest, message)
}
