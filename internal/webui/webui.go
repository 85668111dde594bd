// Package webui serves the developer debug pages and the static map viewer.
package webui

import (
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// SetWebUIRoutes registers the debug page and the static file handler.
func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
	mux.HandleFunc("GET /static/", webUI.staticHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/static/map.html", http.StatusFound)
	})
}
