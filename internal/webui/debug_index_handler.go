package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/clock"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var debugDataTypes = []string{"snapshot", "providers", "journeys", "positions", "stations", "rails", "database"}

type debugData struct {
	Title     string
	DataTypes []string
	Pre       string
}

func writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{
		Title:     title,
		DataTypes: debugDataTypes,
		Pre:       spew.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps one in-memory dataset, chosen by the dataType
// query parameter. It is disabled in production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var c clock.Clock = clock.RealClock{}
	if webUI.Clock != nil {
		c = webUI.Clock
	}
	snapshot := webUI.Snapshot()

	var data any
	var title string

	switch r.URL.Query().Get("dataType") {
	case "snapshot":
		if snapshot == nil {
			data = "no snapshot published yet"
		} else {
			data = map[string]any{
				"generation":  snapshot.Generation,
				"lastUpdated": snapshot.LastUpdated,
				"journeys":    len(snapshot.Journeys),
			}
		}
		title = "Live store - Snapshot"
	case "providers":
		if snapshot != nil {
			data = snapshot.Providers
		}
		if webUI.Manager != nil {
			if report := webUI.Manager.LastAttempt(); report != nil {
				data = report
			}
		}
		title = "Live store - Providers"
	case "journeys":
		if snapshot != nil {
			data = snapshot.Journeys
		}
		title = "Live store - Vehicle journeys"
	case "positions":
		if snapshot != nil && webUI.Positioner != nil {
			data = webUI.Positioner.Positions(snapshot.Journeys, c.Now())
		}
		title = "Live store - Interpolated positions"
	case "stations":
		data = webUI.Stations.All()
		title = "Network - Stations"
	case "rails":
		if webUI.Rails != nil {
			summary := map[string]any{"segments": webUI.Rails.SegmentCount()}
			if bounds := webUI.Rails.Bounds(); !bounds.IsEmpty() {
				summary["bounds"] = bounds
			}
			data = summary
		}
		title = "Network - Rail segments"
	case "database":
		if webUI.StationDB != nil {
			counts, err := webUI.StationDB.TableCounts(r.Context())
			if err != nil {
				data = map[string]string{"error": err.Error()}
			} else {
				data = map[string]any{
					"path":          webUI.StationDB.GetDBPath(),
					"importRuntime": webUI.StationDB.ImportRuntime().String(),
					"tables":        counts,
				}
			}
		}
		title = "Station database"
	default:
		data = map[string]any{
			"error": "Please use one of the following data types.",
			"types": debugDataTypes,
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
