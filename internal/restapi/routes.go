package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	liveCacheSeconds    = 5
	stationCacheSeconds = 300
)

// SetRoutes registers every endpoint on mux. Request id, logging and metrics
// middleware wrap the whole mux and are installed by the caller.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	live := SnapshotSource(api.Snapshot)

	mux.Handle("GET /api/trains/live", api.read(liveCacheSeconds, live, api.liveTrainsHandler))
	mux.Handle("GET /api/trains/upcoming", api.read(liveCacheSeconds, live, api.upcomingTrainsHandler))
	mux.Handle("GET /api/providers", api.read(0, live, api.providersHandler))
	mux.Handle("GET /api/stations", api.read(stationCacheSeconds, nil, api.searchStationsHandler))
	mux.Handle("GET /api/stations/{uic}", api.read(stationCacheSeconds, nil, api.stationHandler))
	mux.Handle("GET /api/current-time", api.read(0, nil, api.currentTimeHandler))
	mux.Handle("GET /api/config", api.read(0, nil, api.configHandler))

	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// read wraps a read endpoint with rate limiting, the API key check and a
// Cache-Control policy.
func (api *RestAPI) read(cacheSeconds int, source SnapshotSource, handler http.HandlerFunc) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.Application != nil && api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		handler(w, r)
	})
	h = CacheControlMiddleware(cacheSeconds, source, h)
	if api.rateLimiter != nil {
		h = api.rateLimiter.Handler()(h)
	}
	return h
}
