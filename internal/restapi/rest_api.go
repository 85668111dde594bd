// Package restapi serves the read contract of the live store: positioned
// trains, upcoming departures, provider status and station lookups, plus
// health and metrics endpoints.
package restapi

import (
	"time"

	"github.com/the-lmc-group/trainflow/internal/app"
	"github.com/the-lmc-group/trainflow/internal/clock"
)

type RestAPI struct {
	*app.Application
	rateLimiter   *RateLimitMiddleware
	staleDetector *StaleDetector
}

func NewRestAPI(application *app.Application) *RestAPI {
	refresh := application.Config.RefreshInterval
	if application.Manager != nil {
		refresh = application.Manager.RefreshInterval()
	}
	c := application.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	return &RestAPI{
		Application:   application,
		rateLimiter:   NewRateLimitMiddleware(application.Config.RateLimit, time.Minute, application.Config.ExemptApiKeys, c),
		staleDetector: NewStaleDetector(refresh),
	}
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
