package models

import "time"

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is a stop of the rail network keyed by its UIC code.
type Station struct {
	UIC        string   `json:"uic"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	SnappedLat *float64 `json:"snappedLat,omitempty"`
	SnappedLon *float64 `json:"snappedLon,omitempty"`
}

// Location returns the station coordinates used for interpolation.
func (s Station) Location() Location {
	return Location{Lat: s.Lat, Lon: s.Lon}
}

// InterpolatedJourney is the per-read position of one active journey. It is
// never stored. Path is the encoded polyline through every resolvable stop.
// SnapOffsetMeters is the ground distance between RawPosition and Position.
type InterpolatedJourney struct {
	Journey          VehicleJourney `json:"journey"`
	Status           JourneyStatus  `json:"status"`
	LastStopID       string         `json:"lastStopId"`
	NextStopID       string         `json:"nextStopId"`
	LastStop         *Station       `json:"lastStop,omitempty"`
	NextStop         *Station       `json:"nextStop,omitempty"`
	LastStopCoords   Location       `json:"lastStopCoords"`
	NextStopCoords   Location       `json:"nextStopCoords"`
	TA               time.Time      `json:"tA"`
	TB               time.Time      `json:"tB"`
	Ratio            float64        `json:"ratio"`
	RawPosition      Location       `json:"rawPosition"`
	Position         Location       `json:"position"`
	Bearing          float64        `json:"bearing"`
	Snapped          bool           `json:"snapped"`
	SnapOffsetMeters float64        `json:"snapOffsetMeters,omitempty"`
	Delay            string         `json:"delay,omitempty"`
	Path             string         `json:"path,omitempty"`
}

// UpcomingJourney is a journey that has not departed yet.
type UpcomingJourney struct {
	Journey    VehicleJourney `json:"journey"`
	DepartIn   int64          `json:"departIn"`
	DepartAt   time.Time      `json:"departAt"`
	Origin     *Station       `json:"origin,omitempty"`
	Delay      string         `json:"delay,omitempty"`
	FirstStop  string         `json:"firstStopId"`
	ProviderID string         `json:"provider"`
}
