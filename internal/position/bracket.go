// Package position turns live journeys into moving points: it locates the
// pair of stops bracketing the read time, interpolates between their
// stations and refines the result against the rail network.
package position

import (
	"sort"
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/utils"
)

// TimedStop is a call reduced to its stop reference and best known time.
type TimedStop struct {
	StopRef string
	Time    time.Time
}

// Bracket is the consecutive pair of timed stops whose window [From, To)
// contains the reference time.
type Bracket struct {
	From  TimedStop
	To    TimedStop
	Ratio float64
}

// TimedStops lists recorded then estimated calls as (stop, time) pairs using
// the departure-first time priority, drops calls lacking either value and
// sorts them by time. Calls sharing a time keep their feed order.
func TimedStops(j models.VehicleJourney) []TimedStop {
	calls := j.Calls()
	stops := make([]TimedStop, 0, len(calls))
	for _, c := range calls {
		if c.StopPointRef == "" {
			continue
		}
		t, ok := c.StartTime()
		if !ok {
			continue
		}
		stops = append(stops, TimedStop{StopRef: c.StopPointRef, Time: t})
	}
	sort.SliceStable(stops, func(a, b int) bool { return stops[a].Time.Before(stops[b].Time) })
	return stops
}

// Locate finds the first consecutive pair A, B of the journey's timed stops
// with A.Time <= now < B.Time. It fails when fewer than two stops carry a
// time or when now lies outside every window.
func Locate(j models.VehicleJourney, now time.Time) (Bracket, bool) {
	return locate(TimedStops(j), now)
}

func locate(stops []TimedStop, now time.Time) (Bracket, bool) {
	if len(stops) < 2 {
		return Bracket{}, false
	}

	for i := 0; i+1 < len(stops); i++ {
		a, b := stops[i], stops[i+1]
		if a.Time.After(now) || !now.Before(b.Time) {
			continue
		}

		ratio := 0.0
		if window := b.Time.Sub(a.Time); window > 0 {
			ratio = float64(now.Sub(a.Time)) / float64(window)
		}
		return Bracket{From: a, To: b, Ratio: ratio}, true
	}
	return Bracket{}, false
}

// Interpolate moves linearly from a to b, latitude and longitude
// independently.
func Interpolate(a, b models.Location, ratio float64) models.Location {
	return models.Location{
		Lat: utils.Lerp(a.Lat, b.Lat, ratio),
		Lon: utils.Lerp(a.Lon, b.Lon, ratio),
	}
}
