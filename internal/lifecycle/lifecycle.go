// Package lifecycle classifies vehicle journeys as upcoming, active or
// completed at a given instant.
package lifecycle

import (
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// Classify places a journey on its lifecycle at now. The journey starts at
// the first call's best departure time and ends at the last call's best
// arrival time, both inclusive. A journey whose bounds cannot be resolved is
// reported completed.
func Classify(j models.VehicleJourney, now time.Time) models.JourneyStatus {
	first, last, ok := boundaryCalls(j)
	if !ok {
		return models.StatusCompleted
	}

	start, okStart := first.StartTime()
	end, okEnd := last.EndTime()
	if !okStart || !okEnd {
		return models.StatusCompleted
	}

	switch {
	case now.Before(start):
		return models.StatusUpcoming
	case now.After(end):
		return models.StatusCompleted
	default:
		return models.StatusActive
	}
}

// DepartIn is the number of whole seconds until the journey starts, floored
// at zero, or nil when the start time is unknown.
func DepartIn(j models.VehicleJourney, now time.Time) *int64 {
	first, _, ok := boundaryCalls(j)
	if !ok {
		return nil
	}
	start, ok := first.StartTime()
	if !ok {
		return nil
	}

	seconds := int64(start.Sub(now) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

// FilterLive annotates every journey with its status and departure countdown
// at now and keeps the active ones plus the upcoming ones with a known start.
// A positive horizon also drops upcoming journeys starting later than that.
func FilterLive(journeys []models.VehicleJourney, now time.Time, horizon time.Duration) []models.VehicleJourney {
	live := make([]models.VehicleJourney, 0, len(journeys))
	for _, j := range journeys {
		j.Status = Classify(j, now)
		j.DepartIn = DepartIn(j, now)

		switch j.Status {
		case models.StatusActive:
			live = append(live, j)
		case models.StatusUpcoming:
			if j.DepartIn == nil {
				continue
			}
			if horizon > 0 && time.Duration(*j.DepartIn)*time.Second > horizon {
				continue
			}
			live = append(live, j)
		}
	}
	return live
}

func boundaryCalls(j models.VehicleJourney) (models.Call, models.Call, bool) {
	switch {
	case len(j.RecordedCalls) > 0 && len(j.EstimatedCalls) > 0:
		return j.RecordedCalls[0], j.EstimatedCalls[len(j.EstimatedCalls)-1], true
	case len(j.RecordedCalls) > 0:
		return j.RecordedCalls[0], j.RecordedCalls[len(j.RecordedCalls)-1], true
	case len(j.EstimatedCalls) > 0:
		return j.EstimatedCalls[0], j.EstimatedCalls[len(j.EstimatedCalls)-1], true
	default:
		return models.Call{}, models.Call{}, false
	}
}
