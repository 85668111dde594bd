package position

import (
	"fmt"
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// MaxDelay is the largest positive gap between an expected time and its aimed
// counterpart over every arrival and departure of the journey.
func MaxDelay(j models.VehicleJourney) time.Duration {
	var maxDelay time.Duration
	for _, c := range j.Calls() {
		maxDelay = max(maxDelay, lateness(c.AimedArrivalTime, c.ExpectedArrivalTime))
		maxDelay = max(maxDelay, lateness(c.AimedDepartureTime, c.ExpectedDepartureTime))
	}
	return maxDelay
}

func lateness(aimed, expected time.Time) time.Duration {
	if aimed.IsZero() || expected.IsZero() {
		return 0
	}
	return expected.Sub(aimed)
}

// FormatDelay renders whole minutes as "7min" or "1h 05min". Delays under a
// minute render as the empty string.
func FormatDelay(d time.Duration) string {
	if d < time.Minute {
		return ""
	}
	totalMinutes := int64(d / time.Minute)
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %02dmin", hours, minutes)
	}
	return fmt.Sprintf("%dmin", minutes)
}

// DelayLabel is FormatDelay(MaxDelay(j)).
func DelayLabel(j models.VehicleJourney) string {
	return FormatDelay(MaxDelay(j))
}
