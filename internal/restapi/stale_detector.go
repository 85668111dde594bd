package restapi

import (
	"time"

	"github.com/the-lmc-group/trainflow/internal/realtime"
)

// staleRefreshMultiple is how many refresh intervals a snapshot may age
// before it is reported stale.
const staleRefreshMultiple = 3

type StaleDetector struct {
	refresh   time.Duration
	threshold time.Duration
}

func NewStaleDetector(refreshInterval time.Duration) *StaleDetector {
	if refreshInterval <= 0 {
		refreshInterval = realtime.DefaultRefreshInterval
	}
	return &StaleDetector{
		refresh:   refreshInterval,
		threshold: staleRefreshMultiple * refreshInterval,
	}
}

func (d *StaleDetector) WithThreshold(threshold time.Duration) *StaleDetector {
	d.threshold = threshold
	return d
}

// Check reports whether the snapshot is missing or older than the threshold.
func (d *StaleDetector) Check(snapshot *realtime.Snapshot, currentTime time.Time) bool {
	if snapshot == nil {
		return true
	}
	return d.Age(snapshot, currentTime) > d.threshold
}

func (d *StaleDetector) Age(snapshot *realtime.Snapshot, currentTime time.Time) time.Duration {
	if snapshot == nil {
		return d.threshold + 1
	}
	return currentTime.Sub(snapshot.LastUpdated)
}
