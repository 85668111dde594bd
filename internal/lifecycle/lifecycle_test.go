package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/models"
)

var t0 = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

func journey(calls ...models.Call) models.VehicleJourney {
	return models.VehicleJourney{
		DataFrameRef:           "2025-03-14",
		DatedVehicleJourneyRef: "SNCF:ServiceJourney::8837",
		EstimatedCalls:         calls,
	}
}

func departs(ref string, at time.Time) models.Call {
	return models.Call{StopPointRef: ref, AimedDepartureTime: at}
}

func arrives(ref string, at time.Time) models.Call {
	return models.Call{StopPointRef: ref, AimedArrivalTime: at}
}

func TestClassify(t *testing.T) {
	j := journey(departs("A", t0), arrives("B", t0.Add(10*time.Minute)))

	tests := []struct {
		name string
		now  time.Time
		want models.JourneyStatus
	}{
		{"before start", t0.Add(-time.Second), models.StatusUpcoming},
		{"at start", t0, models.StatusActive},
		{"running", t0.Add(5 * time.Minute), models.StatusActive},
		{"at end", t0.Add(10 * time.Minute), models.StatusActive},
		{"after end", t0.Add(10*time.Minute + time.Nanosecond), models.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(j, tt.now))
		})
	}
}

func TestClassifyUnresolvable(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, Classify(models.VehicleJourney{}, t0), "no calls")
	assert.Equal(t, models.StatusCompleted, Classify(journey(models.Call{StopPointRef: "A"}, arrives("B", t0)), t0.Add(-time.Hour)), "no start time")
	assert.Equal(t, models.StatusCompleted, Classify(journey(departs("A", t0), models.Call{StopPointRef: "B"}), t0.Add(-time.Hour)), "no end time")
}

func TestClassifyUsesRecordedThenEstimated(t *testing.T) {
	j := models.VehicleJourney{
		RecordedCalls:  []models.Call{departs("A", t0)},
		EstimatedCalls: []models.Call{arrives("B", t0.Add(time.Hour))},
	}
	assert.Equal(t, models.StatusActive, Classify(j, t0.Add(30*time.Minute)))

	onlyRecorded := models.VehicleJourney{RecordedCalls: []models.Call{departs("A", t0), arrives("B", t0.Add(time.Hour))}}
	assert.Equal(t, models.StatusCompleted, Classify(onlyRecorded, t0.Add(2*time.Hour)))
}

func TestClassifyPrefersExpectedTimes(t *testing.T) {
	j := journey(
		models.Call{StopPointRef: "A", AimedDepartureTime: t0, ExpectedDepartureTime: t0.Add(5 * time.Minute)},
		models.Call{StopPointRef: "B", AimedArrivalTime: t0.Add(10 * time.Minute), ExpectedArrivalTime: t0.Add(15 * time.Minute)},
	)
	assert.Equal(t, models.StatusUpcoming, Classify(j, t0.Add(2*time.Minute)))
	assert.Equal(t, models.StatusActive, Classify(j, t0.Add(12*time.Minute)))
}

func TestClassifyMonotonic(t *testing.T) {
	j := journey(
		departs("A", t0),
		models.Call{StopPointRef: "B", AimedArrivalTime: t0.Add(10 * time.Minute), AimedDepartureTime: t0.Add(11 * time.Minute)},
		arrives("C", t0.Add(30*time.Minute)),
	)

	rank := map[models.JourneyStatus]int{
		models.StatusUpcoming:  0,
		models.StatusActive:    1,
		models.StatusCompleted: 2,
	}

	prev := -1
	for now := t0.Add(-5 * time.Minute); now.Before(t0.Add(40 * time.Minute)); now = now.Add(17 * time.Second) {
		r := rank[Classify(j, now)]
		require.GreaterOrEqual(t, r, prev, "status went backwards at %s", now)
		prev = r
	}
	assert.Equal(t, 2, prev)
}

func TestDepartIn(t *testing.T) {
	j := journey(departs("A", t0), arrives("B", t0.Add(time.Hour)))

	got := DepartIn(j, t0.Add(-90*time.Second-500*time.Millisecond))
	require.NotNil(t, got)
	assert.Equal(t, int64(90), *got, "floored to whole seconds")

	got = DepartIn(j, t0.Add(time.Minute))
	require.NotNil(t, got)
	assert.Equal(t, int64(0), *got, "never negative")

	assert.Nil(t, DepartIn(journey(arrives("A", time.Time{})), t0))
	assert.Nil(t, DepartIn(models.VehicleJourney{}, t0))
}

func TestFilterLive(t *testing.T) {
	active := journey(departs("A", t0), arrives("B", t0.Add(time.Hour)))
	active.DatedVehicleJourneyRef = "active"
	soon := journey(departs("A", t0.Add(10*time.Minute)), arrives("B", t0.Add(time.Hour)))
	soon.DatedVehicleJourneyRef = "soon"
	later := journey(departs("A", t0.Add(3*time.Hour)), arrives("B", t0.Add(4*time.Hour)))
	later.DatedVehicleJourneyRef = "later"
	done := journey(departs("A", t0.Add(-2*time.Hour)), arrives("B", t0.Add(-time.Hour)))
	done.DatedVehicleJourneyRef = "done"
	broken := journey(models.Call{StopPointRef: "A"})
	broken.DatedVehicleJourneyRef = "broken"

	now := t0.Add(time.Minute)
	all := []models.VehicleJourney{active, soon, later, done, broken}

	live := FilterLive(all, now, 0)
	require.Len(t, live, 3)
	assert.Equal(t, "active", live[0].DatedVehicleJourneyRef)
	assert.Equal(t, models.StatusActive, live[0].Status)
	require.NotNil(t, live[0].DepartIn)
	assert.Equal(t, int64(0), *live[0].DepartIn)

	assert.Equal(t, "soon", live[1].DatedVehicleJourneyRef)
	assert.Equal(t, models.StatusUpcoming, live[1].Status)
	assert.Equal(t, int64(540), *live[1].DepartIn)
	assert.Equal(t, "later", live[2].DatedVehicleJourneyRef)

	bounded := FilterLive(all, now, time.Hour)
	require.Len(t, bounded, 2, "the horizon drops journeys departing in more than an hour")
	assert.Equal(t, "soon", bounded[1].DatedVehicleJourneyRef)

	assert.Empty(t, all[0].Status, "input journeys are not mutated")
	assert.NotNil(t, FilterLive(nil, now, 0))
}
