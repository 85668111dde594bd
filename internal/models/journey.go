package models

import "time"

// JourneyStatus is the lifecycle state of a journey relative to a reference time.
type JourneyStatus string

const (
	StatusUpcoming  JourneyStatus = "upcoming"
	StatusActive    JourneyStatus = "active"
	StatusCompleted JourneyStatus = "completed"
)

// Call is one stop visit of a journey. Zero times mean the feed did not
// provide the value.
type Call struct {
	StopPointRef          string    `json:"stopPointRef"`
	StopPointName         string    `json:"stopPointName,omitempty"`
	Order                 int       `json:"order,omitempty"`
	AimedArrivalTime      time.Time `json:"aimedArrivalTime,omitzero"`
	ExpectedArrivalTime   time.Time `json:"expectedArrivalTime,omitzero"`
	AimedDepartureTime    time.Time `json:"aimedDepartureTime,omitzero"`
	ExpectedDepartureTime time.Time `json:"expectedDepartureTime,omitzero"`
	ArrivalPlatformName   string    `json:"arrivalPlatformName,omitempty"`
	DeparturePlatformName string    `json:"departurePlatformName,omitempty"`
}

// VehicleJourney is one dated run of a train as reported by a provider.
type VehicleJourney struct {
	Provider               string        `json:"provider"`
	DataFrameRef           string        `json:"dataFrameRef"`
	DatedVehicleJourneyRef string        `json:"datedVehicleJourneyRef"`
	LineRef                string        `json:"lineRef,omitempty"`
	DirectionRef           string        `json:"directionRef,omitempty"`
	PublishedLineName      string        `json:"publishedLineName,omitempty"`
	VehicleMode            string        `json:"vehicleMode,omitempty"`
	OperatorRef            string        `json:"operatorRef,omitempty"`
	OriginRef              string        `json:"originRef,omitempty"`
	OriginName             string        `json:"originName,omitempty"`
	DestinationRef         string        `json:"destinationRef,omitempty"`
	DestinationName        string        `json:"destinationName,omitempty"`
	TrainNumbers           []string      `json:"trainNumbers,omitempty"`
	RecordedCalls          []Call        `json:"recordedCalls"`
	EstimatedCalls         []Call        `json:"estimatedCalls"`
	Status                 JourneyStatus `json:"status,omitempty"`
	DepartIn               *int64        `json:"departIn,omitempty"`
}

// ID identifies the journey within its provider.
func (j VehicleJourney) ID() string {
	return j.DataFrameRef + ":" + j.DatedVehicleJourneyRef
}

// Calls returns recorded calls followed by estimated calls.
func (j VehicleJourney) Calls() []Call {
	calls := make([]Call, 0, len(j.RecordedCalls)+len(j.EstimatedCalls))
	calls = append(calls, j.RecordedCalls...)
	return append(calls, j.EstimatedCalls...)
}

// StartTime is the best known departure instant of a call, in the order
// expected departure, aimed departure, expected arrival, aimed arrival.
func (c Call) StartTime() (time.Time, bool) {
	return firstSet(c.ExpectedDepartureTime, c.AimedDepartureTime, c.ExpectedArrivalTime, c.AimedArrivalTime)
}

// EndTime is the best known arrival instant of a call, in the order expected
// arrival, aimed arrival, expected departure, aimed departure.
func (c Call) EndTime() (time.Time, bool) {
	return firstSet(c.ExpectedArrivalTime, c.AimedArrivalTime, c.ExpectedDepartureTime, c.AimedDepartureTime)
}

func firstSet(times ...time.Time) (time.Time, bool) {
	for _, t := range times {
		if !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}
