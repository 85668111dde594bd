package siri

import (
	"strconv"
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// ExtractJourneys flattens every delivery and frame of doc into vehicle
// journeys tagged with provider. Journeys without a dated vehicle journey
// reference cannot be identified and are skipped.
func ExtractJourneys(doc *Siri, provider string) []models.VehicleJourney {
	if doc == nil {
		return nil
	}

	var journeys []models.VehicleJourney
	for _, delivery := range doc.ServiceDelivery.EstimatedTimetableDelivery {
		for _, frame := range delivery.EstimatedJourneyVersionFrame {
			for _, ej := range frame.EstimatedVehicleJourney {
				j, ok := convertJourney(ej, provider)
				if !ok {
					continue
				}
				journeys = append(journeys, j)
			}
		}
	}
	return journeys
}

func convertJourney(ej EstimatedVehicleJourney, provider string) (models.VehicleJourney, bool) {
	datedRef := ej.FramedVehicleJourneyRef.DatedVehicleJourneyRef.String()
	if datedRef == "" {
		datedRef = ej.DatedVehicleJourneyRef.String()
	}
	if datedRef == "" {
		return models.VehicleJourney{}, false
	}

	j := models.VehicleJourney{
		Provider:               provider,
		DataFrameRef:           ej.FramedVehicleJourneyRef.DataFrameRef.String(),
		DatedVehicleJourneyRef: datedRef,
		LineRef:                ej.LineRef.String(),
		DirectionRef:           ej.DirectionRef.String(),
		PublishedLineName:      ej.PublishedLineName.String(),
		VehicleMode:            ej.VehicleMode.String(),
		OperatorRef:            ej.OperatorRef.String(),
		OriginRef:              ej.OriginRef.String(),
		OriginName:             ej.OriginName.String(),
		DestinationRef:         ej.DestinationRef.String(),
		DestinationName:        ej.DestinationName.String(),
		RecordedCalls:          convertCalls(ej.RecordedCalls.RecordedCall),
		EstimatedCalls:         convertCalls(ej.EstimatedCalls.EstimatedCall),
	}
	for _, n := range ej.TrainNumbers.TrainNumberRef {
		if s := n.String(); s != "" {
			j.TrainNumbers = append(j.TrainNumbers, s)
		}
	}
	return j, true
}

func convertCalls(in List[Call]) []models.Call {
	out := make([]models.Call, 0, len(in))
	for _, c := range in {
		out = append(out, convertCall(c))
	}
	return out
}

// convertCall maps a wire call onto the model. Recorded calls of some feeds
// only carry Actual* times; those stand in for the missing Expected* ones.
func convertCall(c Call) models.Call {
	order, _ := strconv.Atoi(c.Order.String())

	expectedArrival := parseTime(c.ExpectedArrivalTime)
	if expectedArrival.IsZero() {
		expectedArrival = parseTime(c.ActualArrivalTime)
	}
	expectedDeparture := parseTime(c.ExpectedDepartureTime)
	if expectedDeparture.IsZero() {
		expectedDeparture = parseTime(c.ActualDepartureTime)
	}

	return models.Call{
		StopPointRef:          c.StopPointRef.String(),
		StopPointName:         c.StopPointName.String(),
		Order:                 order,
		AimedArrivalTime:      parseTime(c.AimedArrivalTime),
		ExpectedArrivalTime:   expectedArrival,
		AimedDepartureTime:    parseTime(c.AimedDepartureTime),
		ExpectedDepartureTime: expectedDeparture,
		ArrivalPlatformName:   c.ArrivalPlatformName.String(),
		DeparturePlatformName: c.DeparturePlatformName.String(),
	}
}

// parseTime returns the zero time for empty or malformed timestamps so that
// the call falls through to the next candidate time. A garbled expected time
// therefore yields the aimed one instead of an unresolvable call.
func parseTime(t Text) time.Time {
	s := t.String()
	if s == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
