// Package siri declares the subset of the SIRI Estimated Timetable schema
// consumed by trainflow and decodes it from both XML and JSON payloads.
//
// The same Go types serve both formats. Elements the schema declares
// repeatable are List values, which accept either a single object or an array
// in JSON and any number of repeated elements in XML. Text values accept the
// plain-string, {"value": ...} and [{"value": ...}] encodings found in
// SIRI-Lite JSON feeds.
package siri

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
)

// Siri is the document root.
type Siri struct {
	XMLName         xml.Name        `xml:"Siri" json:"-"`
	ServiceDelivery ServiceDelivery `xml:"ServiceDelivery" json:"ServiceDelivery"`
}

type ServiceDelivery struct {
	ResponseTimestamp          Text                             `xml:"ResponseTimestamp" json:"ResponseTimestamp"`
	ProducerRef                Text                             `xml:"ProducerRef" json:"ProducerRef"`
	EstimatedTimetableDelivery List[EstimatedTimetableDelivery] `xml:"EstimatedTimetableDelivery" json:"EstimatedTimetableDelivery"`
}

type EstimatedTimetableDelivery struct {
	ResponseTimestamp            Text                               `xml:"ResponseTimestamp" json:"ResponseTimestamp"`
	EstimatedJourneyVersionFrame List[EstimatedJourneyVersionFrame] `xml:"EstimatedJourneyVersionFrame" json:"EstimatedJourneyVersionFrame"`
}

type EstimatedJourneyVersionFrame struct {
	RecordedAtTime          Text                          `xml:"RecordedAtTime" json:"RecordedAtTime"`
	EstimatedVehicleJourney List[EstimatedVehicleJourney] `xml:"EstimatedVehicleJourney" json:"EstimatedVehicleJourney"`
}

type FramedVehicleJourneyRef struct {
	DataFrameRef           Text `xml:"DataFrameRef" json:"DataFrameRef"`
	DatedVehicleJourneyRef Text `xml:"DatedVehicleJourneyRef" json:"DatedVehicleJourneyRef"`
}

type TrainNumbers struct {
	TrainNumberRef List[Text] `xml:"TrainNumberRef" json:"TrainNumberRef"`
}

type EstimatedVehicleJourney struct {
	LineRef                 Text                    `xml:"LineRef" json:"LineRef"`
	DirectionRef            Text                    `xml:"DirectionRef" json:"DirectionRef"`
	FramedVehicleJourneyRef FramedVehicleJourneyRef `xml:"FramedVehicleJourneyRef" json:"FramedVehicleJourneyRef"`
	DatedVehicleJourneyRef  Text                    `xml:"DatedVehicleJourneyRef" json:"DatedVehicleJourneyRef"`
	VehicleMode             Text                    `xml:"VehicleMode" json:"VehicleMode"`
	PublishedLineName       Text                    `xml:"PublishedLineName" json:"PublishedLineName"`
	OriginRef               Text                    `xml:"OriginRef" json:"OriginRef"`
	OriginName              Text                    `xml:"OriginName" json:"OriginName"`
	DestinationRef          Text                    `xml:"DestinationRef" json:"DestinationRef"`
	DestinationName         Text                    `xml:"DestinationName" json:"DestinationName"`
	OperatorRef             Text                    `xml:"OperatorRef" json:"OperatorRef"`
	TrainNumbers            TrainNumbers            `xml:"TrainNumbers" json:"TrainNumbers"`
	RecordedCalls           RecordedCalls           `xml:"RecordedCalls" json:"RecordedCalls"`
	EstimatedCalls          EstimatedCalls          `xml:"EstimatedCalls" json:"EstimatedCalls"`
}

type RecordedCalls struct {
	RecordedCall List[Call] `xml:"RecordedCall" json:"RecordedCall"`
}

type EstimatedCalls struct {
	EstimatedCall List[Call] `xml:"EstimatedCall" json:"EstimatedCall"`
}

// Call covers both RecordedCall and EstimatedCall. Actual* times only appear
// on recorded calls.
type Call struct {
	StopPointRef          Text `xml:"StopPointRef" json:"StopPointRef"`
	StopPointName         Text `xml:"StopPointName" json:"StopPointName"`
	Order                 Text `xml:"Order" json:"Order"`
	AimedArrivalTime      Text `xml:"AimedArrivalTime" json:"AimedArrivalTime"`
	ExpectedArrivalTime   Text `xml:"ExpectedArrivalTime" json:"ExpectedArrivalTime"`
	ActualArrivalTime     Text `xml:"ActualArrivalTime" json:"ActualArrivalTime"`
	AimedDepartureTime    Text `xml:"AimedDepartureTime" json:"AimedDepartureTime"`
	ExpectedDepartureTime Text `xml:"ExpectedDepartureTime" json:"ExpectedDepartureTime"`
	ActualDepartureTime   Text `xml:"ActualDepartureTime" json:"ActualDepartureTime"`
	ArrivalPlatformName   Text `xml:"ArrivalPlatformName" json:"ArrivalPlatformName"`
	DeparturePlatformName Text `xml:"DeparturePlatformName" json:"DeparturePlatformName"`
}

// List is a repeatable element. In JSON a lone object decodes as a
// one-element list and null as an empty one.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = List[T]{one}
	return nil
}

// Text is a scalar SIRI value.
type Text string

type valueWrapper struct {
	Value json.RawMessage `json:"value"`
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{':
		var w valueWrapper
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		return t.UnmarshalJSON(w.Value)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			*t = ""
			return nil
		}
		return t.UnmarshalJSON(items[0])
	default:
		// numbers and booleans keep their literal spelling
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string {
	return strings.TrimSpace(string(t))
}
