package models

import (
	"time"

	"github.com/the-lmc-group/trainflow/internal/clock"
)

// ResponseModel wraps non-collection API replies and errors.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Data        any    `json:"data,omitempty"`
}

func ResponseCurrentTime(c clock.Clock) int64 {
	return c.Now().UnixMilli()
}

func NewOKResponse(data any, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Text:        "OK",
		Data:        data,
	}
}

type CurrentTimeData struct {
	Time         int64  `json:"time"`
	ReadableTime string `json:"readableTime"`
}

func NewCurrentTimeData(t time.Time) CurrentTimeData {
	return CurrentTimeData{
		Time:         t.UnixMilli(),
		ReadableTime: t.Format(time.RFC3339),
	}
}

// ProviderStatus reports the outcome of the last fetch of one provider.
type ProviderStatus struct {
	Name        string    `json:"name"`
	Publisher   string    `json:"publisher,omitempty"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	Journeys    int       `json:"journeys"`
	DurationMs  int64     `json:"durationMs"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Forwarded   bool      `json:"forwarded"`
	StatusCode  int       `json:"statusCode,omitempty"`
	Description string    `json:"coverage,omitempty"`
}

// ProvidersData is the payload of the provider status endpoint.
type ProvidersData struct {
	Generation  uint64           `json:"generation"`
	LastUpdated time.Time        `json:"lastUpdated,omitzero"`
	Journeys    int              `json:"journeys"`
	Providers   []ProviderStatus `json:"providers"`
}
