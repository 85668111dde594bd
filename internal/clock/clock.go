// Package clock supplies the reference time used to classify and position
// journeys. Production uses the system time; tests pin it with MockClock and
// captured feeds can be replayed with ReplayClock.
package clock

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock is the single source of "now" for the refresh loop and the read path.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a thread-safe settable clock for tests.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d. Negative values move it backwards.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// ReplayClock starts at a fixed instant and then ticks at wall-clock speed.
// It lets a feed captured at a known time be replayed with trains moving.
type ReplayClock struct {
	start   time.Time
	started time.Time
	since   func(time.Time) time.Duration
}

// NewReplayClock returns a clock reading start at construction time.
func NewReplayClock(start time.Time) *ReplayClock {
	return &ReplayClock{start: start, started: time.Now(), since: time.Since}
}

func (r *ReplayClock) Now() time.Time {
	return r.start.Add(r.since(r.started))
}

// FromEnv returns a ReplayClock when envVar holds a parsable time and
// RealClock otherwise. An unparsable value is reported so the caller can log
// it; the returned clock is still usable.
func FromEnv(envVar string, loc *time.Location) (Clock, error) {
	if envVar == "" {
		return RealClock{}, nil
	}
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return RealClock{}, nil
	}
	t, err := ParseTime(raw, loc)
	if err != nil {
		return RealClock{}, fmt.Errorf("%s: %w", envVar, err)
	}
	return NewReplayClock(t), nil
}

// ParseTime accepts RFC 3339 or, when loc is given, a local date-time
// without offset.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		return time.Time{}, errors.New("time without offset requires a location")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339 or YYYY-MM-DD HH:MM:SS", s)
}
