// Package network holds the static rail network datasets: stations keyed by
// UIC code and the rail segments positions are snapped onto.
package network

import (
	"regexp"
	"sort"

	"github.com/the-lmc-group/trainflow/internal/models"
)

var uicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`TER-(\d{7,8})$`),
	regexp.MustCompile(`FR:ScheduledStopPoint::(\d+)`),
	regexp.MustCompile(`IDFM:monomodalStopPlace:(\d+)`),
}

// ExtractUIC maps a provider stop reference to a station UIC code. It returns
// "" for references matching none of the known patterns, including bare codes.
func ExtractUIC(stopRef string) string {
	for _, re := range uicPatterns {
		if m := re.FindStringSubmatch(stopRef); m != nil {
			return m[1]
		}
	}
	return ""
}

// Stations is an immutable UIC index.
type Stations struct {
	byUIC map[string]models.Station
}

func NewStations(stations []models.Station) *Stations {
	byUIC := make(map[string]models.Station, len(stations))
	for _, s := range stations {
		byUIC[s.UIC] = s
	}
	return &Stations{byUIC: byUIC}
}

// Get looks a station up by UIC code.
func (s *Stations) Get(uic string) (models.Station, bool) {
	if s == nil {
		return models.Station{}, false
	}
	st, ok := s.byUIC[uic]
	return st, ok
}

// Resolve looks a station up by provider stop reference.
func (s *Stations) Resolve(stopRef string) (models.Station, bool) {
	uic := ExtractUIC(stopRef)
	if uic == "" {
		return models.Station{}, false
	}
	return s.Get(uic)
}

func (s *Stations) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byUIC)
}

// All returns the stations sorted by UIC code.
func (s *Stations) All() []models.Station {
	if s == nil {
		return nil
	}
	out := make([]models.Station, 0, len(s.byUIC))
	for _, st := range s.byUIC {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UIC < out[j].UIC })
	return out
}
