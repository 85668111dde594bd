package position

import (
	"log/slog"
	"sort"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/the-lmc-group/trainflow/internal/lifecycle"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/network"
	"github.com/the-lmc-group/trainflow/internal/utils"
	"github.com/twpayne/go-polyline"
)

// DefaultSnapTolerance is the snapping radius in degrees.
const DefaultSnapTolerance = 0.01

type StationResolver interface {
	Resolve(stopRef string) (models.Station, bool)
}

type Snapper interface {
	Snap(lat, lon, tolerance float64) (network.SnapResult, bool)
}

// Positioner computes read-time positions. It holds no per-read state and is
// safe for concurrent use.
type Positioner struct {
	stations  StationResolver
	rails     Snapper
	tolerance float64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPositioner wires the station index and rail network. rails and m may be
// nil; a non-positive tolerance selects DefaultSnapTolerance.
func NewPositioner(stations StationResolver, rails Snapper, tolerance float64, m *metrics.Metrics, logger *slog.Logger) *Positioner {
	if tolerance <= 0 {
		tolerance = DefaultSnapTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Positioner{
		stations:  stations,
		rails:     rails,
		tolerance: tolerance,
		metrics:   m,
		logger:    logger.With(slog.String("component", "positioner")),
	}
}

func (p *Positioner) Tolerance() float64 {
	return p.tolerance
}

type outcome int

const (
	positioned outcome = iota
	noBracket
	unresolvedStation
)

// Position places one journey at now. It fails when the journey has no
// bracket at now or when either bracketing stop has no known station.
func (p *Positioner) Position(j models.VehicleJourney, now time.Time) (models.InterpolatedJourney, bool) {
	ij, res := p.position(j, now)
	return ij, res == positioned
}

func (p *Positioner) position(j models.VehicleJourney, now time.Time) (models.InterpolatedJourney, outcome) {
	stops := TimedStops(j)
	bracket, ok := locate(stops, now)
	if !ok {
		return models.InterpolatedJourney{}, noBracket
	}

	last, okLast := p.stations.Resolve(bracket.From.StopRef)
	next, okNext := p.stations.Resolve(bracket.To.StopRef)
	if !okLast || !okNext {
		return models.InterpolatedJourney{}, unresolvedStation
	}

	a, b := last.Location(), next.Location()
	raw := Interpolate(a, b, bracket.Ratio)

	out := models.InterpolatedJourney{
		Journey:        j,
		Status:         models.StatusActive,
		LastStopID:     bracket.From.StopRef,
		NextStopID:     bracket.To.StopRef,
		LastStop:       &last,
		NextStop:       &next,
		LastStopCoords: a,
		NextStopCoords: b,
		TA:             bracket.From.Time,
		TB:             bracket.To.Time,
		Ratio:          bracket.Ratio,
		RawPosition:    raw,
		Position:       raw,
		Bearing:        utils.PlanarBearing(a.Lon, a.Lat, b.Lon, b.Lat),
		Delay:          DelayLabel(j),
		Path:           p.path(stops),
	}

	if p.rails != nil {
		snap, hit := p.rails.Snap(raw.Lat, raw.Lon, p.tolerance)
		p.metrics.ObserveSnap(hit)
		if hit {
			out.Position = models.Location{Lat: snap.Lat, Lon: snap.Lon}
			out.Bearing = snap.Bearing
			out.Snapped = true
			out.SnapOffsetMeters = utils.Distance(raw.Lat, raw.Lon, snap.Lat, snap.Lon)
		}
	}

	return out, positioned
}

type positionResult struct {
	journey models.InterpolatedJourney
	outcome outcome
}

// Positions places every journey active at now, in input order. Journeys are
// classified against now rather than the refresh time; the result is never
// nil.
func (p *Positioner) Positions(journeys []models.VehicleJourney, now time.Time) []models.InterpolatedJourney {
	active := make([]models.VehicleJourney, 0, len(journeys))
	for _, j := range journeys {
		if lifecycle.Classify(j, now) != models.StatusActive {
			continue
		}
		j.Status = models.StatusActive
		j.DepartIn = lifecycle.DepartIn(j, now)
		active = append(active, j)
	}

	results := iter.Map(active, func(j *models.VehicleJourney) positionResult {
		ij, res := p.position(*j, now)
		return positionResult{journey: ij, outcome: res}
	})

	out := make([]models.InterpolatedJourney, 0, len(results))
	unresolved := 0
	for _, r := range results {
		switch r.outcome {
		case positioned:
			out = append(out, r.journey)
		case unresolvedStation:
			unresolved++
		}
	}

	if unresolved > 0 {
		p.logger.Debug("journeys skipped with unknown bracketing stations",
			slog.Int("count", unresolved))
	}
	p.metrics.ObservePositioned(len(out), unresolved)
	return out
}

// Upcoming lists journeys that have not started at now, soonest first. A
// positive horizon drops those starting later than now+horizon.
func (p *Positioner) Upcoming(journeys []models.VehicleJourney, now time.Time, horizon time.Duration) []models.UpcomingJourney {
	out := make([]models.UpcomingJourney, 0)
	for _, j := range journeys {
		if lifecycle.Classify(j, now) != models.StatusUpcoming {
			continue
		}
		departIn := lifecycle.DepartIn(j, now)
		if departIn == nil {
			continue
		}
		if horizon > 0 && time.Duration(*departIn)*time.Second > horizon {
			continue
		}
		j.Status = models.StatusUpcoming
		j.DepartIn = departIn

		calls := j.Calls()
		first := calls[0]
		departAt, _ := first.StartTime()

		u := models.UpcomingJourney{
			Journey:    j,
			DepartIn:   *departIn,
			DepartAt:   departAt,
			Delay:      DelayLabel(j),
			FirstStop:  first.StopPointRef,
			ProviderID: j.Provider,
		}
		if st, ok := p.stations.Resolve(first.StopPointRef); ok {
			u.Origin = &st
		}
		out = append(out, u)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].DepartIn != out[b].DepartIn {
			return out[a].DepartIn < out[b].DepartIn
		}
		return out[a].Journey.ID() < out[b].Journey.ID()
	})
	return out
}

// path encodes the resolvable stops of the journey in time order as a
// polyline, or "" when fewer than two distinct points remain.
func (p *Positioner) path(stops []TimedStop) string {
	coords := make([][]float64, 0, len(stops))
	for _, s := range stops {
		st, ok := p.stations.Resolve(s.StopRef)
		if !ok {
			continue
		}
		if n := len(coords); n > 0 && coords[n-1][0] == st.Lat && coords[n-1][1] == st.Lon {
			continue
		}
		coords = append(coords, []float64{st.Lat, st.Lon})
	}
	if len(coords) < 2 {
		return ""
	}
	return string(polyline.EncodeCoords(coords))
}
