package network

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/the-lmc-group/trainflow/internal/logging"
	"github.com/the-lmc-group/trainflow/internal/utils"
	"github.com/tidwall/rtree"
)

// RailLine is one record of the rail segments dataset: a polyline of
// [lon, lat] points with its overall bounding box.
type RailLine struct {
	ID       string       `json:"id,omitempty"`
	Provider string       `json:"provider"`
	LineName string       `json:"lineName,omitempty"`
	XMin     float64      `json:"xMin"`
	YMin     float64      `json:"yMin"`
	XMax     float64      `json:"xMax"`
	YMax     float64      `json:"yMax"`
	Coords   [][2]float64 `json:"coords"`
}

// segment is a two-point piece of a RailLine.
type segment struct {
	line   int
	x1, y1 float64
	x2, y2 float64
}

// SnapResult is the closest point of the network to a query position.
type SnapResult struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
	LineID   string  `json:"lineId,omitempty"`
	Provider string  `json:"provider,omitempty"`
	LineName string  `json:"lineName,omitempty"`
}

// RailNetwork answers nearest-segment queries. The dataset is read on first
// use; a missing or unreadable file yields an empty network.
type RailNetwork struct {
	path   string
	logger *slog.Logger

	once     sync.Once
	lines    []RailLine
	segments []segment
	index    rtree.RTreeG[int]
	bounds   utils.CoordinateBounds
	loadErr  error
}

// NewRailNetwork returns a network backed by the dataset at path, which may
// be gzip-compressed.
func NewRailNetwork(path string, logger *slog.Logger) *RailNetwork {
	if logger == nil {
		logger = slog.Default()
	}
	return &RailNetwork{
		path:   path,
		logger: logger.With(slog.String("component", "rail_network")),
	}
}

// NewRailNetworkFromLines builds a network from already decoded lines.
func NewRailNetworkFromLines(lines []RailLine) *RailNetwork {
	n := &RailNetwork{logger: slog.Default().With(slog.String("component", "rail_network"))}
	n.once.Do(func() { n.build(lines) })
	return n
}

// Load reads the dataset once. It is safe to call concurrently and is
// implied by every query.
func (n *RailNetwork) Load() {
	n.once.Do(n.loadFromFile)
}

// LoadError is the error of the one-time load, nil on success.
func (n *RailNetwork) LoadError() error {
	n.Load()
	return n.loadErr
}

func (n *RailNetwork) loadFromFile() {
	start := time.Now()

	lines, err := ReadRailLines(n.path)
	if err != nil {
		n.loadErr = err
		n.logger.Warn("rail network unavailable, positions will not be snapped",
			slog.String("path", n.path),
			slog.String("error", err.Error()))
		n.build(nil)
		return
	}

	n.build(lines)
	logging.LogOperation(n.logger, "rail_network_loaded",
		slog.String("path", n.path),
		slog.Int("lines", len(n.lines)),
		slog.Int("segments", len(n.segments)),
		slog.Duration("duration", time.Since(start)))
}

func (n *RailNetwork) build(lines []RailLine) {
	n.lines = lines
	n.bounds = utils.EmptyBounds()
	for li, line := range lines {
		for i := 0; i+1 < len(line.Coords); i++ {
			a, b := line.Coords[i], line.Coords[i+1]
			seg := segment{line: li, x1: a[0], y1: a[1], x2: b[0], y2: b[1]}
			idx := len(n.segments)
			n.segments = append(n.segments, seg)
			n.index.Insert(
				[2]float64{math.Min(seg.x1, seg.x2), math.Min(seg.y1, seg.y2)},
				[2]float64{math.Max(seg.x1, seg.x2), math.Max(seg.y1, seg.y2)},
				idx,
			)
			n.bounds = n.bounds.Extend(seg.y1, seg.x1).Extend(seg.y2, seg.x2)
		}
	}
}

// ReadRailLines decodes a rail segments file. Gzip input is detected from
// the .gz suffix or the gzip magic number.
func ReadRailLines(path string) ([]RailLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(f, slog.Default(), "rail_segments_file")

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); strings.HasSuffix(path, ".gz") || (len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip rail segments: %w", err)
		}
		defer logging.SafeCloseWithLogging(gz, slog.Default(), "rail_segments_gzip")
		r = gz
	}

	return ParseRailLines(r)
}

// ParseRailLines decodes the JSON array of rail lines.
func ParseRailLines(r io.Reader) ([]RailLine, error) {
	var lines []RailLine
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, fmt.Errorf("decode rail segments: %w", err)
	}
	return lines, nil
}

// Snap finds the closest point of the network to (lat, lon) among segments
// whose box lies within tolerance degrees of it. The match is reported only
// when its planar distance is strictly below tolerance. Bearing is the
// direction of the matched segment, atan2(dLat, dLon) in degrees. Ties go to
// the segment that comes first in the dataset.
func (n *RailNetwork) Snap(lat, lon, tolerance float64) (SnapResult, bool) {
	n.Load()
	if len(n.segments) == 0 || !(tolerance > 0) || math.IsNaN(lat) || math.IsNaN(lon) {
		return SnapResult{}, false
	}

	if !n.bounds.Pad(tolerance).Contains(lat, lon) {
		return SnapResult{}, false
	}

	window := utils.CalculateBoundsFromSpan(lat, lon, tolerance, tolerance)

	best := -1
	bestDistance := math.Inf(1)
	var bestX, bestY float64
	n.index.Search(
		[2]float64{window.MinLon, window.MinLat},
		[2]float64{window.MaxLon, window.MaxLat},
		func(_, _ [2]float64, idx int) bool {
			seg := n.segments[idx]
			x, y := utils.ProjectOntoSegment(lon, lat, seg.x1, seg.y1, seg.x2, seg.y2)
			d := utils.PlanarDistance(lon, lat, x, y)
			if d < bestDistance || (d == bestDistance && idx < best) {
				best, bestDistance, bestX, bestY = idx, d, x, y
			}
			return true
		},
	)

	if best < 0 || !(bestDistance < tolerance) {
		return SnapResult{}, false
	}

	seg := n.segments[best]
	line := n.lines[seg.line]
	return SnapResult{
		Lat:      bestY,
		Lon:      bestX,
		Bearing:  utils.PlanarBearing(seg.x1, seg.y1, seg.x2, seg.y2),
		Distance: bestDistance,
		LineID:   line.ID,
		Provider: line.Provider,
		LineName: line.LineName,
	}, true
}

// Lines returns the decoded dataset.
func (n *RailNetwork) Lines() []RailLine {
	n.Load()
	return n.lines
}

func (n *RailNetwork) SegmentCount() int {
	n.Load()
	return len(n.segments)
}

// Bounds is the extent of every segment; empty for an empty network.
func (n *RailNetwork) Bounds() utils.CoordinateBounds {
	n.Load()
	return n.bounds
}
