package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean Earth radius
	RadiusOfEarthInMeters = 6371010.0

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// CoordinateBounds is an axis-aligned box in degrees.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// EmptyBounds returns bounds that any Extend call replaces.
func EmptyBounds() CoordinateBounds {
	return CoordinateBounds{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLon: math.Inf(1),
		MaxLon: math.Inf(-1),
	}
}

// IsEmpty reports whether no point was ever added.
func (b CoordinateBounds) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// Extend grows b to contain the point.
func (b CoordinateBounds) Extend(lat, lon float64) CoordinateBounds {
	return CoordinateBounds{
		MinLat: math.Min(b.MinLat, lat),
		MaxLat: math.Max(b.MaxLat, lat),
		MinLon: math.Min(b.MinLon, lon),
		MaxLon: math.Max(b.MaxLon, lon),
	}
}

// Pad returns b widened by pad degrees on every side.
func (b CoordinateBounds) Pad(pad float64) CoordinateBounds {
	return CoordinateBounds{
		MinLat: b.MinLat - pad,
		MaxLat: b.MaxLat + pad,
		MinLon: b.MinLon - pad,
		MaxLon: b.MaxLon + pad,
	}
}

// Contains is inclusive on every edge.
func (b CoordinateBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// CalculateBoundsFromSpan calculates a bounding box from lat/lon offsets.
func CalculateBoundsFromSpan(lat, lon, latOffset, lonOffset float64) CoordinateBounds {
	return CoordinateBounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// Distance is the great-circle distance in meters (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	a = math.Min(1, math.Max(0, a))

	return 2 * RadiusOfEarthInMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PlanarDistance is the Euclidean distance between two points in degree
// space, with x as longitude and y as latitude.
func PlanarDistance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// ProjectOntoSegment returns the point of segment (x1,y1)-(x2,y2) closest to
// (px,py) in degree space. The projection parameter is clamped to [0,1] and a
// degenerate segment projects onto its first endpoint.
func ProjectOntoSegment(px, py, x1, y1, x2, y2 float64) (float64, float64) {
	dx := x2 - x1
	dy := y2 - y1
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return x1, y1
	}

	t := ((px-x1)*dx + (py-y1)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return x1 + t*dx, y1 + t*dy
}

// PlanarBearing is atan2(dy, dx) in degrees: 0 points east, 90 north.
func PlanarBearing(x1, y1, x2, y2 float64) float64 {
	return math.Atan2(y2-y1, x2-x1) * radToDeg
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, ratio float64) float64 {
	return a + (b-a)*ratio
}
