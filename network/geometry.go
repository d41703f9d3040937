package network

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/simplify"
)

const (
	// kmPerDegree is the length of one degree of latitude.
	kmPerDegree = 111.32

	// pointEpsilon, in degrees, absorbs rounding from the trip through the
	// unit sphere.
	pointEpsilon = 1e-9

	// DefaultMaxSnapKm is how far a route endpoint may be from the waterway
	// it is projected onto.
	DefaultMaxSnapKm = 1.0
)

// DistanceMeters approximates the distance between two lng/lat points with an
// equirectangular projection. Good at county scale; not near the poles or
// across more than ~100 km.
func DistanceMeters(a, b orb.Point) float64 {
	meanLat := (a.Lat() + b.Lat()) / 2 * math.Pi / 180
	dx := (a.Lon() - b.Lon()) * math.Cos(meanLat) * kmPerDegree
	dy := (a.Lat() - b.Lat()) * kmPerDegree
	return math.Sqrt(dx*dx+dy*dy) * 1000
}

// LinePoint is a point projected onto a line.
type LinePoint struct {
	Point orb.Point
	// Part is the index of the line within a multi-line.
	Part int
	// Next is the index of the first vertex after Point, or the line length
	// when Point is the last vertex.
	Next int
	// OffsetKm is the distance from the vertex before Point to Point.
	OffsetKm float64
	// DistanceKm is the great-circle distance from the projected point to the
	// original one.
	DistanceKm float64
}

// before reports whether lp comes before other walking the line forwards.
func (lp LinePoint) before(other LinePoint) bool {
	if lp.Part != other.Part {
		return lp.Part < other.Part
	}
	if lp.Next != other.Next {
		return lp.Next < other.Next
	}
	return lp.OffsetKm < other.OffsetKm
}

// NearestPointOnLine returns the point on lines closest to p. If that point
// is more than maxKm away the returned error wraps ErrDistanceGuard; the
// projection is still returned for reporting. maxKm <= 0 uses DefaultMaxSnapKm.
func NearestPointOnLine(p orb.Point, lines orb.MultiLineString, maxKm float64) (LinePoint, error) {
	if maxKm <= 0 {
		maxKm = DefaultMaxSnapKm
	}
	lp, ok := project(p, lines)
	if !ok {
		return LinePoint{}, fmt.Errorf("%w: waterway has no coordinates", ErrGeometry)
	}
	if lp.DistanceKm > maxKm {
		return lp, fmt.Errorf("%w: point is %.0fm from waterway (max: %.0fm)",
			ErrDistanceGuard, lp.DistanceKm*1000, maxKm*1000)
	}
	return lp, nil
}

// project finds the closest point on any part of lines.
func project(p orb.Point, lines orb.MultiLineString) (LinePoint, bool) {
	best := LinePoint{DistanceKm: math.Inf(1)}
	found := false
	for part, ls := range lines {
		if len(ls) == 0 {
			continue
		}
		sl := newSphereLine(ls)
		lp := sl.project(p)
		lp.Part = part
		if lp.DistanceKm < best.DistanceKm {
			best = lp
			found = true
		}
	}
	return best, found
}

// sphereLine is a line on the unit sphere. Repeated consecutive vertices are
// dropped from poly; vertex maps each polyline vertex back to line.
type sphereLine struct {
	line   orb.LineString
	poly   s2.Polyline
	vertex []int
}

func newSphereLine(ls orb.LineString) *sphereLine {
	sl := &sphereLine{line: ls}
	for i, p := range ls {
		if i > 0 && p == ls[i-1] {
			continue
		}
		sl.poly = append(sl.poly, toS2(p))
		sl.vertex = append(sl.vertex, i)
	}
	return sl
}

// project returns the point on the line closest to p. A projection that lands
// on a vertex returns that vertex exactly.
func (sl *sphereLine) project(p orb.Point) LinePoint {
	q, next := sl.poly.Project(toS2(p))
	prev := next - 1
	pt := fromS2(q)

	switch {
	case q == sl.poly[prev] || samePoint(pt, sl.line[sl.vertex[prev]]):
		pt = sl.line[sl.vertex[prev]]
		q = sl.poly[prev]
	case next < len(sl.poly) && samePoint(pt, sl.line[sl.vertex[next]]):
		pt = sl.line[sl.vertex[next]]
		prev, next = next, next+1
		q = sl.poly[prev]
	}

	lp := LinePoint{
		Point:      pt,
		Next:       len(sl.line),
		OffsetKm:   float64(sl.poly[prev].Distance(q)) * orb.EarthRadius / 1000,
		DistanceKm: geo.DistanceHaversine(p, pt) / 1000,
	}
	if next < len(sl.poly) {
		lp.Next = sl.vertex[next]
	}
	return lp
}

func toS2(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}

func fromS2(p s2.Point) orb.Point {
	ll := s2.LatLngFromPoint(p)
	return orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()}
}

// samePoint reports whether a and b are within a rounding error of each
// other (about 0.1 mm).
func samePoint(a, b orb.Point) bool {
	return math.Abs(a.Lon()-b.Lon()) < pointEpsilon && math.Abs(a.Lat()-b.Lat()) < pointEpsilon
}

// SliceBetween returns the part of line between the projections of a and b,
// in the line's own direction regardless of which point comes first.
func SliceBetween(line orb.LineString, a, b orb.Point) (orb.LineString, error) {
	if len(line) < 2 {
		return nil, fmt.Errorf("%w: cannot slice a line of %d points", ErrGeometry, len(line))
	}
	sl := newSphereLine(line)
	start, end := sl.project(a), sl.project(b)
	if end.before(start) {
		start, end = end, start
	}

	out := orb.LineString{start.Point}
	for i := start.Next; i < end.Next; i++ {
		out = appendDistinct(out, line[i])
	}
	out = appendDistinct(out, end.Point)

	if len(out) < 2 {
		return nil, fmt.Errorf("%w: slice has %d points", ErrGeometry, len(out))
	}
	return out, nil
}

// appendDistinct appends p unless it repeats the last point.
func appendDistinct(ls orb.LineString, p orb.Point) orb.LineString {
	if len(ls) > 0 && samePoint(ls[len(ls)-1], p) {
		return ls
	}
	return append(ls, p)
}

// MergedWaterway is the single line built from a group of same-named
// waterway segments. When the segments cannot be concatenated into a usable
// line, Line is nil and Parts holds them combined as a multi-line.
type MergedWaterway struct {
	Name     string
	Segments int
	Line     orb.LineString
	Parts    orb.MultiLineString
}

// Geometry returns the waterway as a multi-line for projection.
func (m MergedWaterway) Geometry() orb.MultiLineString {
	if m.Line != nil {
		return orb.MultiLineString{m.Line}
	}
	return m.Parts
}

// MergeLines concatenates lines, dropping exact coordinate repeats while
// keeping first-seen order. A single line is returned unchanged.
func MergeLines(lines []orb.LineString) (MergedWaterway, error) {
	switch len(lines) {
	case 0:
		return MergedWaterway{}, fmt.Errorf("%w: no segments to merge", ErrGeometry)
	case 1:
		return MergedWaterway{Segments: 1, Line: lines[0]}, nil
	}

	seen := make(map[orb.Point]struct{})
	var merged orb.LineString
	for _, ls := range lines {
		for _, p := range ls {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	if len(merged) >= 2 {
		return MergedWaterway{Segments: len(lines), Line: merged}, nil
	}

	// Not a valid line; fall back to combining the segments as they are.
	var parts orb.MultiLineString
	for _, ls := range lines {
		if len(ls) > 0 {
			parts = append(parts, ls.Clone())
		}
	}
	if len(parts) == 0 {
		return MergedWaterway{}, fmt.Errorf("%w: segments have no coordinates", ErrGeometry)
	}
	return MergedWaterway{Segments: len(lines), Parts: parts}, nil
}

// SimplifyLine applies Douglas-Peucker with the given tolerance in degrees.
// Endpoints are always kept. A tolerance <= 0 returns line unchanged.
func SimplifyLine(line orb.LineString, tolerance float64) orb.LineString {
	if tolerance <= 0 || len(line) < 3 {
		return line
	}
	simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(line.Clone()).(orb.LineString)
	if !ok || len(simplified) < 2 {
		return line
	}
	return simplified
}
