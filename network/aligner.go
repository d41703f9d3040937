package network

import (
	"fmt"
	"log"
	"strings"

	"github.com/paulmach/orb"
)

// routeSeparator joins the endpoint names in a route name.
const routeSeparator = " to "

// ParseRouteName splits "From to To" on the first separator. Anything after
// it, including further separators, is the destination.
func ParseRouteName(name string) (from, to string, err error) {
	before, after, found := strings.Cut(name, routeSeparator)
	if !found {
		return "", "", fmt.Errorf("%w: %q (expected \"A to B\" format)", ErrParse, name)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), nil
}

// alignment describes how one route was corrected.
type alignment struct {
	from, to       AccessPoint
	reversed       bool
	startSnapMeter float64
	endSnapMeter   float64
}

// AlignRoutes orients every route to match its name and snaps its endpoints
// onto the named access points. doc is not modified; the corrected copy is
// returned. Routes that cannot be parsed or resolved are left as they were.
func AlignRoutes(doc *Document, catalog *Catalog) (*Document, AlignSummary) {
	out := doc.Clone()
	var summary AlignSummary

	for _, route := range out.Routes() {
		log.Printf("Aligning %q (%d coordinates)", route.Name, len(route.Coords))

		coords, a, err := alignRoute(route, catalog)
		if err == nil {
			err = out.SetRouteCoordinates(route.Index, coords)
		}
		if err != nil {
			rerr := &RouteError{Route: route.Name, Pass: "align", Err: err}
			log.Printf("  %v", rerr)
			summary.Errored++
			summary.Outcomes = append(summary.Outcomes, RouteOutcome{
				Route: route.Name, Status: StatusAlignError, Points: len(route.Coords), Err: rerr,
			})
			continue
		}

		if a.reversed {
			log.Printf("  Reversed: start was closer to %q than to %q", a.to.Name, a.from.Name)
			summary.Reversed++
		}
		log.Printf("  Matched %q -> %q; snapped start %.1fm, end %.1fm",
			a.from.Name, a.to.Name, a.startSnapMeter, a.endSnapMeter)

		summary.Fixed++
		summary.Outcomes = append(summary.Outcomes, RouteOutcome{
			Route: route.Name, Status: StatusAligned, Reversed: a.reversed, Points: len(coords),
		})
	}

	return out, summary
}

// alignRoute returns the corrected coordinates for a route without touching
// the route itself.
func alignRoute(route Route, catalog *Catalog) (orb.LineString, alignment, error) {
	var a alignment

	if len(route.Coords) < 2 {
		return nil, a, fmt.Errorf("%w: route has %d coordinates", ErrGeometry, len(route.Coords))
	}

	fromName, toName, err := ParseRouteName(route.Name)
	if err != nil {
		return nil, a, err
	}
	if a.from, err = catalog.Lookup(fromName); err != nil {
		return nil, a, err
	}
	if a.to, err = catalog.Lookup(toName); err != nil {
		return nil, a, err
	}

	coords := route.Coords.Clone()
	start, end := coords[0], coords[len(coords)-1]

	startToFrom := DistanceMeters(start, a.from.Coord)
	startToTo := DistanceMeters(start, a.to.Coord)
	endToFrom := DistanceMeters(end, a.from.Coord)
	endToTo := DistanceMeters(end, a.to.Coord)

	// Only a route whose both ends sit nearer the opposite endpoint is
	// considered drawn backwards.
	if startToTo < startToFrom && endToFrom < endToTo {
		coords.Reverse()
		a.reversed = true
	}

	last := len(coords) - 1
	a.startSnapMeter = DistanceMeters(coords[0], a.from.Coord)
	a.endSnapMeter = DistanceMeters(coords[last], a.to.Coord)
	coords[0] = a.from.Coord
	coords[last] = a.to.Coord

	return coords, a, nil
}
