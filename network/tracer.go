package network

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
)

// TraceOptions configures TraceRoutes.
type TraceOptions struct {
	// MaxSnapKm is how far a route endpoint may lie from its waterway.
	MaxSnapKm float64
	// SimplifyTolerance, in degrees, thins traced paths. 0 keeps every vertex.
	SimplifyTolerance float64
}

// DefaultTraceOptions returns the options used when none are configured.
func DefaultTraceOptions() TraceOptions {
	return TraceOptions{MaxSnapKm: DefaultMaxSnapKm}
}

// TraceRoutes replaces each two-point route with the stretch of its waterway
// between the route's endpoints. Routes with more than two points are already
// traced and skipped. doc is not modified; the traced copy is returned.
func TraceRoutes(doc *Document, groups *WaterwayGroups, opts TraceOptions) (*Document, TraceSummary) {
	out := doc.Clone()
	var summary TraceSummary

	for _, route := range out.Routes() {
		log.Printf("Tracing %q on %q (%d points)", route.Name, route.River, len(route.Coords))

		if len(route.Coords) > 2 {
			log.Printf("  Skipping (already traced)")
			summary.Skipped++
			summary.Outcomes = append(summary.Outcomes, RouteOutcome{
				Route: route.Name, Status: StatusAlreadyTraced, Points: len(route.Coords),
			})
			continue
		}

		path, err := traceRoute(route, groups, opts)
		if err == nil {
			err = out.SetRouteCoordinates(route.Index, path)
		}
		if err != nil {
			rerr := &RouteError{Route: route.Name, Pass: "trace", Err: err}
			log.Printf("  %v", rerr)
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, RouteOutcome{
				Route: route.Name, Status: StatusTraceError, Points: len(route.Coords), Err: rerr,
			})
			continue
		}

		log.Printf("  Updated with %d points", len(path))
		summary.Updated++
		summary.Outcomes = append(summary.Outcomes, RouteOutcome{
			Route: route.Name, Status: StatusTraced, Points: len(path),
		})
	}

	return out, summary
}

// traceRoute computes the traced path for a two-point route.
func traceRoute(route Route, groups *WaterwayGroups, opts TraceOptions) (orb.LineString, error) {
	if len(route.Coords) < 2 {
		return nil, fmt.Errorf("%w: route has %d coordinates", ErrGeometry, len(route.Coords))
	}

	waterway, err := groups.Merge(route.River)
	if err != nil {
		return nil, err
	}
	log.Printf("  Matched waterway %q with %d segments", waterway.Name, waterway.Segments)

	geom := waterway.Geometry()
	start, err := NearestPointOnLine(route.Coords[0], geom, opts.MaxSnapKm)
	if err != nil {
		return nil, fmt.Errorf("snapping start: %w", err)
	}
	end, err := NearestPointOnLine(route.Coords[len(route.Coords)-1], geom, opts.MaxSnapKm)
	if err != nil {
		return nil, fmt.Errorf("snapping end: %w", err)
	}

	if waterway.Line == nil {
		return nil, fmt.Errorf("%w: waterway %q is not a single line", ErrGeometry, waterway.Name)
	}
	path, err := SliceBetween(waterway.Line, start.Point, end.Point)
	if err != nil {
		return nil, fmt.Errorf("extracting path: %w", err)
	}
	return SimplifyLine(path, opts.SimplifyTolerance), nil
}
