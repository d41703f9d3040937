package network

import (
	"errors"
	"fmt"
)

// Error kinds. Per-route failures wrap one of the first four and never abort
// a pass; ErrAcquisition aborts the tracing pass before anything is modified.
var (
	// ErrParse means a route name is not in the "A to B" form.
	ErrParse = errors.New("cannot parse route name")

	// ErrResolution means an endpoint or river name matched nothing.
	ErrResolution = errors.New("no matching entity")

	// ErrGeometry means a merge, projection or slice produced a degenerate result.
	ErrGeometry = errors.New("invalid geometry")

	// ErrDistanceGuard means a projected point is farther from the original
	// coordinate than the configured maximum.
	ErrDistanceGuard = errors.New("point too far from waterway")

	// ErrAcquisition means every waterway source endpoint failed.
	ErrAcquisition = errors.New("waterway acquisition failed")
)

// RouteError records why a single route was left untouched by a pass.
type RouteError struct {
	Route string
	Pass  string
	Err   error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Pass, e.Route, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
