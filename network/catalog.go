package network

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
)

// DefaultBBoxBuffer pads the access-point extent when querying waterways.
const DefaultBBoxBuffer = 0.05

// Catalog is the read-only index of access points for one pass.
type Catalog struct {
	points []AccessPoint
}

// NewCatalog indexes the access points of doc.
func NewCatalog(doc *Document) *Catalog {
	return &Catalog{points: doc.AccessPoints()}
}

// NewCatalogFromPoints builds a catalog from explicit points.
func NewCatalogFromPoints(points []AccessPoint) *Catalog {
	cp := make([]AccessPoint, len(points))
	copy(cp, points)
	return &Catalog{points: cp}
}

// Len returns the number of access points.
func (c *Catalog) Len() int {
	return len(c.points)
}

// Lookup resolves a free-text name to an access point.
func (c *Catalog) Lookup(name string) (AccessPoint, error) {
	m, ok := MatchName(name, c.points, func(p AccessPoint) string { return p.Name })
	if !ok {
		return AccessPoint{}, fmt.Errorf("%w: access point %q", ErrResolution, name)
	}
	if m.Ambiguous > 0 {
		log.Printf("Warning: %q matched %d other access points (%s match), using %q",
			name, m.Ambiguous, m.Tier, m.Value.Name)
	}
	return m.Value, nil
}

// Bound returns the extent of all access points padded by buffer degrees on
// each side. It reports false for an empty catalog.
func (c *Catalog) Bound(buffer float64) (orb.Bound, bool) {
	if len(c.points) == 0 {
		return orb.Bound{}, false
	}
	b := c.points[0].Coord.Bound()
	for _, p := range c.points[1:] {
		b = b.Extend(p.Coord)
	}
	return b.Pad(buffer), true
}
