package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func accessPointFeature(name, river string, p orb.Point) *Feature {
	return NewFeature(PointGeometry(p), map[string]interface{}{
		"type":  FeatureTypeAccessPoint,
		"name":  name,
		"river": river,
	})
}

func routeFeature(name, river string, ls orb.LineString) *Feature {
	return NewFeature(LineStringGeometry(ls), map[string]interface{}{
		"type":       FeatureTypeRoute,
		"route_name": name,
		"river":      river,
	})
}

// abcDocument has access points A, B and C on a diagonal, a backwards
// "A to B" route and a forwards "B to C" route that misses its endpoints.
func abcDocument() *Document {
	doc := NewDocument()
	doc.AddFeature(accessPointFeature("A", "Test River", orb.Point{0, 0}))
	doc.AddFeature(accessPointFeature("B", "Test River", orb.Point{1, 1}))
	doc.AddFeature(accessPointFeature("C", "Test River", orb.Point{2, 2}))
	doc.AddFeature(routeFeature("A to B", "Test River", orb.LineString{{1, 1}, {0.5, 0.5}, {0, 0}}))
	doc.AddFeature(routeFeature("B to C", "Test River", orb.LineString{{1.001, 1}, {1.5, 1.5}, {1.999, 2}}))
	return doc
}

// jonesCreekDocument has two access points near Jones Creek and an untraced
// route between them.
func jonesCreekDocument() *Document {
	doc := NewDocument()
	doc.AddFeature(accessPointFeature("Upper Ford", "Jones Creek", orb.Point{0.001, 0.0005}))
	doc.AddFeature(accessPointFeature("Lower Ford", "Jones Creek", orb.Point{0.019, -0.0005}))
	doc.AddFeature(routeFeature("Upper Ford to Lower Ford", "Jones Creek",
		orb.LineString{{0.001, 0.0005}, {0.019, -0.0005}}))
	return doc
}

// jonesCreekWaterways returns Jones Creek in two fragments that share a
// vertex, plus an unrelated river.
func jonesCreekWaterways() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	upper := geojson.NewFeature(orb.LineString{{0, 0}, {0.01, 0}})
	upper.Properties["name"] = "Jones Creek"
	fc.Append(upper)

	other := geojson.NewFeature(orb.LineString{{5, 5}, {5.1, 5.1}})
	other.Properties["name"] = "Barren River"
	fc.Append(other)

	lower := geojson.NewFeature(orb.LineString{{0.01, 0}, {0.02, 0}})
	lower.Properties["name"] = "Jones Creek"
	fc.Append(lower)

	return fc
}

// writeDocument stores doc in its canonical encoding and returns the path.
func writeDocument(t *testing.T, doc *Document) string {
	t.Helper()
	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "blueways.geojson")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func routeByName(t *testing.T, doc *Document, name string) Route {
	t.Helper()
	for _, r := range doc.Routes() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("route %q not found", name)
	return Route{}
}
