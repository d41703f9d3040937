package network

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{"simple", "A to B", "A", "B", false},
		{"trimmed", "  Rockfield Ramp  to  Phil Moore Park ", "Rockfield Ramp", "Phil Moore Park", false},
		{"split on first separator", "Put In to Halfway to Take Out", "Put In", "Halfway to Take Out", false},
		{"separator inside a word", "Toronto Landing", "", "", true},
		{"no separator", "Drakes Creek Loop", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseRouteName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("expected ErrParse, got %v", err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestAlignRoutes(t *testing.T) {
	doc := abcDocument()
	before, err := doc.Encode()
	require.NoError(t, err)

	out, summary := AlignRoutes(doc, NewCatalog(doc))

	assert.Equal(t, 2, summary.Fixed)
	assert.Equal(t, 1, summary.Reversed)
	assert.Equal(t, 0, summary.Errored)

	ab := routeByName(t, out, "A to B")
	assert.Equal(t, orb.LineString{{0, 0}, {0.5, 0.5}, {1, 1}}, ab.Coords, "backwards route should be reversed")

	bc := routeByName(t, out, "B to C")
	assert.Equal(t, orb.LineString{{1, 1}, {1.5, 1.5}, {2, 2}}, bc.Coords, "endpoints should be snapped")

	after, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "input document must not be modified")
}

func TestAlignRoutes_Idempotent(t *testing.T) {
	doc := abcDocument()

	once, _ := AlignRoutes(doc, NewCatalog(doc))
	twice, summary := AlignRoutes(once, NewCatalog(once))

	assert.Equal(t, 0, summary.Reversed)

	a, err := once.Encode()
	require.NoError(t, err)
	b, err := twice.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAlignRoutes_OnlyBothEndsReverse(t *testing.T) {
	doc := NewDocument()
	doc.AddFeature(accessPointFeature("A", "r", orb.Point{0, 0}))
	doc.AddFeature(accessPointFeature("B", "r", orb.Point{1, 1}))
	// Both ends sit nearer A: only one condition of the reversal rule holds.
	doc.AddFeature(routeFeature("A to B", "r", orb.LineString{{0.4, 0.4}, {0.1, 0.1}}))

	out, summary := AlignRoutes(doc, NewCatalog(doc))
	assert.Equal(t, 0, summary.Reversed)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}}, routeByName(t, out, "A to B").Coords)
}

func TestAlignRoutes_Errors(t *testing.T) {
	doc := abcDocument()
	doc.AddFeature(routeFeature("X to Y", "Test River", orb.LineString{{5, 5}, {6, 6}}))
	doc.AddFeature(routeFeature("Scenic Loop", "Test River", orb.LineString{{0, 0}, {1, 1}}))
	doc.AddFeature(routeFeature("A to C", "Test River", orb.LineString{{0, 0}}))

	out, summary := AlignRoutes(doc, NewCatalog(doc))

	assert.Equal(t, 2, summary.Fixed)
	assert.Equal(t, 3, summary.Errored)

	wantKinds := map[string]error{
		"X to Y":      ErrResolution,
		"Scenic Loop": ErrParse,
		"A to C":      ErrGeometry,
	}
	for _, o := range summary.Outcomes {
		kind, ok := wantKinds[o.Route]
		if !ok {
			continue
		}
		assert.Equal(t, StatusAlignError, o.Status, o.Route)
		assert.ErrorIs(t, o.Err, kind, o.Route)

		var rerr *RouteError
		if assert.ErrorAs(t, o.Err, &rerr) {
			assert.Equal(t, "align", rerr.Pass)
		}
	}

	// Failed routes are left as they were.
	assert.Equal(t, orb.LineString{{5, 5}, {6, 6}}, routeByName(t, out, "X to Y").Coords)
	assert.Equal(t, orb.LineString{{0, 0}}, routeByName(t, out, "A to C").Coords)
}

func TestAlignRoutes_NoRoutes(t *testing.T) {
	doc := NewDocument()
	doc.AddFeature(accessPointFeature("A", "r", orb.Point{0, 0}))

	_, summary := AlignRoutes(doc, NewCatalog(doc))
	assert.Equal(t, AlignSummary{}, summary)
}
