package network

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRiverName(t *testing.T) {
	tests := map[string]string{
		"Drakes Creek":            "drakes",
		"  Barren   River ":       "barren",
		"West Fork Drakes Creek":  "west drakes",
		"Green River Creek":       "green",
		"Riverside Canal":         "riverside canal",
		"Trammel Fork":            "trammel",
		"":                        "",
		"River":                   "",
		"Big\tReedy \n Creek":     "big reedy",
		"GASPER RIVER":            "gasper",
	}
	for in, want := range tests {
		if got := NormalizeRiverName(in); got != want {
			t.Errorf("NormalizeRiverName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupWaterways(t *testing.T) {
	fc := jonesCreekWaterways()

	// Unnamed and non-line features are ignored.
	fc.Append(geojson.NewFeature(orb.LineString{{1, 1}, {2, 2}}))
	point := geojson.NewFeature(orb.Point{0, 0})
	point.Properties["name"] = "Jones Creek"
	fc.Append(point)

	g := GroupWaterways(fc)

	assert.Equal(t, []string{"jones", "barren"}, g.Names())
	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Segments("jones"), 2)
	assert.Len(t, g.Segments("barren"), 1)
}

func TestGroupWaterways_TagsName(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}})
	f.Properties["tags"] = map[string]interface{}{"name": "Big Reedy Creek", "waterway": "stream"}
	fc.Append(f)

	g := GroupWaterways(fc)
	assert.Equal(t, []string{"big reedy"}, g.Names())
}

func TestGroupWaterways_Nil(t *testing.T) {
	g := GroupWaterways(nil)
	assert.Equal(t, 0, g.Len())
}

func TestWaterwayGroups_Match(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for _, name := range []string{"West Fork Drakes Creek", "Drakes Creek", "Barren River"} {
		f := geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}})
		f.Properties["name"] = name
		fc.Append(f)
	}
	g := GroupWaterways(fc)

	tests := []struct {
		river  string
		want   string
		wantOK bool
	}{
		{"Drakes Creek", "drakes", true},
		{"Barren", "barren", true},
		{"barren river", "barren", true},
		// No exact group: first containing name in first-seen order.
		{"West Fork", "west drakes", true},
		{"Lower Barren", "barren", true},
		{"Green River", "", false},
		{"Creek", "", false},
	}
	for _, tt := range tests {
		name, _, ok := g.Match(tt.river)
		if ok != tt.wantOK || name != tt.want {
			t.Errorf("Match(%q) = %q, %v; want %q, %v", tt.river, name, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWaterwayGroups_Merge(t *testing.T) {
	g := GroupWaterways(jonesCreekWaterways())

	merged, err := g.Merge("Jones Creek")
	require.NoError(t, err)
	assert.Equal(t, "jones", merged.Name)
	assert.Equal(t, 2, merged.Segments)
	assert.Equal(t, orb.LineString{{0, 0}, {0.01, 0}, {0.02, 0}}, merged.Line)

	_, err = g.Merge("Mud River")
	if !errors.Is(err, ErrResolution) {
		t.Errorf("expected ErrResolution, got %v", err)
	}
}
