package network

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	genericWaterWords = regexp.MustCompile(`(?i)\b(river|creek|fork)\b`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// NormalizeRiverName lowercases a waterway name, collapses whitespace and
// drops the words river, creek and fork, so "Drakes Creek" and "Drakes"
// compare equal.
func NormalizeRiverName(name string) string {
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(lower(name)), " ")
	s = genericWaterWords.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// WaterwayGroups groups waterway features by normalized name. Iteration
// follows the order in which each name was first seen.
type WaterwayGroups struct {
	names  []string
	byName map[string][]*geojson.Feature
}

// GroupWaterways groups the named LineString features of fc.
func GroupWaterways(fc *geojson.FeatureCollection) *WaterwayGroups {
	g := &WaterwayGroups{byName: make(map[string][]*geojson.Feature)}
	if fc == nil {
		return g
	}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		if _, ok := f.Geometry.(orb.LineString); !ok {
			continue
		}
		key := NormalizeRiverName(featureName(f))
		if key == "" {
			continue
		}
		if _, ok := g.byName[key]; !ok {
			g.names = append(g.names, key)
		}
		g.byName[key] = append(g.byName[key], f)
	}
	return g
}

// featureName reads the name property, falling back to a nested tags map.
func featureName(f *geojson.Feature) string {
	if name, ok := f.Properties["name"].(string); ok {
		return name
	}
	switch tags := f.Properties["tags"].(type) {
	case map[string]string:
		return tags["name"]
	case map[string]interface{}:
		name, _ := tags["name"].(string)
		return name
	}
	return ""
}

// Len returns the number of distinct waterway names.
func (g *WaterwayGroups) Len() int {
	return len(g.names)
}

// Names returns the normalized names in first-seen order.
func (g *WaterwayGroups) Names() []string {
	return append([]string(nil), g.names...)
}

// Segments returns the features grouped under a normalized name.
func (g *WaterwayGroups) Segments(name string) []*geojson.Feature {
	return g.byName[name]
}

// Match resolves a route's river to a group: the exact normalized name, or
// else the first group whose name contains the river's or is contained by it.
func (g *WaterwayGroups) Match(river string) (string, []*geojson.Feature, bool) {
	key := NormalizeRiverName(river)
	if key == "" {
		return "", nil, false
	}
	if segs, ok := g.byName[key]; ok && len(segs) > 0 {
		return key, segs, true
	}
	for _, name := range g.names {
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return name, g.byName[name], true
		}
	}
	return "", nil, false
}

// Merge resolves river and merges its segments into one waterway.
func (g *WaterwayGroups) Merge(river string) (MergedWaterway, error) {
	name, segs, ok := g.Match(river)
	if !ok {
		return MergedWaterway{}, fmt.Errorf("%w: no waterway named like %q", ErrResolution, river)
	}

	lines := make([]orb.LineString, 0, len(segs))
	for _, f := range segs {
		if ls, ok := f.Geometry.(orb.LineString); ok {
			lines = append(lines, ls)
		}
	}

	merged, err := MergeLines(lines)
	if err != nil {
		return MergedWaterway{}, fmt.Errorf("merging %q: %w", name, err)
	}
	merged.Name = name
	return merged, nil
}
