package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/paulmach/orb"
)

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint           GeometryType = "Point"
	GeometryLineString      GeometryType = "LineString"
	GeometryPolygon         GeometryType = "Polygon"
	GeometryMultiLineString GeometryType = "MultiLineString"
)

// Geometry is a GeoJSON geometry whose coordinates stay raw until a pass
// needs them, so untouched geometries are written back exactly as read.
type Geometry struct {
	Type        GeometryType
	Coordinates json.RawMessage
	extra       map[string]json.RawMessage
}

// Feature is a GeoJSON feature. Properties are kept raw: passes only ever
// rewrite geometry, never properties.
type Feature struct {
	Type       string
	ID         json.RawMessage
	Properties json.RawMessage
	Geometry   *Geometry
	extra      map[string]json.RawMessage
}

// Properties is the typed view of the feature properties the engine reads.
type Properties struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	River     string `json:"river,omitempty"`
	RouteName string `json:"route_name,omitempty"`
}

// Document is the route-network FeatureCollection. Members the engine does
// not know about are carried through a rewrite unchanged.
//
// Raw members are shared between a Document and its clones and must never be
// modified in place; passes replace them instead.
type Document struct {
	Type     string
	Features []*Feature
	extra    map[string]json.RawMessage
}

// NewDocument creates a new empty FeatureCollection
func NewDocument() *Document {
	return &Document{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (d *Document) AddFeature(f *Feature) {
	d.Features = append(d.Features, f)
}

// NewFeature creates a Feature with the given geometry and properties
func NewFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	raw, _ := marshalJSON(props, "")
	return &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: raw,
	}
}

// PointGeometry converts a point to a GeoJSON Point geometry
func PointGeometry(p orb.Point) *Geometry {
	raw, _ := json.Marshal(p)
	return &Geometry{Type: GeometryPoint, Coordinates: raw}
}

// LineStringGeometry converts a line to a GeoJSON LineString geometry
func LineStringGeometry(ls orb.LineString) *Geometry {
	raw, _ := json.Marshal(ls)
	return &Geometry{Type: GeometryLineString, Coordinates: raw}
}

// ParseDocument decodes a route-network document.
func ParseDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing route network: %w", err)
	}
	if d.Type != "FeatureCollection" {
		return nil, fmt.Errorf("parsing route network: expected FeatureCollection, got %q", d.Type)
	}
	return &d, nil
}

// Encode serializes the document indented by two spaces. Strings are written
// without HTML escaping so untouched text keeps its bytes.
func (d *Document) Encode() ([]byte, error) {
	data, err := marshalJSON(d, "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding route network: %w", err)
	}
	return data, nil
}

// Clone returns a copy whose features and geometries can be replaced
// without affecting d.
func (d *Document) Clone() *Document {
	c := &Document{
		Type:     d.Type,
		Features: make([]*Feature, len(d.Features)),
		extra:    d.extra,
	}
	for i, f := range d.Features {
		if f == nil {
			continue
		}
		fc := *f
		if f.Geometry != nil {
			g := *f.Geometry
			fc.Geometry = &g
		}
		c.Features[i] = &fc
	}
	return c
}

// AccessPoints returns every Point feature typed as an access point, in
// document order.
func (d *Document) AccessPoints() []AccessPoint {
	var points []AccessPoint
	for i, f := range d.Features {
		if f == nil || f.Geometry == nil || f.Geometry.Type != GeometryPoint {
			continue
		}
		props := f.Props()
		if props.Type != FeatureTypeAccessPoint {
			continue
		}
		p, err := f.Geometry.Point()
		if err != nil {
			log.Printf("Skipping access point %q (feature %d): %v", props.Name, i, err)
			continue
		}
		points = append(points, AccessPoint{Name: props.Name, River: props.River, Coord: p})
	}
	return points
}

// Routes returns every LineString feature typed as a route, in document
// order. A route whose coordinates cannot be decoded has nil Coords.
func (d *Document) Routes() []Route {
	var routes []Route
	for i, f := range d.Features {
		if f == nil || f.Geometry == nil || f.Geometry.Type != GeometryLineString {
			continue
		}
		props := f.Props()
		if props.Type != FeatureTypeRoute {
			continue
		}
		ls, _ := f.Geometry.LineString()
		routes = append(routes, Route{
			Index:  i,
			Name:   props.RouteName,
			River:  props.River,
			Coords: ls,
		})
	}
	return routes
}

// SetRouteCoordinates replaces the geometry of the feature at index. A
// vertex that already existed in the line keeps its altitude and any further
// ordinates.
func (d *Document) SetRouteCoordinates(index int, ls orb.LineString) error {
	if index < 0 || index >= len(d.Features) || d.Features[index] == nil {
		return fmt.Errorf("no feature at index %d", index)
	}
	f := d.Features[index]
	if f.Geometry == nil {
		f.Geometry = LineStringGeometry(ls)
		return nil
	}
	raw, err := encodePositions(ls, f.Geometry.Coordinates)
	if err != nil {
		return fmt.Errorf("marshaling coordinates: %w", err)
	}
	g := *f.Geometry
	g.Coordinates = raw
	f.Geometry = &g
	return nil
}

// Props decodes the typed property view. Undecodable properties yield the
// zero value, which no pass selects.
func (f *Feature) Props() Properties {
	var p Properties
	if len(f.Properties) == 0 {
		return p
	}
	if err := json.Unmarshal(f.Properties, &p); err != nil {
		return Properties{}
	}
	return p
}

// Point decodes a Point geometry. Altitude, if present, is ignored.
func (g *Geometry) Point() (orb.Point, error) {
	if g.Type != GeometryPoint {
		return orb.Point{}, fmt.Errorf("%w: expected Point, got %s", ErrGeometry, g.Type)
	}
	var c []float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil {
		return orb.Point{}, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	if len(c) < 2 {
		return orb.Point{}, fmt.Errorf("%w: point has %d ordinates", ErrGeometry, len(c))
	}
	return orb.Point{c[0], c[1]}, nil
}

// LineString decodes a LineString geometry. Altitude, if present, is ignored
// here; SetRouteCoordinates carries it over for vertices that stay.
func (g *Geometry) LineString() (orb.LineString, error) {
	if g.Type != GeometryLineString {
		return nil, fmt.Errorf("%w: expected LineString, got %s", ErrGeometry, g.Type)
	}
	var coords [][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d ordinates", ErrGeometry, i, len(c))
		}
		ls[i] = orb.Point{c[0], c[1]}
	}
	return ls, nil
}

// encodePositions writes ls as GeoJSON positions. Points matching a position
// in prev get that position's ordinates past longitude and latitude.
func encodePositions(ls orb.LineString, prev json.RawMessage) (json.RawMessage, error) {
	var old [][]float64
	if len(prev) > 0 {
		// Unreadable previous coordinates have nothing to keep.
		_ = json.Unmarshal(prev, &old)
	}
	extra := make(map[orb.Point][]float64)
	for _, c := range old {
		if len(c) <= 2 {
			continue
		}
		p := orb.Point{c[0], c[1]}
		if _, ok := extra[p]; !ok {
			extra[p] = c[2:]
		}
	}
	if len(extra) == 0 {
		return json.Marshal(ls)
	}

	positions := make([][]float64, len(ls))
	for i, p := range ls {
		positions[i] = append([]float64{p.Lon(), p.Lat()}, extra[p]...)
	}
	return json.Marshal(positions)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if err := takeMember(members, "type", &d.Type); err != nil {
		return err
	}
	if err := takeMember(members, "features", &d.Features); err != nil {
		return err
	}
	d.extra = members
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	features := d.Features
	if features == nil {
		features = []*Feature{}
	}
	return encodeMembers(d.extra,
		member{"type", d.Type},
		member{"features", features},
	)
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if err := takeMember(members, "type", &f.Type); err != nil {
		return err
	}
	if err := takeMember(members, "geometry", &f.Geometry); err != nil {
		return err
	}
	f.ID = members["id"]
	delete(members, "id")
	f.Properties = members["properties"]
	delete(members, "properties")
	f.extra = members
	return nil
}

func (f Feature) MarshalJSON() ([]byte, error) {
	props := f.Properties
	if len(props) == 0 {
		props = json.RawMessage("null")
	}
	fields := []member{{"type", f.Type}}
	if len(f.ID) > 0 {
		fields = append(fields, member{"id", f.ID})
	}
	fields = append(fields, member{"properties", props}, member{"geometry", f.Geometry})
	return encodeMembers(f.extra, fields...)
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if err := takeMember(members, "type", &g.Type); err != nil {
		return err
	}
	if raw, ok := members["coordinates"]; ok {
		g.Coordinates = raw
		delete(members, "coordinates")
	}
	g.extra = members
	return nil
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	fields := []member{{"type", g.Type}}
	if len(g.Coordinates) > 0 {
		fields = append(fields, member{"coordinates", g.Coordinates})
	}
	return encodeMembers(g.extra, fields...)
}

type member struct {
	key   string
	value interface{}
}

func decodeMembers(data []byte) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = make(map[string]json.RawMessage)
	}
	return members, nil
}

// takeMember decodes and removes key from members if present.
func takeMember(members map[string]json.RawMessage, key string, v interface{}) error {
	raw, ok := members[key]
	if !ok {
		return nil
	}
	delete(members, key)
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}

// encodeMembers writes the known members in order, then any extra members
// sorted by key.
func encodeMembers(extra map[string]json.RawMessage, known ...member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(key string, raw []byte) {
		if n > 0 {
			buf.WriteByte(',')
		}
		k, _ := marshalJSON(key, "")
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		n++
	}

	for _, m := range known {
		raw, err := marshalJSON(m.value, "")
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", m.key, err)
		}
		write(m.key, raw)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON is json.Marshal without HTML escaping, indenting nested values
// by indent when it is not empty.
func marshalJSON(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
