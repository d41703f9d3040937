package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
)

const (
	// DefaultOverpassTimeout bounds each attempt against one server.
	DefaultOverpassTimeout = 45 * time.Second

	// DefaultOverpassBackoff is the fixed pause before trying the next server.
	DefaultOverpassBackoff = 2 * time.Second

	// maxResponseBytes limits the response body to 200 MB to prevent OOM.
	maxResponseBytes = 200 << 20
)

// DefaultOverpassEndpoints are tried in this order.
var DefaultOverpassEndpoints = []string{
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass-api.de/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// WaterwaySource returns named waterway lines intersecting a region.
type WaterwaySource interface {
	FetchWaterways(ctx context.Context, bound orb.Bound) (*geojson.FeatureCollection, error)
}

// OverpassOption configures an OverpassClient.
type OverpassOption func(*OverpassClient)

// WithEndpoints replaces the ordered server list.
func WithEndpoints(endpoints ...string) OverpassOption {
	return func(c *OverpassClient) {
		c.endpoints = append([]string(nil), endpoints...)
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) OverpassOption {
	return func(c *OverpassClient) {
		c.timeout = d
	}
}

// WithBackoff sets the fixed delay between servers.
func WithBackoff(d time.Duration) OverpassOption {
	return func(c *OverpassClient) {
		c.backoff = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) OverpassOption {
	return func(c *OverpassClient) {
		c.client = client
	}
}

// OverpassClient queries Overpass API servers for waterways, falling back
// through its servers in order. It is a plain ordered retry with a fixed
// delay, not a circuit breaker.
type OverpassClient struct {
	endpoints []string
	timeout   time.Duration
	backoff   time.Duration
	client    *http.Client
}

// NewOverpassClient creates a client with the default servers and timings.
func NewOverpassClient(opts ...OverpassOption) *OverpassClient {
	c := &OverpassClient{
		endpoints: append([]string(nil), DefaultOverpassEndpoints...),
		timeout:   DefaultOverpassTimeout,
		backoff:   DefaultOverpassBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	return c
}

// NewOverpassClientFromConfig creates a client from the overpass config section.
func NewOverpassClientFromConfig(cfg OverpassConfig, opts ...OverpassOption) *OverpassClient {
	base := []OverpassOption{}
	if len(cfg.Endpoints) > 0 {
		base = append(base, WithEndpoints(cfg.Endpoints...))
	}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	if cfg.Backoff > 0 {
		base = append(base, WithBackoff(cfg.Backoff))
	}
	return NewOverpassClient(append(base, opts...)...)
}

// BuildWaterwayQuery returns the Overpass QL for river, stream and canal ways
// in bound.
func BuildWaterwayQuery(bound orb.Bound) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf(`[out:json][timeout:90];
(
  way["waterway"~"river|stream|canal"](%s,%s,%s,%s);
);
out body;
>;
out skel qt;`, f(bound.Min.Lat()), f(bound.Min.Lon()), f(bound.Max.Lat()), f(bound.Max.Lon()))
}

// FetchWaterways queries each server in turn until one answers. Only one
// response is ever used. If every server fails the error wraps ErrAcquisition.
func (c *OverpassClient) FetchWaterways(ctx context.Context, bound orb.Bound) (*geojson.FeatureCollection, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no Overpass servers configured", ErrAcquisition)
	}

	query := BuildWaterwayQuery(bound)
	log.Printf("Querying Overpass API for waterways in bbox [%.4f, %.4f, %.4f, %.4f]",
		bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat())

	var lastErr error
	for i, endpoint := range c.endpoints {
		if i > 0 {
			log.Printf("Waiting %v before trying next server...", c.backoff)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrAcquisition, ctx.Err())
			case <-time.After(c.backoff):
			}
		}

		log.Printf("Trying server %d/%d: %s", i+1, len(c.endpoints), endpoint)
		fc, err := c.fetchOnce(ctx, endpoint, query)
		if err != nil {
			log.Printf("Server %s failed: %v", endpoint, err)
			lastErr = err
			continue
		}

		log.Printf("Received %d waterway features from %s", len(fc.Features), endpoint)
		return fc, nil
	}

	return nil, fmt.Errorf("%w: all %d Overpass servers failed, last error: %w",
		ErrAcquisition, len(c.endpoints), lastErr)
}

// fetchOnce performs a single attempt bounded by the client timeout.
func (c *OverpassClient) fetchOnce(ctx context.Context, endpoint, query string) (*geojson.FeatureCollection, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	return DecodeOverpassWaterways(body)
}

// DecodeOverpassWaterways converts an Overpass JSON response into LineString
// features, one per way, resolving way nodes against the returned nodes.
func DecodeOverpassWaterways(body []byte) (*geojson.FeatureCollection, error) {
	var o osm.OSM
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("decoding Overpass response: %w", err)
	}
	return WaysToFeatureCollection(&o), nil
}

// WaysToFeatureCollection builds a LineString feature for each way with at
// least two resolvable nodes. Features carry the way's name and waterway tags.
func WaysToFeatureCollection(o *osm.OSM) *geojson.FeatureCollection {
	nodes := make(map[osm.NodeID]orb.Point, len(o.Nodes))
	for _, n := range o.Nodes {
		nodes[n.ID] = n.Point()
	}

	fc := geojson.NewFeatureCollection()
	for _, w := range o.Ways {
		ls := make(orb.LineString, 0, len(w.Nodes))
		for _, wn := range w.Nodes {
			if p, ok := nodes[wn.ID]; ok {
				ls = append(ls, p)
			} else if wn.Lat != 0 || wn.Lon != 0 {
				ls = append(ls, orb.Point{wn.Lon, wn.Lat})
			}
		}
		if len(ls) < 2 {
			continue
		}

		f := geojson.NewFeature(ls)
		f.ID = fmt.Sprintf("way/%d", w.ID)
		f.Properties["osm_id"] = int64(w.ID)
		if name := w.Tags.Find("name"); name != "" {
			f.Properties["name"] = name
		}
		if kind := w.Tags.Find("waterway"); kind != "" {
			f.Properties["waterway"] = kind
		}
		fc.Append(f)
	}
	return fc
}
