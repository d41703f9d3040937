package network

import (
	"time"

	"github.com/paulmach/orb"
)

// Feature property values that classify entities in the route-network document.
const (
	FeatureTypeAccessPoint = "Access Point"
	FeatureTypeRoute       = "Route"
)

// AccessPoint is a canonical named put-in or take-out.
type AccessPoint struct {
	Name  string    `json:"name"`
	River string    `json:"river"`
	Coord orb.Point `json:"coordinate"`
}

// Route is a directional paddling segment read from the document.
// Index is the position of its feature in Document.Features.
type Route struct {
	Index  int
	Name   string
	River  string
	Coords orb.LineString
}

// RouteStatus is the state a route ended a pass in.
type RouteStatus string

const (
	StatusAligned       RouteStatus = "aligned"
	StatusAlignError    RouteStatus = "align-error"
	StatusTraced        RouteStatus = "traced"
	StatusTraceError    RouteStatus = "trace-error"
	StatusAlreadyTraced RouteStatus = "already-traced"
)

// RouteOutcome is the per-route result of a pass. It is kept for logging and
// callers of the package; published summaries carry only the counts.
type RouteOutcome struct {
	Route    string      `json:"route"`
	Status   RouteStatus `json:"status"`
	Reversed bool        `json:"reversed,omitempty"`
	Points   int         `json:"points,omitempty"`
	Err      error       `json:"-"`
}

// AlignSummary holds the counts of an alignment pass.
type AlignSummary struct {
	RunID    string         `json:"runId"`
	Fixed    int            `json:"fixed"`
	Reversed int            `json:"reversed"`
	Errored  int            `json:"errored"`
	Outcomes []RouteOutcome `json:"-"`
}

// TraceSummary holds the counts of a tracing pass.
type TraceSummary struct {
	RunID    string         `json:"runId"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Outcomes []RouteOutcome `json:"-"`
}

// RunSummary aggregates whichever passes ran in one invocation.
type RunSummary struct {
	RunID     string        `json:"runId"`
	Align     *AlignSummary `json:"align,omitempty"`
	Trace     *TraceSummary `json:"trace,omitempty"`
	Written   bool          `json:"written"`
	Timestamp int64         `json:"timestamp"`
}

// Updates returns the number of routes changed across all passes.
func (s RunSummary) Updates() int {
	n := 0
	if s.Align != nil {
		n += s.Align.Fixed
	}
	if s.Trace != nil {
		n += s.Trace.Updated
	}
	return n
}

// OverpassConfig configures waterway acquisition.
type OverpassConfig struct {
	Endpoints  []string      `yaml:"endpoints" json:"endpoints"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Backoff    time.Duration `yaml:"backoff" json:"backoff"`
	BBoxBuffer float64       `yaml:"bboxBuffer" json:"bboxBuffer"`
}

// TraceConfig configures the tracing pass.
type TraceConfig struct {
	MaxSnapKm         float64 `yaml:"maxSnapKm" json:"maxSnapKm"`
	SimplifyTolerance float64 `yaml:"simplifyTolerance,omitempty" json:"simplifyTolerance,omitempty"` // degrees; 0 disables
}

// MQTTConfig holds the optional broker used to publish run summaries
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Document string         `yaml:"document" json:"document"`
	Backup   string         `yaml:"backup,omitempty" json:"backup,omitempty"` // defaults to <document>.backup
	Overpass OverpassConfig `yaml:"overpass" json:"overpass"`
	Trace    TraceConfig    `yaml:"trace" json:"trace"`
	MQTT     MQTTConfig     `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// BackupPath returns the configured backup path or the default next to the document.
func (c *Config) BackupPath() string {
	if c.Backup != "" {
		return c.Backup
	}
	return c.Document + ".backup"
}

// TraceOptions converts the trace section into pass options.
func (c *Config) TraceOptions() TraceOptions {
	return TraceOptions{
		MaxSnapKm:         c.Trace.MaxSnapKm,
		SimplifyTolerance: c.Trace.SimplifyTolerance,
	}
}
