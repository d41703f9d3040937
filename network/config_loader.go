package network

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Document: "public/blueways.geojson",
		Overpass: OverpassConfig{
			Endpoints:  append([]string(nil), DefaultOverpassEndpoints...),
			Timeout:    DefaultOverpassTimeout,
			Backoff:    DefaultOverpassBackoff,
			BBoxBuffer: DefaultBBoxBuffer,
		},
		Trace: TraceConfig{
			MaxSnapKm: DefaultMaxSnapKm,
		},
		MQTT: MQTTConfig{
			PublishPrefix: "blueways",
			ClientID:      "blueways",
		},
	}
}

// LoadConfig loads the configuration from a YAML file. Fields left out of the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values no pass can run with.
func (c *Config) Validate() error {
	if c.Document == "" {
		return fmt.Errorf("document is required")
	}
	if len(c.Overpass.Endpoints) == 0 {
		return fmt.Errorf("overpass.endpoints must list at least one server")
	}
	for i, e := range c.Overpass.Endpoints {
		u, err := url.Parse(e)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("overpass.endpoints[%d] is not a valid URL: %q", i, e)
		}
	}
	if c.Overpass.Timeout <= 0 {
		return fmt.Errorf("overpass.timeout must be positive")
	}
	if c.Overpass.Backoff < 0 {
		return fmt.Errorf("overpass.backoff must not be negative")
	}
	if c.Overpass.BBoxBuffer < 0 {
		return fmt.Errorf("overpass.bboxBuffer must not be negative")
	}
	if c.Trace.MaxSnapKm <= 0 {
		return fmt.Errorf("trace.maxSnapKm must be positive")
	}
	if c.Trace.SimplifyTolerance < 0 {
		return fmt.Errorf("trace.simplifyTolerance must not be negative")
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
