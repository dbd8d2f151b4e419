package model

import "time"

// Config holds all runtime settings of osmlookup
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Endpoints    EndpointsConfig    `yaml:"endpoints" mapstructure:"endpoints"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig configures the shared HTTP client
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`   // Falls back to HTTP_PROXY
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"` // Falls back to HTTPS_PROXY
}

// EndpointsConfig points at the external OSM services
type EndpointsConfig struct {
	OverpassURL string `yaml:"overpass_url" mapstructure:"overpass_url"` // Overpass interpreter endpoint
	OSMAPIURL   string `yaml:"osm_api_url" mapstructure:"osm_api_url"`   // Base URL of the OSM API 0.6
}

// FetchConfig controls the attribute fan-out
type FetchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // 0 means one goroutine per entity
}

// CacheConfig configures the optional response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"` // Empty keeps the cache in memory only
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig configures per-host request pacing
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables pacing
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig configures rendering
type OutputConfig struct {
	Mode              string `yaml:"mode" mapstructure:"mode"`                             // display, format, html, json, yaml
	WikipediaLanguage string `yaml:"wikipedia_language" mapstructure:"wikipedia_language"` // Used when the tag has no language prefix
	Verbose           bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "osmlookup/0.1 (+https://github.com/ppiankov/osmlookup)",
			MaxBodyBytes: 5_000_000,
		},
		Endpoints: EndpointsConfig{
			OverpassURL: "https://overpass-api.de/api/interpreter",
			OSMAPIURL:   "https://www.openstreetmap.org",
		},
		Fetch: FetchConfig{
			Concurrency: 0,
		},
		Cache: CacheConfig{
			Enabled:   false,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Output: OutputConfig{
			Mode:              "display",
			WikipediaLanguage: "fr",
		},
	}
}
