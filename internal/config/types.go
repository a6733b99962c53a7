package config

import "time"

// Config represents the main configuration structure
type Config struct {
	APIURL         string                `json:"apiUrl" yaml:"apiUrl"`
	APIPrefix      string                `json:"apiPrefix" yaml:"apiPrefix"`
	RequestTimeout int                   `json:"requestTimeout" yaml:"requestTimeout"` // ms
	LogLevel       string                `json:"logLevel" yaml:"logLevel"`
	Host           string                `json:"host" yaml:"host"`
	Port           int                   `json:"port" yaml:"port"`
	ServerDisabled bool                  `json:"serverDisabled" yaml:"serverDisabled"`
	StatsInterval  int                   `json:"statsInterval" yaml:"statsInterval"` // ms
	Wallet         string                `json:"wallet" yaml:"wallet"`
	Cache          CacheConfig           `json:"cache" yaml:"cache"`
	Views          map[string]ViewConfig `json:"views" yaml:"views"`
}

// CacheConfig represents response cache configuration
type CacheConfig struct {
	Disabled   bool   `json:"disabled" yaml:"disabled"`
	TTL        int    `json:"ttl" yaml:"ttl"`               // ms
	MaxEntries int    `json:"maxEntries" yaml:"maxEntries"` // 0 means unbounded
	Coalesce   bool   `json:"coalesce" yaml:"coalesce"`     // share one network call between concurrent misses
	RedisURL   string `json:"redisUrl" yaml:"redisUrl"`
	KeyPrefix  string `json:"keyPrefix" yaml:"keyPrefix"`
}

// ViewConfig represents the refresh settings of one dashboard view
type ViewConfig struct {
	Interval int   `json:"interval" yaml:"interval"` // ms
	Enabled  *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Environment variables that override file values
const (
	EnvAPIURL   = "SOMNIA_API_URL"
	EnvLogLevel = "SOMNIA_LOG_LEVEL"
	EnvRedisURL = "SOMNIA_REDIS_URL"
)

// Default values
const (
	DefaultAPIURL         = "http://localhost:3000"
	DefaultAPIPrefix      = "/api"
	DefaultRequestTimeout = 10000 // ms
	DefaultLogLevel       = "info"
	DefaultHost           = "localhost"
	DefaultPort           = 8090
	DefaultStatsInterval  = 60000 // ms
	DefaultCacheTTL       = 10000 // ms
	DefaultCacheKeyPrefix = "somniadash:"
	DefaultViewInterval   = 30000 // ms
)

// DefaultViewIntervals holds the refresh interval of each built-in view in ms
var DefaultViewIntervals = map[string]int{
	"overview":        30000,
	"agents":          10000,
	"portfolio":       15000,
	"trading":         10000,
	"history":         30000,
	"blockchain":      30000,
	"blockchain-info": 60000,
	"dao":             30000,
	"rewards":         30000,
}

// BaseURL returns the backend URL including the API prefix
func (c *Config) BaseURL() string {
	return c.APIURL + c.APIPrefix
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetStatsIntervalDuration returns the status log interval as time.Duration
func (c *Config) GetStatsIntervalDuration() time.Duration {
	return time.Duration(c.StatsInterval) * time.Millisecond
}

// IsServerEnabled returns true if the snapshot server should listen
func (c *Config) IsServerEnabled() bool {
	return !c.ServerDisabled
}

// IsRedisEnabled returns true if responses are cached in Redis
func (c *CacheConfig) IsRedisEnabled() bool {
	return c.RedisURL != ""
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Millisecond
}

// View returns the settings of a view, falling back to the built-in interval
func (c *Config) View(name string) ViewConfig {
	vc, ok := c.Views[name]
	if !ok {
		vc = ViewConfig{}
	}
	if vc.Interval == 0 {
		if def, ok := DefaultViewIntervals[name]; ok {
			vc.Interval = def
		} else {
			vc.Interval = DefaultViewInterval
		}
	}
	return vc
}

// IsEnabled reports whether the view should be polled. Views are on unless disabled.
func (v ViewConfig) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// GetIntervalDuration returns the refresh interval as time.Duration
func (v ViewConfig) GetIntervalDuration() time.Duration {
	return time.Duration(v.Interval) * time.Millisecond
}
