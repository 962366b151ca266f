package timesync

import (
	"net/http"
	"time"
)

const (
	DefaultPrimaryURL  = "https://worldtimeapi.org/api/ip"
	DefaultFallbackURL = "https://worldclockapi.com/api/json/utc/now"
	DefaultHeaderURL   = "https://www.google.com"
	DefaultStorageKey  = "timesync.offset"

	defaultSyncAttempts   = 3
	defaultResyncInterval = time.Hour
	defaultMaxOffset      = 5 * time.Minute
	defaultRequestTimeout = 5 * time.Second
	defaultUserAgent      = "birthday-countdown/1.0"
)

// Config holds estimator configuration.
type Config struct {
	PrimaryURL   string   `yaml:"primary_url"`
	FallbackURLs []string `yaml:"fallback_urls"`
	// NTPServer is queried after the JSON sources when set.
	NTPServer string `yaml:"ntp_server"`
	// HeaderURL is any HTTPS endpoint whose Date header is trusted as a
	// last resort.
	HeaderURL string `yaml:"header_url"`

	// SyncAttempts is the attempt budget shared by all sources in one
	// acquisition.
	SyncAttempts   int           `yaml:"sync_attempts"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	MaxOffset      time.Duration `yaml:"max_offset"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StorageKey     string        `yaml:"storage_key"`
	UserAgent      string        `yaml:"user_agent"`
	HTTPClient     *http.Client  `yaml:"-"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.PrimaryURL == "" {
		c.PrimaryURL = DefaultPrimaryURL
	}
	if len(c.FallbackURLs) == 0 {
		c.FallbackURLs = []string{DefaultFallbackURL}
	}
	if c.HeaderURL == "" {
		c.HeaderURL = DefaultHeaderURL
	}
	if c.SyncAttempts <= 0 {
		c.SyncAttempts = defaultSyncAttempts
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = defaultResyncInterval
	}
	if c.MaxOffset <= 0 {
		c.MaxOffset = defaultMaxOffset
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
}
