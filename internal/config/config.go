// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/masahif/scopecrawl/internal/filter"
)

// ScopeConfig controls which URLs the classifier accepts
type ScopeConfig struct {
	AllowedDomains    []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`       // Authorized domains, subdomains included
	TrapQueryMarkers  []string `mapstructure:"trap_query_markers" yaml:"trap_query_markers"` // Query substrings that mark crawl traps
	MaxQueryParams    int      `mapstructure:"max_query_params" yaml:"max_query_params"`     // More parameters than this is a trap (0=no limit)
	RejectAllQueries  bool     `mapstructure:"reject_all_queries" yaml:"reject_all_queries"` // Strict mode: never crawl URLs with a query
	BlockedExtensions []string `mapstructure:"blocked_extensions" yaml:"blocked_extensions"` // Non-HTML extensions skipped without fetching
}

// LogConfig controls the structured log and the fetch log
type LogConfig struct {
	Level        string `mapstructure:"level" yaml:"level"`                   // debug, info, warn, error
	Format       string `mapstructure:"format" yaml:"format"`                 // json or text
	File         string `mapstructure:"file" yaml:"file"`                     // Structured log file (empty=console only)
	FetchLogPath string `mapstructure:"fetch_log_path" yaml:"fetch_log_path"` // One line per download attempt
	MaxSizeMB    int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"`       // Rotation threshold
	MaxBackups   int    `mapstructure:"max_backups" yaml:"max_backups"`       // Rotated files kept
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURLs       []string      `mapstructure:"seed_urls" yaml:"seed_urls"`             // Starting URLs for crawling
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent workers
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Politeness delay after each page
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	MaxIterations  int           `mapstructure:"max_iterations" yaml:"max_iterations"`   // Stop after N fetches (0=unlimited)
	MaxBodySize    int64         `mapstructure:"max_body_size" yaml:"max_body_size"`     // Bytes read per response
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // Extra "Name: Value" request headers

	Scope ScopeConfig `mapstructure:"scope" yaml:"scope"`

	// Persistence
	DatabasePath        string `mapstructure:"database_path" yaml:"database_path"`                 // SQLite frontier database
	CheckpointPath      string `mapstructure:"checkpoint_path" yaml:"checkpoint_path"`             // Statistics checkpoint file
	CheckpointEvery     int    `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`           // Pages between checkpoints
	DiscoveredLinksPath string `mapstructure:"discovered_links_path" yaml:"discovered_links_path"` // Accepted URLs, one per line

	Log LogConfig `mapstructure:"log" yaml:"log"`

	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"` // Prometheus listen address (empty=disabled)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	rules := filter.DefaultRules()
	return &CrawlConfig{
		Concurrency:    1,
		RequestDelay:   1 * time.Second,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "scopecrawl/1.0",
		MaxIterations:  0, // unlimited
		MaxBodySize:    10 << 20,
		Scope: ScopeConfig{
			AllowedDomains:    rules.AllowedDomains,
			TrapQueryMarkers:  rules.TrapQueryMarkers,
			MaxQueryParams:    rules.MaxQueryParams,
			BlockedExtensions: rules.BlockedExtensions,
		},
		DatabasePath:        "./scopecrawl.db",
		CheckpointPath:      "./crawler_checkpoint.json",
		CheckpointEvery:     100,
		DiscoveredLinksPath: "./valid_urls.txt",
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			FetchLogPath: "./Logs/Worker.log",
			MaxSizeMB:    100,
			MaxBackups:   5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxIterations < 0 {
		return ErrInvalidMaxIterations
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	if c.CheckpointPath == "" {
		return ErrEmptyCheckpointPath
	}

	if len(c.Scope.AllowedDomains) == 0 {
		return ErrNoAllowedDomains
	}

	for _, d := range c.Scope.AllowedDomains {
		if err := validateDomain(d); err != nil {
			return err
		}
	}

	if c.Scope.MaxQueryParams < 0 {
		return ErrInvalidMaxQueryParams
	}

	for _, h := range c.Headers {
		if _, _, ok := ParseHeader(h); !ok {
			return &HeaderError{Header: h}
		}
	}

	return nil
}

// Rules converts the scope section to classifier rules
func (c *CrawlConfig) Rules() filter.Rules {
	return filter.Rules{
		AllowedDomains:    c.Scope.AllowedDomains,
		TrapQueryMarkers:  c.Scope.TrapQueryMarkers,
		MaxQueryParams:    c.Scope.MaxQueryParams,
		RejectAllQueries:  c.Scope.RejectAllQueries,
		BlockedExtensions: c.Scope.BlockedExtensions,
	}
}

// HeaderMap parses Headers into a map, skipping malformed entries
func (c *CrawlConfig) HeaderMap() map[string]string {
	m := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		if name, value, ok := ParseHeader(h); ok {
			m[name] = value
		}
	}
	return m
}

// ParseHeader splits a "Name: Value" header
func ParseHeader(h string) (name, value string, ok bool) {
	name, value, found := strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !found || name == "" || value == "" {
		return "", "", false
	}
	return name, value, true
}

// validateDomain rejects empty entries and bare public suffixes such as "edu",
// which would widen the scope to every registrant under them.
func validateDomain(d string) error {
	d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
	if d == "" || strings.ContainsAny(d, "/:") {
		return &DomainError{Domain: d, Reason: "not a host name"}
	}
	if suffix, _ := publicsuffix.PublicSuffix(d); suffix == d {
		return &DomainError{Domain: d, Reason: "is a public suffix"}
	}
	return nil
}
