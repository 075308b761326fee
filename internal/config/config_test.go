package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Concurrency != 1 {
		t.Errorf("Expected concurrency 1, got %d", cfg.Concurrency)
	}

	if cfg.RequestDelay != 1*time.Second {
		t.Errorf("Expected request delay 1s, got %v", cfg.RequestDelay)
	}

	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected request timeout 5s, got %v", cfg.RequestTimeout)
	}

	if cfg.UserAgent != "scopecrawl/1.0" {
		t.Errorf("Expected user agent 'scopecrawl/1.0', got %s", cfg.UserAgent)
	}

	if cfg.MaxIterations != 0 {
		t.Errorf("Expected max iterations 0, got %d", cfg.MaxIterations)
	}

	if cfg.CheckpointEvery != 100 {
		t.Errorf("Expected checkpoint every 100, got %d", cfg.CheckpointEvery)
	}

	if len(cfg.Scope.AllowedDomains) != 4 {
		t.Errorf("Expected 4 allowed domains, got %v", cfg.Scope.AllowedDomains)
	}

	if cfg.Scope.MaxQueryParams != 3 {
		t.Errorf("Expected max query params 3, got %d", cfg.Scope.MaxQueryParams)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CrawlConfig)
		wantErr error
	}{
		{"valid config", func(c *CrawlConfig) {}, nil},
		{"invalid concurrency", func(c *CrawlConfig) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"invalid timeout", func(c *CrawlConfig) { c.RequestTimeout = 0 }, ErrInvalidTimeout},
		{"negative delay", func(c *CrawlConfig) { c.RequestDelay = -time.Second }, ErrInvalidDelay},
		{"zero delay allowed", func(c *CrawlConfig) { c.RequestDelay = 0 }, nil},
		{"negative max iterations", func(c *CrawlConfig) { c.MaxIterations = -1 }, ErrInvalidMaxIterations},
		{"empty database path", func(c *CrawlConfig) { c.DatabasePath = "" }, ErrEmptyDatabasePath},
		{"empty checkpoint path", func(c *CrawlConfig) { c.CheckpointPath = "" }, ErrEmptyCheckpointPath},
		{"no domains", func(c *CrawlConfig) { c.Scope.AllowedDomains = nil }, ErrNoAllowedDomains},
		{"negative query params", func(c *CrawlConfig) { c.Scope.MaxQueryParams = -2 }, ErrInvalidMaxQueryParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDomains(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{"ics.uci.edu", false},
		{"Example.ORG", false},
		{"edu", true},
		{"co.uk", true},
		{"", true},
		{"https://ics.uci.edu", true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Scope.AllowedDomains = []string{tt.domain}
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate() with domain %q error = %v, wantErr %v", tt.domain, err, tt.wantErr)
		}
		var domainErr *DomainError
		if tt.wantErr && !errors.As(err, &domainErr) {
			t.Errorf("expected DomainError for %q, got %T", tt.domain, err)
		}
	}
}

func TestHeaders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headers = []string{"X-Contact: crawler@uci.edu", "Accept-Language: en"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	m := cfg.HeaderMap()
	if m["X-Contact"] != "crawler@uci.edu" || m["Accept-Language"] != "en" {
		t.Errorf("HeaderMap() = %v", m)
	}

	cfg.Headers = []string{"NoColon"}
	var headerErr *HeaderError
	if err := cfg.Validate(); !errors.As(err, &headerErr) {
		t.Errorf("Validate() = %v, want HeaderError", err)
	}
}

func TestRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scope.RejectAllQueries = true
	rules := cfg.Rules()
	if !rules.RejectAllQueries || rules.MaxQueryParams != 3 || len(rules.BlockedExtensions) == 0 {
		t.Errorf("Rules() = %+v", rules)
	}
}
