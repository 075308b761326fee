package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidDelay is returned when the politeness delay is negative
	ErrInvalidDelay = errors.New("request_delay cannot be negative")
	// ErrInvalidMaxIterations is returned when max_iterations is negative
	ErrInvalidMaxIterations = errors.New("max_iterations cannot be negative")
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrEmptyCheckpointPath is returned when checkpoint path is empty
	ErrEmptyCheckpointPath = errors.New("checkpoint_path cannot be empty")
	// ErrNoAllowedDomains is returned when the crawl scope is empty
	ErrNoAllowedDomains = errors.New("scope.allowed_domains cannot be empty")
	// ErrInvalidMaxQueryParams is returned when max_query_params is negative
	ErrInvalidMaxQueryParams = errors.New("scope.max_query_params cannot be negative")
)

// DomainError reports an unusable allow-list entry
type DomainError struct {
	Domain string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("allowed domain %q %s", e.Domain, e.Reason)
}

// HeaderError reports a header not in "Name: Value" form
type HeaderError struct {
	Header string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid header %q, expected 'Name: Value'", e.Header)
}
