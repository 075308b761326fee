// Package fetch retrieves pages over HTTP and describes the outcome as an
// explicit Page or Failure result.
package fetch

import (
	"context"
	"strings"
	"time"
)

// Reserved crawler status codes. They sit outside the HTTP range so fetch
// failures can be told apart from server responses in the fetch log.
const (
	StatusRequestFailed  = 600 // Connection refused, DNS failure, TLS error, too many redirects
	StatusTimeout        = 601 // Request exceeded the configured timeout
	StatusBodyReadFailed = 602 // Response headers arrived but the body could not be read
	StatusInvalidRequest = 603 // The request could not be built from the URL
	StatusCancelled      = 604 // The crawl was cancelled while the fetch was in flight
)

// FetchedPage is a page returned by the server, whatever its status.
type FetchedPage struct {
	RequestedURL string
	EffectiveURL string // After following redirects
	StatusCode   int
	ContentType  string
	Body         []byte
	Headers      map[string]string // Lower-cased names, first value only
	Duration     time.Duration
}

// IsHTML reports whether the content type announces HTML.
func (p *FetchedPage) IsHTML() bool {
	return strings.Contains(strings.ToLower(p.ContentType), "text/html")
}

// Failure describes a fetch that produced no page.
type Failure struct {
	URL    string
	Kind   string // timeout, network_error, read_error, invalid_request, cancelled
	Status int    // Reserved crawler status code
	Err    error
}

func (f *Failure) Error() string {
	return f.Kind + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is exactly one of Page or Failure. The zero Result is absent.
type Result struct {
	Page    *FetchedPage
	Failure *Failure
}

// PageResult wraps a fetched page.
func PageResult(p *FetchedPage) Result { return Result{Page: p} }

// FailureResult wraps a failure.
func FailureResult(f *Failure) Result { return Result{Failure: f} }

// OK reports whether the result carries a page.
func (r Result) OK() bool { return r.Page != nil }

// Status is the HTTP status of a page or the reserved code of a failure.
// An absent result reports StatusRequestFailed.
func (r Result) Status() int {
	switch {
	case r.Page != nil:
		return r.Page.StatusCode
	case r.Failure != nil:
		return r.Failure.Status
	default:
		return StatusRequestFailed
	}
}

// Fetcher retrieves a single URL within a bounded time.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}
