package crawler

import (
	"context"
	"time"

	"github.com/masahif/scopecrawl/internal/fetch"
	"github.com/masahif/scopecrawl/internal/filter"
)

// Store persists the frontier so an interrupted crawl can resume
type Store interface {
	// Queue management (using pages table)
	AddToQueue(urls []string) error
	MarkVisited(v Visit) error

	// Resume support
	PendingURLs() ([]string, error)
	VisitedURLs() ([]string, error)

	// Queue status
	GetQueueStatus() (queued int, completed int, errors int, err error)

	// Meta-data management
	SetMeta(key, value string) error

	// Database lifecycle
	Close() error
}

// Fetcher retrieves one URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Classifier decides whether a canonical URL may be crawled
type Classifier interface {
	Classify(raw string) filter.Verdict
}

// LinkSink receives every URL accepted into the frontier, once
type LinkSink interface {
	Append(urls ...string) error
}

// FetchLogger records one line per download attempt
type FetchLogger interface {
	Downloaded(worker int, url string, status int) error
}

// StatsRecorder accumulates word statistics for fetched pages
type StatsRecorder interface {
	Record(url string, tokens []string) error
	Flush() error
}

// Observer is notified of crawl events, typically to update metrics
type Observer interface {
	PageFetched(status int, elapsed time.Duration)
	URLRejected(reason filter.Reason)
	LinksDiscovered(n int)
	FrontierSize(queued, visited int)
}
