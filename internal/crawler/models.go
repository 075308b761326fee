package crawler

import "time"

// Visit is the outcome of one fetch attempt, as persisted in the store
type Visit struct {
	URL         string
	StatusCode  int       // HTTP status, or a reserved 6xx code for failures
	ContentType string    // HTTP Content-Type header
	LinksFound  int       // Links accepted into the frontier from this page
	ErrorType   string    // Failure kind (timeout, network_error, ...), empty on success
	CrawledAt   time.Time // Timestamp when fetched (UTC)
}

// Summary describes a finished crawl run
type Summary struct {
	Visited      int           // URLs fetched during this run, failures included
	Failed       int           // Fetches that produced no page
	Discovered   int           // URLs accepted into the frontier during this run
	Rejected     int           // URLs refused by the classifier, stale queue entries included
	Pending      int           // URLs still queued when the run ended
	LimitReached bool          // The run stopped at MaxIterations
	Cancelled    bool          // The run was interrupted
	Duration     time.Duration // Wall time of the run
}

// ErrorTypeRejected marks a queued URL dropped because the scope rules no
// longer accept it
const ErrorTypeRejected = "rejected"

// Meta keys stored alongside the frontier
const (
	MetaStartedAt  = "started_at"
	MetaFinishedAt = "finished_at"
	MetaSeedURLs   = "seed_urls"
)
