// Package crawler drives the traversal: it hands frontier URLs to a pool of
// workers, fetches them politely, and feeds accepted links back into the
// frontier until it is exhausted or the visit bound is reached.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masahif/scopecrawl/internal/config"
	"github.com/masahif/scopecrawl/internal/fetch"
	"github.com/masahif/scopecrawl/internal/filter"
	"github.com/masahif/scopecrawl/internal/parser"
	"github.com/masahif/scopecrawl/internal/stats"
	"github.com/masahif/scopecrawl/internal/urlnorm"
)

const (
	idlePoll       = 50 * time.Millisecond
	reportInterval = 10 * time.Second
)

// Crawler runs one traversal over the frontier held in its Store
type Crawler struct {
	config      *config.CrawlConfig
	store       Store
	fetcher     Fetcher
	classifier  Classifier
	rateLimiter *RateLimiter
	links       LinkSink
	fetchLog    FetchLogger
	recorder    StatsRecorder
	observer    Observer

	frontier       *Frontier
	reportInterval time.Duration

	summary    Summary
	statsMutex sync.Mutex
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithFetcher replaces the HTTP fetcher built from the configuration
func WithFetcher(f Fetcher) Option { return func(c *Crawler) { c.fetcher = f } }

// WithClassifier replaces the classifier built from the scope configuration
func WithClassifier(cl Classifier) Option { return func(c *Crawler) { c.classifier = cl } }

// WithLinkSink sets where accepted URLs are streamed
func WithLinkSink(s LinkSink) Option { return func(c *Crawler) { c.links = s } }

// WithFetchLog sets the per-download log
func WithFetchLog(l FetchLogger) Option { return func(c *Crawler) { c.fetchLog = l } }

// WithStatsRecorder sets the word statistics recorder
func WithStatsRecorder(r StatsRecorder) Option { return func(c *Crawler) { c.recorder = r } }

// WithObserver sets the crawl event observer
func WithObserver(o Observer) Option { return func(c *Crawler) { c.observer = o } }

// NewCrawler creates a crawler over store. Collaborators not supplied through
// options are built from cfg or replaced by no-ops.
func NewCrawler(cfg *config.CrawlConfig, store Store, opts ...Option) (*Crawler, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if store == nil {
		return nil, ErrNilStore
	}

	c := &Crawler{
		config:         cfg,
		store:          store,
		rateLimiter:    NewRateLimiter(cfg.RequestDelay),
		links:          nopSink{},
		fetchLog:       nopFetchLog{},
		recorder:       nopRecorder{},
		observer:       nopObserver{},
		reportInterval: reportInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		httpFetcher := fetch.NewHTTPFetcher(cfg.UserAgent, cfg.RequestTimeout)
		if cfg.MaxBodySize > 0 {
			httpFetcher.SetMaxBodySize(cfg.MaxBodySize)
		}
		if headers := cfg.HeaderMap(); len(headers) > 0 {
			httpFetcher.SetCustomHeaders(headers)
			slog.Info("Set custom headers", "count", len(headers))
		}
		c.fetcher = httpFetcher
	}
	if c.classifier == nil {
		c.classifier = filter.NewClassifier(cfg.Rules())
	}

	return c, nil
}

// Close releases the fetcher's idle connections
func (c *Crawler) Close() {
	if closer, ok := c.fetcher.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Run crawls until the frontier is exhausted, MaxIterations URLs have been
// visited, or ctx is cancelled. URLs pending or visited in the store from an
// earlier run are resumed; seeds are added to whatever is pending. The
// statistics are flushed before Run returns, cancelled or not.
func (c *Crawler) Run(ctx context.Context, seeds []string) (Summary, error) {
	started := time.Now()
	c.summary = Summary{}
	c.frontier = NewFrontier(c.config.MaxIterations)

	if err := c.resume(); err != nil {
		return Summary{}, err
	}
	if err := c.seed(seeds); err != nil {
		return Summary{}, err
	}
	c.setMeta(MetaStartedAt, started.UTC().Format(time.RFC3339))

	queued, visited := c.frontier.Len()
	slog.Info("Starting crawler", "queued", queued, "visited", visited, "workers", c.workerCount(), "max_iterations", c.config.MaxIterations)

	reportCtx, stopReport := context.WithCancel(ctx)
	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		c.statsReporter(reportCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workerCount(); i++ {
		id := i + 1
		g.Go(func() error {
			return c.worker(gctx, id)
		})
	}
	werr := g.Wait()

	stopReport()
	<-reportDone

	summary := c.finish(ctx, started)
	if err := c.recorder.Flush(); err != nil {
		return summary, fmt.Errorf("failed to write final checkpoint: %w", err)
	}
	return summary, werr
}

func (c *Crawler) finish(ctx context.Context, started time.Time) Summary {
	queued, _ := c.frontier.Len()
	c.setMeta(MetaFinishedAt, time.Now().UTC().Format(time.RFC3339))

	c.statsMutex.Lock()
	c.summary.Pending = queued
	c.summary.Cancelled = ctx.Err() != nil
	c.summary.Duration = time.Since(started)
	summary := c.summary
	c.statsMutex.Unlock()

	switch {
	case summary.Cancelled:
		slog.Info("Crawling cancelled", "visited", summary.Visited, "pending", summary.Pending)
	case summary.LimitReached:
		slog.Info("Crawling stopped at iteration limit", "visited", summary.Visited, "pending", summary.Pending)
	default:
		slog.Info("Crawling completed", "visited", summary.Visited, "discovered", summary.Discovered)
	}
	return summary
}

// resume loads the frontier left by an earlier run
func (c *Crawler) resume() error {
	visited, err := c.store.VisitedURLs()
	if err != nil {
		return fmt.Errorf("failed to load visited URLs: %w", err)
	}
	pending, err := c.store.PendingURLs()
	if err != nil {
		return fmt.Errorf("failed to load pending URLs: %w", err)
	}

	c.frontier.Preload(visited)
	c.frontier.Push(c.recheckPending(pending))
	if len(visited) > 0 || len(pending) > 0 {
		slog.Info("Resuming from existing queue", "visited", len(visited), "pending", len(pending))
	}
	return nil
}

// recheckPending classifies stored URLs against the current scope rules,
// which may have narrowed since they were queued. Rejected URLs are closed
// in the store so later runs do not reload them.
func (c *Crawler) recheckPending(pending []string) []string {
	accepted := make([]string, 0, len(pending))
	rejected := 0
	for _, u := range pending {
		v := c.classifier.Classify(u)
		if v.Accepted {
			accepted = append(accepted, u)
			continue
		}
		rejected++
		c.observer.URLRejected(v.Reason)
		slog.Info("Dropping queued URL no longer in scope", "url", u, "reason", v.Reason)
		c.markVisited(0, Visit{URL: u, ErrorType: ErrorTypeRejected, CrawledAt: time.Now().UTC()})
	}

	c.statsMutex.Lock()
	c.summary.Rejected += rejected
	c.statsMutex.Unlock()
	return accepted
}

// seed canonicalizes and classifies the seed URLs and queues the new ones
func (c *Crawler) seed(seeds []string) error {
	if len(seeds) == 0 {
		return nil
	}

	var valid []string
	for _, s := range seeds {
		canonical, err := urlnorm.Canonical(s)
		if err != nil {
			slog.Warn("Skipping malformed seed URL", "url", s, "error", err)
			continue
		}
		if v := c.classifier.Classify(canonical); !v.Accepted {
			slog.Warn("Skipping seed URL", "url", canonical, "reason", v.Reason)
			continue
		}
		valid = append(valid, canonical)
	}
	if len(valid) == 0 {
		if queued, _ := c.frontier.Len(); queued > 0 {
			slog.Warn("No valid seed URL, continuing with the stored queue", "queued", queued)
			return nil
		}
		return ErrNoValidSeeds
	}

	added := c.frontier.Push(valid)
	if err := c.store.AddToQueue(added); err != nil {
		return fmt.Errorf("failed to add seed URLs to queue: %w", err)
	}
	if err := c.links.Append(added...); err != nil {
		slog.Error("Failed to record seed URLs", "error", err)
	}
	c.setMeta(MetaSeedURLs, strings.Join(valid, "\n"))
	c.addDiscovered(len(added))
	slog.Info("Added seed URLs to queue", "count", len(added))
	return nil
}

func (c *Crawler) workerCount() int {
	if c.config.Concurrency < 1 {
		return 1
	}
	return c.config.Concurrency
}

// worker processes URLs from the frontier
// Termination conditions:
// 1. Context cancelled (graceful shutdown)
// 2. MaxIterations URLs visited
// 3. Queue empty with no fetch in flight
func (c *Crawler) worker(ctx context.Context, id int) error {
	slog.Debug("Worker started", "worker_id", id)
	defer slog.Debug("Worker stopped", "worker_id", id)

	for {
		if ctx.Err() != nil {
			return nil
		}

		url, state := c.frontier.Next()
		switch state {
		case nextLimit:
			c.markLimitReached()
			return nil
		case nextDone:
			return nil
		case nextWait:
			if !sleep(ctx, idlePoll) {
				return nil
			}
			continue
		}

		polite := c.visit(ctx, id, url)
		c.frontier.Release()

		if polite && !sleep(ctx, c.config.RequestDelay) {
			return nil
		}
	}
}

// visit fetches one URL and queues its accepted links. It reports whether the
// fetch returned an HTML page, which is what the politeness delay follows.
func (c *Crawler) visit(ctx context.Context, id int, url string) bool {
	if err := c.rateLimiter.Wait(ctx, url); err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Warn("Worker rate limiting error", "worker_id", id, "url", url, "error", err)
	}

	started := time.Now()
	res := c.fetcher.Fetch(ctx, url)
	elapsed := time.Since(started)
	status := res.Status()

	if err := c.fetchLog.Downloaded(id, url, status); err != nil {
		slog.Error("Failed to write fetch log", "worker_id", id, "error", err)
	}
	c.observer.PageFetched(status, elapsed)
	c.addVisited(!res.OK())

	record := Visit{URL: url, StatusCode: status, CrawledAt: time.Now().UTC()}

	if !res.OK() {
		// An abandoned fetch stays queued in the store for the next run.
		if ctx.Err() != nil {
			return false
		}
		record.ErrorType = "absent"
		if res.Failure != nil {
			record.ErrorType = res.Failure.Kind
			slog.Warn("Worker failed to fetch URL", "worker_id", id, "url", url, "status", status, "error", res.Failure)
		}
		c.markVisited(id, record)
		return false
	}

	page := res.Page
	record.ContentType = page.ContentType

	accepted := c.filterLinks(parser.ExtractLinks(url, res))
	added := c.frontier.Push(accepted)
	record.LinksFound = len(added)
	c.enqueue(id, added)
	c.markVisited(id, record)

	if page.StatusCode != 200 || !page.IsHTML() {
		slog.Info("Worker processed URL (no content)", "worker_id", id, "url", url, "status", status, "content_type", page.ContentType)
		return false
	}

	blocks, err := parser.ExtractText(page.Body)
	if err != nil {
		slog.Warn("Worker failed to extract text", "worker_id", id, "url", url, "error", err)
	} else if err := c.recorder.Record(url, stats.TokenizeBlocks(blocks)); err != nil {
		slog.Error("Failed to save checkpoint", "error", err)
	}

	slog.Info("Worker processed URL", "worker_id", id, "url", url, "status", status, "links", len(added))
	return true
}

// filterLinks keeps the links the classifier accepts
func (c *Crawler) filterLinks(links []string) []string {
	accepted := make([]string, 0, len(links))
	rejected := 0
	for _, link := range links {
		v := c.classifier.Classify(link)
		if !v.Accepted {
			rejected++
			c.observer.URLRejected(v.Reason)
			slog.Debug("Rejected URL", "url", link, "reason", v.Reason)
			continue
		}
		accepted = append(accepted, link)
	}

	c.statsMutex.Lock()
	c.summary.Rejected += rejected
	c.statsMutex.Unlock()
	return accepted
}

// enqueue persists newly discovered URLs
func (c *Crawler) enqueue(id int, added []string) {
	if len(added) == 0 {
		return
	}
	if err := c.store.AddToQueue(added); err != nil {
		slog.Error("Worker failed to add URLs to queue", "worker_id", id, "error", err)
	}
	if err := c.links.Append(added...); err != nil {
		slog.Error("Worker failed to record discovered URLs", "worker_id", id, "error", err)
	}
	c.observer.LinksDiscovered(len(added))
	c.addDiscovered(len(added))
}

func (c *Crawler) markVisited(id int, v Visit) {
	if err := c.store.MarkVisited(v); err != nil {
		slog.Error("Worker failed to save page", "worker_id", id, "url", v.URL, "error", err)
	}
}

func (c *Crawler) setMeta(key, value string) {
	if err := c.store.SetMeta(key, value); err != nil {
		slog.Warn("Failed to save crawl meta", "key", key, "error", err)
	}
}

// statsReporter periodically reports crawling statistics
func (c *Crawler) statsReporter(ctx context.Context) {
	ticker := time.NewTicker(c.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			queued, completed, errors, err := c.store.GetQueueStatus()
			if err != nil {
				slog.Error("Failed to get queue status", "error", err)
				continue
			}
			fq, fv := c.frontier.Len()
			c.observer.FrontierSize(fq, fv)
			slog.Info("Crawling stats", "queued", queued, "completed", completed, "errors", errors, "visited", fv, "hosts", c.rateLimiter.Hosts())
		}
	}
}

func (c *Crawler) addVisited(failed bool) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.summary.Visited++
	if failed {
		c.summary.Failed++
	}
}

func (c *Crawler) addDiscovered(n int) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.summary.Discovered += n
}

func (c *Crawler) markLimitReached() {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	if !c.summary.LimitReached {
		slog.Info("Reached iteration limit", "max_iterations", c.config.MaxIterations)
	}
	c.summary.LimitReached = true
}

// sleep pauses for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type nopSink struct{}

func (nopSink) Append(...string) error { return nil }

type nopFetchLog struct{}

func (nopFetchLog) Downloaded(int, string, int) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Record(string, []string) error { return nil }
func (nopRecorder) Flush() error { return nil }

type nopObserver struct{}

func (nopObserver) PageFetched(int, time.Duration) {}
func (nopObserver) URLRejected(filter.Reason) {}
func (nopObserver) LinksDiscovered(int) {}
func (nopObserver) FrontierSize(int, int) {}
