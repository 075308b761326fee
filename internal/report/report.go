// Package report summarizes a crawl from its statistics checkpoint and the
// pages recorded in the frontier store.
package report

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/masahif/scopecrawl/internal/stats"
)

// DefaultTopWords is the number of most frequent words reported.
const DefaultTopWords = 50

// SubdomainCount is the number of unique pages seen on one host.
type SubdomainCount struct {
	Host  string
	Pages int
}

// Pages is what the frontier store recorded about the crawl.
type Pages struct {
	Visited    []string // Fetched URLs, failures included
	Completed  []string // URLs fetched with a 2xx status
	StartedAt  string
	FinishedAt string
}

// Data is everything a report shows.
type Data struct {
	GeneratedAt    time.Time
	StartedAt      string
	FinishedAt     string
	UniquePages    int
	CompletedPages int
	ProcessedPages int
	LongestPageURL string
	MaxWordCount   int
	TopWords       []stats.WordCount
	Subdomains     []SubdomainCount
}

// Build assembles report data. Stopwords are removed here rather than while
// crawling so the checkpoint keeps the full counts.
func Build(c stats.Checkpoint, pages Pages, stopwords map[string]struct{}, topN int) Data {
	if topN <= 0 {
		topN = DefaultTopWords
	}
	return Data{
		GeneratedAt:    time.Now().UTC(),
		StartedAt:      pages.StartedAt,
		FinishedAt:     pages.FinishedAt,
		UniquePages:    len(uniquePages(pages.Visited)),
		CompletedPages: len(uniquePages(pages.Completed)),
		ProcessedPages: c.ProcessedCount,
		LongestPageURL: c.LongestPageURL,
		MaxWordCount:   c.MaxWordCount,
		TopWords:       stats.TopWords(c, topN, stopwords),
		Subdomains:     SubdomainCounts(pages.Visited),
	}
}

// SubdomainCounts counts unique pages per host, sorted by host.
func SubdomainCounts(pages []string) []SubdomainCount {
	counts := make(map[string]int)
	for u := range uniquePages(pages) {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" {
			continue
		}
		counts[strings.ToLower(parsed.Hostname())]++
	}

	out := make([]SubdomainCount, 0, len(counts))
	for host, n := range counts {
		out = append(out, SubdomainCount{Host: host, Pages: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

func sortByPages(s []SubdomainCount) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Pages != s[j].Pages {
			return s[i].Pages > s[j].Pages
		}
		return s[i].Host < s[j].Host
	})
}

func uniquePages(pages []string) map[string]struct{} {
	set := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		set[p] = struct{}{}
	}
	return set
}

// LoadStopwords reads one word per line. Blank lines and lines starting with
// '#' are ignored; words are lower-cased.
func LoadStopwords(r io.Reader) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stopwords: %w", err)
	}
	return words, nil
}
