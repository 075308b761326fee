// Package stats accumulates word frequencies and the longest page seen during
// a crawl, and persists them as checkpoints so a crawl can resume.
package stats

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize splits text into case-folded ASCII alphanumeric tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenizeBlocks tokenizes each block of text and concatenates the results.
func TokenizeBlocks(blocks []string) []string {
	var tokens []string
	for _, b := range blocks {
		tokens = append(tokens, Tokenize(b)...)
	}
	return tokens
}

// Checkpoint is a durable snapshot of crawl statistics.
type Checkpoint struct {
	ProcessedCount  int            `json:"processed_count"`
	MaxWordCount    int            `json:"max_word_count"`
	LongestPageURL  string         `json:"longest_page_url"`
	WordFrequencies map[string]int `json:"word_frequencies"`
}

// Engine accumulates statistics. It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	processed  int
	maxWords   int
	longestURL string
	freq       map[string]int
}

// NewEngine returns an engine with zero counts.
func NewEngine() *Engine {
	return &Engine{freq: make(map[string]int)}
}

// Observe records the tokens of one processed page and returns the number of
// pages processed so far. The longest page changes only on a strictly larger
// token count, so the first page to reach a length keeps the record.
func (e *Engine) Observe(url string, tokens []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, tok := range tokens {
		e.freq[tok]++
	}
	if len(tokens) > e.maxWords {
		e.maxWords = len(tokens)
		e.longestURL = url
	}
	e.processed++
	return e.processed
}

// Processed returns the number of observed pages.
func (e *Engine) Processed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed
}

// Checkpoint returns a deep copy of the current counters.
func (e *Engine) Checkpoint() Checkpoint {
	e.mu.Lock()
	defer e.mu.Unlock()

	freq := make(map[string]int, len(e.freq))
	for w, n := range e.freq {
		freq[w] = n
	}
	return Checkpoint{
		ProcessedCount:  e.processed,
		MaxWordCount:    e.maxWords,
		LongestPageURL:  e.longestURL,
		WordFrequencies: freq,
	}
}

// Restore replaces the counters with those of c.
func (e *Engine) Restore(c Checkpoint) {
	freq := make(map[string]int, len(c.WordFrequencies))
	for w, n := range c.WordFrequencies {
		freq[w] = n
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.processed = c.ProcessedCount
	e.maxWords = c.MaxWordCount
	e.longestURL = c.LongestPageURL
	e.freq = freq
}

// WordCount is one entry of a frequency ranking.
type WordCount struct {
	Word  string
	Count int
}

// TopWords ranks the words of c by descending count, ties broken
// alphabetically, skipping stopwords. n <= 0 returns every word.
func TopWords(c Checkpoint, n int, stopwords map[string]struct{}) []WordCount {
	ranked := make([]WordCount, 0, len(c.WordFrequencies))
	for w, count := range c.WordFrequencies {
		if _, stop := stopwords[w]; stop {
			continue
		}
		ranked = append(ranked, WordCount{Word: w, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
