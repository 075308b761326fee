// Package filter decides whether a canonical URL is safe and in scope to
// crawl. Checks run in a fixed order and the first failing check determines
// the rejection reason.
package filter

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// Reason explains why a URL was rejected.
type Reason string

// Rejection reasons, in check order.
const (
	ReasonNone             Reason = ""
	ReasonMalformed        Reason = "malformed"
	ReasonBadScheme        Reason = "bad_scheme"
	ReasonOutOfScope       Reason = "out_of_scope"
	ReasonQueryTrap        Reason = "query_trap"
	ReasonPathLoopTrap     Reason = "path_loop_trap"
	ReasonNonHTMLExtension Reason = "non_html_extension"
	ReasonInternalError    Reason = "internal_error"
)

// Verdict is the outcome of classifying one URL.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

// Accept is the verdict for a crawlable URL.
func Accept() Verdict { return Verdict{Accepted: true} }

// Reject builds a rejected verdict.
func Reject(reason Reason) Verdict { return Verdict{Reason: reason} }

func (v Verdict) String() string {
	if v.Accepted {
		return "accepted"
	}
	return "rejected(" + string(v.Reason) + ")"
}

type check struct {
	name string
	fn   func(u *url.URL) Reason
}

// Classifier applies Rules to URLs. It holds no mutable state after
// construction and is safe for concurrent use.
type Classifier struct {
	domains    []string
	markers    []string
	maxParams  int
	rejectAllQ bool
	extensions map[string]struct{}
	checks     []check
}

// NewClassifier builds a classifier from rules. Domains, markers and
// extensions are lower-cased; a leading dot on an extension is ignored.
func NewClassifier(rules Rules) *Classifier {
	c := &Classifier{
		maxParams:  rules.MaxQueryParams,
		rejectAllQ: rules.RejectAllQueries,
		extensions: make(map[string]struct{}, len(rules.BlockedExtensions)),
	}

	for _, d := range rules.AllowedDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			c.domains = append(c.domains, d)
		}
	}
	for _, m := range rules.TrapQueryMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			c.markers = append(c.markers, m)
		}
	}
	for _, ext := range rules.BlockedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			c.extensions[ext] = struct{}{}
		}
	}

	c.checks = []check{
		{"scheme", c.checkScheme},
		{"domain_scope", c.checkDomainScope},
		{"query_trap", c.checkQueryTrap},
		{"repeated_segment", c.checkRepeatedSegment},
		{"extension", c.checkExtension},
	}

	return c
}

// Classify returns the verdict for raw. It never panics; a failure inside a
// check is reported as ReasonInternalError.
func (c *Classifier) Classify(raw string) (v Verdict) {
	stage := "parse"
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("URL classification failed", "url", raw, "check", stage, "panic", fmt.Sprint(r))
			v = Reject(ReasonInternalError)
		}
	}()

	if raw == "" {
		return Reject(ReasonMalformed)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Reject(ReasonMalformed)
	}

	for _, chk := range c.checks {
		stage = chk.name
		if reason := chk.fn(u); reason != ReasonNone {
			return Reject(reason)
		}
	}
	return Accept()
}

// IsValid reports whether raw is crawlable.
func (c *Classifier) IsValid(raw string) bool {
	return c.Classify(raw).Accepted
}

func (c *Classifier) checkScheme(u *url.URL) Reason {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return ReasonNone
	}
	return ReasonBadScheme
}

func (c *Classifier) checkDomainScope(u *url.URL) Reason {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ReasonMalformed
	}
	for _, d := range c.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return ReasonNone
		}
	}
	return ReasonOutOfScope
}

func (c *Classifier) checkQueryTrap(u *url.URL) Reason {
	query := strings.ToLower(u.RawQuery)
	if query == "" {
		return ReasonNone
	}
	if c.rejectAllQ {
		return ReasonQueryTrap
	}

	// Markers may arrive percent-encoded, e.g. filter%5B.
	decoded := query
	if q, err := url.QueryUnescape(query); err == nil {
		decoded = strings.ToLower(q)
	}
	for _, m := range c.markers {
		if strings.Contains(query, m) || strings.Contains(decoded, m) {
			return ReasonQueryTrap
		}
	}

	if c.maxParams > 0 && countParams(query) > c.maxParams {
		return ReasonQueryTrap
	}
	return ReasonNone
}

func countParams(query string) int {
	n := 0
	for _, part := range strings.Split(query, "&") {
		if part != "" {
			n++
		}
	}
	return n
}

func (c *Classifier) checkRepeatedSegment(u *url.URL) Reason {
	seen := make(map[string]struct{})
	for _, seg := range strings.Split(strings.ToLower(u.Path), "/") {
		if seg == "" {
			continue
		}
		if _, dup := seen[seg]; dup {
			return ReasonPathLoopTrap
		}
		seen[seg] = struct{}{}
	}
	return ReasonNone
}

func (c *Classifier) checkExtension(u *url.URL) Reason {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if ext == "" {
		return ReasonNone
	}
	if _, blocked := c.extensions[ext]; blocked {
		return ReasonNonHTMLExtension
	}
	return ReasonNone
}
