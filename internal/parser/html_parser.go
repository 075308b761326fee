// Package parser extracts crawlable links and visible text from fetched
// HTML pages.
package parser

import (
	"bytes"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/masahif/scopecrawl/internal/fetch"
	"github.com/masahif/scopecrawl/internal/urlnorm"
)

// skippedPrefixes are href targets that never lead to another page
var skippedPrefixes = []string{"#", "mailto:", "javascript:", "tel:"}

// ExtractLinks returns the deduplicated canonical URLs linked from a page,
// sorted. Pages that are absent, not 200, not HTML or empty yield nothing.
func ExtractLinks(requestedURL string, res fetch.Result) []string {
	page := res.Page
	if page == nil {
		return nil
	}
	if page.StatusCode != http.StatusOK || !page.IsHTML() || len(page.Body) == 0 {
		slog.Debug("Skipping link extraction", "url", requestedURL, "status_code", page.StatusCode, "content_type", page.ContentType)
		return nil
	}

	base := page.EffectiveURL
	if base == "" {
		base = requestedURL
	}

	hrefs, err := anchorTargets(page.Body)
	if err != nil {
		slog.Debug("Failed to parse HTML", "url", requestedURL, "error", err)
		return nil
	}

	set := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		if skipHref(href) {
			continue
		}
		canonical, err := urlnorm.Normalize(base, href)
		if err != nil {
			continue
		}
		set[canonical] = struct{}{}
	}

	links := make([]string, 0, len(set))
	for link := range set {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

func skipHref(href string) bool {
	if href == "" {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// anchorTargets returns the trimmed href of every <a> element, in document order
func anchorTargets(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, strings.TrimSpace(attr.Val))
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return hrefs, nil
}
