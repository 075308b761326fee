// Package urlnorm produces canonical absolute URLs: resolved against a base,
// fragment stripped, scheme and host lower-cased, default port and empty
// query removed.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize resolves href against base and returns its canonical form.
// An empty base means href must already be absolute.
func Normalize(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	resolved := ref
	if base != "" {
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return "", fmt.Errorf("%w: base: %v", ErrUnparsable, err)
		}
		resolved = baseURL.ResolveReference(ref)
	}

	return canonicalize(resolved)
}

// Canonical normalizes an already absolute URL.
func Canonical(raw string) (string, error) {
	return Normalize("", raw)
}

// Host returns the lower-cased host of a canonical URL without port, or ""
// when it cannot be parsed.
func Host(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

func canonicalize(u *url.URL) (string, error) {
	if u.Scheme == "" {
		return "", ErrNoScheme
	}
	if u.Host == "" {
		return "", ErrNoHost
	}

	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.User = nil
	c.ForceQuery = false
	if port := c.Port(); port != "" && port == defaultPorts[c.Scheme] {
		c.Host = strings.TrimSuffix(c.Host, ":"+port)
	}
	if c.Path == "" && c.RawPath == "" {
		c.Path = "/"
	}

	return c.String(), nil
}
