package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodySize bounds how much of a response body is read.
const DefaultMaxBodySize = 10 << 20

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client        *http.Client
	userAgent     string
	maxBodySize   int64
	customHeaders map[string]string
}

// NewHTTPFetcher creates a fetcher with the given user agent and per-request timeout
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:        client,
		userAgent:     userAgent,
		maxBodySize:   DefaultMaxBodySize,
		customHeaders: make(map[string]string),
	}
}

// SetMaxBodySize changes the body read limit; non-positive values are ignored
func (h *HTTPFetcher) SetMaxBodySize(n int64) {
	if n > 0 {
		h.maxBodySize = n
	}
}

// SetCustomHeaders adds headers sent with every request
func (h *HTTPFetcher) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.customHeaders[k] = v
	}
}

// Fetch performs a GET. It never returns an error value: every failure is
// described by the Failure arm of the result.
func (h *HTTPFetcher) Fetch(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FailureResult(&Failure{URL: url, Kind: "invalid_request", Status: StatusInvalidRequest, Err: err})
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return FailureResult(classifyError(ctx, url, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		if f := classifyError(ctx, url, err); f.Status != StatusRequestFailed {
			return FailureResult(f)
		}
		return FailureResult(&Failure{URL: url, Kind: "read_error", Status: StatusBodyReadFailed, Err: err})
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	return PageResult(&FetchedPage{
		RequestedURL: url,
		EffectiveURL: resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		Headers:      headers,
		Duration:     time.Since(start),
	})
}

// Close releases idle connections
func (h *HTTPFetcher) Close() {
	h.client.CloseIdleConnections()
}

func classifyError(ctx context.Context, url string, err error) *Failure {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Failure{URL: url, Kind: "cancelled", Status: StatusCancelled, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Failure{URL: url, Kind: "timeout", Status: StatusTimeout, Err: err}
	}

	return &Failure{URL: url, Kind: "network_error", Status: StatusRequestFailed, Err: err}
}
