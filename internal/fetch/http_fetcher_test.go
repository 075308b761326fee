package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Agent", r.Header.Get("User-Agent"))
			w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
			_, _ = w.Write([]byte("<html><body>hello</body></html>"))
		case "/redirect":
			http.Redirect(w, r, "/page", http.StatusFound)
		case "/slow":
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		case "/big":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher("scopecrawl-test/1.0", 100*time.Millisecond)
	fetcher.SetCustomHeaders(map[string]string{"X-Custom": "yes"})
	defer fetcher.Close()
	ctx := context.Background()

	t.Run("HTMLPage", func(t *testing.T) {
		res := fetcher.Fetch(ctx, server.URL+"/page")
		if !res.OK() {
			t.Fatalf("expected page, got failure %v", res.Failure)
		}
		page := res.Page
		if page.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want 200", page.StatusCode)
		}
		if !page.IsHTML() {
			t.Errorf("IsHTML() = false for %q", page.ContentType)
		}
		if string(page.Body) != "<html><body>hello</body></html>" {
			t.Errorf("unexpected body %q", page.Body)
		}
		if page.Headers["x-agent"] != "scopecrawl-test/1.0" {
			t.Errorf("User-Agent not sent, got %q", page.Headers["x-agent"])
		}
		if page.Headers["x-custom"] != "yes" {
			t.Errorf("custom header not sent, got %q", page.Headers["x-custom"])
		}
	})

	t.Run("RedirectSetsEffectiveURL", func(t *testing.T) {
		res := fetcher.Fetch(ctx, server.URL+"/redirect")
		if !res.OK() {
			t.Fatalf("expected page, got failure %v", res.Failure)
		}
		if res.Page.RequestedURL != server.URL+"/redirect" {
			t.Errorf("RequestedURL = %q", res.Page.RequestedURL)
		}
		if res.Page.EffectiveURL != server.URL+"/page" {
			t.Errorf("EffectiveURL = %q, want %q", res.Page.EffectiveURL, server.URL+"/page")
		}
	})

	t.Run("NotFoundIsAPage", func(t *testing.T) {
		res := fetcher.Fetch(ctx, server.URL+"/missing")
		if !res.OK() || res.Status() != http.StatusNotFound {
			t.Errorf("expected 404 page, got %+v", res)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		res := fetcher.Fetch(ctx, server.URL+"/slow")
		if res.OK() {
			t.Fatal("expected timeout failure")
		}
		if res.Status() != StatusTimeout {
			t.Errorf("Status() = %d, want %d (%v)", res.Status(), StatusTimeout, res.Failure)
		}
	})

	t.Run("BodyLimit", func(t *testing.T) {
		small := NewHTTPFetcher("scopecrawl-test/1.0", time.Second)
		small.SetMaxBodySize(100)
		res := small.Fetch(ctx, server.URL+"/big")
		if !res.OK() {
			t.Fatalf("expected page, got failure %v", res.Failure)
		}
		if len(res.Page.Body) != 100 {
			t.Errorf("body length = %d, want 100", len(res.Page.Body))
		}
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		res := fetcher.Fetch(ctx, "http://bad host/")
		if res.Status() != StatusInvalidRequest {
			t.Errorf("Status() = %d, want %d", res.Status(), StatusInvalidRequest)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := fetcher.Fetch(cctx, server.URL+"/page")
		if res.Status() != StatusCancelled {
			t.Errorf("Status() = %d, want %d", res.Status(), StatusCancelled)
		}
	})
}

func TestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	res := NewHTTPFetcher("t", time.Second).Fetch(context.Background(), addr)
	if res.OK() {
		t.Fatal("expected failure for closed server")
	}
	if res.Status() != StatusRequestFailed {
		t.Errorf("Status() = %d, want %d", res.Status(), StatusRequestFailed)
	}
	if res.Failure.Error() == "" {
		t.Error("Failure.Error() is empty")
	}
}

func TestResultAbsent(t *testing.T) {
	var r Result
	if r.OK() {
		t.Error("zero Result should not be OK")
	}
	if r.Status() != StatusRequestFailed {
		t.Errorf("zero Result Status() = %d", r.Status())
	}
}
