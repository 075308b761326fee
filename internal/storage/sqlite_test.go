package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/masahif/scopecrawl/internal/crawler"
)

func newTestStorage(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test_crawler.db")
	storage, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })
	return storage, dbFile
}

func TestSQLiteStorage(t *testing.T) {
	storage, _ := newTestStorage(t)

	t.Run("AddToQueue", func(t *testing.T) {
		urls := []string{"https://ics.uci.edu/", "https://ics.uci.edu/about", "https://ics.uci.edu/"}
		if err := storage.AddToQueue(urls); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}

		pending, err := storage.PendingURLs()
		if err != nil {
			t.Fatalf("Failed to get pending URLs: %v", err)
		}
		want := []string{"https://ics.uci.edu/", "https://ics.uci.edu/about"}
		if !reflect.DeepEqual(pending, want) {
			t.Errorf("PendingURLs() = %v, want %v", pending, want)
		}

		hasQueued, err := storage.HasQueuedItems()
		if err != nil || !hasQueued {
			t.Errorf("HasQueuedItems() = %v, %v; want true", hasQueued, err)
		}
	})

	t.Run("MarkVisited", func(t *testing.T) {
		now := time.Now().UTC()
		visits := []crawler.Visit{
			{URL: "https://ics.uci.edu/", StatusCode: 200, ContentType: "text/html", LinksFound: 3, CrawledAt: now},
			{URL: "https://ics.uci.edu/about", StatusCode: 601, ErrorType: "timeout", CrawledAt: now},
		}
		for _, v := range visits {
			if err := storage.MarkVisited(v); err != nil {
				t.Fatalf("Failed to mark visited: %v", err)
			}
		}

		visited, err := storage.VisitedURLs()
		if err != nil {
			t.Fatalf("Failed to get visited URLs: %v", err)
		}
		if len(visited) != 2 {
			t.Errorf("VisitedURLs() = %v, want 2 URLs", visited)
		}

		completed, err := storage.CompletedURLs()
		if err != nil {
			t.Fatalf("Failed to get completed URLs: %v", err)
		}
		if !reflect.DeepEqual(completed, []string{"https://ics.uci.edu/"}) {
			t.Errorf("CompletedURLs() = %v", completed)
		}

		pending, _ := storage.PendingURLs()
		if len(pending) != 0 {
			t.Errorf("PendingURLs() = %v, want none", pending)
		}
	})

	t.Run("AddToQueueKeepsVisitedStatus", func(t *testing.T) {
		if err := storage.AddToQueue([]string{"https://ics.uci.edu/"}); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}
		pending, _ := storage.PendingURLs()
		if len(pending) != 0 {
			t.Errorf("visited URL was requeued: %v", pending)
		}
	})

	t.Run("GetQueueStatus", func(t *testing.T) {
		if err := storage.AddToQueue([]string{"https://cs.uci.edu/people"}); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}

		queued, completed, errors, err := storage.GetQueueStatus()
		if err != nil {
			t.Fatalf("Failed to get queue status: %v", err)
		}
		if queued != 1 || completed != 1 || errors != 1 {
			t.Errorf("GetQueueStatus() = %d, %d, %d; want 1, 1, 1", queued, completed, errors)
		}
	})

	t.Run("RejectedNotVisited", func(t *testing.T) {
		rejected := crawler.Visit{URL: "https://cs.uci.edu/people", ErrorType: crawler.ErrorTypeRejected, CrawledAt: time.Now().UTC()}
		if err := storage.MarkVisited(rejected); err != nil {
			t.Fatalf("Failed to mark rejected: %v", err)
		}

		pending, _ := storage.PendingURLs()
		if len(pending) != 0 {
			t.Errorf("rejected URL still pending: %v", pending)
		}
		visited, _ := storage.VisitedURLs()
		for _, u := range visited {
			if u == rejected.URL {
				t.Errorf("VisitedURLs() includes rejected URL: %v", visited)
			}
		}
	})

	t.Run("MetaData", func(t *testing.T) {
		value, err := storage.GetMeta("missing")
		if err != nil || value != "" {
			t.Errorf("GetMeta(missing) = %q, %v; want empty", value, err)
		}

		if err := storage.SetMeta(crawler.MetaStartedAt, "2026-01-01T00:00:00Z"); err != nil {
			t.Fatalf("Failed to set meta: %v", err)
		}
		if err := storage.SetMeta(crawler.MetaStartedAt, "2026-01-02T00:00:00Z"); err != nil {
			t.Fatalf("Failed to overwrite meta: %v", err)
		}
		value, err = storage.GetMeta(crawler.MetaStartedAt)
		if err != nil || value != "2026-01-02T00:00:00Z" {
			t.Errorf("GetMeta() = %q, %v", value, err)
		}
	})
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	storage, dbFile := newTestStorage(t)

	if err := storage.AddToQueue([]string{"https://ics.uci.edu/", "https://ics.uci.edu/a"}); err != nil {
		t.Fatalf("Failed to add to queue: %v", err)
	}
	if err := storage.MarkVisited(crawler.Visit{URL: "https://ics.uci.edu/", StatusCode: 200, CrawledAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Failed to mark visited: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	pending, _ := reopened.PendingURLs()
	visited, _ := reopened.VisitedURLs()
	if !reflect.DeepEqual(pending, []string{"https://ics.uci.edu/a"}) {
		t.Errorf("PendingURLs() after reopen = %v", pending)
	}
	if !reflect.DeepEqual(visited, []string{"https://ics.uci.edu/"}) {
		t.Errorf("VisitedURLs() after reopen = %v", visited)
	}
}

func TestNewSQLiteStorageInvalidPath(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missing", "dir", "crawler.db")
	if _, err := NewSQLiteStorage(dbFile); err == nil {
		t.Error("Expected error for database in a missing directory")
	}
}

func TestLinkLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "valid_urls.txt")

	log, err := OpenLinkLog(path)
	if err != nil {
		t.Fatalf("OpenLinkLog failed: %v", err)
	}
	if err := log.Append("https://ics.uci.edu/", "https://cs.uci.edu/people"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.Append(); err != nil {
		t.Fatalf("Append with no URLs failed: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := log.Append("https://ics.uci.edu/late"); err == nil {
		t.Error("Append after Close should fail")
	}

	// Reopening appends
	log, err = OpenLinkLog(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := log.Append("https://stat.uci.edu/"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "https://ics.uci.edu/\nhttps://cs.uci.edu/people\nhttps://stat.uci.edu/\n"
	if string(data) != want {
		t.Errorf("link log = %q, want %q", string(data), want)
	}
	if strings.Count(string(data), "\n") != 3 {
		t.Errorf("expected 3 lines")
	}
}
