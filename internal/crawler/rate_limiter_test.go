package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx, "https://ics.uci.edu/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Second request to the same host should wait
	if err := limiter.Wait(ctx, "https://ICS.uci.edu/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}

	// Different host should not be rate limited
	start2 := time.Now()
	if err := limiter.Wait(ctx, "https://cs.uci.edu/page1"); err != nil {
		t.Errorf("Different host request failed: %v", err)
	}
	if elapsed2 := time.Since(start2); elapsed2 > 20*time.Millisecond {
		t.Errorf("Different host was rate limited, elapsed time: %v", elapsed2)
	}

	if got := limiter.Hosts(); got != 2 {
		t.Errorf("Hosts() = %d, want 2", got)
	}
}

func TestRateLimiterSharesHostAcrossPorts(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for _, u := range []string{"http://ics.uci.edu:8080/", "http://ics.uci.edu/"} {
		if err := limiter.Wait(ctx, u); err != nil {
			t.Fatalf("Wait(%s) failed: %v", u, err)
		}
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Ports of one host limited separately, elapsed time: %v", elapsed)
	}
	if got := limiter.Hosts(); got != 1 {
		t.Errorf("Hosts() = %d, want 1", got)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := limiter.Wait(ctx, "https://ics.uci.edu/"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero interval should not limit, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(500 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Wait(ctx, "https://ics.uci.edu/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	cancel()

	err := limiter.Wait(ctx, "https://ics.uci.edu/page2")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterInvalidURL(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)

	for _, u := range []string{"http://[::1]:namedport", "/relative/path"} {
		if err := limiter.Wait(context.Background(), u); err == nil {
			t.Errorf("Expected error for %q, got nil", u)
		}
	}
}
