package crawler

import "errors"

var (
	// ErrNilConfig is returned when NewCrawler gets no configuration
	ErrNilConfig = errors.New("crawler config is nil")

	// ErrNilStore is returned when NewCrawler gets no frontier store
	ErrNilStore = errors.New("crawler store is nil")

	// ErrNoValidSeeds is returned when every seed URL is rejected and the
	// store holds no queued work either
	ErrNoValidSeeds = errors.New("no seed URL is valid and in scope")
)
