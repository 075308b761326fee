package logging

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// fetchLogTimeFormat matches the timestamp prefix of the worker log.
const fetchLogTimeFormat = "2006-01-02 15:04:05,000"

// FetchLog writes one line per download attempt:
//
//	2024-01-01 00:00:00,000 - Worker-0 - INFO - Downloaded https://ics.uci.edu/, status <200>
//
// The format is what logscan parses.
type FetchLog struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	now func() time.Time
}

// NewFetchLog writes to w. If w is an io.Closer, Close closes it.
func NewFetchLog(w io.Writer) *FetchLog {
	l := &FetchLog{w: w, now: time.Now}
	if c, ok := w.(io.Closer); ok {
		l.c = c
	}
	return l
}

// OpenFetchLog opens a size-rotated fetch log file.
func OpenFetchLog(path string, maxSizeMB int64, maxBackups int) (*FetchLog, error) {
	w, err := openRotating(path, maxSizeMB, maxBackups)
	if err != nil {
		return nil, err
	}
	return NewFetchLog(w), nil
}

// Downloaded records a fetch of url that ended with status.
func (l *FetchLog) Downloaded(worker int, url string, status int) error {
	level := "INFO"
	if status >= 600 {
		level = "ERROR"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "%s - Worker-%d - %s - Downloaded %s, status <%d>\n",
		l.now().Format(fetchLogTimeFormat), worker, level, url, status)
	return err
}

// Close closes the underlying writer when it supports closing
func (l *FetchLog) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
