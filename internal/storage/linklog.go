package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LinkLog is an append-only file of accepted URLs, one per line.
type LinkLog struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// OpenLinkLog opens path for appending, creating it if needed
func OpenLinkLog(path string) (*LinkLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create link log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open link log: %w", err)
	}
	return &LinkLog{file: f, buf: bufio.NewWriter(f)}, nil
}

// Append writes urls, one per line, and flushes them to the file
func (l *LinkLog) Append(urls ...string) error {
	if len(urls) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}
	for _, u := range urls {
		if _, err := l.buf.WriteString(u + "\n"); err != nil {
			return fmt.Errorf("failed to append link: %w", err)
		}
	}
	return l.buf.Flush()
}

// Close flushes, syncs and closes the file
func (l *LinkLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.buf.Flush()
	if syncErr := l.file.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}
