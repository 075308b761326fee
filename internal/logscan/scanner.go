// Package logscan finds crawler-internal fetch failures in fetch logs.
//
// A fetch log line looks like
//
//	2024-01-01 00:00:00,123 - Worker - INFO - Downloaded https://ics.uci.edu/, status <200>, using cache ('host', 9000).
//
// Statuses in [600, 700) are reserved by the crawler for failures that never
// produced an HTTP response.
package logscan

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"regexp"
	"strconv"
)

// Reserved status band bounds.
const (
	AnomalyMin = 600
	AnomalyMax = 700 // exclusive
)

var linePattern = regexp.MustCompile(`^(.*?) - .*?Downloaded (.*?), status <(\d+)>`)

// maxLineSize bounds a single log line; longer lines are skipped.
const maxLineSize = 1 << 20

// Record is one anomalous fetch.
type Record struct {
	Timestamp  string
	URL        string
	StatusCode int
}

// ParseLine extracts the timestamp, URL and status of a fetch log line.
func ParseLine(line string) (Record, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}
	status, err := strconv.Atoi(m[3])
	if err != nil {
		return Record{}, false
	}
	return Record{Timestamp: m[1], URL: m[2], StatusCode: status}, true
}

// IsAnomaly reports whether status is in the reserved band.
func IsAnomaly(status int) bool {
	return status >= AnomalyMin && status < AnomalyMax
}

// Scanner reads a log lazily, one line at a time.
type Scanner struct {
	r   *bufio.Reader
	err error
}

// NewScanner wraps r. Reopen the source to scan it again.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Records yields anomalous records in file order. Lines that do not match
// the fetch log format are skipped, and so are lines longer than
// maxLineSize. Check Err after iterating.
func (s *Scanner) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			line, ok, err := s.readLine()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.err = err
				}
				return
			}
			if !ok {
				continue
			}
			rec, matched := ParseLine(string(line))
			if !matched || !IsAnomaly(rec.StatusCode) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// readLine returns the next line without its terminator. An oversized line
// is consumed to its end and reported with ok false. io.EOF is returned only
// once no bytes remain.
func (s *Scanner) readLine() ([]byte, bool, error) {
	var line []byte
	ok, read := true, false
	for {
		chunk, err := s.r.ReadSlice('\n')
		read = read || len(chunk) > 0
		if ok {
			if len(line)+len(chunk) > maxLineSize {
				ok, line = false, nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
			return trimEOL(line), ok, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return trimEOL(line), ok, nil
		default:
			return nil, false, err
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

// Err returns the first read error encountered by Records.
func (s *Scanner) Err() error {
	return s.err
}
