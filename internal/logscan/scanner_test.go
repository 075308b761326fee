package logscan

import (
	"errors"
	"strings"
	"testing"
)

func collect(s *Scanner) []Record {
	var out []Record
	for rec := range s.Records() {
		out = append(out, rec)
	}
	return out
}

func TestScannerFindsReservedStatuses(t *testing.T) {
	log := strings.Join([]string{
		"2024-01-01T00:00:00 - Downloaded http://x.edu/a, status <604>",
		"2024-01-01T00:00:01 - Downloaded http://x.edu/b, status <200>",
		"2024-01-01 00:00:02,500 - Worker - INFO - Downloaded https://ics.uci.edu/c, status <600>, using cache ('styx.ics.uci.edu', 9002).",
		"garbage line without the pattern",
		"2024-01-01T00:00:03 - Downloaded http://x.edu/d, status <700>",
		"2024-01-01T00:00:04 - Downloaded http://x.edu/e, status <599>",
		"",
		"2024-01-01T00:00:05 - Worker - Downloaded http://x.edu/f, status <699>",
	}, "\n")

	got := collect(NewScanner(strings.NewReader(log)))
	want := []Record{
		{Timestamp: "2024-01-01T00:00:00", URL: "http://x.edu/a", StatusCode: 604},
		{Timestamp: "2024-01-01 00:00:02,500", URL: "https://ics.uci.edu/c", StatusCode: 600},
		{Timestamp: "2024-01-01T00:00:05", URL: "http://x.edu/f", StatusCode: 699},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestScannerNormalStatusYieldsNothing(t *testing.T) {
	s := NewScanner(strings.NewReader("2024-01-01T00:00:00 - Downloaded http://x.edu/a, status <200>\n"))
	if got := collect(s); len(got) != 0 {
		t.Errorf("expected no anomalies, got %v", got)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v", s.Err())
	}
}

func TestScannerStopsEarly(t *testing.T) {
	log := strings.Repeat("t - Downloaded http://x.edu/a, status <601>\n", 10)
	s := NewScanner(strings.NewReader(log))

	n := 0
	for range s.Records() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d records, want 2", n)
	}
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "t - Downloaded http://x.edu/a, status <605>\n"), nil
	}
	return 0, errors.New("disk gone")
}

func TestScannerReportsReadErrors(t *testing.T) {
	s := NewScanner(&failingReader{})
	got := collect(s)
	if len(got) != 1 {
		t.Errorf("expected the record read before the failure, got %v", got)
	}
	if s.Err() == nil {
		t.Error("Err() = nil, want read error")
	}
}

func TestScannerSkipsOversizedLines(t *testing.T) {
	junk := strings.Repeat("x", 2*maxLineSize)
	log := junk + "\n" +
		"2024-01-01T00:00:00 - Downloaded http://x.edu/a, status <604>\r\n" +
		"t - Downloaded http://x.edu/" + junk + ", status <600>\n" +
		"2024-01-01T00:00:01 - Downloaded http://x.edu/b, status <601>\n" +
		junk

	s := NewScanner(strings.NewReader(log))
	got := collect(s)
	want := []Record{
		{Timestamp: "2024-01-01T00:00:00", URL: "http://x.edu/a", StatusCode: 604},
		{Timestamp: "2024-01-01T00:00:01", URL: "http://x.edu/b", StatusCode: 601},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
}

func TestScannerLastLineWithoutNewline(t *testing.T) {
	s := NewScanner(strings.NewReader("t - Downloaded http://x.edu/a, status <602>"))
	got := collect(s)
	if len(got) != 1 || got[0].StatusCode != 602 {
		t.Errorf("got %v, want the unterminated record", got)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
}

func TestParseLine(t *testing.T) {
	rec, ok := ParseLine("ts - Downloaded http://x.edu/a, status <404>")
	if !ok || rec.StatusCode != 404 || rec.URL != "http://x.edu/a" || rec.Timestamp != "ts" {
		t.Errorf("ParseLine() = %+v, %v", rec, ok)
	}
	if _, ok := ParseLine("ts - Downloaded http://x.edu/a, status <abc>"); ok {
		t.Error("non-numeric status should not parse")
	}
}
