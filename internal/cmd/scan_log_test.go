package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestRunScanLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Worker.log")
	content := strings.Join([]string{
		"2024-01-01 00:00:00,000 - Worker-1 - INFO - Downloaded https://ics.uci.edu/, status <200>",
		"2024-01-01 00:00:01,000 - Worker-1 - ERROR - Downloaded https://ics.uci.edu/slow, status <601>",
		"garbage line",
		"2024-01-01T00:00:00 - Downloaded http://x.edu/a, status <604>",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	viper.Reset()
	defer viper.Reset()

	t.Run("ExplicitFile", func(t *testing.T) {
		cmd := &cobra.Command{}
		var out bytes.Buffer
		cmd.SetOut(&out)

		if err := runScanLog(cmd, []string{path}); err != nil {
			t.Fatalf("runScanLog failed: %v", err)
		}

		want := "2024-01-01 00:00:01,000 | 601 | https://ics.uci.edu/slow\n" +
			"2024-01-01T00:00:00 | 604 | http://x.edu/a\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("ConfiguredFile", func(t *testing.T) {
		viper.Set("log.fetch_log_path", path)

		cmd := &cobra.Command{}
		var out bytes.Buffer
		cmd.SetOut(&out)

		if err := runScanLog(cmd, nil); err != nil {
			t.Fatalf("runScanLog failed: %v", err)
		}
		if strings.Count(out.String(), "\n") != 2 {
			t.Errorf("expected 2 anomalies, got %q", out.String())
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		cmd := &cobra.Command{}
		if err := runScanLog(cmd, []string{filepath.Join(t.TempDir(), "missing.log")}); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
