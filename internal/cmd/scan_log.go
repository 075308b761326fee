package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/masahif/scopecrawl/internal/logscan"
)

var scanLogCmd = &cobra.Command{
	Use:   "scan-log [FILE]",
	Short: "List fetches that ended with a crawler-internal error status",
	Long: `scan-log reads a fetch log and prints every download whose status is in
the reserved crawler error range (600-699) as "timestamp | status | url".

FILE defaults to the configured fetch log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanLog,
}

func runScanLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	path := cfg.Log.FetchLogPath
	if len(args) == 1 {
		path = args[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fetch log: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := cmd.OutOrStdout()
	scanner := logscan.NewScanner(f)
	count := 0
	for rec := range scanner.Records() {
		fmt.Fprintf(out, "%s | %d | %s\n", rec.Timestamp, rec.StatusCode, rec.URL)
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}

	slog.Info("Scanned fetch log", "path", path, "anomalies", count)
	return nil
}
