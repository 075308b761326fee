package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/masahif/scopecrawl/internal/crawler"
	"github.com/masahif/scopecrawl/internal/report"
	"github.com/masahif/scopecrawl/internal/stats"
	"github.com/masahif/scopecrawl/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a Markdown summary of the crawl",
	Long: `report combines the statistics checkpoint with the pages recorded in the
frontier database: unique pages, the longest page, the most common words
(stopwords removed) and the number of pages per subdomain.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("stopwords", "", "File with one stopword per line")
	reportCmd.Flags().Int("top", report.DefaultTopWords, "Number of most common words to list")
	reportCmd.Flags().String("out", "-", "Report destination (- for stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	stopwordsPath, _ := cmd.Flags().GetString("stopwords")
	top, _ := cmd.Flags().GetInt("top")
	outPath, _ := cmd.Flags().GetString("out")

	checkpoint, err := stats.NewFileStore(cfg.CheckpointPath).Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		slog.Warn("No checkpoint found, word statistics are empty", "path", cfg.CheckpointPath)
	}

	pages, err := storedPages(cfg.DatabasePath)
	if err != nil {
		return err
	}

	var stopwords map[string]struct{}
	if stopwordsPath != "" {
		f, err := os.Open(stopwordsPath)
		if err != nil {
			return fmt.Errorf("failed to open stopwords: %w", err)
		}
		stopwords, err = report.LoadStopwords(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	data := report.Build(checkpoint, pages, stopwords, top)
	if err := report.NewMarkdownWriter(out).Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// storedPages reads the fetched URLs and crawl times, or nothing when no
// database exists yet
func storedPages(dbPath string) (report.Pages, error) {
	var pages report.Pages
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		slog.Warn("No frontier database found, page counts are empty", "path", dbPath)
		return pages, nil
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return pages, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	defer func() { _ = store.Close() }()

	if pages.Visited, err = store.VisitedURLs(); err != nil {
		return pages, err
	}
	if pages.Completed, err = store.CompletedURLs(); err != nil {
		return pages, err
	}
	if pages.StartedAt, err = store.GetMeta(crawler.MetaStartedAt); err != nil {
		return pages, err
	}
	if pages.FinishedAt, err = store.GetMeta(crawler.MetaFinishedAt); err != nil {
		return pages, err
	}
	return pages, nil
}
