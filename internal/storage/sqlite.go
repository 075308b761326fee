// Package storage provides data persistence functionality for the crawler.
// It implements the SQLite-backed frontier and the discovered-links stream.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/scopecrawl/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements crawler.Store using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ crawler.Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts between workers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// AddToQueue records URLs as queued. URLs already known keep their status.
func (s *SQLiteStorage) AddToQueue(urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO pages (url, status, added_at)
		VALUES (?, 'queued', ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, url := range urls {
		if _, err := stmt.Exec(url, now); err != nil {
			return fmt.Errorf("failed to insert URL %s: %w", url, err)
		}
	}

	return tx.Commit()
}

// MarkVisited records the outcome of a fetch. A non-empty errorType marks the
// page as errored.
func (s *SQLiteStorage) MarkVisited(v crawler.Visit) error {
	status := "completed"
	if v.ErrorType != "" {
		status = "error"
	}

	_, err := s.db.Exec(`
		INSERT INTO pages (url, status, added_at, status_code, content_type, links_found, error_type, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			links_found = excluded.links_found,
			error_type = excluded.error_type,
			crawled_at = excluded.crawled_at
	`, v.URL, status, v.CrawledAt, v.StatusCode, v.ContentType, v.LinksFound, nullIfEmpty(v.ErrorType), v.CrawledAt)
	if err != nil {
		return fmt.Errorf("failed to mark %s visited: %w", v.URL, err)
	}
	return nil
}

// PendingURLs returns queued URLs in the order they were added
func (s *SQLiteStorage) PendingURLs() ([]string, error) {
	return s.urlsWhere(`status = 'queued' ORDER BY added_at ASC, id ASC`)
}

// VisitedURLs returns every fetched URL, successful or not. Queued URLs
// dropped as out of scope were never fetched and are left out.
func (s *SQLiteStorage) VisitedURLs() ([]string, error) {
	return s.urlsWhere(`status IN ('completed', 'error') AND COALESCE(error_type, '') != ? ORDER BY id ASC`, crawler.ErrorTypeRejected)
}

// CompletedURLs returns URLs fetched with a 2xx status
func (s *SQLiteStorage) CompletedURLs() ([]string, error) {
	return s.urlsWhere(`status = 'completed' AND status_code BETWEEN 200 AND 299 ORDER BY id ASC`)
}

func (s *SQLiteStorage) urlsWhere(clause string, args ...any) ([]string, error) {
	rows, err := s.db.Query(`SELECT url FROM pages WHERE `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// GetQueueStatus returns counts by status
func (s *SQLiteStorage) GetQueueStatus() (queued int, completed int, errors int, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
		FROM pages
	`

	err = s.db.QueryRow(query).Scan(&queued, &completed, &errors)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get queue status: %w", err)
	}
	return queued, completed, errors, nil
}

// HasQueuedItems checks if there are URLs still waiting to be fetched
func (s *SQLiteStorage) HasQueuedItems() (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pages WHERE status = 'queued'`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check queued items: %w", err)
	}
	return count > 0, nil
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
