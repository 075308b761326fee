package storage

const schemaSQL = `
-- pages is the durable frontier: every URL ever queued, and whether it has
-- been fetched. status: queued -> completed | error
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'completed', 'error')),

    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

    -- Fetch result fields (NULL until fetched)
    status_code INTEGER,
    content_type TEXT,
    links_found INTEGER,
    error_type TEXT,
    crawled_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_status_added ON pages(status, added_at);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
