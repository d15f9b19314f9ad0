package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS songs (
    id TEXT PRIMARY KEY,
    artist_ko TEXT NOT NULL,
    artist_en TEXT NOT NULL DEFAULT '',
    title_ko TEXT NOT NULL,
    title_en TEXT NOT NULL DEFAULT '',
    youtube_url TEXT,
    melon_song_id TEXT UNIQUE,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS metric_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    song_id TEXT NOT NULL REFERENCES songs(id),
    platform TEXT NOT NULL,
    views INTEGER NOT NULL,
    listeners INTEGER NOT NULL,
    sample_date TEXT NOT NULL,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crawl_failures (
    song_id TEXT PRIMARY KEY REFERENCES songs(id),
    failed_platforms TEXT NOT NULL,
    failed_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,
    state TEXT NOT NULL,
    summary_markdown TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_samples_key
    ON metric_samples(song_id, platform, sample_date);
CREATE INDEX IF NOT EXISTS idx_samples_date ON metric_samples(sample_date);
CREATE INDEX IF NOT EXISTS idx_reports_date ON run_reports(run_date);
`)
			return err
		},
	},
}
