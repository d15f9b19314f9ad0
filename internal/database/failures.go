package database

import (
	"database/sql"
	"fmt"
)

// UpsertFailure records the platform set that failed for a song on the
// latest check, replacing any previous set wholesale.
func (db *DB) UpsertFailure(songID string, platforms []string) error {
	if len(platforms) == 0 {
		return fmt.Errorf("empty platform set; use DeleteFailure")
	}
	_, err := db.conn.Exec(
		`INSERT INTO crawl_failures (song_id, failed_platforms, failed_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(song_id) DO UPDATE SET
			failed_platforms = excluded.failed_platforms,
			failed_at = excluded.failed_at`,
		songID, joinPlatforms(platforms),
	)
	if err != nil {
		return fmt.Errorf("upserting failure: %w", err)
	}
	return nil
}

// DeleteFailure clears a song's failure record. Deleting an absent record
// is a no-op.
func (db *DB) DeleteFailure(songID string) error {
	_, err := db.conn.Exec("DELETE FROM crawl_failures WHERE song_id = ?", songID)
	if err != nil {
		return fmt.Errorf("deleting failure: %w", err)
	}
	return nil
}

// GetFailure returns a song's failure record, or nil when the song is
// fully healthy.
func (db *DB) GetFailure(songID string) (*CrawlFailure, error) {
	row := db.conn.QueryRow(
		"SELECT song_id, failed_platforms, failed_at FROM crawl_failures WHERE song_id = ?",
		songID,
	)
	var f CrawlFailure
	var platforms string
	err := row.Scan(&f.SongID, &platforms, &f.FailedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.FailedPlatforms = splitPlatforms(platforms)
	return &f, nil
}

// ListFailures returns all failure records, most recent first.
func (db *DB) ListFailures() ([]CrawlFailure, error) {
	rows, err := db.conn.Query(
		"SELECT song_id, failed_platforms, failed_at FROM crawl_failures ORDER BY failed_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []CrawlFailure
	for rows.Next() {
		var f CrawlFailure
		var platforms string
		if err := rows.Scan(&f.SongID, &platforms, &f.FailedAt); err != nil {
			return nil, err
		}
		f.FailedPlatforms = splitPlatforms(platforms)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
