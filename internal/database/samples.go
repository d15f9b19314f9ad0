package database

import (
	"fmt"
	"time"
)

// Today returns the current calendar date in the sample_date format.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// ReplaceSample upserts the metric sample for (song, platform, date):
// any existing row for that key is deleted and a fresh one inserted, so at
// most one row ever exists per key. Returns true when an existing row was
// replaced, false when the row is new.
func (db *DB) ReplaceSample(songID, platform, date string, views, listeners int64) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"DELETE FROM metric_samples WHERE song_id = ? AND platform = ? AND sample_date = ?",
		songID, platform, date,
	)
	if err != nil {
		return false, fmt.Errorf("deleting existing sample: %w", err)
	}
	deleted, _ := res.RowsAffected()

	_, err = tx.Exec(
		`INSERT INTO metric_samples (song_id, platform, views, listeners, sample_date)
		VALUES (?, ?, ?, ?, ?)`,
		songID, platform, views, listeners, date,
	)
	if err != nil {
		return false, fmt.Errorf("inserting sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit replace: %w", err)
	}
	return deleted > 0, nil
}

// SamplesForSongDay returns the samples recorded for one song on one date.
func (db *DB) SamplesForSongDay(songID, date string) ([]MetricSample, error) {
	return db.querySamples(
		`SELECT id, song_id, platform, views, listeners, sample_date, collected_at
		FROM metric_samples WHERE song_id = ? AND sample_date = ? ORDER BY platform`,
		songID, date,
	)
}

// SamplesForDay returns every sample recorded on one date.
func (db *DB) SamplesForDay(date string) ([]MetricSample, error) {
	return db.querySamples(
		`SELECT id, song_id, platform, views, listeners, sample_date, collected_at
		FROM metric_samples WHERE sample_date = ? ORDER BY song_id, platform`,
		date,
	)
}

// SamplesForSong returns a song's full history, newest first.
func (db *DB) SamplesForSong(songID string) ([]MetricSample, error) {
	return db.querySamples(
		`SELECT id, song_id, platform, views, listeners, sample_date, collected_at
		FROM metric_samples WHERE song_id = ? ORDER BY sample_date DESC, platform`,
		songID,
	)
}

func (db *DB) querySamples(query string, args ...any) ([]MetricSample, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []MetricSample
	for rows.Next() {
		var m MetricSample
		if err := rows.Scan(&m.ID, &m.SongID, &m.Platform, &m.Views, &m.Listeners,
			&m.SampleDate, &m.CollectedAt); err != nil {
			return nil, err
		}
		samples = append(samples, m)
	}
	return samples, rows.Err()
}

// GetStats returns aggregate counters for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&s.TotalSongs, "SELECT COUNT(*) FROM songs", nil},
		{&s.ActiveSongs, "SELECT COUNT(*) FROM songs WHERE is_active = 1", nil},
		{&s.SamplesToday, "SELECT COUNT(*) FROM metric_samples WHERE sample_date = ?", []any{Today()}},
		{&s.FailingSongs, "SELECT COUNT(*) FROM crawl_failures", nil},
		{&s.RunReports, "SELECT COUNT(*) FROM run_reports", nil},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
