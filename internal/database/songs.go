package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// InsertSong inserts a catalog entry. An empty ID gets a generated UUID;
// the assigned ID is returned.
func (db *DB) InsertSong(s Song) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := db.conn.Exec(
		`INSERT INTO songs (id, artist_ko, artist_en, title_ko, title_en, youtube_url, melon_song_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ArtistKo, s.ArtistEn, s.TitleKo, s.TitleEn, s.YouTubeURL, s.MelonSongID, boolToInt(s.IsActive),
	)
	if err != nil {
		return "", fmt.Errorf("inserting song: %w", err)
	}
	return s.ID, nil
}

// GetSong returns a single song by ID, or nil when absent.
func (db *DB) GetSong(id string) (*Song, error) {
	row := db.conn.QueryRow(
		`SELECT id, artist_ko, artist_en, title_ko, title_en, youtube_url, melon_song_id, is_active, created_at, updated_at
		FROM songs WHERE id = ?`, id,
	)
	s, err := scanSong(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListActiveSongs returns the songs eligible for collection, ordered by
// artist then title.
func (db *DB) ListActiveSongs() ([]Song, error) {
	return db.querySongs(
		`SELECT id, artist_ko, artist_en, title_ko, title_en, youtube_url, melon_song_id, is_active, created_at, updated_at
		FROM songs WHERE is_active = 1 ORDER BY artist_ko, title_ko`,
	)
}

// ListSongs returns every catalog entry.
func (db *DB) ListSongs() ([]Song, error) {
	return db.querySongs(
		`SELECT id, artist_ko, artist_en, title_ko, title_en, youtube_url, melon_song_id, is_active, created_at, updated_at
		FROM songs ORDER BY artist_ko, title_ko`,
	)
}

// UpdatePlatformID stores an auto-discovered platform identifier on a
// catalog entry. Only the identifier-based platforms carry one.
func (db *DB) UpdatePlatformID(songID, platform, value string) error {
	var column string
	switch platform {
	case "melon":
		column = "melon_song_id"
	case "youtube":
		column = "youtube_url"
	default:
		return fmt.Errorf("platform %q has no stored identifier", platform)
	}
	_, err := db.conn.Exec(
		"UPDATE songs SET "+column+" = ?, updated_at = datetime('now') WHERE id = ?",
		value, songID,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}
	return nil
}

func (db *DB) querySongs(query string, args ...any) ([]Song, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var s Song
		var active int
		if err := rows.Scan(&s.ID, &s.ArtistKo, &s.ArtistEn, &s.TitleKo, &s.TitleEn,
			&s.YouTubeURL, &s.MelonSongID, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.IsActive = active != 0
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

func scanSong(row *sql.Row) (*Song, error) {
	var s Song
	var active int
	if err := row.Scan(&s.ID, &s.ArtistKo, &s.ArtistEn, &s.TitleKo, &s.TitleEn,
		&s.YouTubeURL, &s.MelonSongID, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.IsActive = active != 0
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
