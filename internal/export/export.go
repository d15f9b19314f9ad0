// Package export writes collected samples as CSV for spreadsheet use.
// Files start with a UTF-8 BOM so Excel renders the Korean text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/minhokang/streamwatch/internal/database"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var header = []string{
	"artist_ko", "title_ko", "artist_en", "title_en",
	"platform", "views", "listeners", "sample_date", "collected_at",
}

// WriteDay writes every sample collected on one date, one row per
// (song, platform). Sentinel values are written as-is.
func WriteDay(w io.Writer, db *database.DB, date string) error {
	samples, err := db.SamplesForDay(date)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	songs, err := db.ListSongs()
	if err != nil {
		return fmt.Errorf("loading songs: %w", err)
	}
	byID := make(map[string]database.Song, len(songs))
	for _, s := range songs {
		byID[s.ID] = s
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		song := byID[sample.SongID]
		collected := ""
		if sample.CollectedAt != nil {
			collected = *sample.CollectedAt
		}
		row := []string{
			song.ArtistKo, song.TitleKo, song.ArtistEn, song.TitleEn,
			sample.Platform,
			strconv.FormatInt(sample.Views, 10),
			strconv.FormatInt(sample.Listeners, 10),
			sample.SampleDate,
			collected,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSongHistory writes one song's full sample history, newest first.
func WriteSongHistory(w io.Writer, db *database.DB, songID string) error {
	song, err := db.GetSong(songID)
	if err != nil {
		return err
	}
	if song == nil {
		return fmt.Errorf("song %s not found", songID)
	}
	samples, err := db.SamplesForSong(songID)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sample := range samples {
		collected := ""
		if sample.CollectedAt != nil {
			collected = *sample.CollectedAt
		}
		row := []string{
			song.ArtistKo, song.TitleKo, song.ArtistEn, song.TitleEn,
			sample.Platform,
			strconv.FormatInt(sample.Views, 10),
			strconv.FormatInt(sample.Listeners, 10),
			sample.SampleDate,
			collected,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
