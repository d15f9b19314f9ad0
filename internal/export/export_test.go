package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minhokang/streamwatch/internal/database"
)

func setup(t *testing.T) (*database.DB, string) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", TitleEn: "Hello", IsActive: true})
	if err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
	if _, err := db.ReplaceSample(songID, "genie", "2026-08-29", 12345, 678); err != nil {
		t.Fatalf("failed to insert sample: %v", err)
	}
	if _, err := db.ReplaceSample(songID, "youtube", "2026-08-29", 99, -1); err != nil {
		t.Fatalf("failed to insert sample: %v", err)
	}
	return db, songID
}

func TestWriteDay(t *testing.T) {
	db, _ := setup(t)

	var buf bytes.Buffer
	if err := WriteDay(&buf, db, "2026-08-29"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.Bytes()
	if len(out) < 3 || out[0] != 0xEF || out[1] != 0xBB || out[2] != 0xBF {
		t.Fatal("output must start with UTF-8 BOM")
	}

	records, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != "artist_ko" {
		t.Errorf("unexpected header: %v", records[0])
	}

	var sawSentinel bool
	for _, row := range records[1:] {
		if row[0] != "가수A" || row[1] != "안녕" {
			t.Errorf("unexpected song columns: %v", row)
		}
		if row[4] == "youtube" && row[6] == "-1" {
			sawSentinel = true
		}
	}
	if !sawSentinel {
		t.Error("unsupported-listener sentinel should be exported verbatim")
	}
}

func TestWriteDayEmpty(t *testing.T) {
	db, _ := setup(t)

	var buf bytes.Buffer
	if err := WriteDay(&buf, db, "1999-01-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "artist_ko") {
		t.Error("empty export should still carry the header")
	}
}

func TestWriteSongHistory(t *testing.T) {
	db, songID := setup(t)

	var buf bytes.Buffer
	if err := WriteSongHistory(&buf, db, songID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected header + 2 rows, got %d", len(records))
	}

	if err := WriteSongHistory(&buf, db, "no-such-song"); err == nil {
		t.Error("expected error for unknown song")
	}
}
