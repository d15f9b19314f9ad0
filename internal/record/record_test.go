package record

import (
	"path/filepath"
	"testing"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/platform"
)

func setup(t *testing.T) (*Recorder, *database.DB, string) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true})
	if err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
	return New(db, nil), db, songID
}

func TestRecordSuccess(t *testing.T) {
	r, _, songID := setup(t)

	raw := &platform.RawResult{ViewsText: "1,234,567", ListenersText: "3.2만"}
	o, err := r.Record(songID, platform.Genie, raw, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Views != 1234567 || o.Listeners != 32000 {
		t.Errorf("unexpected outcome: %+v", o)
	}
	if o.Failed() {
		t.Error("successful record should not report failure")
	}
}

func TestRecordUnsupportedListeners(t *testing.T) {
	r, _, songID := setup(t)

	raw := &platform.RawResult{ViewsText: "조회수 1.2만회"}
	o, err := r.Record(songID, platform.YouTube, raw, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Views != 12000 {
		t.Errorf("unexpected views: %d", o.Views)
	}
	if o.Listeners != Unsupported {
		t.Errorf("expected listeners sentinel -1, got %d", o.Listeners)
	}
	if o.Failed() {
		t.Error("unsupported field is not a failure")
	}
}

func TestRecordNilResult(t *testing.T) {
	r, _, songID := setup(t)

	o, err := r.Record(songID, platform.YouTube, nil, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Views != Failed || o.Listeners != Failed {
		t.Errorf("expected both failure sentinels, got %+v", o)
	}
	if !o.Failed() {
		t.Error("nil result must report failure")
	}
}

func TestRecordPartialParseFailure(t *testing.T) {
	r, _, songID := setup(t)

	raw := &platform.RawResult{ViewsText: "coming soon", ListenersText: "500"}
	o, err := r.Record(songID, platform.Genie, raw, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Views != Failed {
		t.Errorf("expected views failure sentinel, got %d", o.Views)
	}
	if o.Listeners != 500 {
		t.Errorf("expected listeners parsed, got %d", o.Listeners)
	}
}

func TestRecordZeroIsLegitimate(t *testing.T) {
	r, _, songID := setup(t)

	raw := &platform.RawResult{ViewsText: "0", ListenersText: "0"}
	o, err := r.Record(songID, platform.Genie, raw, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Views != 0 || o.Listeners != 0 || o.Failed() {
		t.Errorf("zero counts are valid metrics: %+v", o)
	}
}

func TestRecordIdempotent(t *testing.T) {
	r, db, songID := setup(t)

	raw := &platform.RawResult{ViewsText: "100", ListenersText: "10"}
	o, _ := r.Record(songID, platform.Genie, raw, "2026-08-29")
	if o.Replaced {
		t.Error("first record should not replace")
	}

	raw.ViewsText = "200"
	o, _ = r.Record(songID, platform.Genie, raw, "2026-08-29")
	if !o.Replaced {
		t.Error("second record should replace")
	}

	samples, err := db.SamplesForSongDay(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || samples[0].Views != 200 {
		t.Errorf("expected single sample with latest views, got %+v", samples)
	}
}

func TestRecomputeFailures(t *testing.T) {
	r, db, songID := setup(t)

	r.Record(songID, platform.Genie, &platform.RawResult{ViewsText: "100", ListenersText: "10"}, "2026-08-29")
	r.Record(songID, platform.Melon, nil, "2026-08-29")
	r.Record(songID, platform.YouTube, nil, "2026-08-29")

	failed, err := r.RecomputeFailures(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed platforms, got %v", failed)
	}

	f, _ := db.GetFailure(songID)
	if f == nil || len(f.FailedPlatforms) != 2 {
		t.Fatalf("expected ledger entry with 2 platforms, got %+v", f)
	}

	// A later run that succeeds everywhere clears the ledger.
	r.Record(songID, platform.Melon, &platform.RawResult{ViewsText: "1", ListenersText: "1"}, "2026-08-29")
	r.Record(songID, platform.YouTube, &platform.RawResult{ViewsText: "1"}, "2026-08-29")

	failed, err = r.RecomputeFailures(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed != nil {
		t.Errorf("expected no failures, got %v", failed)
	}
	f, _ = db.GetFailure(songID)
	if f != nil {
		t.Errorf("expected ledger cleared, got %+v", f)
	}
}

func TestRecomputeFailuresKeepsUnvisitedPlatforms(t *testing.T) {
	r, db, songID := setup(t)

	// An earlier run left melon failing.
	if err := db.UpsertFailure(songID, []string{"melon"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Today only genie was visited, and it succeeded.
	r.Record(songID, platform.Genie, &platform.RawResult{ViewsText: "5", ListenersText: "5"}, "2026-08-29")
	failed, err := r.RecomputeFailures(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failed) != 1 || failed[0] != "melon" {
		t.Errorf("expected melon carried over, got %v", failed)
	}
	f, _ := db.GetFailure(songID)
	if f == nil || len(f.FailedPlatforms) != 1 || f.FailedPlatforms[0] != "melon" {
		t.Errorf("unexpected ledger: %+v", f)
	}

	// A melon sample for the date supersedes the carried entry.
	r.Record(songID, platform.Melon, &platform.RawResult{ViewsText: "7", ListenersText: "7"}, "2026-08-29")
	failed, err = r.RecomputeFailures(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed != nil {
		t.Errorf("expected cleared ledger, got %v", failed)
	}
	if f, _ := db.GetFailure(songID); f != nil {
		t.Errorf("expected ledger cleared, got %+v", f)
	}
}

func TestRecomputeFailuresPartialRecovery(t *testing.T) {
	r, db, songID := setup(t)

	r.Record(songID, platform.Genie, nil, "2026-08-29")
	r.Record(songID, platform.Melon, nil, "2026-08-29")
	r.RecomputeFailures(songID, "2026-08-29")

	// Only genie recovers; the ledger is replaced wholesale, not merged.
	r.Record(songID, platform.Genie, &platform.RawResult{ViewsText: "9", ListenersText: "9"}, "2026-08-29")
	failed, err := r.RecomputeFailures(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failed) != 1 || failed[0] != "melon" {
		t.Errorf("expected melon only, got %v", failed)
	}
	f, _ := db.GetFailure(songID)
	if len(f.FailedPlatforms) != 1 || f.FailedPlatforms[0] != "melon" {
		t.Errorf("unexpected ledger: %+v", f)
	}
}
