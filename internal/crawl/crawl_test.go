package crawl

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/platform"
	"github.com/minhokang/streamwatch/internal/record"
)

type fakeStrategy struct {
	p        platform.Platform
	raw      *platform.RawResult
	err      error
	panicMsg string
	calls    atomic.Int64
}

func (f *fakeStrategy) Platform() platform.Platform { return f.p }

func (f *fakeStrategy) Collect(ctx context.Context, song database.Song) (*platform.RawResult, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type captureReporter struct {
	summary *Summary
}

func (c *captureReporter) ReportRun(ctx context.Context, s *Summary) error {
	c.summary = s
	return nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunNoTargets(t *testing.T) {
	db := openTestDB(t)
	reporter := &captureReporter{}
	o := New(db, record.New(db, nil), nil, 2, reporter)

	s := o.Run(context.Background(), "2026-08-29")
	if s.State != StateNoTargets {
		t.Errorf("expected no_targets, got %s", s.State)
	}
	if reporter.summary == nil {
		t.Error("reporter should receive the summary even for empty runs")
	}
	if s.ReportID == 0 {
		t.Error("run report should be persisted")
	}
}

func TestRunRecordsAllPlatforms(t *testing.T) {
	db := openTestDB(t)
	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "100", ListenersText: "10"}},
		&fakeStrategy{p: platform.YouTube, raw: &platform.RawResult{ViewsText: "200"}},
		&fakeStrategy{p: platform.Melon, err: &platform.CollectError{Kind: platform.FailNoMatch, Err: errors.New("no candidate matched")}},
	}
	o := New(db, record.New(db, nil), strategies, 2, nil)

	s := o.Run(context.Background(), "2026-08-29")
	if s.State != StateCompleted {
		t.Fatalf("expected completed, got %s", s.State)
	}
	if s.SongCount != 1 {
		t.Errorf("expected 1 song, got %d", s.SongCount)
	}
	if st := s.Platforms[platform.Genie]; st.Succeeded != 1 || st.Failed != 0 {
		t.Errorf("unexpected genie stats: %+v", st)
	}
	if st := s.Platforms[platform.Melon]; st.Failed != 1 {
		t.Errorf("unexpected melon stats: %+v", st)
	}
	if s.TotalFailed() != 1 {
		t.Errorf("expected 1 total failure, got %d", s.TotalFailed())
	}

	// Every platform writes a sample, failures as sentinels.
	samples, err := db.SamplesForSongDay(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for _, sample := range samples {
		if sample.Platform == "melon" && sample.Views != record.Failed {
			t.Errorf("melon sample should carry failure sentinel, got %d", sample.Views)
		}
		if sample.Platform == "youtube" && sample.Listeners != record.Unsupported {
			t.Errorf("youtube listeners should carry -1, got %d", sample.Listeners)
		}
	}

	// The ledger reflects the failed platform.
	f, err := db.GetFailure(songID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f == nil || len(f.FailedPlatforms) != 1 || f.FailedPlatforms[0] != "melon" {
		t.Errorf("unexpected ledger: %+v", f)
	}

	if len(s.Failures) != 1 {
		t.Errorf("expected 1 failing song in summary, got %v", s.Failures)
	}
}

func TestRunReportsUnparseableCounts(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "coming soon", ListenersText: "10"}},
	}
	o := New(db, record.New(db, nil), strategies, 1, nil)

	s := o.Run(context.Background(), "2026-08-29")
	if st := s.Platforms[platform.Genie]; st.Failed != 1 {
		t.Errorf("unexpected genie stats: %+v", st)
	}

	// A matched candidate whose counts do not parse still names the
	// failing pair and field in the summary.
	reasons := s.Failures["가수A - 안녕"]
	if len(reasons) != 1 {
		t.Fatalf("expected 1 failure reason, got %v", s.Failures)
	}
	if !strings.Contains(reasons[0], "Genie") || !strings.Contains(reasons[0], "views") {
		t.Errorf("reason should name the platform and field, got %q", reasons[0])
	}
}

func TestRunContainsStrategyPanic(t *testing.T) {
	db := openTestDB(t)
	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "100", ListenersText: "10"}},
		&fakeStrategy{p: platform.Melon, panicMsg: "nil node"},
	}
	o := New(db, record.New(db, nil), strategies, 2, nil)

	s := o.Run(context.Background(), "2026-08-29")
	if s.State != StateCompleted {
		t.Fatalf("panicking strategy must not abort the run, got %s", s.State)
	}
	if st := s.Platforms[platform.Genie]; st.Succeeded != 1 {
		t.Errorf("unexpected genie stats: %+v", st)
	}
	if st := s.Platforms[platform.Melon]; st.Failed != 1 {
		t.Errorf("unexpected melon stats: %+v", st)
	}

	// The panicking platform still gets its sentinel sample.
	samples, err := db.SamplesForSongDay(songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}

	reasons := s.Failures["가수A - 안녕"]
	if len(reasons) != 1 || !strings.Contains(reasons[0], "panic") {
		t.Errorf("expected a panic reason, got %v", s.Failures)
	}
}

func TestRunReportMarkdown(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "100", ListenersText: "10"}},
	}
	o := New(db, record.New(db, nil), strategies, 1, nil)

	s := o.Run(context.Background(), "2026-08-29")
	r, err := db.GetRunReport(s.ReportID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected persisted report")
	}
	if !strings.Contains(r.SummaryMarkdown, "Collection run 2026-08-29") {
		t.Errorf("unexpected report body:\n%s", r.SummaryMarkdown)
	}
	if !strings.Contains(r.SummaryMarkdown, "| Genie | 1 | 1 | 0 |") {
		t.Errorf("platform table missing:\n%s", r.SummaryMarkdown)
	}
}

func TestRunSkipsInactiveSongs(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertSong(database.Song{ArtistKo: "가수B", TitleKo: "곡B", IsActive: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	strat := &fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "1", ListenersText: "1"}}
	o := New(db, record.New(db, nil), []platform.Strategy{strat}, 1, nil)

	s := o.Run(context.Background(), "2026-08-29")
	if s.State != StateNoTargets {
		t.Errorf("expected no_targets, got %s", s.State)
	}
	if strat.calls.Load() != 0 {
		t.Errorf("inactive songs must not be collected, got %d calls", strat.calls.Load())
	}
}

func TestRunCancelled(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := db.InsertSong(database.Song{ArtistKo: "가수", TitleKo: "곡", IsActive: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strat := &fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "1", ListenersText: "1"}}
	o := New(db, record.New(db, nil), []platform.Strategy{strat}, 1, nil)

	s := o.Run(ctx, "2026-08-29")
	if s.State != StateError {
		t.Errorf("cancelled run should end in error state, got %s", s.State)
	}
}

func TestRunOne(t *testing.T) {
	db := openTestDB(t)
	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "100", ListenersText: "10"}},
	}
	o := New(db, record.New(db, nil), strategies, 1, nil)

	s, err := o.RunOne(context.Background(), songID, "2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Platforms[platform.Genie].Succeeded != 1 {
		t.Errorf("unexpected stats: %+v", s.Platforms[platform.Genie])
	}

	if _, err := o.RunOne(context.Background(), "no-such-song", "2026-08-29"); err == nil {
		t.Error("expected error for unknown song")
	}
}

func TestRunOnePartialPlatformsKeepFailures(t *testing.T) {
	db := openTestDB(t)
	songID, err := db.InsertSong(database.Song{ArtistKo: "가수A", TitleKo: "안녕", IsActive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.UpsertFailure(songID, []string{"melon"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	strategies := []platform.Strategy{
		&fakeStrategy{p: platform.Genie, raw: &platform.RawResult{ViewsText: "100", ListenersText: "10"}},
	}
	o := New(db, record.New(db, nil), strategies, 1, nil)

	if _, err := o.RunOne(context.Background(), songID, "2026-08-29"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A genie-only run cannot absolve melon.
	f, err := db.GetFailure(songID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f == nil || len(f.FailedPlatforms) != 1 || f.FailedPlatforms[0] != "melon" {
		t.Errorf("melon failure must survive a genie-only run, got %+v", f)
	}
}
