// Package crawl orchestrates a collection run: every active song is
// visited on every platform, raw results are recorded as daily samples,
// and the failure ledger is rebuilt from what was stored.
package crawl

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/platform"
	"github.com/minhokang/streamwatch/internal/record"
)

// Run states persisted with the run report.
const (
	StateCompleted = "completed"
	StateNoTargets = "no_targets"
	StateError     = "error"
)

// PlatformStats counts per-platform outcomes across one run.
type PlatformStats struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Summary describes one run for reporting.
type Summary struct {
	RunDate   string
	State     string
	SongCount int
	Started   time.Time
	Duration  time.Duration

	// Platforms maps the platform tag to its counters.
	Platforms map[platform.Platform]*PlatformStats

	// Failures maps a song label to the reasons it failed, one per
	// failed platform.
	Failures map[string][]string

	// ReportID is the persisted run report's row ID, zero when report
	// persistence itself failed.
	ReportID int64
}

// Reporter receives the summary after a run finishes. Reporting failures
// are logged, never fatal.
type Reporter interface {
	ReportRun(ctx context.Context, s *Summary) error
}

// NopReporter discards summaries.
type NopReporter struct{}

func (NopReporter) ReportRun(ctx context.Context, s *Summary) error { return nil }

// Orchestrator runs collections. Safe for a single run at a time.
type Orchestrator struct {
	db         *database.DB
	recorder   *record.Recorder
	strategies []platform.Strategy
	workers    int
	reporter   Reporter
}

// New creates an Orchestrator. workers caps how many songs are processed
// concurrently; non-positive means 4. A nil reporter gets NopReporter.
func New(db *database.DB, recorder *record.Recorder, strategies []platform.Strategy, workers int, reporter Reporter) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Orchestrator{
		db:         db,
		recorder:   recorder,
		strategies: strategies,
		workers:    workers,
		reporter:   reporter,
	}
}

// songOutcome is the per-song result handed back for aggregation.
type songOutcome struct {
	label     string
	succeeded []platform.Platform
	failed    []platform.Platform
	reasons   []string
}

// Run collects metrics for every active song on the given date and
// persists a markdown run report. An empty date means today. Context
// cancellation stops dispatching new songs; songs already in flight
// finish.
func (o *Orchestrator) Run(ctx context.Context, date string) *Summary {
	if date == "" {
		date = database.Today()
	}
	s := newSummary(date, o.strategies)

	songs, err := o.db.ListActiveSongs()
	if err != nil {
		log.Printf("run aborted: listing songs: %v", err)
		s.State = StateError
		s.Duration = time.Since(s.Started)
		o.finish(ctx, s)
		return s
	}
	if len(songs) == 0 {
		s.State = StateNoTargets
		s.Duration = time.Since(s.Started)
		o.finish(ctx, s)
		return s
	}
	s.SongCount = len(songs)
	log.Printf("collecting %d songs on %d platforms for %s", len(songs), len(o.strategies), date)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, song := range songs {
		song := song
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			out := o.collectSong(gctx, song, date)
			mu.Lock()
			s.absorb(out)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	s.State = StateCompleted
	if ctx.Err() != nil {
		s.State = StateError
	}
	s.Duration = time.Since(s.Started)
	o.finish(ctx, s)
	return s
}

// RunOne collects metrics for a single song, for manual retries.
func (o *Orchestrator) RunOne(ctx context.Context, songID, date string) (*Summary, error) {
	if date == "" {
		date = database.Today()
	}
	song, err := o.db.GetSong(songID)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("song %s not found", songID)
	}

	s := newSummary(date, o.strategies)
	s.SongCount = 1
	s.absorb(o.collectSong(ctx, *song, date))
	s.State = StateCompleted
	s.Duration = time.Since(s.Started)
	return s, nil
}

// collectSong queries every platform concurrently, then records the
// results and rebuilds the ledger serially.
func (o *Orchestrator) collectSong(ctx context.Context, song database.Song, date string) songOutcome {
	type collected struct {
		p   platform.Platform
		raw *platform.RawResult
		err error
	}
	results := make([]collected, len(o.strategies))

	var wg sync.WaitGroup
	for i, strat := range o.strategies {
		wg.Add(1)
		go func(i int, strat platform.Strategy) {
			defer wg.Done()
			// Contain scraper panics to the platform that raised them.
			defer func() {
				if r := recover(); r != nil {
					results[i] = collected{p: strat.Platform(), err: fmt.Errorf("panic: %v", r)}
				}
			}()
			raw, err := strat.Collect(ctx, song)
			results[i] = collected{p: strat.Platform(), raw: raw, err: err}
		}(i, strat)
	}
	wg.Wait()

	out := songOutcome{label: song.Label()}
	for _, res := range results {
		if res.err != nil {
			log.Printf("%s: %s collection failed: %v", out.label, res.p, res.err)
			out.reasons = append(out.reasons, fmt.Sprintf("%s: %v", res.p.DisplayName(), res.err))
		}
		outcome, err := o.recorder.Record(song.ID, res.p, res.raw, date)
		if err != nil {
			log.Printf("%s: persisting %s sample: %v", out.label, res.p, err)
			out.failed = append(out.failed, res.p)
			out.reasons = append(out.reasons, fmt.Sprintf("%s: storing sample: %v", res.p.DisplayName(), err))
			continue
		}
		if outcome.Failed() {
			out.failed = append(out.failed, res.p)
			if res.err == nil {
				out.reasons = append(out.reasons, fmt.Sprintf("%s: unparseable %s", res.p.DisplayName(), failedFields(outcome)))
			}
		} else {
			out.succeeded = append(out.succeeded, res.p)
		}
	}

	if _, err := o.recorder.RecomputeFailures(song.ID, date); err != nil {
		log.Printf("%s: rebuilding failure ledger: %v", out.label, err)
	}
	return out
}

// failedFields names the outcome fields carrying the failure sentinel.
func failedFields(o record.Outcome) string {
	var fields []string
	if o.Views == record.Failed {
		fields = append(fields, "views")
	}
	if o.Listeners == record.Failed {
		fields = append(fields, "listeners")
	}
	return strings.Join(fields, " and ")
}

func (o *Orchestrator) finish(ctx context.Context, s *Summary) {
	id, err := o.db.InsertRunReport(s.RunDate, s.State, s.Markdown())
	if err != nil {
		log.Printf("persisting run report: %v", err)
	} else {
		s.ReportID = id
	}
	if err := o.reporter.ReportRun(ctx, s); err != nil {
		log.Printf("reporting run: %v", err)
	}
}

func newSummary(date string, strategies []platform.Strategy) *Summary {
	s := &Summary{
		RunDate:   date,
		Started:   time.Now(),
		Platforms: make(map[platform.Platform]*PlatformStats),
		Failures:  make(map[string][]string),
	}
	for _, strat := range strategies {
		s.Platforms[strat.Platform()] = &PlatformStats{}
	}
	return s
}

func (s *Summary) absorb(out songOutcome) {
	for _, p := range out.succeeded {
		st := s.Platforms[p]
		st.Attempted++
		st.Succeeded++
	}
	for _, p := range out.failed {
		st := s.Platforms[p]
		st.Attempted++
		st.Failed++
	}
	if len(out.reasons) > 0 {
		s.Failures[out.label] = out.reasons
	}
}

// TotalFailed counts failed attempts across platforms.
func (s *Summary) TotalFailed() int {
	n := 0
	for _, st := range s.Platforms {
		n += st.Failed
	}
	return n
}

// Markdown renders the summary as the persisted run report.
func (s *Summary) Markdown() string {
	var b []byte
	add := func(format string, args ...any) {
		b = append(b, fmt.Sprintf(format, args...)...)
	}

	add("# Collection run %s\n\n", s.RunDate)
	add("- State: %s\n", s.State)
	add("- Songs: %d\n", s.SongCount)
	add("- Duration: %s\n\n", s.Duration.Round(time.Millisecond))

	if len(s.Platforms) > 0 {
		add("## Platforms\n\n")
		add("| Platform | Attempted | Succeeded | Failed |\n")
		add("|---|---|---|---|\n")
		var platforms []platform.Platform
		for p := range s.Platforms {
			platforms = append(platforms, p)
		}
		sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
		for _, p := range platforms {
			st := s.Platforms[p]
			add("| %s | %d | %d | %d |\n", p.DisplayName(), st.Attempted, st.Succeeded, st.Failed)
		}
		add("\n")
	}

	if len(s.Failures) > 0 {
		add("## Failures\n\n")
		var labels []string
		for label := range s.Failures {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			add("- **%s**\n", label)
			for _, reason := range s.Failures[label] {
				add("  - %s\n", reason)
			}
		}
	}

	return string(b)
}
