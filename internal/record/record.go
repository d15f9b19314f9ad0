// Package record translates raw platform results into numeric metric
// samples and keeps the per-song failure ledger consistent with what was
// actually stored. Sentinel values distinguish the three non-metric cases:
// a platform that does not expose a field, a collection that failed, and a
// legitimate zero.
package record

import (
	"fmt"
	"sort"

	"github.com/minhokang/streamwatch/internal/countparse"
	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/platform"
)

const (
	// Unsupported marks a field the platform does not expose.
	Unsupported int64 = -1
	// Failed marks a field whose collection or parsing failed.
	Failed int64 = -999
)

// Outcome reports what one Record call persisted.
type Outcome struct {
	Views     int64
	Listeners int64
	// Replaced is true when an earlier sample for the same key was
	// overwritten.
	Replaced bool
}

// Failed reports whether either field carries the failure sentinel.
func (o Outcome) Failed() bool {
	return o.Views == Failed || o.Listeners == Failed
}

// Recorder persists samples for one run date.
type Recorder struct {
	db     *database.DB
	parser *countparse.Parser
}

// New creates a Recorder. A nil parser gets the default unit table.
func New(db *database.DB, parser *countparse.Parser) *Recorder {
	if parser == nil {
		parser = countparse.New(countparse.DefaultUnits())
	}
	return &Recorder{db: db, parser: parser}
}

// Record converts a raw result into numbers and upserts the sample for
// (song, platform, date). A nil raw result means the platform could not
// locate the song at all; both fields then carry the failure sentinel so a
// later successful run is distinguishable. Per-field parse failures also
// degrade to the sentinel rather than aborting the write.
func (r *Recorder) Record(songID string, p platform.Platform, raw *platform.RawResult, date string) (Outcome, error) {
	o := Outcome{Views: Failed, Listeners: Failed}
	if raw != nil {
		if v, ok := r.parser.Parse(raw.ViewsText); ok {
			o.Views = v
		}
		if !p.HasListeners() {
			o.Listeners = Unsupported
		} else if l, ok := r.parser.Parse(raw.ListenersText); ok {
			o.Listeners = l
		}
	}

	replaced, err := r.db.ReplaceSample(songID, string(p), date, o.Views, o.Listeners)
	if err != nil {
		return o, fmt.Errorf("recording %s sample: %w", p, err)
	}
	o.Replaced = replaced
	return o, nil
}

// RecomputeFailures rebuilds a song's failure record from the samples
// actually stored for the date. Platforms whose sample carries a failure
// sentinel in either field count as failed. A platform with no sample for
// the date was not rechecked, so its prior ledger entry is carried over
// rather than cleared; a partial run can therefore never absolve a
// platform it did not visit. An empty failed set deletes the record. The
// returned slice lists the failed platform tags, sorted.
func (r *Recorder) RecomputeFailures(songID, date string) ([]string, error) {
	samples, err := r.db.SamplesForSongDay(songID, date)
	if err != nil {
		return nil, fmt.Errorf("loading samples for ledger: %w", err)
	}

	sampled := make(map[string]bool, len(samples))
	failed := make(map[string]bool)
	for _, s := range samples {
		sampled[s.Platform] = true
		if s.Views == Failed || s.Listeners == Failed {
			failed[s.Platform] = true
		}
	}

	prior, err := r.db.GetFailure(songID)
	if err != nil {
		return nil, fmt.Errorf("loading failure record: %w", err)
	}
	if prior != nil {
		for _, p := range prior.FailedPlatforms {
			if !sampled[p] {
				failed[p] = true
			}
		}
	}

	if len(failed) == 0 {
		if err := r.db.DeleteFailure(songID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	list := make([]string, 0, len(failed))
	for p := range failed {
		list = append(list, p)
	}
	sort.Strings(list)
	if err := r.db.UpsertFailure(songID, list); err != nil {
		return nil, err
	}
	return list, nil
}
