package database

import (
	"sort"
	"strings"
)

// Song is a catalog entry: one tracked song, independent of any platform.
// Korean title/artist are required; the Latin-script variants and the
// per-platform identifiers are optional.
type Song struct {
	ID          string
	ArtistKo    string
	ArtistEn    string
	TitleKo     string
	TitleEn     string
	YouTubeURL  *string
	MelonSongID *string
	IsActive    bool
	CreatedAt   *string
	UpdatedAt   *string
}

// Label returns the human-readable "artist - title" form used in run
// summaries and failure listings.
func (s Song) Label() string {
	return s.ArtistKo + " - " + s.TitleKo
}

// MetricSample is one observation: at most one row exists per
// (song, platform, sample date). Views and listeners are either real
// non-negative counts or one of the sentinels (-1 unsupported, -999
// collection failed).
type MetricSample struct {
	ID          int64
	SongID      string
	Platform    string
	Views       int64
	Listeners   int64
	SampleDate  string
	CollectedAt *string
}

// CrawlFailure is one row per song holding the platform set that failed on
// the most recent check. A song with no row is fully healthy.
type CrawlFailure struct {
	SongID          string
	FailedPlatforms []string
	FailedAt        *string
}

// joinPlatforms stores a platform set as a sorted comma-separated string.
func joinPlatforms(platforms []string) string {
	seen := make(map[string]struct{}, len(platforms))
	var uniq []string
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

func splitPlatforms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// RunReport is a persisted per-run summary, stored as markdown and
// rendered by the web UI.
type RunReport struct {
	ID              int64
	RunDate         string
	State           string
	SummaryMarkdown string
	CreatedAt       *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalSongs   int
	ActiveSongs  int
	SamplesToday int
	FailingSongs int
	RunReports   int
}
