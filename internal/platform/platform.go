// Package platform defines the streaming platforms metrics are collected
// from and the per-platform strategies that locate a song there. Search
// platforms (genie, youtube_music) run a query and fuzzy-match the result
// list; identifier platforms (melon, youtube) look up a stored ID and fall
// back to search-based discovery when none is stored yet.
package platform

import (
	"context"
	"fmt"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/match"
)

// Platform tags a metric source. The string values are persisted in
// sample rows and failure records, so they are stable.
type Platform string

const (
	Genie        Platform = "genie"
	Melon        Platform = "melon"
	YouTube      Platform = "youtube"
	YouTubeMusic Platform = "youtube_music"
)

// All returns every supported platform in collection order.
func All() []Platform {
	return []Platform{Genie, Melon, YouTube, YouTubeMusic}
}

// Parse validates a platform tag from user input or storage.
func Parse(s string) (Platform, error) {
	for _, p := range All() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// DisplayName returns the human-facing name for reports and CLI output.
func (p Platform) DisplayName() string {
	switch p {
	case Genie:
		return "Genie"
	case Melon:
		return "Melon"
	case YouTube:
		return "YouTube"
	case YouTubeMusic:
		return "YouTube Music"
	}
	return string(p)
}

// HasListeners reports whether the platform exposes a listener count in
// addition to views. Platforms without one get the sentinel -1 recorded.
func (p Platform) HasListeners() bool {
	return p == Genie || p == Melon
}

// Candidate is one entry from a platform's search results or a direct
// lookup. ID carries the platform-native identifier when the platform has
// one (melon song ID, youtube video URL).
type Candidate struct {
	ID            string
	Title         string
	Artist        string
	ViewsText     string
	ListenersText string
}

// RawResult is the untranslated metric text for a located song, handed to
// the recorder for numeric parsing.
type RawResult struct {
	ViewsText     string
	ListenersText string
}

// Fetcher retrieves candidates from one platform. Search runs a free-text
// query; Lookup resolves a platform-native identifier directly. Platforms
// without identifiers return an error from Lookup.
type Fetcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Lookup(ctx context.Context, id string) (*Candidate, error)
}

// Catalog persists platform identifiers discovered during collection.
type Catalog interface {
	UpdatePlatformID(songID, platform, value string) error
}

// Strategy locates one song on one platform and returns its raw metrics.
// A nil result with a nil error never occurs; failures carry a
// *CollectError describing what went wrong.
type Strategy interface {
	Platform() Platform
	Collect(ctx context.Context, song database.Song) (*RawResult, error)
}

// FailureKind classifies why a collection attempt produced no metrics.
type FailureKind string

const (
	// FailSearch covers transport and page-structure errors.
	FailSearch FailureKind = "search"
	// FailNoMatch means candidates were found but none matched the song.
	FailNoMatch FailureKind = "no_match"
	// FailMissingID means an identifier platform had no stored identifier
	// and discovery could not find one.
	FailMissingID FailureKind = "missing_id"
)

// CollectError wraps a collection failure with its classification.
type CollectError struct {
	Kind FailureKind
	Err  error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }

func collectErr(kind FailureKind, format string, args ...any) *CollectError {
	return &CollectError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Options tunes strategy behavior.
type Options struct {
	// CandidateLimit caps how many search results are considered on the
	// search platforms. Zero means the default of 20.
	CandidateLimit int
	// DiscoveryLimit caps how many results per query are considered when
	// discovering an identifier. Zero means the default of 5.
	DiscoveryLimit int
}

func (o Options) candidateLimit() int {
	if o.CandidateLimit <= 0 {
		return 20
	}
	return o.CandidateLimit
}

func (o Options) discoveryLimit() int {
	if o.DiscoveryLimit <= 0 {
		return 5
	}
	return o.DiscoveryLimit
}

// NewStrategies builds the strategy set from the available fetchers.
// Platforms without a fetcher are skipped, so a partial fetcher map yields
// a partial run rather than an error.
func NewStrategies(engine *match.Engine, catalog Catalog, fetchers map[Platform]Fetcher, opts Options) []Strategy {
	var strategies []Strategy
	if f, ok := fetchers[Genie]; ok {
		strategies = append(strategies, &genieStrategy{engine: engine, fetcher: f, opts: opts})
	}
	if f, ok := fetchers[Melon]; ok {
		strategies = append(strategies, &melonStrategy{engine: engine, fetcher: f, catalog: catalog, opts: opts})
	}
	if f, ok := fetchers[YouTube]; ok {
		strategies = append(strategies, &youtubeStrategy{engine: engine, fetcher: f, catalog: catalog, opts: opts})
	}
	if f, ok := fetchers[YouTubeMusic]; ok {
		strategies = append(strategies, &ytmusicStrategy{engine: engine, fetcher: f, opts: opts})
	}
	return strategies
}

func targetFor(s database.Song) match.Target {
	return match.Target{
		TitleKo:  s.TitleKo,
		TitleEn:  s.TitleEn,
		ArtistKo: s.ArtistKo,
		ArtistEn: s.ArtistEn,
	}
}

// searchQueries returns the queries to try for a song, native script first
// and the romanized form as a retry when both English fields exist.
func searchQueries(s database.Song) []string {
	queries := []string{s.ArtistKo + " " + s.TitleKo}
	if s.ArtistEn != "" && s.TitleEn != "" {
		queries = append(queries, s.ArtistEn+" "+s.TitleEn)
	}
	return queries
}

// searchAndMatch runs each query in turn and returns the first candidate
// the engine accepts, scanning at most limit results per query.
func searchAndMatch(ctx context.Context, f Fetcher, engine *match.Engine, s database.Song, queries []string, limit int) (*Candidate, error) {
	target := targetFor(s)
	searched := false
	var searchErr error
	for _, q := range queries {
		candidates, err := f.Search(ctx, q)
		if err != nil {
			if searchErr == nil {
				searchErr = fmt.Errorf("searching %q: %w", q, err)
			}
			continue
		}
		searched = true
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		for i := range candidates {
			c := &candidates[i]
			if engine.Match(c.Title, c.Artist, target).BothMatch {
				return c, nil
			}
		}
	}
	if !searched {
		return nil, &CollectError{Kind: FailSearch, Err: searchErr}
	}
	return nil, collectErr(FailNoMatch, "no candidate matched %q", s.Label())
}
