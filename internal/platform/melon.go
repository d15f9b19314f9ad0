package platform

import (
	"context"
	"log"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/match"
)

// melonStrategy looks songs up by their melon song ID. When no ID is
// stored yet it runs search-based discovery across the script
// combinations, persists the ID it finds, and proceeds with the lookup.
type melonStrategy struct {
	engine  *match.Engine
	fetcher Fetcher
	catalog Catalog
	opts    Options
}

func (m *melonStrategy) Platform() Platform { return Melon }

func (m *melonStrategy) Collect(ctx context.Context, song database.Song) (*RawResult, error) {
	id := ""
	if song.MelonSongID != nil {
		id = *song.MelonSongID
	}
	if id == "" {
		discovered, err := m.discover(ctx, song)
		if err != nil {
			return nil, err
		}
		id = discovered
	}

	c, err := m.fetcher.Lookup(ctx, id)
	if err != nil {
		return nil, collectErr(FailSearch, "melon lookup %s: %w", id, err)
	}
	return &RawResult{ViewsText: c.ViewsText, ListenersText: c.ListenersText}, nil
}

// discover searches melon for the song under every script combination and
// returns the first matching candidate's song ID. Artist and title scripts
// are mixed because melon indexes releases inconsistently.
func (m *melonStrategy) discover(ctx context.Context, song database.Song) (string, error) {
	c, err := searchAndMatch(ctx, m.fetcher, m.engine, song, discoveryQueries(song), m.opts.discoveryLimit())
	if err != nil {
		if ce, ok := err.(*CollectError); ok && ce.Kind == FailNoMatch {
			return "", collectErr(FailMissingID, "no melon song ID stored and discovery found no match for %q", song.Label())
		}
		return "", err
	}
	if c.ID == "" {
		return "", collectErr(FailMissingID, "matched melon candidate for %q carries no song ID", song.Label())
	}

	if m.catalog != nil {
		if err := m.catalog.UpdatePlatformID(song.ID, string(Melon), c.ID); err != nil {
			log.Printf("warning: failed to store melon song ID for %s: %v", song.Label(), err)
		}
	}
	return c.ID, nil
}

// discoveryQueries covers all four artist/title script combinations, native
// script first.
func discoveryQueries(s database.Song) []string {
	seen := make(map[string]bool)
	var queries []string
	add := func(artist, title string) {
		if artist == "" || title == "" {
			return
		}
		q := artist + " " + title
		if !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}
	add(s.ArtistKo, s.TitleKo)
	add(s.ArtistEn, s.TitleKo)
	add(s.ArtistKo, s.TitleEn)
	add(s.ArtistEn, s.TitleEn)
	return queries
}
