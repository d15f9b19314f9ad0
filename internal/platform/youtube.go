package platform

import (
	"context"
	"log"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/match"
)

// youtubeStrategy reads the view count straight off a stored video URL.
// A curated URL is authoritative, so no matching is applied to the video's
// own title. Songs without a URL go through search-based discovery first.
type youtubeStrategy struct {
	engine  *match.Engine
	fetcher Fetcher
	catalog Catalog
	opts    Options
}

func (y *youtubeStrategy) Platform() Platform { return YouTube }

func (y *youtubeStrategy) Collect(ctx context.Context, song database.Song) (*RawResult, error) {
	url := ""
	if song.YouTubeURL != nil {
		url = *song.YouTubeURL
	}
	if url == "" {
		discovered, err := y.discover(ctx, song)
		if err != nil {
			return nil, err
		}
		url = discovered
	}

	c, err := y.fetcher.Lookup(ctx, url)
	if err != nil {
		return nil, collectErr(FailSearch, "youtube lookup %s: %w", url, err)
	}
	return &RawResult{ViewsText: c.ViewsText}, nil
}

func (y *youtubeStrategy) discover(ctx context.Context, song database.Song) (string, error) {
	c, err := searchAndMatch(ctx, y.fetcher, y.engine, song, searchQueries(song), y.opts.discoveryLimit())
	if err != nil {
		if ce, ok := err.(*CollectError); ok && ce.Kind == FailNoMatch {
			return "", collectErr(FailMissingID, "no youtube URL stored and discovery found no match for %q", song.Label())
		}
		return "", err
	}
	if c.ID == "" {
		return "", collectErr(FailMissingID, "matched youtube candidate for %q carries no URL", song.Label())
	}

	if y.catalog != nil {
		if err := y.catalog.UpdatePlatformID(song.ID, string(YouTube), c.ID); err != nil {
			log.Printf("warning: failed to store youtube URL for %s: %v", song.Label(), err)
		}
	}
	return c.ID, nil
}
