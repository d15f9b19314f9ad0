package platform

import (
	"context"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/match"
)

// ytmusicStrategy searches YouTube Music and matches the result rows.
// The platform exposes no listener count.
type ytmusicStrategy struct {
	engine  *match.Engine
	fetcher Fetcher
	opts    Options
}

func (y *ytmusicStrategy) Platform() Platform { return YouTubeMusic }

func (y *ytmusicStrategy) Collect(ctx context.Context, song database.Song) (*RawResult, error) {
	c, err := searchAndMatch(ctx, y.fetcher, y.engine, song, searchQueries(song), y.opts.candidateLimit())
	if err != nil {
		return nil, err
	}
	return &RawResult{ViewsText: c.ViewsText}, nil
}
