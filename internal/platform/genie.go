package platform

import (
	"context"

	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/match"
)

// genieStrategy searches genie's song chart and matches the result rows.
// Genie exposes both a play count and a listener count.
type genieStrategy struct {
	engine  *match.Engine
	fetcher Fetcher
	opts    Options
}

func (g *genieStrategy) Platform() Platform { return Genie }

func (g *genieStrategy) Collect(ctx context.Context, song database.Song) (*RawResult, error) {
	c, err := searchAndMatch(ctx, g.fetcher, g.engine, song, searchQueries(song), g.opts.candidateLimit())
	if err != nil {
		return nil, err
	}
	return &RawResult{ViewsText: c.ViewsText, ListenersText: c.ListenersText}, nil
}
