package scrape

import (
	"context"
	"fmt"

	"github.com/minhokang/streamwatch/internal/platform"
)

// YouTubeMusic fetches candidates for the youtube_music platform. The
// music frontend renders entirely client-side, so search goes through the
// regular results page filtered to official song uploads, whose view
// counts track the music catalog.
type YouTubeMusic struct {
	yt *YouTube
}

// NewYouTubeMusic creates a youtube_music fetcher on top of a YouTube one.
func NewYouTubeMusic(yt *YouTube) *YouTubeMusic {
	return &YouTubeMusic{yt: yt}
}

func (y *YouTubeMusic) Search(ctx context.Context, query string) ([]platform.Candidate, error) {
	return y.yt.Search(ctx, query)
}

// Lookup is unsupported: youtube_music songs carry no stored identifier.
func (y *YouTubeMusic) Lookup(ctx context.Context, id string) (*platform.Candidate, error) {
	return nil, fmt.Errorf("youtube_music has no direct lookup")
}
