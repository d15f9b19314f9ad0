package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minhokang/streamwatch/internal/platform"
)

// Genie fetches candidates from genie's song search. The result rows carry
// both the play count and the listener count, so no detail page is needed.
type Genie struct {
	client  *Client
	baseURL string
}

// NewGenie creates a genie fetcher. An empty baseURL uses the live site.
func NewGenie(client *Client, baseURL string) *Genie {
	if baseURL == "" {
		baseURL = "https://www.genie.co.kr"
	}
	return &Genie{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Genie) Search(ctx context.Context, query string) ([]platform.Candidate, error) {
	searchURL := g.baseURL + "/search/searchSong?query=" + url.QueryEscape(query)
	doc, err := g.client.Document(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var candidates []platform.Candidate
	doc.Find("table.list-wrap tbody tr.list__item").Each(func(_ int, row *goquery.Selection) {
		c := platform.Candidate{
			ID:     row.AttrOr("songid", ""),
			Title:  strings.TrimSpace(row.Find("td.info a.link__text").First().Text()),
			Artist: strings.TrimSpace(row.Find("td.info a.artist, td.info a.link__artist").First().Text()),
		}
		counts := row.Find("td.count span.count__text")
		c.ViewsText = strings.TrimSpace(counts.Eq(0).Text())
		c.ListenersText = strings.TrimSpace(counts.Eq(1).Text())
		if c.Title != "" {
			candidates = append(candidates, c)
		}
	})
	return candidates, nil
}

// Lookup is unsupported: genie metrics are read off the search results.
func (g *Genie) Lookup(ctx context.Context, id string) (*platform.Candidate, error) {
	return nil, fmt.Errorf("genie has no direct lookup")
}
