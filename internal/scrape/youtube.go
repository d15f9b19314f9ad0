package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/minhokang/streamwatch/internal/platform"
)

// YouTube reads view counts from watch pages and discovers videos through
// the results page. Both embed their data as JSON inside the initial HTML,
// so extraction is regex-based rather than DOM-based.
type YouTube struct {
	client  *Client
	baseURL string
}

// NewYouTube creates a youtube fetcher. An empty baseURL uses the live site.
func NewYouTube(client *Client, baseURL string) *YouTube {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &YouTube{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

var (
	watchViewCount = regexp.MustCompile(`"viewCount"\s*:\s*"(\d+)"`)
	watchTitle     = regexp.MustCompile(`"videoDetails"\s*:\s*\{[^{}]*?"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	videoRendererSplit = regexp.MustCompile(`"videoRenderer"\s*:`)
	rendererVideoID    = regexp.MustCompile(`"videoId"\s*:\s*"([^"]+)"`)
	rendererTitle      = regexp.MustCompile(`"title"\s*:\s*\{"runs"\s*:\s*\[\{"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	rendererOwner      = regexp.MustCompile(`"ownerText"\s*:\s*\{"runs"\s*:\s*\[\{"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	rendererViews      = regexp.MustCompile(`"viewCountText"\s*:\s*\{"simpleText"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// Lookup fetches a watch page by URL and extracts its total view count.
func (y *YouTube) Lookup(ctx context.Context, videoURL string) (*platform.Candidate, error) {
	body, err := y.client.Get(ctx, videoURL, nil)
	if err != nil {
		return nil, err
	}

	m := watchViewCount.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("no view count found at %s", videoURL)
	}
	c := &platform.Candidate{ID: videoURL, ViewsText: string(m[1])}
	if t := watchTitle.FindSubmatch(body); t != nil {
		c.Title = unescapeJSON(string(t[1]))
	}
	return c, nil
}

// Search runs a results-page query and extracts each video entry from the
// embedded renderer JSON. The candidate ID is a full watch URL.
func (y *YouTube) Search(ctx context.Context, query string) ([]platform.Candidate, error) {
	searchURL := y.baseURL + "/results?search_query=" + url.QueryEscape(query)
	body, err := y.client.Get(ctx, searchURL, nil)
	if err != nil {
		return nil, err
	}

	chunks := videoRendererSplit.Split(string(body), -1)
	if len(chunks) < 2 {
		return nil, nil
	}

	var candidates []platform.Candidate
	for _, chunk := range chunks[1:] {
		id := firstGroup(rendererVideoID, chunk)
		if id == "" {
			continue
		}
		candidates = append(candidates, platform.Candidate{
			ID:        y.baseURL + "/watch?v=" + id,
			Title:     unescapeJSON(firstGroup(rendererTitle, chunk)),
			Artist:    unescapeJSON(firstGroup(rendererOwner, chunk)),
			ViewsText: unescapeJSON(firstGroup(rendererViews, chunk)),
		})
	}
	return candidates, nil
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

var jsonEscapes = strings.NewReplacer(
	`\"`, `"`,
	`\\`, `\`,
	`\/`, `/`,
	`\n`, " ",
	`\t`, " ",
	"\\u0026", "&",
)

// unescapeJSON undoes the escapes that actually occur in the embedded
// renderer strings.
func unescapeJSON(s string) string {
	return jsonEscapes.Replace(s)
}
