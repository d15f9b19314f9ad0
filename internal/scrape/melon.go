package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minhokang/streamwatch/internal/platform"
)

// Melon fetches candidates from melon. Search scrapes the song search
// page to discover song IDs; Lookup calls melon's mobile JSON API, which
// returns cumulative stream and listener counts per song.
type Melon struct {
	client  *Client
	baseURL string
	apiURL  string
}

// NewMelon creates a melon fetcher. An empty apiURL falls back to the
// MELON_API_URL environment variable; Lookup fails without one.
func NewMelon(client *Client, baseURL, apiURL string) *Melon {
	if baseURL == "" {
		baseURL = "https://www.melon.com"
	}
	if apiURL == "" {
		apiURL = os.Getenv("MELON_API_URL")
	}
	return &Melon{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiURL:  apiURL,
	}
}

var melonDetailHref = regexp.MustCompile(`goSongDetail\('?(\d+)'?\)`)

func (m *Melon) Search(ctx context.Context, query string) ([]platform.Candidate, error) {
	searchURL := m.baseURL + "/search/song/index.htm?section=song&q=" + url.QueryEscape(query)
	doc, err := m.client.Document(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var candidates []platform.Candidate
	doc.Find("div.wrap_song_list tbody tr").Each(func(_ int, row *goquery.Selection) {
		c := platform.Candidate{
			ID:     songIDFromRow(row),
			Title:  strings.TrimSpace(row.Find("div.ellipsis.rank01 a").First().Text()),
			Artist: strings.TrimSpace(row.Find("div.ellipsis.rank02 a").First().Text()),
		}
		if c.Title != "" {
			candidates = append(candidates, c)
		}
	})
	return candidates, nil
}

// songIDFromRow tries the row's selection checkbox first, then the detail
// button's onclick handler.
func songIDFromRow(row *goquery.Selection) string {
	if v := row.Find("input[type=checkbox]").AttrOr("value", ""); v != "" {
		return v
	}
	href := row.Find("a.btn_icon_detail").AttrOr("href", "")
	if m := melonDetailHref.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// melonSongResponse mirrors the fields consumed from the song info API.
type melonSongResponse struct {
	Response struct {
		SongInfo struct {
			SongName   string `json:"SONGNAME"`
			ArtistList []struct {
				ArtistName string `json:"ARTISTNAME"`
			} `json:"ARTISTLIST"`
		} `json:"SONGINFO"`
		StreamReportInfo struct {
			TotalListenCnt   string `json:"TOTALLISTENCNT"`
			TotalListenerCnt string `json:"TOTALLISTENERCNT"`
		} `json:"STREAMREPORTINFO"`
	} `json:"response"`
}

func (m *Melon) Lookup(ctx context.Context, id string) (*platform.Candidate, error) {
	if m.apiURL == "" {
		return nil, fmt.Errorf("melon song API URL not configured (set MELON_API_URL)")
	}

	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Referer", "https://m2.melon.com/")
	header.Set("Origin", "https://m2.melon.com")

	var resp melonSongResponse
	if err := m.client.GetJSON(ctx, m.apiURL+"?songId="+url.QueryEscape(id), header, &resp); err != nil {
		return nil, err
	}
	if resp.Response.SongInfo.SongName == "" {
		return nil, fmt.Errorf("melon song %s: empty API response", id)
	}

	c := &platform.Candidate{
		ID:            id,
		Title:         resp.Response.SongInfo.SongName,
		ViewsText:     resp.Response.StreamReportInfo.TotalListenCnt,
		ListenersText: resp.Response.StreamReportInfo.TotalListenerCnt,
	}
	if len(resp.Response.SongInfo.ArtistList) > 0 {
		c.Artist = resp.Response.SongInfo.ArtistList[0].ArtistName
	}
	return c, nil
}
