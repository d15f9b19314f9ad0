// Package notify posts run summaries to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/minhokang/streamwatch/internal/crawl"
	"github.com/minhokang/streamwatch/internal/platform"
)

// SlackReporter posts a short run summary to a webhook URL. A zero-value
// reporter (empty URL) silently discards summaries, so callers can wire it
// unconditionally.
type SlackReporter struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a reporter for the given webhook URL.
func NewSlack(webhookURL string) *SlackReporter {
	return &SlackReporter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSlackFromEnv reads the webhook URL from the named environment
// variable. An unset variable yields a discarding reporter.
func NewSlackFromEnv(envName string) *SlackReporter {
	if envName == "" {
		envName = "SLACK_WEBHOOK_URL"
	}
	return NewSlack(os.Getenv(envName))
}

// ReportRun implements crawl.Reporter.
func (s *SlackReporter) ReportRun(ctx context.Context, summary *crawl.Summary) error {
	if s.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": formatSummary(summary)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook: %s", resp.Status)
	}
	return nil
}

func formatSummary(s *crawl.Summary) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "*Collection run %s*: %s (%d songs, %s)\n",
		s.RunDate, s.State, s.SongCount, s.Duration.Round(time.Second))

	var platforms []platform.Platform
	for p := range s.Platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	for _, p := range platforms {
		st := s.Platforms[p]
		fmt.Fprintf(&b, "• %s: %d/%d ok\n", p.DisplayName(), st.Succeeded, st.Attempted)
	}

	if n := len(s.Failures); n > 0 {
		fmt.Fprintf(&b, "%d song(s) with failures", n)
	}
	return b.String()
}
