package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Webhook posts events to a Slack incoming webhook or a generic HTTP endpoint.
type Webhook struct {
	kind         string
	url          string
	onlyFailures bool
	client       *http.Client
}

// NewWebhook returns a webhook notifier. kind is "slack" or "http".
func NewWebhook(kind, url string, onlyFailures bool) *Webhook {
	return &Webhook{
		kind:         kind,
		url:          url,
		onlyFailures: onlyFailures,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends ev unless it is a success and the webhook only wants failures.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if ev.OK && w.onlyFailures {
		return nil
	}
	var body []byte
	switch w.kind {
	case "slack":
		body, _ = json.Marshal(map[string]string{"text": slackText(ev)})
	case "http":
		body, _ = json.Marshal(map[string]interface{}{"event": ev})
	default:
		return fmt.Errorf("unknown webhook type %q", w.kind)
	}
	return w.post(ctx, body)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackText(ev Event) string {
	if !ev.OK {
		fallback := "no previous artifact"
		if ev.HadPrevious {
			fallback = "previous artifact kept"
		}
		return fmt.Sprintf("*[FAILED]* trend update %s: %s (%s)", ev.RunID, ev.Error, fallback)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*[OK]* trend update %s published %d keywords", ev.RunID, len(ev.Ranked))
	for i, r := range ev.Ranked {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, r.Name, r.Momentum)
	}
	return b.String()
}
