package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookChannel posts a Slack-style block message to an incoming webhook.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel returns nil when url is empty.
func NewWebhookChannel(url string, client *http.Client) *WebhookChannel {
	if url == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookChannel{url: url, client: client}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type webhookBlock struct {
	Type   string        `json:"type"`
	Text   *webhookText  `json:"text,omitempty"`
	Fields []webhookText `json:"fields,omitempty"`
}

type webhookPayload struct {
	Text   string         `json:"text"`
	Blocks []webhookBlock `json:"blocks"`
}

func (c *WebhookChannel) Send(ctx context.Context, a Alert) error {
	payload := webhookPayload{
		Text: fmt.Sprintf(":rotating_light: %s", a.Subject),
		Blocks: []webhookBlock{
			{Type: "header", Text: &webhookText{Type: "plain_text", Text: a.Subject}},
			{Type: "section", Fields: []webhookText{
				{Type: "mrkdwn", Text: "*Service:*\n" + a.Service},
				{Type: "mrkdwn", Text: "*Severity:*\n" + string(a.Severity)},
				{Type: "mrkdwn", Text: "*Time:*\n" + a.SentAt.Format(time.RFC3339)},
				{Type: "mrkdwn", Text: "*Alert ID:*\n" + a.ID},
			}},
			{Type: "section", Text: &webhookText{Type: "mrkdwn", Text: a.Message}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
