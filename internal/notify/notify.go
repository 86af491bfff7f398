package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Event carries the fields published when an interesting message is indexed.
type Event struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Account string `json:"account"`
}

// Notifier delivers an event to one sink. Delivery is best-effort; callers log
// and swallow errors.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}

	return nil
}

// SlackNotifier posts a formatted message to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Slack chat notifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SlackNotifier) Name() string {
	return "slack"
}

func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	payload := struct {
		Text string `json:"text"`
	}{
		Text: fmt.Sprintf("New interested lead: *%s* from %s (account %s)", event.Subject, event.From, event.Account),
	}
	return postJSON(ctx, n.client, n.webhookURL, payload)
}

// WebhookNotifier posts the raw event to a generic webhook sink.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a generic webhook sink.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Name() string {
	return "webhook"
}

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	return postJSON(ctx, n.client, n.url, event)
}

var (
	_ Notifier = (*SlackNotifier)(nil)
	_ Notifier = (*WebhookNotifier)(nil)
)
