package alerting

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(webhookURL string, timeout time.Duration) *SlackChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Deliver(ctx context.Context, message string) error {
	return s.post(ctx, "🚨 *Database Anomaly Detected* 🚨\n\n"+message)
}

// SendTest posts a fixed message confirming the webhook works.
func (s *SlackChannel) SendTest(ctx context.Context) error {
	return s.post(ctx, "✅ *DB Monitor Test Alert*: Slack integration verified successfully!")
}

func (s *SlackChannel) post(ctx context.Context, text string) error {
	if s.webhookURL == "" {
		return errors.New("slack webhook url is not configured")
	}
	return slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, &slack.WebhookMessage{Text: text})
}
