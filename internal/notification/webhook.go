package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POSTs alerts as JSON to a configured URL (Slack-compatible
// services, n8n flows, custom receivers).
type WebhookNotifier struct {
	url  string
	http *resty.Client
}

// NewWebhook creates a webhook notifier for the given URL.
func NewWebhook(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		http: resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(1).
			SetRetryWaitTime(time.Second),
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook send: status %s", resp.Status())
	}
	return nil
}
