package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

// WebhookNotifier posts significant tariff changes to a webhook
// endpoint, one request per batch. Delivery is best-effort: failures
// are logged and never reach the ingestion path.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *log.Logger) WebhookOption {
	return func(n *WebhookNotifier) { n.logger = logger }
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

type webhookPayload struct {
	Kind   string                      `json:"kind"`
	Events []tariffs.TariffChangeEvent `json:"events"`
}

// NotifyChanges implements application.ChangeNotifier.
func (n *WebhookNotifier) NotifyChanges(ctx context.Context, events []tariffs.TariffChangeEvent) {
	if n == nil || len(events) == 0 {
		return
	}
	body, err := json.Marshal(webhookPayload{Kind: "tariff_change", Events: events})
	if err != nil {
		n.logf("tariff_webhook_marshal_error err=%v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logf("tariff_webhook_request_error err=%v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logf("tariff_webhook_send_error err=%v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logf("tariff_webhook_send_error status=%s", resp.Status)
	}
}

func (n *WebhookNotifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}
