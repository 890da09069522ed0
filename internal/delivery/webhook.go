package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sinkWebhook = "webhook"

// webhookPayload is the incoming-webhook body shape ({"content": "..."}).
type webhookPayload struct {
	Content string `json:"content"`
}

// WebhookSink posts messages to an incoming-webhook URL.
type WebhookSink struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewWebhookSink returns a WebhookSink. A zero timeout means 30 seconds.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebhookSink{url: url, timeout: timeout, client: &http.Client{}}
}

// Send posts text. Any non-2xx response is a failure.
func (s *WebhookSink) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Content: text})
	if err != nil {
		return &DeliveryError{Sink: sinkWebhook, Err: fmt.Errorf("marshal: %w", err)}
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Sink: sinkWebhook, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &DeliveryError{Sink: sinkWebhook, Err: fmt.Errorf("send: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{
			Sink:       sinkWebhook,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", bytes.TrimSpace(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
