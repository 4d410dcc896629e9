package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/osawyer/domscope/inspect/capture"
)

// Webhook POSTs JSON to the external test-generation endpoint with retry
// and exponential backoff. Contexts are posted bare (the endpoint expects
// the chatId/sourceUrl/timestamp fields at the top level); events use the
// type envelope.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// WithWebhookClient sets a custom HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a Webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Webhook) SendContext(ctx context.Context, c capture.Context) error {
	body, err := capture.MarshalContext(&c)
	if err != nil {
		return fmt.Errorf("webhook: marshal context: %w", err)
	}

	reply, err := w.post(ctx, body)
	if err != nil {
		return err
	}

	var resp capture.SinkResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		// The endpoint reply shape is opaque; a parse failure is not a
		// delivery failure.
		w.logger.Debug("webhook: unparseable reply", "error", err)
		return nil
	}
	total, interactive := resp.InteractiveNodes()
	w.logger.Info("webhook: context accepted",
		"success", resp.Success, "nodes", total, "interactive", interactive)
	return nil
}

func (w *Webhook) SendEvent(ctx context.Context, ev capture.Event) error {
	body, err := json.Marshal(envelope{Type: "event", Data: ev})
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}
	_, err = w.post(ctx, body)
	return err
}

func (w *Webhook) Close() error { return nil }

func (w *Webhook) post(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Warn("webhook: request failed", "attempt", attempt+1, "error", err)
			continue
		}

		reply, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, nil
			}
			return reply, nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Warn("webhook: bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return nil, fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}
