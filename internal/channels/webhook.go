package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
)

// WebhookConfig points the webhook channel at a receiver.
type WebhookConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// WebhookChannel POSTs the alert as JSON.
type WebhookChannel struct {
	cfg    WebhookConfig
	client *http.Client
}

func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &WebhookChannel{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Deliver(ctx context.Context, a alert.Alert) error {
	ctx, span := otel.Tracer("channels").Start(ctx, "channel.webhook")
	defer span.End()

	if c.cfg.URL == "" {
		err := errors.New("webhook channel has no url")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing url")
		return err
	}
	span.SetAttributes(attribute.String("webhook.url", c.cfg.URL))

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", a.ID)
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http call failed")
		return fmt.Errorf("webhook call to %s: %w", c.cfg.URL, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("webhook %s returned status %d", c.cfg.URL, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status code")
		return err
	}
	return nil
}
