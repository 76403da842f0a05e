package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// Config selects the channels a service delivers through.
type Config struct {
	Enabled []string
	Email   EmailConfig
	Webhook WebhookConfig
	SES     SESConfig
}

// Build returns a registry holding the log channel and every enabled one.
// An enabled channel that is not configured is an error.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry()
	reg.Register(NewLogChannel(logger))

	for _, name := range cfg.Enabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", "log":
		case "email":
			if cfg.Email.Host == "" {
				return nil, errors.New("email channel: smtp host is not set")
			}
			reg.Register(NewEmailChannel(cfg.Email))
		case "webhook":
			if cfg.Webhook.URL == "" {
				return nil, errors.New("webhook channel: url is not set")
			}
			reg.Register(NewWebhookChannel(cfg.Webhook))
		case "ses":
			c, err := NewSESChannel(ctx, cfg.SES)
			if err != nil {
				return nil, err
			}
			reg.Register(c)
		default:
			return nil, fmt.Errorf("build channels: %w", &domain.UnknownChannelError{Channel: name})
		}
	}
	return reg, nil
}
