package channels

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
)

// EmailConfig holds SMTP connection details.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel mails alerts over SMTP.
type EmailChannel struct {
	cfg      EmailConfig
	sendMail sendMailFunc
}

func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, sendMail: smtp.SendMail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, a alert.Alert) error {
	ctx, span := otel.Tracer("channels").Start(ctx, "channel.email")
	defer span.End()

	if len(c.cfg.To) == 0 {
		err := errors.New("email channel has no recipients")
		span.RecordError(err)
		span.SetStatus(codes.Error, "no recipients")
		return err
	}
	span.SetAttributes(attribute.Int("email.recipients", len(c.cfg.To)))

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	msg := buildMIME(c.cfg.From, c.cfg.To, subject(a), a.Body)

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	// smtp.SendMail has no context; run it aside so cancellation still returns.
	done := make(chan error, 1)
	go func() { done <- c.sendMail(addr, auth, c.cfg.From, c.cfg.To, msg) }()

	select {
	case err := <-done:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "smtp send failed")
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		err := fmt.Errorf("email send timed out: %w", ctx.Err())
		span.RecordError(err)
		span.SetStatus(codes.Error, "timeout")
		return err
	}
}

func subject(a alert.Alert) string { return "[controls] " + a.Title }

func buildMIME(from string, to []string, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, strings.Join(to, ", "), subject, body,
	))
}
