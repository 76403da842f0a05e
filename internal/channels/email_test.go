package channels

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

// ── tests ────────────────────────────────────────────────────────────────────

func testAlert() alert.Alert {
	return alert.Alert{ID: "a1", Title: "Due today", Body: "Today the deadline expires for task: Report"}
}

func TestEmailChannel_NoRecipients(t *testing.T) {
	c := NewEmailChannel(EmailConfig{Host: "localhost", Port: 1025})
	err := c.Deliver(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipients")
}

func TestEmailChannel_SendsMIME(t *testing.T) {
	c := NewEmailChannel(EmailConfig{Host: "mail", Port: 25, From: "controls@corp", To: []string{"a@corp", "b@corp"}})
	var (
		addr string
		to   []string
		msg  string
	)
	c.sendMail = func(a string, _ smtp.Auth, _ string, rcpt []string, m []byte) error {
		addr, to, msg = a, rcpt, string(m)
		return nil
	}

	require.NoError(t, c.Deliver(context.Background(), testAlert()))
	assert.Equal(t, "mail:25", addr)
	assert.Equal(t, []string{"a@corp", "b@corp"}, to)
	assert.Contains(t, msg, "To: a@corp, b@corp\r\n")
	assert.Contains(t, msg, "Subject: [controls] Due today\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nToday the deadline expires for task: Report"))
}

func TestEmailChannel_SendError(t *testing.T) {
	c := NewEmailChannel(EmailConfig{Host: "mail", Port: 25, To: []string{"a@corp"}})
	c.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 mailbox unavailable") }

	err := c.Deliver(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
}

func TestEmailChannel_CancelledContext(t *testing.T) {
	c := NewEmailChannel(EmailConfig{Host: "mail", Port: 25, To: []string{"a@corp"}})
	block := make(chan struct{})
	defer close(block)
	c.sendMail = func(string, smtp.Auth, string, []string, []byte) error { <-block; return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, c.Deliver(ctx, testAlert()), "cancelled context should result in an error")
}

func TestSESChannel_Deliver(t *testing.T) {
	api := &fakeSES{}
	c := newSESChannel(api, SESConfig{From: "controls@corp", To: []string{"boss@corp"}})
	assert.Equal(t, "ses", c.Name())

	require.NoError(t, c.Deliver(context.Background(), testAlert()))
	require.NotNil(t, api.in)
	assert.Equal(t, "controls@corp", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"boss@corp"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "[controls] Due today", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Equal(t, testAlert().Body, aws.ToString(api.in.Content.Simple.Body.Text.Data))
}

func TestSESChannel_Errors(t *testing.T) {
	c := newSESChannel(&fakeSES{err: errors.New("throttled")}, SESConfig{From: "x@corp", To: []string{"y@corp"}})
	assert.ErrorContains(t, c.Deliver(context.Background(), testAlert()), "throttled")

	empty := newSESChannel(&fakeSES{}, SESConfig{From: "x@corp"})
	assert.Error(t, empty.Deliver(context.Background(), testAlert()))

	_, err := NewSESChannel(context.Background(), SESConfig{})
	assert.Error(t, err)
}
