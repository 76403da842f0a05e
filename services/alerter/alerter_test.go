package alerter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/channels"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type fakeProducer struct {
	topics []string
	err    error
}

func (p *fakeProducer) Publish(_ context.Context, topic, _ string, _ []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}
func (p *fakeProducer) Close() error { return nil }

type fakeDeliveries struct {
	claimed  map[string]bool
	released []string
	err      error
}

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{claimed: make(map[string]bool)}
}

func (d *fakeDeliveries) Claim(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.claimed[id] {
		return false, nil
	}
	d.claimed[id] = true
	return true, nil
}

func (d *fakeDeliveries) Release(_ context.Context, id string) error {
	delete(d.claimed, id)
	d.released = append(d.released, id)
	return nil
}

type fakeChannel struct {
	name     string
	callsErr []error // per call; nil entry = success
	calls    int
}

func (c *fakeChannel) Name() string { return c.name }
func (c *fakeChannel) Deliver(_ context.Context, _ alert.Alert) error {
	var err error
	if c.calls < len(c.callsErr) {
		err = c.callsErr[c.calls]
	}
	c.calls++
	return err
}

// ── helpers ───────────────────────────────────────────────────────────────────

func newTestAlerter(prod *fakeProducer, deliveries *fakeDeliveries, names []string, chs ...*fakeChannel) *Alerter {
	reg := channels.NewRegistry()
	for _, c := range chs {
		reg.Register(c)
	}
	opts := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetries(2),
		WithBaseDelay(time.Millisecond),
	}
	if deliveries != nil {
		opts = append(opts, WithDeliveryStore(deliveries))
	}
	return New(nil, prod, reg, names, opts...)
}

func alertMsg(t testing.TB, id string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(alert.Alert{
		ID:             id,
		NotificationID: 11,
		TaskID:         3,
		Kind:           domain.KindOverdue,
		Title:          domain.KindOverdue.Title(),
		Body:           "report overdue",
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("11"), Value: raw}
}

func benchMessage(b *testing.B) kafka.Message { return alertMsg(b, "bench-alert") }

// ── tests ─────────────────────────────────────────────────────────────────────

func TestAlerter_DeliversToEveryChannel(t *testing.T) {
	prod := &fakeProducer{}
	mail := &fakeChannel{name: "email"}
	hook := &fakeChannel{name: "webhook"}
	a := newTestAlerter(prod, newFakeDeliveries(), []string{"email", "webhook"}, mail, hook)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, 1, mail.calls)
	assert.Equal(t, 1, hook.calls)
	assert.Empty(t, prod.topics, "no DLQ publish on success")
}

func TestAlerter_RetriesThenSucceeds(t *testing.T) {
	prod := &fakeProducer{}
	mail := &fakeChannel{name: "email", callsErr: []error{errors.New("421 try later"), nil}}
	a := newTestAlerter(prod, nil, []string{"email"}, mail)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, 2, mail.calls)
	assert.Empty(t, prod.topics)
}

func TestAlerter_PartialFailureStillDelivered(t *testing.T) {
	prod := &fakeProducer{}
	boom := errors.New("connection refused")
	mail := &fakeChannel{name: "email"}
	hook := &fakeChannel{name: "webhook", callsErr: []error{boom, boom, boom}}
	deliveries := newFakeDeliveries()
	a := newTestAlerter(prod, deliveries, []string{"email", "webhook"}, mail, hook)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, 3, hook.calls, "one attempt plus two retries")
	assert.Empty(t, prod.topics)
	assert.True(t, deliveries.claimed["a-1"], "claim is kept when any channel accepted")
}

func TestAlerter_AllChannelsFail_DLQAndRelease(t *testing.T) {
	prod := &fakeProducer{}
	boom := errors.New("smtp down")
	mail := &fakeChannel{name: "email", callsErr: []error{boom, boom, boom}}
	deliveries := newFakeDeliveries()
	a := newTestAlerter(prod, deliveries, []string{"email"}, mail)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, []string{kafka.TopicAlertsDLQ}, prod.topics)
	assert.Equal(t, []string{"a-1"}, deliveries.released)
	assert.False(t, deliveries.claimed["a-1"])
}

func TestAlerter_UnknownChannelIsNotRetried(t *testing.T) {
	prod := &fakeProducer{}
	a := newTestAlerter(prod, nil, []string{"pager"})

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, []string{kafka.TopicAlertsDLQ}, prod.topics)
}

func TestAlerter_DuplicateSkipped(t *testing.T) {
	prod := &fakeProducer{}
	mail := &fakeChannel{name: "email"}
	a := newTestAlerter(prod, newFakeDeliveries(), []string{"email"}, mail)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))
	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, 1, mail.calls, "redelivered alert must not be sent twice")
}

func TestAlerter_DeliveryStoreDownStillDelivers(t *testing.T) {
	prod := &fakeProducer{}
	mail := &fakeChannel{name: "email"}
	deliveries := newFakeDeliveries()
	deliveries.err = errors.New("redis: connection refused")
	a := newTestAlerter(prod, deliveries, []string{"email"}, mail)

	require.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))

	assert.Equal(t, 1, mail.calls)
}

func TestAlerter_MalformedMessageDeadLettered(t *testing.T) {
	prod := &fakeProducer{}
	mail := &fakeChannel{name: "email"}
	a := newTestAlerter(prod, nil, []string{"email"}, mail)

	err := a.processMessage(context.Background(), kafka.Message{Value: []byte(`{not json`)})
	require.NoError(t, err, "malformed messages are committed, not redelivered")

	assert.Zero(t, mail.calls)
	assert.Equal(t, []string{kafka.TopicAlertsDLQ}, prod.topics)
}

func TestAlerter_DLQPublishFailureIsSwallowed(t *testing.T) {
	prod := &fakeProducer{err: errors.New("broker down")}
	a := newTestAlerter(prod, nil, []string{"pager"})

	assert.NoError(t, a.processMessage(context.Background(), alertMsg(t, "a-1")))
}
