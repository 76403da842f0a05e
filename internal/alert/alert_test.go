package alert_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type fakeProducer struct {
	topic, key string
	value      []byte
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}
func (p *fakeProducer) Close() error { return nil }

// ── tests ────────────────────────────────────────────────────────────────────

func TestNew_UsesKindTitleAndMessage(t *testing.T) {
	n := &domain.Notification{ID: 5, TaskID: 2, Kind: domain.KindOverdue, Message: "late"}
	a := alert.New(n, time.Now())
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Overdue", a.Title)
	assert.Equal(t, "late", a.Body)
}

func TestKafkaDispatcher_RoundTrip(t *testing.T) {
	prod := &fakeProducer{}
	n := &domain.Notification{ID: 5, TaskID: 2, Kind: domain.KindDueToday, Message: "today"}
	in := alert.New(n, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, alert.NewKafkaDispatcher(prod).Dispatch(context.Background(), in))
	assert.Equal(t, kafka.TopicAlerts, prod.topic)
	assert.Equal(t, "5", prod.key)

	out, err := alert.Decode(prod.value)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, domain.KindDueToday, out.Kind)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := alert.Decode([]byte(`nope`))
	assert.Error(t, err)
	_, err = alert.Decode([]byte(`{"notification_id":1,"kind":"SOON"}`))
	assert.Error(t, err)
}

func TestMulti(t *testing.T) {
	fail := alert.DispatcherFunc(func(context.Context, alert.Alert) error { return errors.New("down") })
	calls := 0
	ok := alert.DispatcherFunc(func(context.Context, alert.Alert) error { calls++; return nil })

	assert.NoError(t, alert.Multi{fail, ok}.Dispatch(context.Background(), alert.Alert{}))
	assert.Equal(t, 1, calls)
	assert.Error(t, alert.Multi{fail, fail}.Dispatch(context.Background(), alert.Alert{}))
	assert.NoError(t, alert.Multi{alert.NewLogDispatcher(slog.Default())}.Dispatch(context.Background(), alert.Alert{}))
}
