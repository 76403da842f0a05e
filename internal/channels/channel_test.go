package channels_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/channels"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type stub struct {
	name string
	err  error
	got  []alert.Alert
}

func (s *stub) Name() string { return s.name }
func (s *stub) Deliver(_ context.Context, a alert.Alert) error {
	s.got = append(s.got, a)
	return s.err
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestRegistry_Get(t *testing.T) {
	reg := channels.NewRegistry()
	reg.Register(&stub{name: "email"})

	c, err := reg.Get("email")
	require.NoError(t, err)
	assert.Equal(t, "email", c.Name())

	_, err = reg.Get("sms")
	var unknown *domain.UnknownChannelError
	require.True(t, errors.As(err, &unknown), "got %T", err)
	assert.Equal(t, "sms", unknown.Channel)
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := channels.NewRegistry()
	reg.Register(&stub{name: "webhook"})
	reg.Register(&stub{name: "email"})
	reg.Register(&stub{name: "email"})
	assert.Equal(t, []string{"email", "webhook"}, reg.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := channels.NewRegistry()
	reg.Register(&stub{name: "email"})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); reg.Register(&stub{name: "webhook"}) }()
		go func() { defer wg.Done(); _, _ = reg.Get("email") }()
	}
	wg.Wait()
}

func TestDispatcher_UnknownChannelFailsAtStartup(t *testing.T) {
	reg := channels.NewRegistry()
	reg.Register(&stub{name: "email"})

	_, err := channels.NewDispatcher(reg, slog.Default(), "email", "pager")
	var unknown *domain.UnknownChannelError
	assert.ErrorAs(t, err, &unknown)

	_, err = channels.NewDispatcher(reg, slog.Default())
	assert.Error(t, err)
}

func TestDispatcher_FailsOnlyWhenEveryChannelFails(t *testing.T) {
	ok := &stub{name: "log"}
	bad := &stub{name: "webhook", err: errors.New("502")}
	reg := channels.NewRegistry()
	reg.Register(ok)
	reg.Register(bad)

	d, err := channels.NewDispatcher(reg, slog.Default(), "webhook", "log")
	require.NoError(t, err)
	a := alert.Alert{ID: "a1", NotificationID: 3}
	require.NoError(t, d.Dispatch(context.Background(), a))
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)

	onlyBad, err := channels.NewDispatcher(reg, slog.Default(), "webhook")
	require.NoError(t, err)
	err = onlyBad.Dispatch(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: 502")
}

func TestLogChannel(t *testing.T) {
	c := channels.NewLogChannel(slog.Default())
	assert.Equal(t, "log", c.Name())
	assert.NoError(t, c.Deliver(context.Background(), alert.Alert{Title: "Overdue"}))
}
