package monitor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/monitor"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type flakyPinger struct {
	mu   sync.Mutex
	errs []error
	hang bool
}

func (p *flakyPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	hang := p.hang
	var err error
	if len(p.errs) > 0 {
		err, p.errs = p.errs[0], p.errs[1:]
	}
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestCheck_FiresOnEdgesOnly(t *testing.T) {
	down := errors.New("connection refused")
	p := &flakyPinger{errs: []error{nil, down, down, nil, nil, down}}
	var lost, restored int
	m := monitor.New(p,
		monitor.OnLost(func() { lost++ }),
		monitor.OnRestored(func() { restored++ }),
	)
	ctx := context.Background()

	want := []struct {
		connected      bool
		lost, restored int
	}{
		{true, 0, 0},
		{false, 1, 0},
		{false, 1, 0},
		{true, 1, 1},
		{true, 1, 1},
		{false, 2, 1},
	}
	for i, w := range want {
		m.Check(ctx)
		assert.Equal(t, w.connected, m.Connected(), "check %d", i)
		assert.Equal(t, w.lost, lost, "check %d", i)
		assert.Equal(t, w.restored, restored, "check %d", i)
	}
}

func TestCheck_TimeoutCountsAsLost(t *testing.T) {
	p := &flakyPinger{hang: true}
	var lost atomic.Int32
	m := monitor.New(p, monitor.WithTimeout(20*time.Millisecond), monitor.OnLost(func() { lost.Add(1) }))

	m.Check(context.Background())
	assert.False(t, m.Connected())
	assert.EqualValues(t, 1, lost.Load())
}

func TestCheck_CancelledParentIsNotAnOutage(t *testing.T) {
	p := &flakyPinger{hang: true}
	m := monitor.New(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.Check(ctx)
	assert.True(t, m.Connected())
}

func TestRun_WaitsForStartupDelayThenPolls(t *testing.T) {
	p := &flakyPinger{errs: []error{errors.New("down")}}
	lost := make(chan struct{}, 1)
	m := monitor.New(p,
		monitor.WithStartupDelay(30*time.Millisecond),
		monitor.WithInterval(10*time.Millisecond),
		monitor.OnLost(func() { lost <- struct{}{} }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Run(ctx); close(done) }()

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("outage not reported")
	}
	require.Eventually(t, m.Connected, 2*time.Second, 10*time.Millisecond, "later checks succeed")

	cancel()
	<-done
}
