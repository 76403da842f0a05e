// Package monitor watches whether the backing store is reachable and
// reports transitions.
package monitor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

const (
	DefaultStartupDelay = 15 * time.Second
	DefaultInterval     = 5 * time.Second
	DefaultTimeout      = 4 * time.Second
)

// Pinger is satisfied by store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Pinger and fires callbacks on lost/restored edges only.
// The store is assumed reachable until the first failed check.
type Monitor struct {
	pinger       Pinger
	logger       *slog.Logger
	startupDelay time.Duration
	interval     time.Duration
	timeout      time.Duration
	onLost       []func()
	onRestored   []func()
	connected    atomic.Bool
}

type Option func(*Monitor)

func WithStartupDelay(d time.Duration) Option { return func(m *Monitor) { m.startupDelay = d } }
func WithInterval(d time.Duration) Option     { return func(m *Monitor) { m.interval = d } }
func WithTimeout(d time.Duration) Option      { return func(m *Monitor) { m.timeout = d } }
func WithLogger(l *slog.Logger) Option        { return func(m *Monitor) { m.logger = l } }

// OnLost registers fn to run when the store becomes unreachable.
func OnLost(fn func()) Option { return func(m *Monitor) { m.onLost = append(m.onLost, fn) } }

// OnRestored registers fn to run when the store is reachable again.
func OnRestored(fn func()) Option {
	return func(m *Monitor) { m.onRestored = append(m.onRestored, fn) }
}

func New(p Pinger, opts ...Option) *Monitor {
	m := &Monitor{
		pinger:       p,
		logger:       slog.Default(),
		startupDelay: DefaultStartupDelay,
		interval:     DefaultInterval,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.connected.Store(true)
	telemetry.StoreReachable.Set(1)
	return m
}

// Connected reports the state seen by the last check.
func (m *Monitor) Connected() bool { return m.connected.Load() }

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.startupDelay):
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check pings the store once and fires callbacks on a state change.
func (m *Monitor) Check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(checkCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	reachable := err == nil
	if !m.connected.CompareAndSwap(!reachable, reachable) {
		return
	}
	if reachable {
		telemetry.StoreReachable.Set(1)
		m.logger.Info("store connection restored")
		for _, fn := range m.onRestored {
			fn()
		}
		return
	}
	telemetry.StoreReachable.Set(0)
	m.logger.Warn("store connection lost", slog.String("error", err.Error()))
	for _, fn := range m.onLost {
		fn()
	}
}
