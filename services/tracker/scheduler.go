// Package tracker runs the background notification passes on their own
// cron schedules.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ramiqadoumi/go-control-tracker/internal/notify"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

const (
	DefaultGenerateEvery = 30 * time.Minute
	DefaultAlertEvery    = time.Minute
	DefaultPassTimeout   = 2 * time.Minute
)

// Passes is the work the scheduler triggers. *notify.Manager satisfies it.
type Passes interface {
	GenerateNotifications(ctx context.Context) (notify.GenerationResult, error)
	SendOSAlerts(ctx context.Context) (notify.AlertResult, error)
	UnprocessedCount(ctx context.Context) (int, error)
}

// Leader gates the passes when several instances share one database.
// *redis.Leader satisfies it.
type Leader interface {
	Acquire(ctx context.Context) bool
	Release(ctx context.Context)
}

// CountSink receives the unprocessed count after each generation pass.
type CountSink interface {
	Set(ctx context.Context, count int) error
}

// Scheduler fires the generation pass and the alert pass independently.
type Scheduler struct {
	passes        Passes
	leader        Leader
	counts        CountSink
	generateEvery time.Duration
	alertEvery    time.Duration
	passTimeout   time.Duration
	logger        *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLeader enables leader gating. Without it every instance runs the passes.
func WithLeader(l Leader) Option { return func(s *Scheduler) { s.leader = l } }

func WithCountSink(c CountSink) Option { return func(s *Scheduler) { s.counts = c } }

func WithIntervals(generate, alerts time.Duration) Option {
	return func(s *Scheduler) {
		if generate > 0 {
			s.generateEvery = generate
		}
		if alerts > 0 {
			s.alertEvery = alerts
		}
	}
}

func WithPassTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.passTimeout = d
		}
	}
}

func NewScheduler(passes Passes, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		passes:        passes,
		generateEvery: DefaultGenerateEvery,
		alertEvery:    DefaultAlertEvery,
		passTimeout:   DefaultPassTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes both passes once, then on their schedules until ctx is
// cancelled. A pass that is still running when its next tick fires is
// skipped for that tick.
func (s *Scheduler) Run(ctx context.Context) error {
	log := cronLogger{s.logger}
	c := cron.New(cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))

	if _, err := c.AddFunc(every(s.generateEvery), func() { s.RunGeneration(ctx) }); err != nil {
		return fmt.Errorf("schedule generation: %w", err)
	}
	if _, err := c.AddFunc(every(s.alertEvery), func() { s.RunAlerts(ctx) }); err != nil {
		return fmt.Errorf("schedule alerts: %w", err)
	}

	s.RunGeneration(ctx)
	s.RunAlerts(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	if s.leader != nil {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		s.leader.Release(releaseCtx)
		cancel()
		telemetry.SchedulerLeader.Set(0)
	}
	return nil
}

// RunGeneration runs one generation pass if this instance leads and
// refreshes the open-notification count. It reports whether the pass ran.
func (s *Scheduler) RunGeneration(ctx context.Context) bool {
	if !s.lead(ctx) {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.passTimeout)
	defer cancel()

	if _, err := s.passes.GenerateNotifications(ctx); err != nil {
		// already logged by the manager; retried on the next tick
		return true
	}
	s.refreshCount(ctx)
	return true
}

// RunAlerts runs one alert pass if this instance leads.
func (s *Scheduler) RunAlerts(ctx context.Context) bool {
	if !s.lead(ctx) {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.passTimeout)
	defer cancel()

	res, err := s.passes.SendOSAlerts(ctx)
	if err != nil {
		return true
	}
	if res.Sent > 0 || res.Failed > 0 {
		s.logger.Info("alert pass",
			slog.Int("sent", res.Sent),
			slog.Int("failed", res.Failed),
			slog.Int("throttled", res.Throttled),
			slog.Int("rate_limited", res.RateLimited),
		)
	}
	return true
}

func (s *Scheduler) lead(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.leader == nil {
		telemetry.SchedulerLeader.Set(1)
		return true
	}
	if s.leader.Acquire(ctx) {
		telemetry.SchedulerLeader.Set(1)
		return true
	}
	telemetry.SchedulerLeader.Set(0)
	return false
}

func (s *Scheduler) refreshCount(ctx context.Context) {
	n, err := s.passes.UnprocessedCount(ctx)
	if err != nil {
		s.logger.Warn("count open notifications", slog.String("error", err.Error()))
		return
	}
	telemetry.OpenNotifications.Set(float64(n))
	if s.counts == nil {
		return
	}
	if err := s.counts.Set(ctx, n); err != nil {
		s.logger.Warn("update count cache", slog.String("error", err.Error()))
	}
}

func every(d time.Duration) string { return "@every " + d.String() }

// cronLogger routes cron's own messages into slog.
type cronLogger struct{ logger *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}
