// Package notify derives deadline notifications from tasks, throttles the
// alerts sent for them and applies user resolutions back onto the tasks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/pkg/clock"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

// Observer is told about every task a resolution changed.
type Observer interface {
	OnTaskChanged(ctx context.Context, taskID int64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, taskID int64)

func (f ObserverFunc) OnTaskChanged(ctx context.Context, taskID int64) { f(ctx, taskID) }

// SettingsProvider supplies the alert intervals. store.SettingsRepository
// satisfies it.
type SettingsProvider interface {
	Load(ctx context.Context) (domain.Settings, error)
}

// StaticSettings always returns the same settings.
type StaticSettings domain.Settings

func (s StaticSettings) Load(context.Context) (domain.Settings, error) {
	return domain.Settings(s), nil
}

// Limiter caps how many alerts leave per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const limiterKey = "alerts"

// Manager owns the notification lifecycle.
type Manager struct {
	store      store.Store
	clock      clock.Clock
	logger     *slog.Logger
	dispatcher alert.Dispatcher
	settings   SettingsProvider
	fallback   domain.Settings
	limiter    Limiter
	observers  []Observer
	tracer     trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

func WithClock(c clock.Clock) Option                { return func(m *Manager) { m.clock = c } }
func WithLogger(l *slog.Logger) Option              { return func(m *Manager) { m.logger = l } }
func WithDispatcher(d alert.Dispatcher) Option      { return func(m *Manager) { m.dispatcher = d } }
func WithSettings(p SettingsProvider) Option        { return func(m *Manager) { m.settings = p } }
func WithFallbackSettings(s domain.Settings) Option { return func(m *Manager) { m.fallback = s } }
func WithLimiter(l Limiter) Option                  { return func(m *Manager) { m.limiter = l } }
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, o) }
}

// NewManager builds a Manager over s. Without WithDispatcher alerts are
// only logged; without WithSettings intervals come from the store.
func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		clock:    clock.Real{},
		logger:   slog.Default(),
		fallback: domain.DefaultSettings(),
		tracer:   otel.Tracer("notify"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dispatcher == nil {
		m.dispatcher = alert.NewLogDispatcher(m.logger)
	}
	if m.settings == nil {
		m.settings = s.Settings()
	}
	return m
}

// GenerationResult counts the writes of one generation pass.
type GenerationResult struct {
	Deleted int `json:"deleted"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// GenerateNotifications runs cleanup and generation and commits the result
// in one transaction. Errors are logged and returned; nothing is retried.
func (m *Manager) GenerateNotifications(ctx context.Context) (GenerationResult, error) {
	ctx, span := m.tracer.Start(ctx, "notify.generate")
	defer span.End()
	start := time.Now()
	now := m.clock.Now()

	var res GenerationResult
	err := m.store.InTx(ctx, func(tx store.Store) error {
		// a concurrent pass waits here and then plans against our commit
		if err := tx.LockGeneration(ctx); err != nil {
			return err
		}
		tasks, err := tx.Tasks().List(ctx, store.TaskFilter{})
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		notes, err := tx.Notifications().List(ctx)
		if err != nil {
			return fmt.Errorf("list notifications: %w", err)
		}

		plan := PlanGeneration(tasks, notes, now)
		if plan.Empty() {
			return nil
		}
		if len(plan.Delete) > 0 {
			if err := tx.Notifications().Delete(ctx, plan.Delete); err != nil {
				return fmt.Errorf("delete stale notifications: %w", err)
			}
		}
		for _, u := range plan.Update {
			if err := tx.Notifications().UpdateMessage(ctx, u.ID, u.Message, u.DueDate); err != nil {
				return fmt.Errorf("update notification %d: %w", u.ID, err)
			}
		}
		for _, n := range plan.Create {
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return fmt.Errorf("create notification for task %d: %w", n.TaskID, err)
			}
		}
		res = GenerationResult{Deleted: len(plan.Delete), Created: len(plan.Create), Updated: len(plan.Update)}
		return nil
	})
	telemetry.PassDurationSeconds.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		telemetry.PassRunsTotal.WithLabelValues("generate", "error").Inc()
		m.logger.Error("generate notifications", slog.String("error", err.Error()))
		return GenerationResult{}, fmt.Errorf("generate notifications: %w", err)
	}

	telemetry.PassRunsTotal.WithLabelValues("generate", "ok").Inc()
	telemetry.NotificationsChangedTotal.WithLabelValues("created").Add(float64(res.Created))
	telemetry.NotificationsChangedTotal.WithLabelValues("updated").Add(float64(res.Updated))
	telemetry.NotificationsChangedTotal.WithLabelValues("deleted").Add(float64(res.Deleted))
	span.SetAttributes(
		attribute.Int("notifications.created", res.Created),
		attribute.Int("notifications.updated", res.Updated),
		attribute.Int("notifications.deleted", res.Deleted),
	)
	if res != (GenerationResult{}) {
		m.logger.Info("notifications generated",
			slog.Int("created", res.Created),
			slog.Int("updated", res.Updated),
			slog.Int("deleted", res.Deleted),
		)
	}
	return res, nil
}

// AlertResult counts the outcomes of one alert pass.
type AlertResult struct {
	Sent        int
	Throttled   int
	RateLimited int
	Failed      int
}

// SendOSAlerts dispatches one alert per open notification whose kind's
// interval has elapsed since its last alert. Dispatch failures are logged
// and left for the next pass.
func (m *Manager) SendOSAlerts(ctx context.Context) (AlertResult, error) {
	ctx, span := m.tracer.Start(ctx, "notify.send_alerts")
	defer span.End()
	start := time.Now()
	defer func() {
		telemetry.PassDurationSeconds.WithLabelValues("alerts").Observe(time.Since(start).Seconds())
	}()

	settings := m.loadSettings(ctx)
	now := m.clock.Now()

	notes, err := m.store.Notifications().List(ctx)
	if err != nil {
		return m.failAlerts(span, fmt.Errorf("list notifications: %w", err))
	}
	tasks, err := m.store.Tasks().List(ctx, store.TaskFilter{})
	if err != nil {
		return m.failAlerts(span, fmt.Errorf("list tasks: %w", err))
	}
	byID := make(map[int64]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var res AlertResult
	for _, n := range notes {
		if n.IsProcessed() || !n.Kind.Valid() {
			continue
		}
		if task, ok := byID[n.TaskID]; !ok || task.IsFinished() {
			continue
		}
		kind := string(n.Kind)
		if !n.AlertDue(now, settings.AlertInterval(n.Kind)) {
			res.Throttled++
			telemetry.AlertsTotal.WithLabelValues(kind, "throttled").Inc()
			continue
		}
		if !m.allowAlert(ctx) {
			res.RateLimited++
			telemetry.AlertsTotal.WithLabelValues(kind, "rate_limited").Inc()
			continue
		}

		log := m.logger.With(slog.Int64("notification_id", n.ID), slog.String("kind", kind))
		if err := m.dispatcher.Dispatch(ctx, alert.New(n, now)); err != nil {
			res.Failed++
			telemetry.AlertsTotal.WithLabelValues(kind, "failed").Inc()
			log.Warn("alert dispatch failed", slog.String("error", err.Error()))
			continue
		}
		if err := m.store.Notifications().MarkAlerted(ctx, n.ID, now); err != nil {
			res.Failed++
			log.Error("record alert state", slog.String("error", err.Error()))
			continue
		}
		res.Sent++
		telemetry.AlertsTotal.WithLabelValues(kind, "sent").Inc()
	}

	telemetry.PassRunsTotal.WithLabelValues("alerts", "ok").Inc()
	span.SetAttributes(attribute.Int("alerts.sent", res.Sent), attribute.Int("alerts.failed", res.Failed))
	return res, nil
}

func (m *Manager) failAlerts(span trace.Span, err error) (AlertResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "alert pass failed")
	telemetry.PassRunsTotal.WithLabelValues("alerts", "error").Inc()
	m.logger.Error("send alerts", slog.String("error", err.Error()))
	return AlertResult{}, fmt.Errorf("send alerts: %w", err)
}

func (m *Manager) loadSettings(ctx context.Context) domain.Settings {
	s, err := m.settings.Load(ctx)
	if err != nil {
		m.logger.Warn("load alert settings, using fallback", slog.String("error", err.Error()))
		return m.fallback.WithDefaults()
	}
	return s.WithDefaults()
}

// allowAlert consults the limiter. A limiter error lets the alert through.
func (m *Manager) allowAlert(ctx context.Context) bool {
	if m.limiter == nil {
		return true
	}
	ok, err := m.limiter.Allow(ctx, limiterKey)
	if err != nil {
		m.logger.Warn("alert rate limiter", slog.String("error", err.Error()))
		return true
	}
	return ok
}

// View selects which notifications a listing returns.
type View string

const (
	ViewActive   View = "active"
	ViewAwaiting View = "awaiting"
	ViewAll      View = "all"
)

// ParseView maps a query value to a View, defaulting to ViewActive.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewActive, nil
	case ViewActive, ViewAwaiting, ViewAll:
		return v, nil
	}
	return "", &domain.ValidationError{Field: "view", Reason: "must be active, awaiting or all"}
}

// Notifications lists the notifications in view, newest first.
func (m *Manager) Notifications(ctx context.Context, view View) ([]*domain.Notification, error) {
	notes, err := m.store.Notifications().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]*domain.Notification, 0, len(notes))
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]
		switch view {
		case ViewActive:
			if !n.IsActive() {
				continue
			}
		case ViewAwaiting:
			if !n.IsAwaiting() {
				continue
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// UnprocessedCount returns how many notifications are still open.
func (m *Manager) UnprocessedCount(ctx context.Context) (int, error) {
	notes, err := m.store.Notifications().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	count := 0
	for _, n := range notes {
		if !n.IsProcessed() {
			count++
		}
	}
	return count, nil
}

// TaskChanged tells the observers about a change made outside a resolution.
func (m *Manager) TaskChanged(ctx context.Context, taskID int64) {
	for _, o := range m.observers {
		o.OnTaskChanged(ctx, taskID)
	}
}

func isNotFound(err error) bool {
	var nf *domain.TaskNotFoundError
	return errors.As(err, &nf)
}
