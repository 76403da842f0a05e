// Package alerter consumes published deadline alerts and delivers each one
// through the configured channels.
package alerter

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/channels"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
	redisstore "github.com/ramiqadoumi/go-control-tracker/internal/redis"
	"github.com/ramiqadoumi/go-control-tracker/pkg/retry"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

// Alerter delivers alerts read from kafka.TopicAlerts.
type Alerter struct {
	consumer   kafka.Consumer
	producer   kafka.Producer
	deliveries redisstore.DeliveryStore
	registry   *channels.Registry
	channels   []string
	maxRetries int
	timeout    time.Duration
	baseDelay  time.Duration
	logger     *slog.Logger

	wg sync.WaitGroup
}

// Option configures an Alerter.
type Option func(*Alerter)

func WithRetries(n int) Option             { return func(a *Alerter) { a.maxRetries = n } }
func WithTimeout(d time.Duration) Option   { return func(a *Alerter) { a.timeout = d } }
func WithBaseDelay(d time.Duration) Option { return func(a *Alerter) { a.baseDelay = d } }
func WithLogger(l *slog.Logger) Option     { return func(a *Alerter) { a.logger = l } }

// WithDeliveryStore enables redelivery suppression. Without it a message
// replayed by Kafka is delivered again.
func WithDeliveryStore(s redisstore.DeliveryStore) Option {
	return func(a *Alerter) { a.deliveries = s }
}

// New builds an Alerter sending every alert to each of names.
func New(consumer kafka.Consumer, producer kafka.Producer, registry *channels.Registry, names []string, opts ...Option) *Alerter {
	a := &Alerter{
		consumer:   consumer,
		producer:   producer,
		registry:   registry,
		channels:   names,
		maxRetries: 3,
		timeout:    30 * time.Second,
		baseDelay:  time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run consumes until ctx is cancelled.
func (a *Alerter) Run(ctx context.Context) error {
	return a.consumer.Subscribe(ctx, a.processMessage)
}

// Wait blocks until in-flight deliveries finish. Call after Run returns.
func (a *Alerter) Wait() { a.wg.Wait() }

// processMessage always returns nil so the offset is committed; undeliverable
// alerts go to the dead-letter topic.
func (a *Alerter) processMessage(consumerCtx context.Context, msg kafka.Message) error {
	al, err := alert.Decode(msg.Value)
	if err != nil {
		a.logger.Error("malformed alert message, dead-lettering",
			slog.String("error", err.Error()),
			slog.String("raw", string(msg.Value)),
		)
		a.deadLetter(consumerCtx, string(msg.Key), msg.Value)
		return nil
	}

	ctx, span := otel.Tracer("alerter").Start(consumerCtx, "alerter.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("alert.id", al.ID),
		attribute.Int64("notification.id", al.NotificationID),
		attribute.String("notification.kind", string(al.Kind)),
	)

	log := a.logger.With(
		slog.String("alert_id", al.ID),
		slog.Int64("notification_id", al.NotificationID),
		slog.Int64("task_id", al.TaskID),
	)

	if !a.claim(ctx, al, log) {
		return nil
	}

	a.wg.Add(1)
	telemetry.AlerterInFlight.Inc()
	defer func() {
		telemetry.AlerterInFlight.Dec()
		a.wg.Done()
	}()

	delivered := 0
	var errs []error
	for _, name := range a.channels {
		if err := a.deliver(ctx, span, name, al, log); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		log.Info("alert delivered",
			slog.Int("channels", delivered),
			slog.Int("failed", len(errs)),
		)
		return nil
	}

	failure := errors.Join(errs...)
	log.Error("alert undeliverable", slog.String("error", failure.Error()))
	span.RecordError(failure)
	span.SetStatus(codes.Error, "no channel accepted the alert")

	if a.deliveries != nil {
		if err := a.deliveries.Release(ctx, al.ID); err != nil {
			log.Warn("release delivery claim", slog.String("error", err.Error()))
		}
	}
	a.deadLetter(ctx, strconv.FormatInt(al.NotificationID, 10), msg.Value)
	return nil
}

// claim reports whether this alert still needs delivering. A store error
// lets the alert through.
func (a *Alerter) claim(ctx context.Context, al alert.Alert, log *slog.Logger) bool {
	if a.deliveries == nil {
		return true
	}
	first, err := a.deliveries.Claim(ctx, al.ID)
	if err != nil {
		log.Warn("delivery store unavailable, delivering anyway", slog.String("error", err.Error()))
		return true
	}
	if !first {
		dup := &domain.AlertAlreadyDeliveredError{AlertID: al.ID}
		log.Info("alert already delivered, skipping", slog.String("error", dup.Error()))
		telemetry.AlerterDuplicatesTotal.Inc()
		return false
	}
	return true
}

func (a *Alerter) deliver(ctx context.Context, span trace.Span, name string, al alert.Alert, log *slog.Logger) error {
	start := time.Now()
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: a.maxRetries + 1,
		BaseDelay:   a.baseDelay,
		MaxDelay:    time.Minute,
		OnRetry: func(attempt int, retryErr error) {
			telemetry.AlerterRetriesTotal.WithLabelValues(name).Inc()
			log.Warn("delivery attempt failed, retrying",
				slog.String("channel", name),
				slog.Int("attempt", attempt),
				slog.String("error", retryErr.Error()),
			)
		},
	}, func() error {
		ch, err := a.registry.Get(name)
		if err != nil {
			return retry.Permanent(err)
		}
		// Detached from the consumer context so shutdown does not cut a
		// delivery short; the span keeps channel calls in the same trace.
		execCtx, cancel := context.WithTimeout(trace.ContextWithSpan(context.Background(), span), a.timeout)
		defer cancel()
		return ch.Deliver(execCtx, al)
	})

	telemetry.AlerterDeliveryDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.AlerterDeliveriesTotal.WithLabelValues(name, "failed").Inc()
		log.Warn("channel gave up",
			slog.String("channel", name),
			slog.String("error", err.Error()),
		)
		return err
	}
	telemetry.AlerterDeliveriesTotal.WithLabelValues(name, "delivered").Inc()
	return nil
}

func (a *Alerter) deadLetter(ctx context.Context, key string, raw []byte) {
	if err := a.producer.Publish(ctx, kafka.TopicAlertsDLQ, key, raw); err != nil {
		a.logger.Error("failed to publish to DLQ", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	telemetry.AlerterDLQTotal.Inc()
}
