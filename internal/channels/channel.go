// Package channels delivers alerts to people: by mail over SMTP or SES, by
// webhook, or into the log.
package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// Channel delivers an alert through one medium.
type Channel interface {
	Deliver(ctx context.Context, a alert.Alert) error
	Name() string
}

// Registry maps channel names to channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds c, replacing any channel with the same name.
func (r *Registry) Register(c Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.Name()] = c
}

// Get returns UnknownChannelError for an unregistered name.
func (r *Registry) Get(name string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[name]
	if !ok {
		return nil, &domain.UnknownChannelError{Channel: name}
	}
	return c, nil
}

// Names lists the registered channels in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for n := range r.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatcher delivers in-process to the named channels. It fails only when
// no channel accepted the alert.
type Dispatcher struct {
	registry *Registry
	names    []string
	logger   *slog.Logger
}

// NewDispatcher resolves names up front so a typo fails at startup.
func NewDispatcher(registry *Registry, logger *slog.Logger, names ...string) (*Dispatcher, error) {
	if len(names) == 0 {
		return nil, errors.New("no channels configured")
	}
	for _, n := range names {
		if _, err := registry.Get(n); err != nil {
			return nil, err
		}
	}
	return &Dispatcher{registry: registry, names: names, logger: logger}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert) error {
	var errs []error
	for _, n := range d.names {
		c, err := d.registry.Get(n)
		if err == nil {
			err = c.Deliver(ctx, a)
		}
		if err != nil {
			d.logger.Warn("channel delivery failed",
				slog.String("channel", n),
				slog.Int64("notification_id", a.NotificationID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
		}
	}
	if len(errs) == len(d.names) {
		return errors.Join(errs...)
	}
	return nil
}

// LogChannel writes alerts to the log. It is the default when nothing else
// is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel { return &LogChannel{logger: logger} }

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(_ context.Context, a alert.Alert) error {
	c.logger.Info("deadline alert",
		slog.String("title", a.Title),
		slog.String("body", a.Body),
		slog.Int64("task_id", a.TaskID),
	)
	return nil
}
