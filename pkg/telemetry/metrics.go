package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Tracker: notification passes ───────────────────────────────────────────

	PassRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "pass_runs_total",
		Help:      "Background pass runs, labelled by pass (generate|alerts) and result.",
	}, []string{"pass", "result"})

	PassDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "pass_duration_seconds",
		Help:      "Wall time of one background pass.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"pass"})

	NotificationsChangedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "notifications_changed_total",
		Help:      "Notification rows written by the generation pass, labelled by op (created|updated|deleted).",
	}, []string{"op"})

	OpenNotifications = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "open_notifications",
		Help:      "Unprocessed notifications after the last generation pass.",
	})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "alerts_total",
		Help:      "Alert decisions, labelled by kind and result (sent|failed|throttled|rate_limited).",
	}, []string{"kind", "result"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "resolutions_total",
		Help:      "Resolution calls, labelled by action and result (ok|noop|rejected|error).",
	}, []string{"action", "result"})

	SchedulerLeader = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "scheduler_leader",
		Help:      "1 while this instance holds the scheduler lock.",
	})

	StoreReachable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "controls",
		Subsystem: "tracker",
		Name:      "store_reachable",
		Help:      "1 while the last store health check succeeded.",
	})

	// ─── API ────────────────────────────────────────────────────────────────────

	APITasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "api",
		Name:      "tasks_created_total",
		Help:      "Control tasks created through the API, labelled by recurrence.",
	}, []string{"recurrence"})

	// ─── Alerter ────────────────────────────────────────────────────────────────

	AlerterDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "deliveries_total",
		Help:      "Alert deliveries, labelled by channel and terminal status.",
	}, []string{"channel", "status"})

	AlerterInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "deliveries_inflight",
		Help:      "Alerts currently being delivered.",
	})

	AlerterDeliveryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "delivery_duration_seconds",
		Help:      "Delivery time per channel including retries.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"channel"})

	AlerterRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "retries_total",
		Help:      "Delivery retry attempts.",
	}, []string{"channel"})

	AlerterDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "duplicates_total",
		Help:      "Redelivered alerts skipped because they were already delivered.",
	})

	AlerterDLQTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "controls",
		Subsystem: "alerter",
		Name:      "dlq_total",
		Help:      "Alerts forwarded to the dead-letter topic.",
	})
)
