// Package metrics defines and registers all custom Prometheus metrics for the
// order tracking engine. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics are registered with the default Prometheus registry via
// promauto at package init; the /metrics endpoint serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Location metrics ──────────────────────────────────────────────────────────

// LocationUpdatesTotal counts location fixes that were applied successfully.
// Labels:
//   - source: where the fix came from ("gps", "manual", "network", "estimated")
//   - mode: "single" for direct updates, "batch" for queue-drained uploads
var LocationUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_updates_total",
		Help:      "Total number of location fixes successfully applied.",
	},
	[]string{"source", "mode"},
)

// LocationErrorsTotal counts location fixes that failed processing.
// Label:
//   - reason: short description of the failure (e.g. "invalid_coordinates", "session_inactive", "update_failed")
var LocationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_errors_total",
		Help:      "Total number of location fixes that failed processing.",
	},
	[]string{"reason"},
)

// LocationQueueDepth tracks the number of fixes waiting in each batch worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var LocationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "location_queue_depth",
		Help:      "Current number of fixes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// LocationUpdateDuration observes end-to-end processing time of synchronous
// location updates, in seconds.
var LocationUpdateDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "location_update_duration_seconds",
		Help:      "Processing time of synchronous location updates.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsStartedTotal counts tracking sessions created.
var SessionsStartedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Total number of tracking sessions started.",
	},
)

// StatusTransitionsTotal counts applied status transitions.
// Label:
//   - status: the new session status (e.g. "picked_up")
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of status transitions successfully applied.",
	},
	[]string{"status"},
)

// ── Broadcast metrics ─────────────────────────────────────────────────────────

// SubscribersConnected tracks the number of live WebSocket connections.
var SubscribersConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers_connected",
		Help:      "Current number of connected WebSocket subscribers.",
	},
)

// BroadcastDeliveriesTotal counts individual event deliveries to subscribers.
// Label:
//   - kind: the event kind delivered (e.g. "location_changed")
var BroadcastDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_deliveries_total",
		Help:      "Total number of events delivered to individual subscribers.",
	},
	[]string{"kind"},
)

// NotificationsDispatchedTotal counts notification events handed to the
// external delivery pipeline.
// Labels:
//   - kind: the notification kind (e.g. "near_destination")
//   - outcome: "ok" or "error"
var NotificationsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dispatched_total",
		Help:      "Total number of notification events handed to the dispatcher.",
	},
	[]string{"kind", "outcome"},
)
