// Package metrics holds the Prometheus collectors. They register with the
// default registry at init and are served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whoami"

var (
	// NotificationsTotal counts notification writes.
	// Labels: family (like, reaction, comment, ...), action (created, coalesced, actor_removed, deleted, skipped)
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "total",
		Help:      "Notification writes by event family and action.",
	}, []string{"family", "action"})

	// PushSendsTotal counts per-device push attempts after retries.
	// Labels: kind (notify, cancel), result (ok, unregistered, error)
	PushSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "sends_total",
		Help:      "Push deliveries by kind and result.",
	}, []string{"kind", "result"})

	// PushQueueDropped counts jobs dropped because the dispatch queue was full.
	PushQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "dropped_total",
		Help:      "Push jobs dropped on a full queue.",
	})

	// JobRunsTotal counts scheduled job invocations.
	// Labels: job, result (ok, locked, error)
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Scheduled job runs by job and result.",
	}, []string{"job", "result"})

	// ChatConnections tracks open websocket sessions.
	ChatConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "connections",
		Help:      "Open chat websocket sessions.",
	})
)
