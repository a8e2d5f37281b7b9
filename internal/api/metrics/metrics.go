// Package metrics defines and registers all custom Prometheus metrics for the
// field-ops console API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at import time
// via promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Provisioning metrics ──────────────────────────────────────────────────────

// ProvisioningAttemptsTotal counts provisioning attempts by terminal outcome.
// Labels:
//   - kind: "user", "seller", or "merchandiser"
//   - outcome: "done" or "fail"
var ProvisioningAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_attempts_total",
		Help:      "Total number of account provisioning attempts, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// ProvisioningStepErrorsTotal counts failures by step and classified reason.
// Labels:
//   - step: "issue_credential", "write_profile", "write_role_record", ...
//   - reason: taxonomy name (e.g. "already_exists", "duplicate_unique")
var ProvisioningStepErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_step_errors_total",
		Help:      "Total number of provisioning step failures, by step and reason.",
	},
	[]string{"step", "reason"},
)

// CompensationTotal counts compensation runs.
// Label:
//   - result: "ok" or "failed"
var CompensationTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compensation_total",
		Help:      "Total number of compensation runs after partial provisioning failures.",
	},
	[]string{"result"},
)

// OrphanedIdentitiesTotal counts identities left behind in the identity
// platform after a failed attempt. These need out-of-band reconciliation.
var OrphanedIdentitiesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphaned_identities_total",
		Help:      "Total number of identities orphaned by failed provisioning attempts.",
	},
)

// ProvisioningDuration measures one attempt end-to-end, including
// compensation when it runs.
// Label:
//   - outcome: "done" or "fail"
var ProvisioningDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provisioning_duration_seconds",
		Help:      "Duration of provisioning attempts from draft to terminal outcome.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"outcome"},
)

// ── Audit trail metrics ───────────────────────────────────────────────────────

// AuditQueueDepth tracks the current number of events waiting in each audit
// dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of provisioning events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts audit events discarded because a worker
// channel was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped due to backpressure.",
	},
)
