// Package metrics provides Prometheus metrics for swarmpay: task lifecycle,
// settlement outcomes, escrow and ledger flows, swarm and referral registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated counts tasks opened with a funded escrow.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "tasks_created_total",
	Help:      "Total tasks created with funded escrow.",
})

// TasksCompleted counts tasks settled to a worker.
var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "tasks_completed_total",
	Help:      "Total tasks completed and paid out.",
})

// TasksFailed counts tasks moved to Failed with a refund.
var TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "tasks_failed_total",
	Help:      "Total tasks failed and refunded.",
})

// ─── Settlement ─────────────────────────────────────────────────────────────

// SettlementRejections counts rejected completion attempts by error reason.
var SettlementRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "settlement_rejections_total",
	Help:      "Rejected completion attempts by reason.",
}, []string{"reason"})

// SettlementLatency tracks complete-and-settle transaction duration.
var SettlementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "swarmpay",
	Name:      "settlement_seconds",
	Help:      "Duration of the complete-and-settle transaction.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
})

// ─── Credits ────────────────────────────────────────────────────────────────

// RewardsPaid tracks total units paid to workers, bonus included.
var RewardsPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "rewards_paid_total",
	Help:      "Total reward units paid to workers, bonus included.",
})

// BonusPaid tracks the leader bonus share of RewardsPaid.
var BonusPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "bonus_paid_total",
	Help:      "Total leader bonus units paid from pool reserves.",
})

// EscrowLocked tracks units currently held in task escrow.
var EscrowLocked = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "swarmpay",
	Name:      "escrow_locked",
	Help:      "Units currently held across task escrow accounts.",
})

// ─── Registry ───────────────────────────────────────────────────────────────

// SwarmsCreated counts registered swarms.
var SwarmsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "swarms_created_total",
	Help:      "Total swarms formed.",
})

// ReferralsRegistered counts registered referrers.
var ReferralsRegistered = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmpay",
	Name:      "referrals_registered_total",
	Help:      "Total referral records created.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "swarmpay",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
