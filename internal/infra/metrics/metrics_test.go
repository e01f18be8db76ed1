package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestTaskCounters(t *testing.T) {
	TasksCreated.Inc()
	TasksCompleted.Inc()
	TasksFailed.Inc()

	names := gatheredNames(t)
	expected := []string{
		"swarmpay_tasks_created_total",
		"swarmpay_tasks_completed_total",
		"swarmpay_tasks_failed_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestSettlementRejections(t *testing.T) {
	before := testutil.ToFloat64(SettlementRejections.WithLabelValues("invalid_swarm_proof"))
	SettlementRejections.WithLabelValues("invalid_swarm_proof").Inc()
	after := testutil.ToFloat64(SettlementRejections.WithLabelValues("invalid_swarm_proof"))

	if after-before != 1 {
		t.Errorf("rejection counter delta = %v, want 1", after-before)
	}
	if !gatheredNames(t)["swarmpay_settlement_rejections_total"] {
		t.Error("swarmpay_settlement_rejections_total not found")
	}
}

func TestCreditMetrics(t *testing.T) {
	RewardsPaid.Add(1100)
	BonusPaid.Add(100)
	EscrowLocked.Set(5000)
	SettlementLatency.Observe(0.004)

	if got := testutil.ToFloat64(EscrowLocked); got != 5000 {
		t.Errorf("escrow_locked = %v, want 5000", got)
	}

	names := gatheredNames(t)
	for _, name := range []string{
		"swarmpay_rewards_paid_total",
		"swarmpay_bonus_paid_total",
		"swarmpay_escrow_locked",
		"swarmpay_settlement_seconds",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)
	HealthCheckStatus.WithLabelValues("ledger_conservation").Set(0)

	if !gatheredNames(t)["swarmpay_health_check_status"] {
		t.Error("swarmpay_health_check_status not found")
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	SwarmsCreated.Inc()
	ReferralsRegistered.Inc()

	count := 0
	for name := range gatheredNames(t) {
		if strings.HasPrefix(name, "swarmpay_") {
			count++
		}
	}
	if count < 9 {
		t.Errorf("expected at least 9 swarmpay_ metrics, got %d", count)
	}
}
