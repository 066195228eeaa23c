package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LedgerOp("apply_purchase", ResultOK)
	m.LedgerOp("apply_purchase", ResultOK)
	m.LedgerOp("claim_reward", ResultNoReward)
	m.RewardsEarned(3)
	m.RewardsEarned(0)
	m.SaleRecorded("Mushroom", "Cash", 12)
	m.Notification("whatsapp", "Sent")

	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("apply_purchase", ResultOK)); got != 2 {
		t.Fatalf("expected 2 apply_purchase ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("claim_reward", ResultNoReward)); got != 1 {
		t.Fatalf("expected 1 claim no_reward, got %v", got)
	}
	if got := testutil.ToFloat64(m.rewardsEarned); got != 3 {
		t.Fatalf("expected 3 rewards earned, got %v", got)
	}
	if got := testutil.ToFloat64(m.unitsSold.WithLabelValues("Mushroom")); got != 12 {
		t.Fatalf("expected 12 units, got %v", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.LedgerOp("apply_purchase", ResultOK)
	m.RewardsEarned(1)
	m.RewardsClaimed(1)
	m.SaleRecorded("Mushroom", "Cash", 1)
	m.Notification("sms", "Failed")
	m.ReminderRun(ResultOK, 0.1)
}
