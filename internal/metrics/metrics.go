// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultNoReward = "no_reward"
	ResultStorage  = "storage_unavailable"
	ResultError    = "error"
)

// Metrics groups the service counters. A nil *Metrics records nothing.
type Metrics struct {
	ledgerOps       *prometheus.CounterVec
	rewardsEarned   prometheus.Counter
	rewardsClaimed  prometheus.Counter
	salesRecorded   *prometheus.CounterVec
	unitsSold       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	reminderRuns    *prometheus.CounterVec
	reminderLatency prometheus.Histogram
}

// New registers the collectors on reg. A nil reg uses a fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_ledger_operations_total",
			Help: "Loyalty ledger operations by operation and result.",
		}, []string{"op", "result"}),
		rewardsEarned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_rewards_earned_total",
			Help: "Free rewards earned through purchases.",
		}),
		rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_rewards_claimed_total",
			Help: "Free rewards handed out by claims.",
		}),
		salesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sales_recorded_total",
			Help: "Sales recorded by product type and payment type.",
		}, []string{"product_type", "payment_type"}),
		unitsSold: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sales_units_total",
			Help: "Units sold by product type.",
		}, []string{"product_type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification attempts by channel and status.",
		}, []string{"channel", "status"}),
		reminderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_reminder_runs_total",
			Help: "Reward reminder sweeps by result.",
		}, []string{"result"}),
		reminderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reward_reminder_duration_seconds",
			Help:    "Reward reminder sweep latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	reg.MustRegister(
		m.ledgerOps,
		m.rewardsEarned,
		m.rewardsClaimed,
		m.salesRecorded,
		m.unitsSold,
		m.notifications,
		m.reminderRuns,
		m.reminderLatency,
	)
	return m
}

func (m *Metrics) LedgerOp(op, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) RewardsEarned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rewardsEarned.Add(float64(n))
}

func (m *Metrics) RewardsClaimed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rewardsClaimed.Add(float64(n))
}

func (m *Metrics) SaleRecorded(productType, paymentType string, units int) {
	if m == nil {
		return
	}
	m.salesRecorded.WithLabelValues(productType, paymentType).Inc()
	m.unitsSold.WithLabelValues(productType).Add(float64(units))
}

func (m *Metrics) Notification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) ReminderRun(result string, seconds float64) {
	if m == nil {
		return
	}
	m.reminderRuns.WithLabelValues(result).Inc()
	m.reminderLatency.Observe(seconds)
}
