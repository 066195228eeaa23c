// Package scheduler runs the periodic reward-reminder sweep.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/metrics"
	"mushroom-dashboard/internal/notify"
	custrepo "mushroom-dashboard/internal/repository/customer"

	"go.uber.org/zap"
)

type customerStore interface {
	ListRewardPending(ctx context.Context, notifiedBefore time.Time, limit int) ([]domain.Customer, error)
	Update(ctx context.Context, key string, fn custrepo.Mutator) (*domain.Customer, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message, targets ...notify.Target) []domain.NotificationLog
}

// Config controls the reminder sweep.
type Config struct {
	Interval   time.Duration
	Cooldown   time.Duration
	BatchSize  int
	RunTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 72 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 2 * time.Minute
	}
	return c
}

// RunStats summarizes one sweep.
type RunStats struct {
	Candidates int `json:"candidates"`
	Notified   int `json:"notified"`
	Failed     int `json:"failed"`
}

// Reminder periodically nudges customers holding unclaimed rewards. It only
// touches LastNotifiedAt; loyalty counters are never modified here.
type Reminder struct {
	customers  customerStore
	dispatcher dispatcher
	templates  notify.Templates
	audience   notify.Audience
	cfg        Config
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu     sync.Mutex
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReminder builds a Reminder. Call Start to begin the ticker.
func NewReminder(customers customerStore, d dispatcher, tpl notify.Templates, audience notify.Audience, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Reminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminder{
		customers:  customers,
		dispatcher: d,
		templates:  tpl,
		audience:   audience,
		cfg:        cfg.withDefaults(),
		log:        logger.Named("reminder"),
		metrics:    m,
		now:        time.Now,
	}
}

// Start runs a sweep immediately and then on every interval until Stop or ctx ends.
func (r *Reminder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	r.log.Info("reminder sweep started", zap.Duration("interval", r.cfg.Interval), zap.Duration("cooldown", r.cfg.Cooldown))
}

// Stop halts the ticker and waits for an in-flight sweep.
func (r *Reminder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
	r.log.Info("reminder sweep stopped")
}

func (r *Reminder) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("reminder sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep. Concurrent calls are serialized so a manual
// trigger never overlaps the ticker.
func (r *Reminder) RunOnce(ctx context.Context) (RunStats, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := r.now()
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	stats, err := r.sweep(ctx, start)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	r.metrics.ReminderRun(result, r.now().Sub(start).Seconds())
	if stats.Candidates > 0 {
		r.log.Info("reminder sweep finished",
			zap.Int("candidates", stats.Candidates),
			zap.Int("notified", stats.Notified),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, err
}

func (r *Reminder) sweep(ctx context.Context, now time.Time) (RunStats, error) {
	var stats RunStats
	pending, err := r.customers.ListRewardPending(ctx, now.Add(-r.cfg.Cooldown), r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(pending)

	var errs error
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return stats, errors.Join(errs, err)
		}
		msg := r.templates.RewardReminder(c)
		logs := r.dispatcher.Dispatch(ctx, msg, r.audience.Reminder(c)...)
		if !sentOn(logs, domain.ChannelWhatsApp) {
			logs = append(logs, r.dispatcher.Dispatch(ctx, msg, r.audience.ReminderFallback(c)...)...)
		}
		if !anySent(logs) {
			stats.Failed++
			continue
		}
		_, err := r.customers.Update(ctx, c.Key, func(cur *domain.Customer) error {
			at := now.UTC()
			cur.LastNotifiedAt = &at
			return nil
		})
		if err != nil {
			stats.Failed++
			errs = errors.Join(errs, err)
			continue
		}
		stats.Notified++
	}
	return stats, errs
}

func sentOn(logs []domain.NotificationLog, ch domain.Channel) bool {
	for _, l := range logs {
		if l.Channel == ch && l.Status == domain.NotificationSent {
			return true
		}
	}
	return false
}

func anySent(logs []domain.NotificationLog) bool {
	for _, l := range logs {
		if l.Status == domain.NotificationSent {
			return true
		}
	}
	return false
}
