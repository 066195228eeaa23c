// Package notify delivers best-effort notifications over WhatsApp, SMS, voice and email.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/metrics"
	"mushroom-dashboard/internal/ratelimit"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message is channel-neutral content. Senders pick the parts their medium supports.
type Message struct {
	Title string
	Body  string
	// Speech replaces Body for voice calls when set.
	Speech string
}

// Text renders title and body as a plain text message.
func (m Message) Text() string {
	if m.Title == "" {
		return m.Body
	}
	return m.Title + "\n\n" + m.Body
}

// Target is one recipient on one channel. Phone channels take a customer key.
type Target struct {
	Channel domain.Channel
	Address string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

type logStore interface {
	Create(ctx context.Context, l domain.NotificationLog) (*domain.NotificationLog, error)
}

// DispatcherConfig holds the optional collaborators of a Dispatcher.
type DispatcherConfig struct {
	Limiter  ratelimit.Limiter
	Logs     logStore
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Parallel int
}

// Dispatcher fans a message out to targets. Failures are logged and recorded,
// never returned.
type Dispatcher struct {
	senders  map[domain.Channel]Sender
	limiter  ratelimit.Limiter
	logs     logStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	parallel int
	wg       sync.WaitGroup
}

// NewDispatcher builds a Dispatcher over the configured senders. Channels without a
// sender are recorded as skipped.
func NewDispatcher(senders map[domain.Channel]Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 4
	}
	if senders == nil {
		senders = map[domain.Channel]Sender{}
	}
	return &Dispatcher{
		senders:  senders,
		limiter:  cfg.Limiter,
		logs:     cfg.Logs,
		logger:   cfg.Logger.Named("notify"),
		metrics:  cfg.Metrics,
		timeout:  cfg.Timeout,
		parallel: cfg.Parallel,
	}
}

// Channels lists the channels with a configured sender.
func (d *Dispatcher) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(d.senders))
	for ch := range d.senders {
		out = append(out, ch)
	}
	return out
}

// Dispatch delivers msg to every target and returns one log entry per target, in order.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, targets ...Target) []domain.NotificationLog {
	results := make([]domain.NotificationLog, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = d.deliver(gctx, msg, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Go dispatches in the background, detached from ctx cancellation.
func (d *Dispatcher) Go(ctx context.Context, msg Message, targets ...Target) {
	if len(targets) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Dispatch(bg, msg, targets...)
	}()
}

// Wait blocks until background dispatches finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message, t Target) domain.NotificationLog {
	entry := domain.NotificationLog{
		Channel:   t.Channel,
		Recipient: strings.TrimSpace(t.Address),
		Title:     msg.Title,
		Message:   msg.Text(),
	}
	entry.Status, entry.Error = d.attempt(ctx, msg, entry.Channel, entry.Recipient)
	d.metrics.Notification(string(entry.Channel), entry.Status)

	log := d.logger.With(
		zap.String("channel", string(entry.Channel)),
		zap.String("recipient", entry.Recipient),
		zap.String("status", entry.Status),
	)
	if entry.Status == domain.NotificationFailed {
		log.Warn("notification failed", zap.String("error", entry.Error))
	} else {
		log.Debug("notification attempted")
	}

	if d.logs != nil {
		stored, err := d.logs.Create(context.WithoutCancel(ctx), entry)
		if err != nil {
			log.Warn("notification log not stored", zap.Error(err))
		} else {
			entry = *stored
		}
	}
	return entry
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message, ch domain.Channel, to string) (string, string) {
	sender, ok := d.senders[ch]
	if !ok {
		return domain.NotificationSkipped, "channel not configured"
	}
	if to == "" {
		return domain.NotificationSkipped, "no recipient"
	}

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, string(ch)+":"+to)
		switch {
		case err != nil:
			d.logger.Warn("rate limiter unavailable, sending anyway", zap.String("channel", string(ch)), zap.Error(err))
		case !allowed:
			return domain.NotificationRateLimited, "rate limited"
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := sender.Send(sendCtx, to, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.NotificationFailed, "timed out after " + d.timeout.String()
		}
		return domain.NotificationFailed, err.Error()
	}
	return domain.NotificationSent, ""
}
