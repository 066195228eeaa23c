// Package app assembles stores, services and notification plumbing from Config.
// Every binary builds its dependencies through here so the memory and Postgres
// deployments stay wired the same way.
package app

import (
	"context"
	"fmt"
	"time"

	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/metrics"
	"mushroom-dashboard/internal/notify"
	"mushroom-dashboard/internal/ratelimit"
	custrepo "mushroom-dashboard/internal/repository/customer"
	logrepo "mushroom-dashboard/internal/repository/notificationlog"
	salerepo "mushroom-dashboard/internal/repository/sale"
	"mushroom-dashboard/internal/scheduler"
	"mushroom-dashboard/internal/service/loyalty"
	salesvc "mushroom-dashboard/internal/service/sale"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores are the persistence backends. Pool is nil in memory mode.
type Stores struct {
	Customers custrepo.Repository
	Sales     salerepo.Repository
	Logs      logrepo.Repository
	Pool      *pgxpool.Pool
}

// OpenStores connects to Postgres, or builds in-process stores when DB_DSN is "memory".
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	if cfg.UsesMemory() {
		logger.Warn("using in-memory stores, data is lost on restart")
		return &Stores{
			Customers: custrepo.NewMemory(),
			Sales:     salerepo.NewMemory(),
			Logs:      logrepo.NewMemory(),
		}, nil
	}
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return &Stores{
		Customers: custrepo.NewPostgres(pool, logger),
		Sales:     salerepo.NewPostgres(pool, logger),
		Logs:      logrepo.NewPostgres(pool, logger),
		Pool:      pool,
	}, nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Services are the domain services built over Stores.
type Services struct {
	Ledger *loyalty.Ledger
	Sales  *salesvc.Service
}

// NewServices wires the ledger and the sale recorder.
func NewServices(st *Stores, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) Services {
	ledger := loyalty.New(st.Customers, logger, m)
	return Services{
		Ledger: ledger,
		Sales:  salesvc.New(st.Sales, st.Customers, ledger, cfg.Loyalty, logger, m),
	}
}

// Notifications bundles the dispatcher with the message templates and audience.
type Notifications struct {
	Dispatcher *notify.Dispatcher
	Templates  notify.Templates
	Audience   notify.Audience
	close      func()
}

// Close releases the rate limiter backend after waiting for background sends.
func (n *Notifications) Close() {
	n.Dispatcher.Wait()
	if n.close != nil {
		n.close()
	}
}

// NewNotifications builds a sender for every configured provider. Channels without
// credentials are skipped at dispatch time.
func NewNotifications(ctx context.Context, cfg config.Config, logs logrepo.Repository, logger *zap.Logger, m *metrics.Metrics) (*Notifications, error) {
	senders := map[domain.Channel]notify.Sender{}

	if cfg.WhatsApp.ID != "" && cfg.WhatsApp.Token != "" {
		wa, err := notify.NewWhatsApp(notify.WhatsAppConfig{
			BaseURL:       cfg.WhatsApp.BaseURL,
			PhoneNumberID: cfg.WhatsApp.ID,
			Token:         cfg.WhatsApp.Token,
			CountryCode:   cfg.CountryCode,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("whatsapp: %w", err)
		}
		senders[domain.ChannelWhatsApp] = wa
	}

	if cfg.Twilio.AccountSID != "" {
		tw := notify.TwilioConfig{
			BaseURL:     cfg.Twilio.BaseURL,
			AccountSID:  cfg.Twilio.AccountSID,
			AuthToken:   cfg.Twilio.AuthToken,
			From:        cfg.Twilio.From,
			CountryCode: cfg.CountryCode,
		}
		sms, err := notify.NewTwilioSMS(tw, nil)
		if err != nil {
			return nil, fmt.Errorf("twilio sms: %w", err)
		}
		voice, err := notify.NewTwilioVoice(tw, nil)
		if err != nil {
			return nil, fmt.Errorf("twilio voice: %w", err)
		}
		senders[domain.ChannelSMS] = sms
		senders[domain.ChannelVoice] = voice
	}

	if cfg.Resend.Token != "" {
		email, err := notify.NewResend(notify.ResendConfig{
			BaseURL: cfg.Resend.BaseURL,
			APIKey:  cfg.Resend.Token,
			From:    cfg.EmailFrom,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("resend: %w", err)
		}
		senders[domain.ChannelEmail] = email
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	d := notify.NewDispatcher(senders, notify.DispatcherConfig{
		Limiter: limiter,
		Logs:    logs,
		Logger:  logger,
		Metrics: m,
		Timeout: cfg.NotifyTimeout,
	})
	channels := make([]string, 0, len(senders))
	for _, ch := range d.Channels() {
		channels = append(channels, string(ch))
	}
	logger.Info("notifications configured", zap.Strings("channels", channels))

	return &Notifications{
		Dispatcher: d,
		Templates:  notify.Templates{FarmName: cfg.FarmName, OrderPhone: cfg.OrderPhone},
		Audience: notify.Audience{
			AdminPhones:            cfg.AdminPhones,
			AdminEmails:            cfg.AdminEmails,
			VoiceReminderThreshold: cfg.ReminderVoiceThreshold,
		},
		close: closeLimiter,
	}, nil
}

// newLimiter prefers a shared Redis bucket and falls back to an in-process one when
// Redis is not configured or not reachable at startup.
func newLimiter(ctx context.Context, cfg config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	rl := ratelimit.Config{PerMinute: cfg.RateLimitPerMinute, Burst: cfg.RateLimitBurst}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			lim, err := ratelimit.NewRedis(client, "", rl)
			if err != nil {
				_ = client.Close()
				return nil, nil, fmt.Errorf("redis limiter: %w", err)
			}
			return lim, func() { _ = client.Close() }, nil
		}
		logger.Warn("redis unreachable, rate limiting per process", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
	}
	lim, err := ratelimit.NewMemory(rl)
	if err != nil {
		return nil, nil, fmt.Errorf("memory limiter: %w", err)
	}
	return lim, nil, nil
}

// NewReminder builds the reward-reminder sweep.
func NewReminder(cfg config.Config, st *Stores, n *Notifications, logger *zap.Logger, m *metrics.Metrics) *scheduler.Reminder {
	return scheduler.NewReminder(st.Customers, n.Dispatcher, n.Templates, n.Audience, scheduler.Config{
		Interval: cfg.ReminderInterval,
		Cooldown: cfg.ReminderCooldown,
	}, logger, m)
}
