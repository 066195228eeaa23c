package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/ratelimit"
	logrepo "mushroom-dashboard/internal/repository/notificationlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block bool
}

func (f *fakeSender) Send(ctx context.Context, to string, msg Message) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+msg.Title)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type denyLimiter struct{ err error }

func (d denyLimiter) Allow(context.Context, string) (bool, error) {
	return false, d.err
}

func TestDispatch_RecordsEveryOutcome(t *testing.T) {
	wa := &fakeSender{}
	sms := &fakeSender{err: errors.New("carrier rejected")}
	logs := logrepo.NewMemory()
	d := NewDispatcher(map[domain.Channel]Sender{
		domain.ChannelWhatsApp: wa,
		domain.ChannelSMS:      sms,
	}, DispatcherConfig{Logs: logs})

	results := d.Dispatch(context.Background(), Message{Title: "Hi", Body: "there"},
		Target{Channel: domain.ChannelWhatsApp, Address: "9500591897"},
		Target{Channel: domain.ChannelSMS, Address: "9500591897"},
		Target{Channel: domain.ChannelEmail, Address: "owner@example.com"},
		Target{Channel: domain.ChannelWhatsApp, Address: ""},
	)

	require.Len(t, results, 4)
	assert.Equal(t, domain.NotificationSent, results[0].Status)
	assert.Equal(t, domain.NotificationFailed, results[1].Status)
	assert.Equal(t, "carrier rejected", results[1].Error)
	assert.Equal(t, domain.NotificationSkipped, results[2].Status)
	assert.Equal(t, domain.NotificationSkipped, results[3].Status)
	assert.Equal(t, 1, wa.count())

	stored, err := logs.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	for _, r := range results {
		assert.NotEmpty(t, r.ID)
	}
}

func TestDispatch_RateLimited(t *testing.T) {
	wa := &fakeSender{}
	lim, err := ratelimit.NewMemory(ratelimit.Config{PerMinute: 1, Burst: 1})
	require.NoError(t, err)
	d := NewDispatcher(map[domain.Channel]Sender{domain.ChannelWhatsApp: wa}, DispatcherConfig{Limiter: lim})

	target := Target{Channel: domain.ChannelWhatsApp, Address: "9500591897"}
	first := d.Dispatch(context.Background(), Message{Body: "one"}, target)
	second := d.Dispatch(context.Background(), Message{Body: "two"}, target)

	assert.Equal(t, domain.NotificationSent, first[0].Status)
	assert.Equal(t, domain.NotificationRateLimited, second[0].Status)
	assert.Equal(t, 1, wa.count())
}

func TestDispatch_LimiterErrorFailsOpen(t *testing.T) {
	wa := &fakeSender{}
	d := NewDispatcher(map[domain.Channel]Sender{domain.ChannelWhatsApp: wa},
		DispatcherConfig{Limiter: denyLimiter{err: errors.New("redis down")}})

	res := d.Dispatch(context.Background(), Message{Body: "x"}, Target{Channel: domain.ChannelWhatsApp, Address: "9500591897"})
	assert.Equal(t, domain.NotificationSent, res[0].Status)
}

func TestDispatch_SendTimeout(t *testing.T) {
	slow := &fakeSender{block: true}
	d := NewDispatcher(map[domain.Channel]Sender{domain.ChannelVoice: slow}, DispatcherConfig{Timeout: 20 * time.Millisecond})

	res := d.Dispatch(context.Background(), Message{Body: "x"}, Target{Channel: domain.ChannelVoice, Address: "9500591897"})
	assert.Equal(t, domain.NotificationFailed, res[0].Status)
	assert.Contains(t, res[0].Error, "timed out")
}

func TestGo_OutlivesRequestContext(t *testing.T) {
	wa := &fakeSender{}
	d := NewDispatcher(map[domain.Channel]Sender{domain.ChannelWhatsApp: wa}, DispatcherConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	d.Go(ctx, Message{Body: "bill"}, Target{Channel: domain.ChannelWhatsApp, Address: "9500591897"})
	cancel()
	d.Wait()

	assert.Equal(t, 1, wa.count())
}

func TestAudience(t *testing.T) {
	a := Audience{AdminPhones: []string{"9159659711"}, AdminEmails: []string{"owner@example.com"}, VoiceReminderThreshold: 3}

	admins := a.Admins()
	require.Len(t, admins, 2)
	assert.Equal(t, domain.ChannelWhatsApp, admins[0].Channel)
	assert.Equal(t, domain.ChannelEmail, admins[1].Channel)

	small := a.Reminder(domain.Customer{Key: "9500591897", FreeRewardsAvailable: 1})
	require.Len(t, small, 1)
	assert.Equal(t, domain.ChannelWhatsApp, small[0].Channel)

	large := a.Reminder(domain.Customer{Key: "9500591897", FreeRewardsAvailable: 3})
	require.Len(t, large, 2)
	assert.Equal(t, domain.ChannelVoice, large[1].Channel)

	fallback := a.ReminderFallback(domain.Customer{Key: "9500591897", FreeRewardsAvailable: 1})
	require.Len(t, fallback, 1)
	assert.Equal(t, Target{Channel: domain.ChannelSMS, Address: "9500591897"}, fallback[0])
}
