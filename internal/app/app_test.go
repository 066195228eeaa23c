package app

import (
	"context"
	"testing"

	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("DB_DSN", "memory")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := memoryConfig(t)
	st, err := OpenStores(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()
	assert.Nil(t, st.Pool)

	svc := NewServices(st, cfg, zap.NewNop(), nil)
	res, err := svc.Ledger.ApplyPurchase(context.Background(), "9500591897", 12)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RewardsEarnedThisCall)
}

func TestNewNotifications_OnlyConfiguredChannels(t *testing.T) {
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("RESEND_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")
	cfg := memoryConfig(t)
	st, err := OpenStores(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	n, err := NewNotifications(context.Background(), cfg, st.Logs, zap.NewNop(), nil)
	require.NoError(t, err)
	defer n.Close()

	assert.Equal(t, []domain.Channel{domain.ChannelWhatsApp}, n.Dispatcher.Channels())
	assert.NotNil(t, NewReminder(cfg, st, n, zap.NewNop(), nil))
}

func TestNewNotifications_RejectsPartialTwilio(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	cfg := memoryConfig(t)
	_, err := NewNotifications(context.Background(), cfg, nil, zap.NewNop(), nil)
	require.Error(t, err)
}
