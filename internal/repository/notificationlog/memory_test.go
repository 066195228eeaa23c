package notificationlog

import (
	"context"
	"errors"
	"testing"

	"mushroom-dashboard/internal/domain"
)

func TestMemory_ListNewestFirst(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	for _, r := range []string{"a", "b", "c"} {
		if _, err := repo.Create(ctx, domain.NotificationLog{Channel: domain.ChannelSMS, Recipient: r, Status: domain.NotificationSent}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	logs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].Recipient != "c" || logs[1].Recipient != "b" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if logs[0].ID == "" || logs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", logs[0])
	}
}

func TestMemory_CancelledContextIsStorageUnavailable(t *testing.T) {
	repo := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.Create(ctx, domain.NotificationLog{Channel: domain.ChannelSMS, Recipient: "a"}); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if _, err := repo.List(ctx, 10); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
}
