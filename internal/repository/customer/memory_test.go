package customer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mushroom-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UpsertCreatesOnFirstUse(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	c, err := repo.Upsert(ctx, "9500591897", func(c *domain.Customer) error {
		c.CycleCount = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "9500591897", c.Key)
	assert.Equal(t, 3, c.CycleCount)
	assert.Equal(t, int64(1), c.Version)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.Get(ctx, "9500591897")
	require.NoError(t, err)
	assert.Equal(t, 3, got.CycleCount)
}

func TestMemory_UpdateRequiresExisting(t *testing.T) {
	repo := NewMemory()
	_, err := repo.Update(context.Background(), "9500591897", func(c *domain.Customer) error { return nil })
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = repo.Get(context.Background(), "9500591897")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestMemory_MutatorErrorLeavesRecordUntouched(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	_, err := repo.Upsert(ctx, "9500591897", func(c *domain.Customer) error {
		c.FreeRewardsAvailable = 2
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, "9500591897", func(c *domain.Customer) error {
		c.FreeRewardsAvailable = 0
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "9500591897")
	require.NoError(t, err)
	assert.Equal(t, 2, got.FreeRewardsAvailable)
	assert.Equal(t, int64(1), got.Version)
}

func TestMemory_ConcurrentUpsertsAreSerialized(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Upsert(ctx, "9500591897", func(c *domain.Customer) error {
				v := c.LifetimeUnitsPurchased
				time.Sleep(time.Microsecond)
				c.LifetimeUnitsPurchased = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "9500591897")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.LifetimeUnitsPurchased)
	assert.Equal(t, int64(50), got.Version)
}

func TestMemory_RegisterKeepsCounters(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	_, err := repo.Upsert(ctx, "9500591897", func(c *domain.Customer) error {
		c.CycleCount = 7
		return nil
	})
	require.NoError(t, err)

	c, err := repo.Register(ctx, "9500591897", "  Partha ")
	require.NoError(t, err)
	assert.Equal(t, "Partha", c.Name)
	assert.Equal(t, 7, c.CycleCount)
	assert.Equal(t, int64(2), c.Version)

	c, err = repo.Register(ctx, "9500591897", "")
	require.NoError(t, err)
	assert.Equal(t, "Partha", c.Name)
	assert.Equal(t, int64(3), c.Version)
}

func TestMemory_ListAndRewardPending(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	seed := []domain.Customer{
		{Key: "1111111111", Name: "Anbu", FreeRewardsAvailable: 1},
		{Key: "2222222222", Name: "Bala", FreeRewardsAvailable: 2, LastNotifiedAt: &old},
		{Key: "3333333333", Name: "Chitra", FreeRewardsAvailable: 1, LastNotifiedAt: &recent},
		{Key: "4444444444", Name: "Divya"},
	}
	for _, s := range seed {
		s := s
		_, err := repo.Upsert(ctx, s.Key, func(c *domain.Customer) error {
			c.Name = s.Name
			c.FreeRewardsAvailable = s.FreeRewardsAvailable
			c.LastNotifiedAt = s.LastNotifiedAt
			return nil
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byName, err := repo.List(ctx, ListFilter{Name: "bal"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "2222222222", byName[0].Key)

	pending, err := repo.ListRewardPending(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "1111111111", pending[0].Key)
	assert.Equal(t, "2222222222", pending[1].Key)
}

func TestMemory_CancelledContextIsStorageUnavailable(t *testing.T) {
	repo := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Upsert(ctx, "9500591897", func(c *domain.Customer) error { return nil })
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = repo.Get(ctx, "9500591897")
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = repo.List(ctx, ListFilter{})
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = repo.Get(context.Background(), "9500591897")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
