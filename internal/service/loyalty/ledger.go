// Package loyalty implements the carry-forward loyalty ledger: every CycleSize
// qualifying units earn one free unit and the remainder carries into the next cycle.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/metrics"
	custrepo "mushroom-dashboard/internal/repository/customer"

	"go.uber.org/zap"
)

// Operation names used in logs and metrics.
const (
	OpApplyPurchase = "apply_purchase"
	OpClaimReward   = "claim_reward"
	OpResetCycle    = "reset_cycle"
	OpWipeLoyalty   = "wipe_loyalty"
	OpReconcile     = "reconcile"
)

type customerStore interface {
	Get(ctx context.Context, key string) (*domain.Customer, error)
	Upsert(ctx context.Context, key string, fn custrepo.Mutator) (*domain.Customer, error)
	Update(ctx context.Context, key string, fn custrepo.Mutator) (*domain.Customer, error)
}

// Ledger owns every mutation of the loyalty counters. Each operation is a single
// atomic read-modify-write through the store and is never retried internally.
type Ledger struct {
	customers customerStore
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a Ledger. logger and m may be nil.
func New(customers customerStore, logger *zap.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{customers: customers, logger: logger.Named("ledger"), metrics: m}
}

// Accrue folds units into a cycle balance and returns the new balance and the rewards earned.
func Accrue(cycle int, units int64) (newCycle int, earned int) {
	total := int64(cycle) + units
	return int(total % domain.CycleSize), int(total / domain.CycleSize)
}

// Get returns the customer record for a contact number or key.
func (l *Ledger) Get(ctx context.Context, rawKey string) (*domain.Customer, error) {
	key, err := domain.NormalizeKey(rawKey)
	if err != nil {
		return nil, err
	}
	return l.customers.Get(ctx, key)
}

// ApplyPurchase credits units to the customer's cycle, creating the record on first use.
// A zero purchase changes nothing and reports the current state.
func (l *Ledger) ApplyPurchase(ctx context.Context, rawKey string, units int) (res domain.LoyaltyResult, err error) {
	defer func() { l.record(OpApplyPurchase, res.CustomerKey, err) }()

	key, err := domain.NormalizeKey(rawKey)
	if err != nil {
		return domain.LoyaltyResult{}, err
	}
	if units < 0 {
		return domain.LoyaltyResult{CustomerKey: key}, fmt.Errorf("%w: units must not be negative, got %d", domain.ErrInvalidInput, units)
	}
	if units > domain.MaxCounter {
		return domain.LoyaltyResult{CustomerKey: key}, fmt.Errorf("%w: units must not exceed %d, got %d", domain.ErrInvalidInput, domain.MaxCounter, units)
	}

	if units == 0 {
		c, err := l.customers.Get(ctx, key)
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.LoyaltyResult{CustomerKey: key}, nil
		}
		if err != nil {
			return domain.LoyaltyResult{CustomerKey: key}, err
		}
		return resultOf(c, 0), nil
	}

	var earned int
	c, err := l.customers.Upsert(ctx, key, func(c *domain.Customer) error {
		cycle, e := Accrue(c.CycleCount, int64(units))
		if int64(c.FreeRewardsAvailable)+int64(e) > domain.MaxCounter {
			return fmt.Errorf("%w: reward pool would exceed %d", domain.ErrInvalidInput, domain.MaxCounter)
		}
		if c.LifetimeUnitsPurchased > math.MaxInt64-int64(units) {
			return fmt.Errorf("%w: lifetime units would overflow", domain.ErrInvalidInput)
		}
		c.CycleCount = cycle
		c.FreeRewardsAvailable += e
		c.LifetimeUnitsPurchased += int64(units)
		earned = e
		return nil
	})
	if err != nil {
		return domain.LoyaltyResult{CustomerKey: key}, err
	}

	l.metrics.RewardsEarned(earned)
	if earned > 0 {
		l.logger.Info("rewards earned",
			zap.String("customer_key", key),
			zap.Int("units", units),
			zap.Int("earned", earned),
			zap.Int("available", c.FreeRewardsAvailable),
		)
	}
	return resultOf(c, earned), nil
}

// ClaimReward hands out the whole reward pool and resets it to zero.
// An empty pool fails with domain.ErrNoRewardsAvailable and writes nothing.
func (l *Ledger) ClaimReward(ctx context.Context, rawKey string) (res domain.ClaimResult, err error) {
	defer func() { l.record(OpClaimReward, res.CustomerKey, err) }()

	key, err := domain.NormalizeKey(rawKey)
	if err != nil {
		return domain.ClaimResult{}, err
	}

	var claimed, remaining int
	_, err = l.customers.Update(ctx, key, func(c *domain.Customer) error {
		if c.FreeRewardsAvailable <= c.RewardsRedeemed {
			remaining = c.FreeRewardsAvailable
			return domain.ErrNoRewardsAvailable
		}
		claimed = c.FreeRewardsAvailable - c.RewardsRedeemed
		c.FreeRewardsAvailable = 0
		c.RewardsRedeemed = 0
		c.RewardsClaimedTotal += claimed
		return nil
	})
	if err != nil {
		return domain.ClaimResult{CustomerKey: key, RemainingAvailable: remaining}, err
	}

	l.metrics.RewardsClaimed(claimed)
	return domain.ClaimResult{CustomerKey: key, Claimed: true, RewardsClaimed: claimed}, nil
}

// ResetCycle zeroes the cycle balance only. Used to correct data-entry mistakes.
func (l *Ledger) ResetCycle(ctx context.Context, rawKey string) (*domain.Customer, error) {
	return l.adminUpdate(ctx, OpResetCycle, rawKey, func(c *domain.Customer) error {
		c.CycleCount = 0
		return nil
	})
}

// WipeLoyalty zeroes the cycle balance and the unclaimed reward pool.
// Lifetime units are kept.
func (l *Ledger) WipeLoyalty(ctx context.Context, rawKey string) (*domain.Customer, error) {
	return l.adminUpdate(ctx, OpWipeLoyalty, rawKey, func(c *domain.Customer) error {
		c.CycleCount = 0
		c.FreeRewardsAvailable = 0
		c.RewardsRedeemed = 0
		return nil
	})
}

// ReconcileFromHistory rebuilds the counters from the quantities of every qualifying
// sale on record, overwriting whatever is stored.
func (l *Ledger) ReconcileFromHistory(ctx context.Context, rawKey string, qualifyingSales []int) (*domain.Customer, error) {
	var total int64
	for _, q := range qualifyingSales {
		if q < 0 {
			err := fmt.Errorf("%w: sale quantity must not be negative, got %d", domain.ErrInvalidInput, q)
			l.record(OpReconcile, rawKey, err)
			return nil, err
		}
		if q > domain.MaxCounter {
			err := fmt.Errorf("%w: sale quantity must not exceed %d, got %d", domain.ErrInvalidInput, domain.MaxCounter, q)
			l.record(OpReconcile, rawKey, err)
			return nil, err
		}
		if total > math.MaxInt64-int64(q) {
			err := fmt.Errorf("%w: history total overflows", domain.ErrInvalidInput)
			l.record(OpReconcile, rawKey, err)
			return nil, err
		}
		total += int64(q)
	}
	cycle, free := Accrue(0, total)
	if free > domain.MaxCounter {
		err := fmt.Errorf("%w: history earns more than %d rewards", domain.ErrInvalidInput, domain.MaxCounter)
		l.record(OpReconcile, rawKey, err)
		return nil, err
	}

	c, err := l.adminUpdate(ctx, OpReconcile, rawKey, func(c *domain.Customer) error {
		c.LifetimeUnitsPurchased = total
		c.CycleCount = cycle
		c.FreeRewardsAvailable = free
		c.RewardsRedeemed = 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("customer reconciled",
		zap.String("customer_key", c.Key),
		zap.Int("sales", len(qualifyingSales)),
		zap.Int64("lifetime_units", total),
		zap.Int("cycle_count", cycle),
		zap.Int("free_rewards", free),
	)
	return c, nil
}

func (l *Ledger) adminUpdate(ctx context.Context, op, rawKey string, fn custrepo.Mutator) (c *domain.Customer, err error) {
	key, err := domain.NormalizeKey(rawKey)
	if err != nil {
		l.record(op, rawKey, err)
		return nil, err
	}
	c, err = l.customers.Update(ctx, key, fn)
	l.record(op, key, err)
	return c, err
}

func (l *Ledger) record(op, key string, err error) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput):
		result = metrics.ResultInvalid
	case errors.Is(err, domain.ErrNotFound):
		result = metrics.ResultNotFound
	case errors.Is(err, domain.ErrNoRewardsAvailable):
		result = metrics.ResultNoReward
	case errors.Is(err, domain.ErrStorageUnavailable):
		result = metrics.ResultStorage
		l.logger.Warn(op+" storage unavailable", zap.String("customer_key", key), zap.Error(err))
	default:
		result = metrics.ResultError
		l.logger.Error(op+" failed", zap.String("customer_key", key), zap.Error(err))
	}
	l.metrics.LedgerOp(op, result)
}

func resultOf(c *domain.Customer, earned int) domain.LoyaltyResult {
	return domain.LoyaltyResult{
		CustomerKey:           c.Key,
		NewCycleCount:         c.CycleCount,
		RewardsEarnedThisCall: earned,
		TotalAvailableRewards: c.FreeRewardsAvailable,
		LifetimeUnits:         c.LifetimeUnitsPurchased,
	}
}
