package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CycleSize is the number of qualifying units that earn one free unit.
const CycleSize = 10

// MaxCounter bounds a single purchase and the reward pool.
// It matches the INTEGER columns of the customers table.
const MaxCounter = math.MaxInt32

// KeyLength is the number of trailing phone digits that identify a customer.
const KeyLength = 10

// RewardStatus is derived from the reward pool of a customer.
type RewardStatus string

const (
	RewardStatusNone   RewardStatus = "NONE"
	RewardStatusEarned RewardStatus = "EARNED"
)

// Customer is one loyalty-program participant keyed by normalized phone number.
type Customer struct {
	Key                    string     `json:"customerKey"`
	Name                   string     `json:"name"`
	CycleCount             int        `json:"cycleCount"`
	FreeRewardsAvailable   int        `json:"freeRewardsAvailable"`
	RewardsRedeemed        int        `json:"rewardsRedeemed"`
	RewardsClaimedTotal    int        `json:"rewardsClaimedTotal"`
	LifetimeUnitsPurchased int64      `json:"lifetimeUnitsPurchased"`
	TotalOrders            int        `json:"totalOrders"`
	Version                int64      `json:"version"`
	LastNotifiedAt         *time.Time `json:"lastNotifiedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// RewardStatus reports whether the customer holds unclaimed rewards.
func (c Customer) RewardStatus() RewardStatus {
	if c.FreeRewardsAvailable > 0 {
		return RewardStatusEarned
	}
	return RewardStatusNone
}

// UnitsToNextReward is how many more qualifying units complete the current cycle.
func (c Customer) UnitsToNextReward() int {
	return CycleSize - c.CycleCount
}

// NormalizeKey reduces a phone number to its last ten digits.
func NormalizeKey(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < KeyLength {
		return "", fmt.Errorf("%w: contact number %q needs at least %d digits", ErrInvalidInput, raw, KeyLength)
	}
	return digits[len(digits)-KeyLength:], nil
}

// LoyaltyResult is returned by a purchase applied to the ledger.
type LoyaltyResult struct {
	CustomerKey           string `json:"customerKey"`
	NewCycleCount         int    `json:"newCycleCount"`
	RewardsEarnedThisCall int    `json:"rewardsEarnedThisCall"`
	TotalAvailableRewards int    `json:"totalAvailableRewards"`
	LifetimeUnits         int64  `json:"lifetimeUnitsPurchased"`
}

// ClaimResult is returned by a reward claim.
type ClaimResult struct {
	CustomerKey        string `json:"customerKey"`
	Claimed            bool   `json:"claimed"`
	RewardsClaimed     int    `json:"rewardsClaimed"`
	RemainingAvailable int    `json:"remainingAvailable"`
}
