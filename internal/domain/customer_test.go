package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"9500591897":       "9500591897",
		"+91 95005 91897":  "9500591897",
		"091-9500-591-897": "9500591897",
		"(950) 059-1897":   "9500591897",
	}
	for in, want := range cases {
		got, err := NormalizeKey(in)
		if err != nil {
			t.Fatalf("normalize %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("normalize %q: expected %s, got %s", in, want, got)
		}
	}
}

func TestNormalizeKey_TooShort(t *testing.T) {
	if _, err := NormalizeKey("12345"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NormalizeKey(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty key, got %v", err)
	}
}

func TestCustomerRewardStatus(t *testing.T) {
	c := Customer{CycleCount: 4}
	if c.RewardStatus() != RewardStatusNone {
		t.Fatalf("expected NONE, got %s", c.RewardStatus())
	}
	if c.UnitsToNextReward() != 6 {
		t.Fatalf("expected 6 units to go, got %d", c.UnitsToNextReward())
	}
	c.FreeRewardsAvailable = 1
	if c.RewardStatus() != RewardStatusEarned {
		t.Fatalf("expected EARNED, got %s", c.RewardStatus())
	}
}

func TestCustomerNotFoundIsNotFound(t *testing.T) {
	if !errors.Is(ErrCustomerNotFound, ErrNotFound) {
		t.Fatalf("customer not found should match ErrNotFound")
	}
}

func TestLoyaltyPolicy(t *testing.T) {
	p := DefaultLoyaltyPolicy()
	if !p.Qualifies(ProductMushroom, decimal.NewFromInt(50)) {
		t.Fatalf("mushroom at 50 should qualify")
	}
	if p.Qualifies(ProductMushroom, decimal.RequireFromString("49.99")) {
		t.Fatalf("mushroom below 50 should not qualify")
	}
	if p.Qualifies(ProductSeeds, decimal.NewFromInt(200)) {
		t.Fatalf("seeds should not qualify")
	}
}
