package notify

import (
	"strings"
	"testing"
	"time"

	"mushroom-dashboard/internal/domain"

	"github.com/shopspring/decimal"
)

func TestTemplates_Bill(t *testing.T) {
	tpl := Templates{FarmName: "TJP Mushroom Farming", OrderPhone: "7010322499"}
	msg := tpl.Bill(domain.Sale{
		OrderID:       "TJP-01J",
		CustomerName:  "Partha",
		ProductType:   domain.ProductMushroom,
		Quantity:      3,
		Unit:          "pockets",
		PricePerUnit:  decimal.NewFromInt(60),
		TotalAmount:   decimal.NewFromInt(180),
		PaymentType:   domain.PaymentCredit,
		PaymentStatus: domain.PaymentStatusUnpaid,
		SoldAt:        time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	})
	for _, want := range []string{"Total: Rs.180.00", "Quantity: 3 pockets", "per pocket", "Credit (pending)", "05 Jan 2026", "7010322499"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("bill missing %q:\n%s", want, msg.Body)
		}
	}
	if msg.Title != "TJP MUSHROOM FARMING BILL" {
		t.Fatalf("unexpected title %q", msg.Title)
	}
}

func TestTemplates_RewardEarned(t *testing.T) {
	msg := Templates{}.RewardEarned("", domain.LoyaltyResult{NewCycleCount: 1, RewardsEarnedThisCall: 1, TotalAvailableRewards: 2})
	if !strings.Contains(msg.Body, "Congratulations Customer") || !strings.Contains(msg.Body, "2 free pockets") {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if msg.Speech == "" {
		t.Fatalf("expected speech text for voice calls")
	}
}
