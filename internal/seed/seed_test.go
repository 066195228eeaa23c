package seed

import (
	"context"
	"testing"

	"mushroom-dashboard/internal/domain"
	custrepo "mushroom-dashboard/internal/repository/customer"
	salerepo "mushroom-dashboard/internal/repository/sale"
	"mushroom-dashboard/internal/service/loyalty"
	salesvc "mushroom-dashboard/internal/service/sale"
)

func TestApply_IsIdempotent(t *testing.T) {
	customers := custrepo.NewMemory()
	ledger := loyalty.New(customers, nil, nil)
	sales := salesvc.New(salerepo.NewMemory(), customers, ledger, domain.DefaultLoyaltyPolicy(), nil, nil)
	ctx := context.Background()

	n, err := Apply(ctx, customers, sales, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 sales, got %d", n)
	}

	devi, err := customers.Get(ctx, "7010322499")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if devi.CycleCount != 1 || devi.FreeRewardsAvailable != 2 {
		t.Fatalf("unexpected counters %+v", devi)
	}

	n, err = Apply(ctx, customers, sales, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no new sales, got %d", n)
	}
}
