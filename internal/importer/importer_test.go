package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mushroom-dashboard/internal/domain"
	custrepo "mushroom-dashboard/internal/repository/customer"
	salerepo "mushroom-dashboard/internal/repository/sale"
	"mushroom-dashboard/internal/service/loyalty"
	salesvc "mushroom-dashboard/internal/service/sale"
)

const header = "date,customer_name,contact_number,product_type,quantity,unit,price_per_unit,payment_type,payment_status\n"

func newService() (*salesvc.Service, *custrepo.Memory) {
	customers := custrepo.NewMemory()
	ledger := loyalty.New(customers, nil, nil)
	return salesvc.New(salerepo.NewMemory(), customers, ledger, domain.DefaultLoyaltyPolicy(), nil, nil), customers
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := header +
		"2025-11-02,Partha,+91 95005 91897,mushroom,7,pockets,60,cash,paid\n" +
		"05/11/2025,Partha,9500591897,Mushroom,8,pockets,55,GPay,\n" +
		"2025-11-06,Partha,9500591897,Mushroom,4,pockets,40,Cash,Paid\n" +
		"2025-11-07,Kumar,9159659711,Seeds,2,kg,120,Credit,Unpaid\n" +
		",,,,,,,,\n" +
		"not-a-date,Kumar,9159659711,Mushroom,2,pockets,60,Cash,Paid\n" +
		"2025-11-08,Ravi,12345,Mushroom,2,pockets,60,Cash,Paid\n"

	svc, customers := newService()
	report, err := NewCSVImporter(strings.NewReader(csvData), svc, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if report.Imported != 4 {
		t.Fatalf("expected 4 rows imported, got %d", report.Imported)
	}
	if len(report.Skipped) != 2 || report.Skipped[0].Line != 7 || report.Skipped[1].Line != 8 {
		t.Fatalf("unexpected skipped rows: %+v", report.Skipped)
	}
	if strings.Join(report.Reconciled, ",") != "9159659711,9500591897" {
		t.Fatalf("unexpected reconciled keys: %v", report.Reconciled)
	}

	partha, err := customers.Get(context.Background(), "9500591897")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	// 7 + 8 qualify; the 40-rupee sale is below the loyalty price.
	if partha.LifetimeUnitsPurchased != 15 || partha.CycleCount != 5 || partha.FreeRewardsAvailable != 1 {
		t.Fatalf("unexpected counters: %+v", partha)
	}
	if partha.TotalOrders != 3 {
		t.Fatalf("expected 3 orders, got %d", partha.TotalOrders)
	}

	kadan, err := svc.Kadan(context.Background())
	if err != nil {
		t.Fatalf("kadan: %v", err)
	}
	if len(kadan) != 1 || kadan[0].CustomerKey != "9159659711" {
		t.Fatalf("unexpected kadan: %+v", kadan)
	}
}

func TestCSVImporter_ReimportIsIdempotent(t *testing.T) {
	csvData := header +
		"2025-11-02,Partha,9500591897,Mushroom,7,pockets,60,Cash,Paid\n" +
		"2025-11-02,Partha,9500591897,Mushroom,7,pockets,60,Cash,Paid\n" +
		"2025-11-03,Partha,9500591897,Mushroom,8,pockets,60,Cash,Paid\n"
	ctx := context.Background()
	svc, customers := newService()

	first, err := NewCSVImporter(strings.NewReader(csvData), svc, nil).Run(ctx)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	// Identical rows within one file are separate sales.
	if first.Imported != 3 || first.Duplicates != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := NewCSVImporter(strings.NewReader(csvData), svc, nil).Run(ctx)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Imported != 0 || second.Duplicates != 3 {
		t.Fatalf("unexpected second report: %+v", second)
	}

	partha, err := customers.Get(ctx, "9500591897")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if partha.LifetimeUnitsPurchased != 22 || partha.CycleCount != 2 || partha.FreeRewardsAvailable != 2 {
		t.Fatalf("counters changed on re-import: %+v", partha)
	}
	if partha.TotalOrders != 3 {
		t.Fatalf("expected 3 orders, got %d", partha.TotalOrders)
	}

	sales, err := svc.List(ctx, salerepo.ListFilter{CustomerKey: "9500591897"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("expected 3 stored sales, got %d", len(sales))
	}
	for _, sale := range sales {
		if !strings.HasPrefix(sale.OrderID, salesvc.OrderIDPrefix+"IMP-") {
			t.Fatalf("unexpected order id %q", sale.OrderID)
		}
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	svc, _ := newService()
	_, err := NewCSVImporter(strings.NewReader("date,contact_number\n2025-01-01,9500591897\n"), svc, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "product_type") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) RecordHistorical(context.Context, salesvc.RecordInput, string) (*domain.Sale, error) {
	return nil, domain.ErrStorageUnavailable
}

func (failingWriter) Reconcile(context.Context, string) (*domain.Customer, error) {
	return nil, nil
}

func TestCSVImporter_StorageErrorAborts(t *testing.T) {
	csvData := header + "2025-11-02,Partha,9500591897,Mushroom,7,pockets,60,Cash,Paid\n"
	report, err := NewCSVImporter(strings.NewReader(csvData), failingWriter{}, nil).Run(context.Background())
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if report.Imported != 0 {
		t.Fatalf("expected nothing imported, got %d", report.Imported)
	}
}
