package importer

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"mushroom-dashboard/internal/domain"
	salesvc "mushroom-dashboard/internal/service/sale"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleWriter stores historical sales and rebuilds loyalty counters afterwards.
type SaleWriter interface {
	RecordHistorical(ctx context.Context, in salesvc.RecordInput, paymentStatus string) (*domain.Sale, error)
	Reconcile(ctx context.Context, rawKey string) (*domain.Customer, error)
}

// RowError describes a rejected CSV row. Line is 1-based and counts the header.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// Report summarizes an import run. Duplicates counts rows whose sale was
// already stored by an earlier import.
type Report struct {
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Skipped    []RowError `json:"skipped,omitempty"`
	Reconciled []string   `json:"reconciled"`
}

// CSVImporter reads a sales ledger export with the columns
// date,customer_name,contact_number,product_type,quantity,unit,price_per_unit,payment_type,payment_status
// and replays it without touching the ledger; every customer seen is reconciled at the end.
// Order ids are derived from row content, so importing the same file twice stores each sale once.
type CSVImporter struct {
	reader *csv.Reader
	sales  SaleWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, sales SaleWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // spreadsheet exports often drop trailing empty cells
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		sales:  sales,
		logger: logger.Named("importer"),
	}
}

// Run imports every valid row. Invalid rows are skipped and reported; any other
// error aborts the import.
func (i *CSVImporter) Run(ctx context.Context) (*Report, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"date", "contact_number", "product_type", "quantity", "price_per_unit"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	report := &Report{}
	touched := map[string]struct{}{}
	seen := map[string]int{}
	line := 1
	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		in, status, err := parseRow(record, index)
		if err == nil {
			fp := fingerprint(in, status)
			seen[fp]++
			in.OrderID = importOrderID(fp, seen[fp])

			var sale *domain.Sale
			sale, err = i.sales.RecordHistorical(ctx, in, status)
			switch {
			case err == nil:
				report.Imported++
				touched[sale.CustomerKey] = struct{}{}
				continue
			case errors.Is(err, domain.ErrAlreadyExists):
				report.Duplicates++
				if sale != nil {
					touched[sale.CustomerKey] = struct{}{}
				}
				continue
			}
		}
		if !errors.Is(err, domain.ErrInvalidInput) {
			return report, fmt.Errorf("line %d: %w", line, err)
		}
		i.logger.Warn("row skipped", zap.Int("line", line), zap.Error(err))
		report.Skipped = append(report.Skipped, RowError{Line: line, Err: err.Error()})
	}

	keys := make([]string, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := i.sales.Reconcile(ctx, key); err != nil {
			return report, fmt.Errorf("reconcile %s: %w", key, err)
		}
		report.Reconciled = append(report.Reconciled, key)
	}

	i.logger.Info("import finished",
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("reconciled", len(report.Reconciled)),
	)
	return report, nil
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", time.RFC3339}

func parseRow(record []string, index map[string]int) (salesvc.RecordInput, string, error) {
	invalid := func(format string, args ...any) (salesvc.RecordInput, string, error) {
		return salesvc.RecordInput{}, "", fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
	}

	rawDate := pick(record, index, "date")
	var date time.Time
	var parsed bool
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, rawDate); err == nil {
			date, parsed = t, true
			break
		}
	}
	if !parsed {
		return invalid("unrecognised date %q", rawDate)
	}

	qty, err := strconv.Atoi(pick(record, index, "quantity"))
	if err != nil {
		return invalid("quantity %q is not a whole number", pick(record, index, "quantity"))
	}
	price, err := decimal.NewFromString(pick(record, index, "price_per_unit"))
	if err != nil {
		return invalid("price_per_unit %q is not a number", pick(record, index, "price_per_unit"))
	}

	in := salesvc.RecordInput{
		ProductType:   canonical(pick(record, index, "product_type")),
		Quantity:      qty,
		Unit:          pick(record, index, "unit"),
		PricePerUnit:  price,
		CustomerName:  pick(record, index, "customer_name"),
		ContactNumber: pick(record, index, "contact_number"),
		PaymentType:   canonical(pick(record, index, "payment_type")),
		Date:          &date,
	}
	if in.CustomerName == "" {
		in.CustomerName = "Customer"
	}
	if strings.EqualFold(in.PaymentType, "gpay") {
		in.PaymentType = domain.PaymentGPay
	}
	return in, canonical(pick(record, index, "payment_status")), nil
}

// fingerprint identifies a row by the fields that make up a sale.
func fingerprint(in salesvc.RecordInput, status string) string {
	key, err := domain.NormalizeKey(in.ContactNumber)
	if err != nil {
		key = in.ContactNumber
	}
	return strings.Join([]string{
		in.Date.UTC().Format(time.RFC3339),
		key,
		in.ProductType,
		strconv.Itoa(in.Quantity),
		in.PricePerUnit.String(),
		in.PaymentType,
		status,
	}, "|")
}

// importOrderID derives a stable order id from a row fingerprint and its
// occurrence within the file, so identical rows in one file stay distinct.
func importOrderID(fp string, occurrence int) string {
	sum := sha256.Sum256([]byte(fp + "#" + strconv.Itoa(occurrence)))
	return salesvc.OrderIDPrefix + "IMP-" + strings.ToUpper(hex.EncodeToString(sum[:10]))
}

// canonical turns "mushroom" or "CASH" into "Mushroom" and "Cash".
func canonical(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
