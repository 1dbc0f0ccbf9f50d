package ledger

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/fx"
	"github.com/tulima-labs/finance-etl/internal/model"
)

func day(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date literal %q: %v", s, err)
	}
	return d
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestBuildAppliesSignAndAccountConventions(t *testing.T) {
	sales := []model.Sale{
		{Date: day(t, "2025-12-01"), Entity: "TLM", InvoiceID: "INV-0001", AccountCode: "40000001",
			Currency: "USD", Amount: dec(t, "1000.00"), Description: "Honey sale"},
	}
	expenses := []model.Expense{
		{Date: day(t, "2025-12-05"), Entity: "TLM", BillID: "BILL-0001", AccountCode: "62000001",
			Currency: "EUR", Amount: dec(t, "100.00"), Description: "Freight"},
	}
	payroll := []model.PayrollEntry{
		{Month: "2025-12", Entity: "TLM", EmployeeID: "E-001", Currency: "USD",
			Gross: dec(t, "1000.00"), Deductions: dec(t, "200.00"), Net: dec(t, "800.00")},
	}
	inventory := []model.InventoryMovement{
		{Date: day(t, "2025-12-03"), Entity: "TLM", SKU: "HONEY-DRUM", MovementType: "receipt",
			Qty: dec(t, "10"), UnitCost: dec(t, "12.50"), Currency: "USD"},
		{Date: day(t, "2025-12-04"), Entity: "TLM", SKU: "HONEY-DRUM", MovementType: "issue",
			Qty: dec(t, "4"), UnitCost: dec(t, "12.50"), Currency: "USD"},
	}
	rates := fx.Table{
		{Date: day(t, "2025-12-05"), Currency: "EUR"}: dec(t, "1.10"),
	}

	entries, err := Build(sales, expenses, payroll, inventory, rates, "USD")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.TxnID] = e
	}

	sale := byID["TLM|sales|INV-0001"]
	if !sale.Amount.Equal(dec(t, "1000.00")) || !sale.Rate.Equal(dec(t, "1")) || !sale.AmountBase.Equal(dec(t, "1000.00")) {
		t.Errorf("sale entry: %+v", sale)
	}

	expense := byID["TLM|expenses|BILL-0001"]
	if !expense.Amount.Equal(dec(t, "-100.00")) {
		t.Errorf("expense amount must be negated, got %s", expense.Amount)
	}
	if !expense.AmountBase.Equal(dec(t, "-110.00")) {
		t.Errorf("expense amount_base = %s, want -110.00", expense.AmountBase)
	}

	pay := byID["TLM|payroll|E-001_2025-12"]
	if !pay.Amount.Equal(dec(t, "-800.00")) {
		t.Errorf("payroll amount must be negated net, got %s", pay.Amount)
	}
	if pay.Date != day(t, "2025-12-31") {
		t.Errorf("payroll date must be month end, got %s", pay.Date)
	}
	if pay.AccountCode != "61000001" || pay.Description != "Payroll net" {
		t.Errorf("payroll entry: %+v", pay)
	}

	receipt := byID["TLM|inventory|HONEY-DRUM_2025-12-03"]
	if !receipt.Amount.Equal(dec(t, "125.00")) || receipt.AccountCode != "10000001" {
		t.Errorf("receipt entry: %+v", receipt)
	}
	issue := byID["TLM|inventory|HONEY-DRUM_2025-12-04"]
	if !issue.Amount.Equal(dec(t, "-50.00")) || issue.AccountCode != "50000001" {
		t.Errorf("issue entry: %+v", issue)
	}
}

func TestBuildOrdersDeterministically(t *testing.T) {
	sales := []model.Sale{
		{Date: day(t, "2025-12-02"), Entity: "UPE", InvoiceID: "INV-0002", AccountCode: "40000001", Currency: "USD", Amount: dec(t, "1")},
		{Date: day(t, "2025-12-01"), Entity: "UPE", InvoiceID: "INV-0001", AccountCode: "40000001", Currency: "USD", Amount: dec(t, "1")},
	}
	expenses := []model.Expense{
		{Date: day(t, "2025-12-01"), Entity: "TLM", BillID: "BILL-0001", AccountCode: "62000001", Currency: "USD", Amount: dec(t, "1")},
	}

	entries, err := Build(sales, expenses, nil, nil, fx.Table{}, "USD")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		"TLM|expenses|BILL-0001",
		"UPE|sales|INV-0001",
		"UPE|sales|INV-0002",
	}
	for i, id := range want {
		if entries[i].TxnID != id {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].TxnID, id)
		}
	}
}

func TestBuildCollectsAllMissingRates(t *testing.T) {
	sales := []model.Sale{
		{Date: day(t, "2025-12-01"), Entity: "TLM", InvoiceID: "INV-0001", AccountCode: "40000001", Currency: "TZS", Amount: dec(t, "1000")},
		{Date: day(t, "2025-12-01"), Entity: "TLM", InvoiceID: "INV-0002", AccountCode: "40000001", Currency: "TZS", Amount: dec(t, "2000")},
		{Date: day(t, "2025-12-02"), Entity: "TLM", InvoiceID: "INV-0003", AccountCode: "40000001", Currency: "EUR", Amount: dec(t, "50")},
	}

	_, err := Build(sales, nil, nil, nil, fx.Table{}, "USD")

	var missing *fx.MissingRateError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *fx.MissingRateError, got %v", err)
	}
	if len(missing.Pairs) != 2 {
		t.Fatalf("distinct pairs only: want 2, got %v", missing.Pairs)
	}
	want := []fx.Key{
		{Date: day(t, "2025-12-01"), Currency: "TZS"},
		{Date: day(t, "2025-12-02"), Currency: "EUR"},
	}
	for i, k := range want {
		if missing.Pairs[i] != k {
			t.Errorf("pair %d = %v, want %v", i, missing.Pairs[i], k)
		}
	}
}

func TestInventorySameDayMovementsShareDocumentID(t *testing.T) {
	inventory := []model.InventoryMovement{
		{Date: day(t, "2025-12-03"), Entity: "TLM", SKU: "HONEY-DRUM", MovementType: "receipt",
			Qty: dec(t, "10"), UnitCost: dec(t, "12.50"), Currency: "USD"},
		{Date: day(t, "2025-12-03"), Entity: "TLM", SKU: "HONEY-DRUM", MovementType: "issue",
			Qty: dec(t, "4"), UnitCost: dec(t, "12.50"), Currency: "USD"},
	}

	entries, err := Build(nil, nil, nil, inventory, fx.Table{}, "USD")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both movements as entries, got %d", len(entries))
	}
	// Same SKU on the same day collides on document_id and therefore txn_id.
	// Both entries survive with their own amounts and accounts.
	if entries[0].TxnID != entries[1].TxnID {
		t.Errorf("txn ids differ: %s vs %s", entries[0].TxnID, entries[1].TxnID)
	}
	if entries[0].AccountCode == entries[1].AccountCode {
		t.Error("receipt and issue must post to different accounts")
	}
}

func TestConvertRoundsHalfAwayFromZero(t *testing.T) {
	entries := []Entry{
		{Date: day(t, "2025-12-01"), Currency: "TZS", Amount: dec(t, "1.25")},
		{Date: day(t, "2025-12-01"), Currency: "TZS", Amount: dec(t, "-1.25")},
	}
	rates := fx.Table{
		{Date: day(t, "2025-12-01"), Currency: "TZS"}: dec(t, "0.1"),
	}

	if err := Convert(entries, rates, "USD"); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got := entries[0].AmountBase.String(); got != "0.13" {
		t.Errorf("0.125 rounds to %s, want 0.13", got)
	}
	if got := entries[1].AmountBase.String(); got != "-0.13" {
		t.Errorf("-0.125 rounds to %s, want -0.13", got)
	}
}

func TestMonthEnd(t *testing.T) {
	cases := []struct {
		month string
		want  string
	}{
		{"2025-12", "2025-12-31"},
		{"2025-11", "2025-11-30"},
		{"2024-02", "2024-02-29"},
		{"2025-02", "2025-02-28"},
	}
	for _, tc := range cases {
		if got := MonthEnd(tc.month).String(); got != tc.want {
			t.Errorf("MonthEnd(%s) = %s, want %s", tc.month, got, tc.want)
		}
	}
	if MonthEnd("december") != (civil.Date{}) {
		t.Error("unparseable month must yield the zero date")
	}
}

func TestMonthOf(t *testing.T) {
	if got := MonthOf(day(t, "2025-01-05")); got != "2025-01" {
		t.Errorf("MonthOf = %s, want 2025-01", got)
	}
}
