package kpi

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/model"
)

var accounts = []model.Account{
	{Code: "40000001", Name: "Sales revenue", Type: "Revenue"},
	{Code: "50000001", Name: "Cost of goods sold", Type: "COGS"},
	{Code: "61000001", Name: "Payroll expense", Type: "Expense"},
	{Code: "10000001", Name: "Inventory", Type: "Asset"},
}

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

func entry(t *testing.T, entity, date, code, amountBase string) ledger.Entry {
	t.Helper()
	return ledger.Entry{
		Entity:      entity,
		Date:        day(t, date),
		AccountCode: code,
		AmountBase:  dec(t, amountBase),
	}
}

func TestMonthlyDerivesProfits(t *testing.T) {
	entries := []ledger.Entry{
		entry(t, "TLM", "2025-12-01", "40000001", "1000.00"),
		entry(t, "TLM", "2025-12-02", "40000001", "500.00"),
		entry(t, "TLM", "2025-12-03", "50000001", "-400.00"),
		entry(t, "TLM", "2025-12-31", "61000001", "-300.00"),
	}

	rows := Monthly(entries, accounts)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Entity != "TLM" || r.Month != "2025-12" {
		t.Fatalf("row key: %+v", r)
	}
	if !r.Amount("Revenue").Equal(dec(t, "1500.00")) {
		t.Errorf("Revenue = %s", r.Amount("Revenue"))
	}
	if !r.GrossProfit.Equal(dec(t, "1100.00")) {
		t.Errorf("GrossProfit = %s, want 1100.00", r.GrossProfit)
	}
	if !r.OperatingProfit.Equal(dec(t, "800.00")) {
		t.Errorf("OperatingProfit = %s, want 800.00", r.OperatingProfit)
	}
}

func TestMonthlyZeroFillsCoreColumns(t *testing.T) {
	entries := []ledger.Entry{
		entry(t, "UPE", "2025-12-01", "40000001", "200.00"),
	}

	rows := Monthly(entries, accounts)
	r := rows[0]
	if !r.Amount("COGS").IsZero() || !r.Amount("Expense").IsZero() {
		t.Errorf("core columns must be zero-filled: %+v", r.Amounts)
	}
	if !r.GrossProfit.Equal(dec(t, "200.00")) || !r.OperatingProfit.Equal(dec(t, "200.00")) {
		t.Errorf("profits: gross=%s operating=%s", r.GrossProfit, r.OperatingProfit)
	}
}

func TestMonthlyBucketsUnknownAccounts(t *testing.T) {
	entries := []ledger.Entry{
		entry(t, "TLM", "2025-12-01", "40000001", "100.00"),
		entry(t, "TLM", "2025-12-01", "99999999", "42.00"),
	}

	rows := Monthly(entries, accounts)
	r := rows[0]
	if !r.Amount(Unclassified).Equal(dec(t, "42.00")) {
		t.Errorf("unknown account codes must land in %s, got %+v", Unclassified, r.Amounts)
	}
	if !r.OperatingProfit.Equal(dec(t, "100.00")) {
		t.Errorf("unclassified amounts must not enter profits, got %s", r.OperatingProfit)
	}
}

func TestMonthlyGroupsAndSorts(t *testing.T) {
	entries := []ledger.Entry{
		entry(t, "UPE", "2026-01-05", "40000001", "10.00"),
		entry(t, "TLM", "2025-12-01", "40000001", "20.00"),
		entry(t, "TLM", "2026-01-02", "40000001", "30.00"),
	}

	rows := Monthly(entries, accounts)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantKeys := [][2]string{{"TLM", "2025-12"}, {"TLM", "2026-01"}, {"UPE", "2026-01"}}
	for i, w := range wantKeys {
		if rows[i].Entity != w[0] || rows[i].Month != w[1] {
			t.Errorf("rows[%d] = (%s, %s), want %v", i, rows[i].Entity, rows[i].Month, w)
		}
	}
}

func TestClassificationsAlwaysIncludeCore(t *testing.T) {
	got := Classifications(nil)
	want := []string{"COGS", "Expense", "Revenue"}
	if len(got) != len(want) {
		t.Fatalf("Classifications(nil) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Classifications(nil) = %v, want %v", got, want)
		}
	}
}
