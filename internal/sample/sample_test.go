package sample

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

func TestGenerateIsDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	if err := Generate(dirA, "2025-12", 7); err != nil {
		t.Fatal(err)
	}
	if err := Generate(dirB, "2025-12", 7); err != nil {
		t.Fatal(err)
	}

	for _, file := range []string{
		"sales.csv", "expenses.csv", "payroll.csv", "inventory_movements.csv", "fx_rates.csv",
	} {
		a, err := os.ReadFile(filepath.Join(dirA, file))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, file))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between identical seeds", file)
		}
	}
}

func TestGenerateProducesValidData(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir, "2025-12", 42); err != nil {
		t.Fatal(err)
	}

	allowed := []string{"USD", "TZS", "EUR"}
	schemas := map[string]*schema.Schema{
		"sales.csv":               schema.Sales(allowed),
		"expenses.csv":            schema.Expenses(allowed),
		"payroll.csv":             schema.Payroll(allowed),
		"inventory_movements.csv": schema.Inventory(allowed),
		"fx_rates.csv":            schema.FxRates(allowed, "USD"),
	}
	for file, sc := range schemas {
		tbl, err := csvio.ReadTable(filepath.Join(dir, file), sc.Dataset)
		if err != nil {
			t.Fatalf("reading %s: %v", file, err)
		}
		res := sc.Validate(tbl)
		if len(res.Issues) != 0 {
			t.Errorf("%s: synthetic data must validate cleanly, got %v", file, res.Issues)
		}
		if len(res.Clean) != len(tbl.Rows) {
			t.Errorf("%s: %d of %d rows clean", file, len(res.Clean), len(tbl.Rows))
		}
	}
}

func TestGenerateRejectsBadMonth(t *testing.T) {
	if err := Generate(t.TempDir(), "12-2025", 1); err == nil {
		t.Fatal("invalid month must be rejected")
	}
}

func TestWriteChartOfAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart_of_accounts.csv")
	if err := WriteChartOfAccounts(path); err != nil {
		t.Fatal(err)
	}
	tbl, err := csvio.ReadTable(path, "chart_of_accounts")
	if err != nil {
		t.Fatal(err)
	}
	accounts := schema.DecodeAccounts(tbl)
	if len(accounts) != 8 {
		t.Fatalf("expected 8 accounts, got %d", len(accounts))
	}
	types := make(map[string]bool)
	for _, a := range accounts {
		types[a.Type] = true
	}
	for _, want := range []string{"Revenue", "COGS", "Expense", "Asset"} {
		if !types[want] {
			t.Errorf("missing account type %s", want)
		}
	}
}
