// Package sample generates deterministic synthetic raw extracts shaped
// exactly like the ingestion contracts. The pipeline smoke tests use it
// for fixtures.
package sample

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/tulima-labs/finance-etl/internal/csvio"
)

var (
	entities   = []string{"TLM", "UPE"}
	currencies = []string{"USD", "TZS", "EUR"}
	skus       = []string{"HONEY-DRUM", "WAX-BLOCK", "GIN-750ML"}
	movements  = []string{"receipt", "issue", "adjustment"}
)

// Generate writes the five raw CSVs for one month into outDir. The same
// (month, seed) pair always produces identical files.
func Generate(outDir, month string, seed int64) error {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return fmt.Errorf("sample: invalid month %q: %w", month, err)
	}
	days := start.AddDate(0, 1, -1).Day()
	rng := rand.New(rand.NewSource(seed))

	dateOf := func(day int) string {
		return start.AddDate(0, 0, day-1).Format("2006-01-02")
	}
	randDate := func() string { return dateOf(1 + rng.Intn(days)) }

	// FX rates to the USD base, one row per currency per day.
	fxRows := make([][]string, 0, days*len(currencies))
	for day := 1; day <= days; day++ {
		d := dateOf(day)
		fxRows = append(fxRows, []string{d, "USD", "USD", "1.0"})
		fxRows = append(fxRows, []string{d, "EUR", "USD", fmt.Sprintf("%.6f", 1.05+rng.Float64()*0.10)})
		fxRows = append(fxRows, []string{d, "TZS", "USD", fmt.Sprintf("%.8f", 0.00038+rng.Float64()*0.00007)})
	}
	if err := csvio.WriteCSV(filepath.Join(outDir, "fx_rates.csv"),
		[]string{"date", "from_currency", "to_currency", "rate"}, fxRows); err != nil {
		return err
	}

	pickCurrency := func() string {
		switch r := rng.Float64(); {
		case r < 0.5:
			return "USD"
		case r < 0.9:
			return "TZS"
		default:
			return "EUR"
		}
	}

	var salesRows [][]string
	for _, entity := range entities {
		n := 20 + rng.Intn(20)
		for i := 0; i < n; i++ {
			code := "40000001"
			if rng.Float64() > 0.7 {
				code = "40000002"
			}
			salesRows = append(salesRows, []string{
				randDate(), entity, fmt.Sprintf("INV-%s-%04d", entity, i), code,
				pickCurrency(), fmt.Sprintf("%.2f", 200+rng.Float64()*4800), "Synthetic sale",
			})
		}
	}
	if err := csvio.WriteCSV(filepath.Join(outDir, "sales.csv"),
		[]string{"date", "entity", "invoice_id", "account_code", "currency", "amount", "description"}, salesRows); err != nil {
		return err
	}

	expenseAccounts := []string{"62000001", "63000001", "64000001"}
	var expenseRows [][]string
	for _, entity := range entities {
		n := 25 + rng.Intn(30)
		for i := 0; i < n; i++ {
			expenseRows = append(expenseRows, []string{
				randDate(), entity, fmt.Sprintf("BILL-%s-%04d", entity, i),
				expenseAccounts[rng.Intn(len(expenseAccounts))],
				pickCurrency(), fmt.Sprintf("%.2f", 50+rng.Float64()*2450), "Synthetic expense",
			})
		}
	}
	if err := csvio.WriteCSV(filepath.Join(outDir, "expenses.csv"),
		[]string{"date", "entity", "bill_id", "account_code", "currency", "amount", "description"}, expenseRows); err != nil {
		return err
	}

	var payrollRows [][]string
	for _, entity := range entities {
		for i := 0; i < 10; i++ {
			ccy := "TZS"
			if rng.Float64() < 0.4 {
				ccy = "USD"
			}
			// Round to cents before deriving net so the payroll identity
			// holds exactly in the written file.
			gross := math.Round((300+rng.Float64()*1200)*100) / 100
			deductions := math.Round(rng.Float64()*150*100) / 100
			net := math.Round((gross-deductions)*100) / 100
			payrollRows = append(payrollRows, []string{
				month, entity, fmt.Sprintf("EMP-%s-%03d", entity, i), ccy,
				fmt.Sprintf("%.2f", gross), fmt.Sprintf("%.2f", deductions), fmt.Sprintf("%.2f", net),
			})
		}
	}
	if err := csvio.WriteCSV(filepath.Join(outDir, "payroll.csv"),
		[]string{"month", "entity", "employee_id", "currency", "gross", "deductions", "net"}, payrollRows); err != nil {
		return err
	}

	var invRows [][]string
	for _, entity := range entities {
		n := 20 + rng.Intn(20)
		for i := 0; i < n; i++ {
			move := movements[0]
			switch r := rng.Float64(); {
			case r < 0.45:
				move = "receipt"
			case r < 0.90:
				move = "issue"
			default:
				move = "adjustment"
			}
			invRows = append(invRows, []string{
				randDate(), entity, skus[rng.Intn(len(skus))], move,
				fmt.Sprintf("%.2f", 1+rng.Float64()*49),
				fmt.Sprintf("%.2f", 2+rng.Float64()*78),
				pickCurrency(),
			})
		}
	}
	return csvio.WriteCSV(filepath.Join(outDir, "inventory_movements.csv"),
		[]string{"date", "entity", "sku", "movement_type", "qty", "unit_cost", "currency"}, invRows)
}

// WriteChartOfAccounts writes the reference chart of accounts used by the
// synthetic extracts.
func WriteChartOfAccounts(path string) error {
	rows := [][]string{
		{"10000001", "Inventory", "Asset"},
		{"40000001", "Product sales", "Revenue"},
		{"40000002", "Service sales", "Revenue"},
		{"50000001", "Cost of goods sold", "COGS"},
		{"61000001", "Payroll expense", "Expense"},
		{"62000001", "Rent", "Expense"},
		{"63000001", "Utilities", "Expense"},
		{"64000001", "Logistics", "Expense"},
	}
	return csvio.WriteCSV(path, []string{"account_code", "account_name", "account_type"}, rows)
}
