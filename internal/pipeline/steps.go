package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/fx"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/logger"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

// Raw and reference file names under the configured directories.
const (
	fileSales     = "sales.csv"
	fileExpenses  = "expenses.csv"
	filePayroll   = "payroll.csv"
	fileInventory = "inventory_movements.csv"
	fileFxRates   = "fx_rates.csv"
	fileAccounts  = "chart_of_accounts.csv"
)

// LoadReferenceStep loads the chart of accounts.
type LoadReferenceStep struct{}

func (s *LoadReferenceStep) Name() string { return "load_reference" }

func (s *LoadReferenceStep) Execute(ctx context.Context, state *State) error {
	tbl, err := csvio.ReadTable(filepath.Join(state.Config.ReferenceDir, fileAccounts), "chart_of_accounts")
	if err != nil {
		return err
	}
	state.Accounts = schema.DecodeAccounts(tbl)
	return nil
}

// LoadRawStep loads the five raw extracts. A missing raw file is a
// structural error, not a data-quality issue.
type LoadRawStep struct{}

func (s *LoadRawStep) Name() string { return "load_raw" }

func (s *LoadRawStep) Execute(ctx context.Context, state *State) error {
	files := map[string]string{
		schema.DatasetSales:     fileSales,
		schema.DatasetExpenses:  fileExpenses,
		schema.DatasetPayroll:   filePayroll,
		schema.DatasetInventory: fileInventory,
		schema.DatasetFxRates:   fileFxRates,
	}
	state.Raw = make(map[string]*csvio.Table, len(files))
	for dataset, file := range files {
		tbl, err := csvio.ReadTable(filepath.Join(state.Config.RawDir, file), dataset)
		if err != nil {
			return err
		}
		state.Raw[dataset] = tbl
	}
	return nil
}

// ValidateStep validates the five sources. The sources are independent,
// so they validate concurrently; issues are collected per source and
// concatenated in the fixed dataset order to keep output deterministic.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return "validate" }

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	allowed := state.Config.AllowedCurrencies
	base := state.Config.BaseCurrency

	results := make(map[string]schema.Result, 5)
	var mu sync.Mutex
	var wg sync.WaitGroup

	validate := func(dataset string, sc *schema.Schema) {
		defer wg.Done()
		res := sc.Validate(state.Raw[dataset])
		mu.Lock()
		results[dataset] = res
		mu.Unlock()
	}

	wg.Add(5)
	go validate(schema.DatasetSales, schema.Sales(allowed))
	go validate(schema.DatasetExpenses, schema.Expenses(allowed))
	go validate(schema.DatasetPayroll, schema.Payroll(allowed))
	go validate(schema.DatasetInventory, schema.Inventory(allowed))
	go validate(schema.DatasetFxRates, schema.FxRates(allowed, base))
	wg.Wait()

	log := logger.FromContext(ctx)
	for _, dataset := range []string{
		schema.DatasetSales, schema.DatasetExpenses, schema.DatasetPayroll,
		schema.DatasetInventory, schema.DatasetFxRates,
	} {
		res := results[dataset]
		state.Issues = append(state.Issues, res.Issues...)
		log.Info().
			Str("dataset", dataset).
			Int("rows", len(state.Raw[dataset].Rows)).
			Int("clean", len(res.Clean)).
			Int("issues", len(res.Issues)).
			Msg("validated")
	}

	state.Sales = schema.DecodeSales(state.Raw[schema.DatasetSales], results[schema.DatasetSales].Clean)
	state.Expenses = schema.DecodeExpenses(state.Raw[schema.DatasetExpenses], results[schema.DatasetExpenses].Clean)
	state.Payroll = schema.DecodePayroll(state.Raw[schema.DatasetPayroll], results[schema.DatasetPayroll].Clean)
	state.Inventory = schema.DecodeInventory(state.Raw[schema.DatasetInventory], results[schema.DatasetInventory].Clean)
	state.Rates = schema.DecodeFxRates(state.Raw[schema.DatasetFxRates], results[schema.DatasetFxRates].Clean)
	return nil
}

// QualityGateStep derives issue severities, writes the DQ artifacts and
// decides whether the run continues. The artifacts are written before the
// threshold is evaluated so an aborted run still leaves them behind.
type QualityGateStep struct{}

func (s *QualityGateStep) Name() string { return "quality_gate" }

func (s *QualityGateStep) Execute(ctx context.Context, state *State) error {
	TagSeverity(state.Issues)
	summary := Summarize(state.Issues, state.Month)
	state.Outputs.Summary = summary

	state.Outputs.DQExceptionsPath = filepath.Join(state.Config.CuratedDir, "dq_exceptions.csv")
	state.Outputs.DQSummaryPath = filepath.Join(state.Config.CuratedDir, "dq_summary.csv")
	if err := writeDQExceptions(state.Outputs.DQExceptionsPath, state.Issues); err != nil {
		return err
	}
	if err := writeDQSummary(state.Outputs.DQSummaryPath, summary); err != nil {
		return err
	}

	if err := Gate(state.Config.FailOn, state.Issues, state.Outputs.DQExceptionsPath, state.Outputs.DQSummaryPath); err != nil {
		return err
	}
	return nil
}

// FilterMonthStep restricts each source to the target month: payroll by
// exact month-string match, the dated sources by the calendar window
// [first day, first day of next month).
type FilterMonthStep struct{}

func (s *FilterMonthStep) Name() string { return "filter_month" }

func (s *FilterMonthStep) Execute(ctx context.Context, state *State) error {
	first, next := monthWindow(state.Month)

	inWindow := func(d civil.Date) bool {
		return !d.Before(first) && d.Before(next)
	}

	sales := state.Sales[:0]
	for _, r := range state.Sales {
		if inWindow(r.Date) {
			sales = append(sales, r)
		}
	}
	state.Sales = sales

	expenses := state.Expenses[:0]
	for _, r := range state.Expenses {
		if inWindow(r.Date) {
			expenses = append(expenses, r)
		}
	}
	state.Expenses = expenses

	inventory := state.Inventory[:0]
	for _, r := range state.Inventory {
		if inWindow(r.Date) {
			inventory = append(inventory, r)
		}
	}
	state.Inventory = inventory

	payroll := state.Payroll[:0]
	for _, r := range state.Payroll {
		if r.Month == state.Month {
			payroll = append(payroll, r)
		}
	}
	state.Payroll = payroll

	return nil
}

// BuildLedgerStep resolves the FX table and builds the converted,
// ordered ledger. A missing rate aborts with a batch-level error.
type BuildLedgerStep struct{}

func (s *BuildLedgerStep) Name() string { return "build_ledger" }

func (s *BuildLedgerStep) Execute(ctx context.Context, state *State) error {
	state.FX = fx.ToBase(state.Rates, state.Config.BaseCurrency)
	entries, err := ledger.Build(
		state.Sales, state.Expenses, state.Payroll, state.Inventory,
		state.FX, state.Config.BaseCurrency,
	)
	if err != nil {
		return err
	}
	state.Entries = entries
	return nil
}

// AggregateStep rolls the ledger up into monthly KPIs.
type AggregateStep struct{}

func (s *AggregateStep) Name() string { return "aggregate" }

func (s *AggregateStep) Execute(ctx context.Context, state *State) error {
	state.KPI = kpi.Monthly(state.Entries, state.Accounts)
	return nil
}

// WriteCuratedStep writes the curated ledger, account dimension and KPI
// table.
type WriteCuratedStep struct{}

func (s *WriteCuratedStep) Name() string { return "write_curated" }

func (s *WriteCuratedStep) Execute(ctx context.Context, state *State) error {
	dir := state.Config.CuratedDir
	state.Outputs.FactPath = filepath.Join(dir, "fact_transactions.csv")
	state.Outputs.DimAccountsPath = filepath.Join(dir, "dim_accounts.csv")
	state.Outputs.KPIPath = filepath.Join(dir, "kpi_monthly.csv")

	if err := writeFactTransactions(state.Outputs.FactPath, state.Entries); err != nil {
		return err
	}
	if err := writeDimAccounts(state.Outputs.DimAccountsPath, state.Accounts); err != nil {
		return err
	}
	return writeKPIMonthly(state.Outputs.KPIPath, state.KPI)
}

func monthWindow(month string) (first, next civil.Date) {
	last := ledger.MonthEnd(month)
	first = civil.Date{Year: last.Year, Month: last.Month, Day: 1}
	next = last.AddDays(1)
	return first, next
}
