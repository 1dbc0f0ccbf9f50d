// Package kpi rolls the curated ledger up into per-entity, per-month
// financial summaries.
package kpi

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/model"
)

// Unclassified is the classification bucket for account codes absent from
// the chart of accounts. Amounts are summed here rather than dropped, so
// entity-month totals still reconcile against the ledger.
const Unclassified = "Unclassified"

// Core classification columns, always present even when zero for a given
// entity-month. COGS and Expense arrive signed (negated at unification),
// so profit derivation is addition.
var coreTypes = []string{"Revenue", "COGS", "Expense"}

// Row is one (entity, month) aggregate: base-currency sums per account
// classification plus derived profits.
type Row struct {
	Entity          string
	Month           string
	Amounts         map[string]decimal.Decimal
	GrossProfit     decimal.Decimal
	OperatingProfit decimal.Decimal
}

// Monthly left-joins each ledger entry to its account classification,
// groups by (entity, month, classification) and pivots classifications
// into columns. gross_profit = Revenue + COGS and operating_profit =
// gross_profit + Expense, each rounded to 2 decimal places. Output is
// sorted by (entity, month); the whole table is recomputed each run.
func Monthly(entries []ledger.Entry, accounts []model.Account) []Row {
	classOf := make(map[string]string, len(accounts))
	for _, a := range accounts {
		classOf[a.Code] = a.Type
	}

	type key struct{ entity, month string }
	groups := make(map[key]map[string]decimal.Decimal)
	for _, e := range entries {
		k := key{entity: e.Entity, month: ledger.MonthOf(e.Date)}
		class, ok := classOf[e.AccountCode]
		if !ok || class == "" {
			class = Unclassified
		}
		if groups[k] == nil {
			groups[k] = make(map[string]decimal.Decimal)
		}
		groups[k][class] = groups[k][class].Add(e.AmountBase)
	}

	rows := make([]Row, 0, len(groups))
	for k, amounts := range groups {
		for _, ct := range coreTypes {
			if _, ok := amounts[ct]; !ok {
				amounts[ct] = decimal.Zero
			}
		}
		gross := amounts["Revenue"].Add(amounts["COGS"]).Round(2)
		operating := gross.Add(amounts["Expense"]).Round(2)
		rows = append(rows, Row{
			Entity:          k.entity,
			Month:           k.month,
			Amounts:         amounts,
			GrossProfit:     gross,
			OperatingProfit: operating,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Entity != rows[j].Entity {
			return rows[i].Entity < rows[j].Entity
		}
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// Classifications returns the sorted union of classification columns
// across rows. The core columns are always included.
func Classifications(rows []Row) []string {
	set := make(map[string]bool)
	for _, ct := range coreTypes {
		set[ct] = true
	}
	for _, r := range rows {
		for c := range r.Amounts {
			set[c] = true
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Amount returns the summed base-currency amount for a classification,
// zero when absent.
func (r Row) Amount(classification string) decimal.Decimal {
	if v, ok := r.Amounts[classification]; ok {
		return v
	}
	return decimal.Zero
}
