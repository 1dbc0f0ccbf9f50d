// Package ledger unifies the four validated source shapes into one
// canonical transaction ledger with deterministic ordering and identity.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/fx"
	"github.com/tulima-labs/finance-etl/internal/model"
)

// Source names carried on every entry.
const (
	SourceSales     = "sales"
	SourceExpenses  = "expenses"
	SourcePayroll   = "payroll"
	SourceInventory = "inventory"
)

// Fixed account codes applied during unification.
const (
	payrollAccountCode = "61000001"
	inventoryAssetCode = "10000001" // receipt, adjustment
	inventoryIssueCode = "50000001"
	payrollDescription = "Payroll net"
)

// Entry is one canonical ledger transaction. TxnID is derived as
// entity|source|document_id after sorting; entries are immutable once the
// ledger is built.
type Entry struct {
	TxnID       string
	Date        civil.Date
	Entity      string
	Source      string
	DocumentID  string
	AccountCode string
	Currency    string
	Amount      decimal.Decimal
	Rate        decimal.Decimal
	AmountBase  decimal.Decimal
	Description string
}

// Build maps the validated sources into canonical entries, sorts them by
// (date, entity, source, document_id), applies currency conversion and
// assigns derived transaction ids. Conversion failure aborts with a
// *fx.MissingRateError.
func Build(
	sales []model.Sale,
	expenses []model.Expense,
	payroll []model.PayrollEntry,
	inventory []model.InventoryMovement,
	rates fx.Table,
	baseCurrency string,
) ([]Entry, error) {
	entries := Unify(sales, expenses, payroll, inventory)
	SortEntries(entries)
	if err := Convert(entries, rates, baseCurrency); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TxnID = entries[i].Entity + "|" + entries[i].Source + "|" + entries[i].DocumentID
	}
	return entries, nil
}

// Unify concatenates the four source shapes in fixed source order,
// preserving row order within each source. Sign and account conventions:
// sales keep their amount, expenses and payroll net are negated, inventory
// is qty x unit_cost negated only for issues.
func Unify(
	sales []model.Sale,
	expenses []model.Expense,
	payroll []model.PayrollEntry,
	inventory []model.InventoryMovement,
) []Entry {
	entries := make([]Entry, 0, len(sales)+len(expenses)+len(payroll)+len(inventory))

	for _, s := range sales {
		entries = append(entries, Entry{
			Date:        s.Date,
			Entity:      s.Entity,
			Source:      SourceSales,
			DocumentID:  s.InvoiceID,
			AccountCode: s.AccountCode,
			Currency:    s.Currency,
			Amount:      s.Amount,
			Description: s.Description,
		})
	}

	for _, e := range expenses {
		entries = append(entries, Entry{
			Date:        e.Date,
			Entity:      e.Entity,
			Source:      SourceExpenses,
			DocumentID:  e.BillID,
			AccountCode: e.AccountCode,
			Currency:    e.Currency,
			Amount:      e.Amount.Neg(),
			Description: e.Description,
		})
	}

	for _, p := range payroll {
		entries = append(entries, Entry{
			Date:        MonthEnd(p.Month),
			Entity:      p.Entity,
			Source:      SourcePayroll,
			DocumentID:  p.EmployeeID + "_" + p.Month,
			AccountCode: payrollAccountCode,
			Currency:    p.Currency,
			Amount:      p.Net.Neg(),
			Description: payrollDescription,
		})
	}

	for _, m := range inventory {
		amount := m.Qty.Mul(m.UnitCost).Round(2)
		code := inventoryAssetCode
		if m.MovementType == "issue" {
			amount = amount.Neg()
			code = inventoryIssueCode
		}
		entries = append(entries, Entry{
			Date:   m.Date,
			Entity: m.Entity,
			Source: SourceInventory,
			// Embeds the full date to separate same-SKU movements on
			// different days. Two same-day movements of one SKU still
			// collide; accepted behavior.
			DocumentID:  m.SKU + "_" + m.Date.String(),
			AccountCode: code,
			Currency:    m.Currency,
			Amount:      amount,
			Description: m.MovementType + " " + m.SKU,
		})
	}

	return entries
}

// SortEntries orders the ledger by (date, entity, source, document_id)
// for deterministic output.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.DocumentID < b.DocumentID
	})
}

// Convert fills Rate and AmountBase on every entry. Rate is 1.0 when the
// entry is already in the base currency, otherwise resolved for the exact
// (date, currency) pair. amount_base = round(amount x rate, 2), half away
// from zero. All missing pairs are collected into a single batch-level
// *fx.MissingRateError.
func Convert(entries []Entry, rates fx.Table, baseCurrency string) error {
	one := decimal.NewFromInt(1)
	missing := make(map[fx.Key]bool)

	for i := range entries {
		e := &entries[i]
		if e.Currency == baseCurrency {
			e.Rate = one
		} else {
			rate, ok := rates.Lookup(e.Date, e.Currency)
			if !ok {
				missing[fx.Key{Date: e.Date, Currency: e.Currency}] = true
				continue
			}
			e.Rate = rate
		}
		e.AmountBase = e.Amount.Mul(e.Rate).Round(2)
	}

	if len(missing) > 0 {
		return fx.NewMissingRateError(missing)
	}
	return nil
}

// MonthEnd returns the last calendar day of a "YYYY-MM" month. Payroll
// entries synthesize their transaction date from it. Months are validated
// upstream as strings; an unparseable month yields the zero date.
func MonthEnd(month string) civil.Date {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return civil.Date{}
	}
	last := t.AddDate(0, 1, -1)
	return civil.DateOf(last)
}

// MonthOf formats an entry date as its "YYYY-MM" month.
func MonthOf(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}
