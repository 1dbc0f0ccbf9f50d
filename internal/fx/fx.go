// Package fx resolves foreign-exchange rates to the base currency. Rates
// are keyed by exact (calendar day, source currency); there is no
// nearest-date fallback.
package fx

import (
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/model"
)

// Key identifies one conversion rate: the calendar day and the currency
// being converted from.
type Key struct {
	Date     civil.Date
	Currency string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Date, k.Currency)
}

// Table maps (date, source currency) to the rate into the base currency.
type Table map[Key]decimal.Decimal

// ToBase builds the lookup table from validated FX rate rows, retaining
// only entries whose target currency is the base currency.
func ToBase(rates []model.FxRate, baseCurrency string) Table {
	t := make(Table, len(rates))
	for _, r := range rates {
		if r.ToCurrency != baseCurrency {
			continue
		}
		t[Key{Date: r.Date, Currency: r.FromCurrency}] = r.Rate
	}
	return t
}

// Lookup returns the rate for the exact (date, currency) pair.
func (t Table) Lookup(date civil.Date, currency string) (decimal.Decimal, bool) {
	rate, ok := t[Key{Date: date, Currency: currency}]
	return rate, ok
}

// MissingRateError is the batch-level conversion failure: it enumerates
// every distinct (date, currency) pair that lacked a rate. It aborts the
// run; there is no silent defaulting.
type MissingRateError struct {
	Pairs []Key
}

func (e *MissingRateError) Error() string {
	pairs := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		pairs[i] = p.String()
	}
	return fmt.Sprintf("missing FX rates for: %s", strings.Join(pairs, ", "))
}

// NewMissingRateError builds the error from a set of missing pairs,
// sorted by date then currency for stable messages.
func NewMissingRateError(missing map[Key]bool) *MissingRateError {
	pairs := make([]Key, 0, len(missing))
	for k := range missing {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Date != pairs[j].Date {
			return pairs[i].Date.Before(pairs[j].Date)
		}
		return pairs[i].Currency < pairs[j].Currency
	})
	return &MissingRateError{Pairs: pairs}
}
