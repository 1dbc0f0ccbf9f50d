package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Sale is one validated row of the sales extract.
type Sale struct {
	Date        civil.Date
	Entity      string
	InvoiceID   string
	AccountCode string
	Currency    string
	Amount      decimal.Decimal
	Description string
}

// Expense is one validated row of the expenses extract.
type Expense struct {
	Date        civil.Date
	Entity      string
	BillID      string
	AccountCode string
	Currency    string
	Amount      decimal.Decimal
	Description string
}

// PayrollEntry is one validated row of the monthly payroll extract.
// Month is kept as the source "YYYY-MM" string; the ledger derives the
// transaction date from it.
type PayrollEntry struct {
	Month      string
	Entity     string
	EmployeeID string
	Currency   string
	Gross      decimal.Decimal
	Deductions decimal.Decimal
	Net        decimal.Decimal
}

// InventoryMovement is one validated row of the inventory extract.
type InventoryMovement struct {
	Date         civil.Date
	Entity       string
	SKU          string
	MovementType string // receipt | issue | adjustment
	Qty          decimal.Decimal
	UnitCost     decimal.Decimal
	Currency     string
}

// FxRate is one validated row of the FX rates extract.
type FxRate struct {
	Date         civil.Date
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
}

// Account is one row of the reference chart of accounts.
type Account struct {
	Code string
	Name string
	Type string // Revenue | COGS | Expense | Asset | ...
}
