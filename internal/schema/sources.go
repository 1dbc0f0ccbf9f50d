package schema

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/model"
)

// Dataset names, also used as raw file stems and DQ report keys.
const (
	DatasetSales     = "sales"
	DatasetExpenses  = "expenses"
	DatasetPayroll   = "payroll"
	DatasetInventory = "inventory_movements"
	DatasetFxRates   = "fx_rates"
)

// MovementTypes are the allowed inventory movement kinds.
var MovementTypes = []string{"receipt", "issue", "adjustment"}

// Sales returns the validation schema for the sales extract.
func Sales(allowedCurrencies []string) *Schema {
	return &Schema{
		Dataset: DatasetSales,
		Fields: []Field{
			{Name: "date", Type: TypeDate},
			{Name: "entity", Type: TypeString},
			{Name: "invoice_id", Type: TypeString},
			{Name: "account_code", Type: TypeString},
			{Name: "currency", Type: TypeString, Enum: allowedCurrencies},
			{Name: "amount", Type: TypeFloat, Num: NumPositive},
			{Name: "description", Type: TypeString, Nullable: true},
		},
		TableChecks: []TableCheck{
			UniqueKey{Columns: []string{"entity", "invoice_id"}, Label: DatasetSales},
		},
	}
}

// Expenses returns the validation schema for the expenses extract. Same
// shape as sales with bill_id as the document column.
func Expenses(allowedCurrencies []string) *Schema {
	return &Schema{
		Dataset: DatasetExpenses,
		Fields: []Field{
			{Name: "date", Type: TypeDate},
			{Name: "entity", Type: TypeString},
			{Name: "bill_id", Type: TypeString},
			{Name: "account_code", Type: TypeString},
			{Name: "currency", Type: TypeString, Enum: allowedCurrencies},
			{Name: "amount", Type: TypeFloat, Num: NumPositive},
			{Name: "description", Type: TypeString, Nullable: true},
		},
		TableChecks: []TableCheck{
			UniqueKey{Columns: []string{"entity", "bill_id"}, Label: DatasetExpenses},
		},
	}
}

// Payroll returns the validation schema for the monthly payroll extract,
// including the gross - deductions = net identity within a 0.01 tolerance.
func Payroll(allowedCurrencies []string) *Schema {
	return &Schema{
		Dataset: DatasetPayroll,
		Fields: []Field{
			{Name: "month", Type: TypeString},
			{Name: "entity", Type: TypeString},
			{Name: "employee_id", Type: TypeString},
			{Name: "currency", Type: TypeString, Enum: allowedCurrencies},
			{Name: "gross", Type: TypeFloat, Num: NumNonNegative},
			{Name: "deductions", Type: TypeFloat, Num: NumNonNegative},
			{Name: "net", Type: TypeFloat, Num: NumNonNegative},
		},
		TableChecks: []TableCheck{
			NumericIdentity{
				Minuend:    "gross",
				Subtrahend: "deductions",
				Result:     "net",
				Tolerance:  0.01,
				Label:      "Payroll identity gross - deductions = net violated",
			},
		},
	}
}

// Inventory returns the validation schema for inventory movements.
func Inventory(allowedCurrencies []string) *Schema {
	return &Schema{
		Dataset: DatasetInventory,
		Fields: []Field{
			{Name: "date", Type: TypeDate},
			{Name: "entity", Type: TypeString},
			{Name: "sku", Type: TypeString},
			{Name: "movement_type", Type: TypeString, Enum: MovementTypes},
			{Name: "qty", Type: TypeFloat, Num: NumNonZero},
			{Name: "unit_cost", Type: TypeFloat, Num: NumNonNegative},
			{Name: "currency", Type: TypeString, Enum: allowedCurrencies},
		},
	}
}

// FxRates returns the validation schema for the FX rates extract. The
// target currency must equal the configured base currency.
func FxRates(allowedCurrencies []string, baseCurrency string) *Schema {
	return &Schema{
		Dataset: DatasetFxRates,
		Fields: []Field{
			{Name: "date", Type: TypeDate},
			{Name: "from_currency", Type: TypeString, Enum: allowedCurrencies},
			{Name: "to_currency", Type: TypeString, Enum: []string{baseCurrency}},
			{Name: "rate", Type: TypeFloat, Num: NumPositive},
		},
		TableChecks: []TableCheck{
			UniqueKey{Columns: []string{"date", "from_currency", "to_currency"}, Label: DatasetFxRates},
		},
	}
}

// Decoders turn clean rows into typed records. Validation has already
// guaranteed coercibility, so rows that still fail to parse are skipped.

func DecodeSales(tbl *csvio.Table, rows []int) []model.Sale {
	out := make([]model.Sale, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(strings.TrimSpace(tbl.Cell(row, "date")))
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "amount")))
		if err != nil {
			continue
		}
		out = append(out, model.Sale{
			Date:        date,
			Entity:      tbl.Cell(row, "entity"),
			InvoiceID:   tbl.Cell(row, "invoice_id"),
			AccountCode: tbl.Cell(row, "account_code"),
			Currency:    tbl.Cell(row, "currency"),
			Amount:      amount,
			Description: tbl.Cell(row, "description"),
		})
	}
	return out
}

func DecodeExpenses(tbl *csvio.Table, rows []int) []model.Expense {
	out := make([]model.Expense, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(strings.TrimSpace(tbl.Cell(row, "date")))
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "amount")))
		if err != nil {
			continue
		}
		out = append(out, model.Expense{
			Date:        date,
			Entity:      tbl.Cell(row, "entity"),
			BillID:      tbl.Cell(row, "bill_id"),
			AccountCode: tbl.Cell(row, "account_code"),
			Currency:    tbl.Cell(row, "currency"),
			Amount:      amount,
			Description: tbl.Cell(row, "description"),
		})
	}
	return out
}

func DecodePayroll(tbl *csvio.Table, rows []int) []model.PayrollEntry {
	out := make([]model.PayrollEntry, 0, len(rows))
	for _, row := range rows {
		gross, errG := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "gross")))
		deductions, errD := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "deductions")))
		net, errN := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "net")))
		if errG != nil || errD != nil || errN != nil {
			continue
		}
		out = append(out, model.PayrollEntry{
			Month:      tbl.Cell(row, "month"),
			Entity:     tbl.Cell(row, "entity"),
			EmployeeID: tbl.Cell(row, "employee_id"),
			Currency:   tbl.Cell(row, "currency"),
			Gross:      gross,
			Deductions: deductions,
			Net:        net,
		})
	}
	return out
}

func DecodeInventory(tbl *csvio.Table, rows []int) []model.InventoryMovement {
	out := make([]model.InventoryMovement, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(strings.TrimSpace(tbl.Cell(row, "date")))
		if err != nil {
			continue
		}
		qty, errQ := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "qty")))
		unitCost, errC := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "unit_cost")))
		if errQ != nil || errC != nil {
			continue
		}
		out = append(out, model.InventoryMovement{
			Date:         date,
			Entity:       tbl.Cell(row, "entity"),
			SKU:          tbl.Cell(row, "sku"),
			MovementType: tbl.Cell(row, "movement_type"),
			Qty:          qty,
			UnitCost:     unitCost,
			Currency:     tbl.Cell(row, "currency"),
		})
	}
	return out
}

func DecodeFxRates(tbl *csvio.Table, rows []int) []model.FxRate {
	out := make([]model.FxRate, 0, len(rows))
	for _, row := range rows {
		date, err := ParseDate(strings.TrimSpace(tbl.Cell(row, "date")))
		if err != nil {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(tbl.Cell(row, "rate")))
		if err != nil {
			continue
		}
		out = append(out, model.FxRate{
			Date:         date,
			FromCurrency: tbl.Cell(row, "from_currency"),
			ToCurrency:   tbl.Cell(row, "to_currency"),
			Rate:         rate,
		})
	}
	return out
}

// DecodeAccounts loads the reference chart of accounts. The reference set
// is trusted input and passes through without schema validation beyond its
// column contract.
func DecodeAccounts(tbl *csvio.Table) []model.Account {
	out := make([]model.Account, 0, len(tbl.Rows))
	for row := range tbl.Rows {
		out = append(out, model.Account{
			Code: tbl.Cell(row, "account_code"),
			Name: tbl.Cell(row, "account_name"),
			Type: tbl.Cell(row, "account_type"),
		})
	}
	return out
}
