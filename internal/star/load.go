package star

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/model"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

// LoadFact reads a curated fact_transactions.csv back into ledger entries.
func LoadFact(path string) ([]ledger.Entry, error) {
	tbl, err := csvio.ReadTable(path, "fact_transactions")
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, 0, len(tbl.Rows))
	for i := range tbl.Rows {
		date, err := schema.ParseDate(tbl.Cell(i, "date"))
		if err != nil {
			return nil, fmt.Errorf("star: %s row %d: %w", path, i, err)
		}
		amount, err := decimal.NewFromString(tbl.Cell(i, "amount"))
		if err != nil {
			return nil, fmt.Errorf("star: %s row %d: bad amount: %w", path, i, err)
		}
		rate, err := decimal.NewFromString(tbl.Cell(i, "rate"))
		if err != nil {
			return nil, fmt.Errorf("star: %s row %d: bad rate: %w", path, i, err)
		}
		amountBase, err := decimal.NewFromString(tbl.Cell(i, "amount_base"))
		if err != nil {
			return nil, fmt.Errorf("star: %s row %d: bad amount_base: %w", path, i, err)
		}
		entries = append(entries, ledger.Entry{
			TxnID:       tbl.Cell(i, "txn_id"),
			Date:        date,
			Entity:      tbl.Cell(i, "entity"),
			Source:      tbl.Cell(i, "source"),
			DocumentID:  tbl.Cell(i, "document_id"),
			AccountCode: tbl.Cell(i, "account_code"),
			Currency:    tbl.Cell(i, "currency"),
			Amount:      amount,
			Rate:        rate,
			AmountBase:  amountBase,
			Description: tbl.Cell(i, "description"),
		})
	}
	return entries, nil
}

// LoadAccounts reads a curated dim_accounts.csv.
func LoadAccounts(path string) ([]model.Account, error) {
	tbl, err := csvio.ReadTable(path, "dim_accounts")
	if err != nil {
		return nil, err
	}
	accounts := make([]model.Account, 0, len(tbl.Rows))
	for i := range tbl.Rows {
		accounts = append(accounts, model.Account{
			Code: tbl.Cell(i, "account_code"),
			Name: tbl.Cell(i, "account_name"),
			Type: tbl.Cell(i, "account_type"),
		})
	}
	return accounts, nil
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
