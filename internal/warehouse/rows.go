package warehouse

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

type LedgerRow struct {
	TxnID string `bigquery:"txn_id"` // REQUIRED

	RunID string `bigquery:"run_id"` // REQUIRED

	Date   civil.Date `bigquery:"date"`   // REQUIRED
	Entity string     `bigquery:"entity"` // REQUIRED

	Source     string `bigquery:"source"`      // REQUIRED
	DocumentID string `bigquery:"document_id"` // REQUIRED

	AccountCode string `bigquery:"account_code"` // REQUIRED

	Currency   string   `bigquery:"currency"`    // REQUIRED
	Amount     *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC
	Rate       *big.Rat `bigquery:"rate"`        // REQUIRED NUMERIC
	AmountBase *big.Rat `bigquery:"amount_base"` // REQUIRED NUMERIC

	Description bigquery.NullString `bigquery:"description"` // NULLABLE

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

type KPIRow struct {
	RunID  string `bigquery:"run_id"` // REQUIRED
	Entity string `bigquery:"entity"` // REQUIRED
	Month  string `bigquery:"month"`  // REQUIRED, YYYY-MM

	Classification string   `bigquery:"classification"` // REQUIRED
	Amount         *big.Rat `bigquery:"amount"`         // REQUIRED NUMERIC

	GrossProfit     *big.Rat `bigquery:"gross_profit"`     // REQUIRED NUMERIC
	OperatingProfit *big.Rat `bigquery:"operating_profit"` // REQUIRED NUMERIC

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

type DQIssueRow struct {
	RunID   string `bigquery:"run_id"`  // REQUIRED
	Dataset string `bigquery:"dataset"` // REQUIRED

	RowIndex bigquery.NullInt64 `bigquery:"row_index"` // NULLABLE, absent for table-level issues

	Column        bigquery.NullString `bigquery:"column_name"`    // NULLABLE
	Check         string              `bigquery:"check_name"`     // REQUIRED
	FailureCase   bigquery.NullString `bigquery:"failure_case"`   // NULLABLE
	SchemaContext string              `bigquery:"schema_context"` // REQUIRED

	Severity string `bigquery:"severity"` // REQUIRED, ERROR or WARN

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

type ETLRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED
	Month string `bigquery:"month"`  // REQUIRED, YYYY-MM

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // RUNNING, SUCCESS or FAILED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE
}
