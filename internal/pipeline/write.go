package pipeline

import (
	"strconv"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/model"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

var factHeader = []string{
	"txn_id", "date", "entity", "source", "document_id",
	"account_code", "currency", "amount", "rate", "amount_base", "description",
}

func writeFactTransactions(path string, entries []ledger.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.TxnID,
			e.Date.String(),
			e.Entity,
			e.Source,
			e.DocumentID,
			e.AccountCode,
			e.Currency,
			e.Amount.StringFixed(2),
			e.Rate.String(),
			e.AmountBase.StringFixed(2),
			e.Description,
		})
	}
	return csvio.WriteCSV(path, factHeader, rows)
}

func writeDimAccounts(path string, accounts []model.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{a.Code, a.Name, a.Type})
	}
	return csvio.WriteCSV(path, []string{"account_code", "account_name", "account_type"}, rows)
}

func writeKPIMonthly(path string, rows []kpi.Row) error {
	classes := kpi.Classifications(rows)
	header := append([]string{"entity", "month"}, classes...)
	header = append(header, "gross_profit", "operating_profit")

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		record := []string{r.Entity, r.Month}
		for _, c := range classes {
			record = append(record, r.Amount(c).StringFixed(2))
		}
		record = append(record, r.GrossProfit.StringFixed(2), r.OperatingProfit.StringFixed(2))
		out = append(out, record)
	}
	return csvio.WriteCSV(path, header, out)
}

var dqHeader = []string{"dataset", "index", "column", "check", "failure_case", "schema_context", "severity"}

func writeDQExceptions(path string, issues []schema.Issue) error {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		index := ""
		if issue.Row >= 0 {
			index = strconv.Itoa(issue.Row)
		}
		rows = append(rows, []string{
			issue.Dataset,
			index,
			issue.Column,
			issue.Check,
			issue.FailureCase,
			issue.SchemaContext,
			string(issue.Severity),
		})
	}
	return csvio.WriteCSV(path, dqHeader, rows)
}

func writeDQSummary(path string, summary SummaryReport) error {
	if summary.Pass {
		return csvio.WriteCSV(path, []string{"status", "month"}, [][]string{{"PASS", summary.Month}})
	}
	rows := make([][]string, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		rows = append(rows, []string{r.Dataset, string(r.Severity), strconv.Itoa(r.Count)})
	}
	return csvio.WriteCSV(path, []string{"dataset", "severity", "issue_count"}, rows)
}
