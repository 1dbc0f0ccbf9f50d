// Package warehouse publishes run results to BigQuery: the converted ledger,
// monthly KPI rows, data-quality exceptions and an etl_runs lifecycle table.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/tulima-labs/finance-etl/internal/config"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/logger"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

const (
	ledgerTable  = "fact_transactions"
	kpiTable     = "kpi_monthly"
	dqTable      = "dq_exceptions"
	etlRunsTable = "etl_runs"
)

// Repository holds a shared BigQuery client so one run reuses one connection
// across all inserts and lifecycle updates.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository creates a Repository against the configured project and dataset.
func NewRepository(ctx context.Context, cfg config.WarehouseConfig) (*Repository, error) {
	if cfg.ProjectID == "" || cfg.Dataset == "" {
		return nil, fmt.Errorf("warehouse: project and dataset must be configured")
	}
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: creating client: %w", err)
	}
	return &Repository{client: client, project: cfg.ProjectID, dataset: cfg.Dataset}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.project, r.dataset).Table(name)
}

// StartRun inserts a RUNNING row into etl_runs.
func (r *Repository) StartRun(ctx context.Context, runID, month string) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (run_id, month, started_ts, status)
		VALUES (@run_id, @month, @started_ts, @status)
	`, r.dataset, etlRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "month", Value: month},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
	}
	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("StartRun: %w", err)
	}
	return nil
}

// MarkRunSucceeded sets status=SUCCESS and finished_ts, clears error_message.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE run_id = @run_id
	`, r.dataset, etlRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "run_id", Value: runID},
	}
	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Failures
// to record are logged, not returned; the original run error stays primary.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, etlRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}
	if err := runQuery(ctx, q); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("MarkRunFailed: recording failure")
	}
}

// InsertLedger streams converted ledger entries into fact_transactions.
func (r *Repository) InsertLedger(ctx context.Context, runID string, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	loaded := time.Now()
	rows := make([]*LedgerRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &LedgerRow{
			TxnID:       e.TxnID,
			RunID:       runID,
			Date:        e.Date,
			Entity:      e.Entity,
			Source:      e.Source,
			DocumentID:  e.DocumentID,
			AccountCode: e.AccountCode,
			Currency:    e.Currency,
			Amount:      e.Amount.Rat(),
			Rate:        e.Rate.Rat(),
			AmountBase:  e.AmountBase.Rat(),
			Description: bigquery.NullString{StringVal: e.Description, Valid: e.Description != ""},
			LoadedTS:    loaded,
		})
	}
	if err := r.table(ledgerTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertLedger: inserting rows: %w", err)
	}
	return nil
}

// InsertKPI streams monthly KPI rows, one warehouse row per classification.
func (r *Repository) InsertKPI(ctx context.Context, runID string, kpiRows []kpi.Row) error {
	if len(kpiRows) == 0 {
		return nil
	}
	loaded := time.Now()
	var rows []*KPIRow
	for _, kr := range kpiRows {
		for _, class := range kpi.Classifications([]kpi.Row{kr}) {
			rows = append(rows, &KPIRow{
				RunID:           runID,
				Entity:          kr.Entity,
				Month:           kr.Month,
				Classification:  class,
				Amount:          kr.Amount(class).Rat(),
				GrossProfit:     kr.GrossProfit.Rat(),
				OperatingProfit: kr.OperatingProfit.Rat(),
				LoadedTS:        loaded,
			})
		}
	}
	if err := r.table(kpiTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertKPI: inserting rows: %w", err)
	}
	return nil
}

// InsertIssues streams tagged data-quality exceptions.
func (r *Repository) InsertIssues(ctx context.Context, runID string, issues []schema.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	loaded := time.Now()
	rows := make([]*DQIssueRow, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, &DQIssueRow{
			RunID:         runID,
			Dataset:       is.Dataset,
			RowIndex:      bigquery.NullInt64{Int64: int64(is.Row), Valid: is.Row >= 0},
			Column:        bigquery.NullString{StringVal: is.Column, Valid: is.Column != ""},
			Check:         is.Check,
			FailureCase:   bigquery.NullString{StringVal: is.FailureCase, Valid: is.FailureCase != ""},
			SchemaContext: is.SchemaContext,
			Severity:      string(is.Severity),
			LoadedTS:      loaded,
		})
	}
	if err := r.table(dqTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertIssues: inserting rows: %w", err)
	}
	return nil
}

// QueryRunsByMonth lists lifecycle rows for a month, newest first.
func (r *Repository) QueryRunsByMonth(ctx context.Context, month string) ([]*ETLRunRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT run_id, month, started_ts, finished_ts, status, error_message
		FROM %s.%s
		WHERE month = @month
		ORDER BY started_ts DESC
	`, r.dataset, etlRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "month", Value: month},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryRunsByMonth: query read: %w", err)
	}

	var rows []*ETLRunRow
	for {
		var row ETLRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryRunsByMonth: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
