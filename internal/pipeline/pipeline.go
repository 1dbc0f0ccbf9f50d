// Package pipeline sequences one monthly run: load, validate, gate on
// data quality, filter to the month window, convert currencies, unify the
// ledger, aggregate KPIs and write curated outputs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tulima-labs/finance-etl/internal/config"
	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/fx"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/logger"
	"github.com/tulima-labs/finance-etl/internal/model"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

// Step is a single stage of the run.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all steps of one run.
type State struct {
	Config *config.Config
	Month  string
	RunID  string

	Accounts []model.Account
	Raw      map[string]*csvio.Table

	Sales     []model.Sale
	Expenses  []model.Expense
	Payroll   []model.PayrollEntry
	Inventory []model.InventoryMovement
	Rates     []model.FxRate

	Issues []schema.Issue

	FX      fx.Table
	Entries []ledger.Entry
	KPI     []kpi.Row

	Outputs Outputs
}

// Outputs lists the artifact paths of a run plus the DQ summary. The DQ
// paths are populated even when the run aborts on the severity gate, so
// operators can diagnose a failed run without re-running.
type Outputs struct {
	FactPath         string
	DimAccountsPath  string
	KPIPath          string
	DQExceptionsPath string
	DQSummaryPath    string

	Summary SummaryReport
}

// RunRecorder records run lifecycle events in an external store. A nil
// recorder disables recording.
type RunRecorder interface {
	StartRun(ctx context.Context, runID, month string) error
	MarkRunSucceeded(ctx context.Context, runID string) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// Runner executes monthly pipeline runs against one immutable Config.
type Runner struct {
	Config   *config.Config
	Recorder RunRecorder
}

// Run executes the full pipeline for one month ("YYYY-MM"). The returned
// Outputs carries whatever artifacts were written, including the DQ
// artifacts of an aborted run.
func (r *Runner) Run(ctx context.Context, month string) (*Outputs, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, fmt.Errorf("pipeline: month must be YYYY-MM (got %q)", month)
	}

	state := &State{
		Config: r.Config,
		Month:  month,
		RunID:  uuid.NewString(),
	}

	log := logger.WithRun(logger.FromContext(ctx), state.RunID, month)
	ctx = logger.WithContext(ctx, log)
	log.Info().Msg("starting run")

	if r.Recorder != nil {
		if err := r.Recorder.StartRun(ctx, state.RunID, month); err != nil {
			return nil, fmt.Errorf("pipeline: recording run start: %w", err)
		}
	}

	err := r.execute(ctx, state)
	if r.Recorder != nil {
		if err != nil {
			r.Recorder.MarkRunFailed(ctx, state.RunID, err)
		} else if markErr := r.Recorder.MarkRunSucceeded(ctx, state.RunID); markErr != nil {
			log.Warn().Err(markErr).Msg("could not record run success")
		}
	}
	if err != nil {
		return &state.Outputs, err
	}

	log.Info().
		Int("ledger_rows", len(state.Entries)).
		Int("kpi_rows", len(state.KPI)).
		Msg("run complete")
	return &state.Outputs, nil
}

func (r *Runner) execute(ctx context.Context, state *State) error {
	steps := []Step{
		&LoadReferenceStep{},
		&LoadRawStep{},
		&ValidateStep{},
		&QualityGateStep{},
		&FilterMonthStep{},
		&BuildLedgerStep{},
		&AggregateStep{},
		&WriteCuratedStep{},
	}
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline: %s: %w", step.Name(), err)
		}
	}
	return nil
}
