package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tulima-labs/finance-etl/internal/artifacts"
	"github.com/tulima-labs/finance-etl/internal/config"
	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/logger"
	"github.com/tulima-labs/finance-etl/internal/model"
	"github.com/tulima-labs/finance-etl/internal/pipeline"
	"github.com/tulima-labs/finance-etl/internal/sample"
	"github.com/tulima-labs/finance-etl/internal/schema"
	"github.com/tulima-labs/finance-etl/internal/star"
	"github.com/tulima-labs/finance-etl/internal/warehouse"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runMonth(log)
	case "generate":
		runGenerate(log)
	case "export":
		runExport(log)
	case "publish":
		runPublish(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance ETL")
	fmt.Println("\nUsage:")
	fmt.Println("  etl <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Run the monthly pipeline: validate, convert, unify, aggregate")
	fmt.Println("  generate  Generate synthetic raw and reference data for a month")
	fmt.Println("  export    Export curated outputs as a BI star schema")
	fmt.Println("  publish   Publish curated outputs to the BigQuery warehouse")
	fmt.Println("  upload    Upload curated artifacts to a GCS bucket")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'etl <command> -h' for more information on a command.")
}

func loadConfig(log zerolog.Logger, path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	return cfg
}

func runMonth(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	month := fs.String("month", "", "Month to process, YYYY-MM")
	configPath := fs.String("config", "", "Path to a config file (optional)")
	failOn := fs.String("fail-on", "", "Abort threshold: ERROR, WARN or NEVER (overrides config)")
	record := fs.Bool("record", false, "Record the run lifecycle in the warehouse")
	fs.Parse(os.Args[2:])

	if *month == "" {
		log.Fatal().Msg("Error: --month is required")
	}

	cfg := loadConfig(log, *configPath)
	if *failOn != "" {
		parsed, err := config.ParseFailOn(*failOn)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --fail-on")
		}
		cfg.FailOn = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	runner := &pipeline.Runner{Config: cfg}
	if *record {
		repo, err := warehouse.NewRepository(ctx, cfg.Warehouse)
		if err != nil {
			log.Fatal().Err(err).Msg("Connecting to warehouse failed")
		}
		defer repo.Close()
		runner.Recorder = repo
	}

	outputs, err := runner.Run(ctx, *month)
	if outputs != nil && outputs.Summary.Month != "" {
		printSummary(outputs.Summary)
	}
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}

	fmt.Println("\nCurated outputs:")
	fmt.Println("  " + outputs.FactPath)
	fmt.Println("  " + outputs.DimAccountsPath)
	fmt.Println("  " + outputs.KPIPath)
	fmt.Println("  " + outputs.DQExceptionsPath)
	fmt.Println("  " + outputs.DQSummaryPath)
}

func printSummary(report pipeline.SummaryReport) {
	if report.Pass {
		fmt.Printf("DQ summary for %s: PASS\n", report.Month)
		return
	}
	fmt.Printf("DQ summary for %s: %d error(s), %d warning(s)\n",
		report.Month, report.Errors, report.Warnings)
	for _, row := range report.Rows {
		fmt.Printf("  %-22s %-5s %d\n", row.Dataset, row.Severity, row.Count)
	}
}

func runGenerate(log zerolog.Logger) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	month := fs.String("month", "", "Month to generate, YYYY-MM")
	configPath := fs.String("config", "", "Path to a config file (optional)")
	seed := fs.Int64("seed", 42, "Random seed")
	fs.Parse(os.Args[2:])

	if *month == "" {
		log.Fatal().Msg("Error: --month is required")
	}

	cfg := loadConfig(log, *configPath)

	if err := sample.Generate(cfg.RawDir, *month, *seed); err != nil {
		log.Fatal().Err(err).Msg("Generating raw data failed")
	}
	coaPath := filepath.Join(cfg.ReferenceDir, "chart_of_accounts.csv")
	if err := sample.WriteChartOfAccounts(coaPath); err != nil {
		log.Fatal().Err(err).Msg("Writing chart of accounts failed")
	}

	fmt.Printf("Generated raw data for %s in %s\n", *month, cfg.RawDir)
	fmt.Printf("Wrote %s\n", coaPath)
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	month := fs.String("month", "", "Month to export, YYYY-MM")
	configPath := fs.String("config", "", "Path to a config file (optional)")
	outDir := fs.String("out", "", "Output directory (defaults to <curated>/star)")
	fs.Parse(os.Args[2:])

	if *month == "" {
		log.Fatal().Msg("Error: --month is required")
	}

	cfg := loadConfig(log, *configPath)
	if *outDir == "" {
		*outDir = filepath.Join(cfg.CuratedDir, "star")
	}

	entries, accounts, kpiRows, err := loadCurated(cfg.CuratedDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading curated outputs failed")
	}
	if err := star.Export(entries, accounts, kpiRows, *month, *outDir); err != nil {
		log.Fatal().Err(err).Msg("Star export failed")
	}

	fmt.Printf("Exported star schema for %s to %s\n", *month, *outDir)
}

func runPublish(log zerolog.Logger) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a config file (optional)")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(log, *configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	entries, _, kpiRows, err := loadCurated(cfg.CuratedDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading curated outputs failed")
	}
	issues, err := loadExceptions(filepath.Join(cfg.CuratedDir, "dq_exceptions.csv"))
	if err != nil {
		log.Fatal().Err(err).Msg("Loading DQ exceptions failed")
	}

	repo, err := warehouse.NewRepository(ctx, cfg.Warehouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to warehouse failed")
	}
	defer repo.Close()

	runID := uuid.NewString()
	if err := repo.InsertLedger(ctx, runID, entries); err != nil {
		log.Fatal().Err(err).Msg("Publishing ledger failed")
	}
	if err := repo.InsertKPI(ctx, runID, kpiRows); err != nil {
		log.Fatal().Err(err).Msg("Publishing KPIs failed")
	}
	if err := repo.InsertIssues(ctx, runID, issues); err != nil {
		log.Fatal().Err(err).Msg("Publishing DQ exceptions failed")
	}

	fmt.Printf("Published %d ledger rows, %d KPI rows, %d exceptions (run %s)\n",
		len(entries), len(kpiRows), len(issues), runID)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	month := fs.String("month", "", "Month prefix for the uploaded objects, YYYY-MM")
	configPath := fs.String("config", "", "Path to a config file (optional)")
	bucket := fs.String("bucket", "", "GCS bucket name (overrides config)")
	fs.Parse(os.Args[2:])

	if *month == "" {
		log.Fatal().Msg("Error: --month is required")
	}

	cfg := loadConfig(log, *configPath)
	if *bucket == "" {
		*bucket = cfg.Bucket
	}
	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket or a configured bucket is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	prefix := "curated/" + *month
	uris, err := artifacts.UploadDir(ctx, *bucket, prefix, cfg.CuratedDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %d artifacts to gs://%s/%s\n", len(uris), *bucket, prefix)
}

func loadCurated(curatedDir string) ([]ledger.Entry, []model.Account, []kpi.Row, error) {
	entries, err := star.LoadFact(filepath.Join(curatedDir, "fact_transactions.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	accounts, err := star.LoadAccounts(filepath.Join(curatedDir, "dim_accounts.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	return entries, accounts, kpi.Monthly(entries, accounts), nil
}

func loadExceptions(path string) ([]schema.Issue, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	tbl, err := csvio.ReadTable(path, "dq_exceptions")
	if err != nil {
		return nil, err
	}
	issues := make([]schema.Issue, 0, len(tbl.Rows))
	for i := range tbl.Rows {
		row := -1
		if raw := tbl.Cell(i, "index"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad index %q", path, i, raw)
			}
			row = parsed
		}
		issues = append(issues, schema.Issue{
			Dataset:       tbl.Cell(i, "dataset"),
			Row:           row,
			Column:        tbl.Cell(i, "column"),
			Check:         tbl.Cell(i, "check"),
			FailureCase:   tbl.Cell(i, "failure_case"),
			SchemaContext: tbl.Cell(i, "schema_context"),
			Severity:      schema.Severity(tbl.Cell(i, "severity")),
		})
	}
	return issues, nil
}
