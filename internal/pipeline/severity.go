package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tulima-labs/finance-etl/internal/config"
	"github.com/tulima-labs/finance-etl/internal/schema"
)

// criticalPatterns mark a check as ERROR severity; everything else is
// WARN. Matched case-insensitively against the check name.
var criticalPatterns = []string{
	"dtype",
	"required",
	"duplicates found",
	"payroll identity",
}

// TagSeverity derives the severity of every issue from its check name.
// Severity is a derived attribute, assigned here rather than at the point
// of failure.
func TagSeverity(issues []schema.Issue) {
	for i := range issues {
		issues[i].Severity = severityOf(issues[i].Check)
	}
}

func severityOf(check string) schema.Severity {
	lower := strings.ToLower(check)
	for _, p := range criticalPatterns {
		if strings.Contains(lower, p) {
			return schema.SeverityError
		}
	}
	return schema.SeverityWarn
}

// SummaryRow is one per-dataset, per-severity issue count.
type SummaryRow struct {
	Dataset  string
	Severity schema.Severity
	Count    int
}

// SummaryReport is the run-level DQ summary: either a pass marker for the
// month or issue counts ordered by severity then count.
type SummaryReport struct {
	Month string
	Pass  bool
	Rows  []SummaryRow

	Errors   int
	Warnings int
}

// Summarize aggregates tagged issues into the run summary.
func Summarize(issues []schema.Issue, month string) SummaryReport {
	report := SummaryReport{Month: month, Pass: len(issues) == 0}

	type key struct {
		dataset  string
		severity schema.Severity
	}
	counts := make(map[key]int)
	for _, issue := range issues {
		counts[key{issue.Dataset, issue.Severity}]++
		if issue.Severity == schema.SeverityError {
			report.Errors++
		} else {
			report.Warnings++
		}
	}

	for k, n := range counts {
		report.Rows = append(report.Rows, SummaryRow{Dataset: k.dataset, Severity: k.severity, Count: n})
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Dataset < b.Dataset
	})
	return report
}

// ThresholdError is the abort raised when accumulated data-quality issues
// reach the configured fail-on threshold. The DQ artifacts named here are
// already on disk when it is returned.
type ThresholdError struct {
	FailOn         config.FailOn
	Errors         int
	Warnings       int
	ExceptionsPath string
	SummaryPath    string
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("data quality failed (fail_on=%s): %d error(s), %d warning(s); see %s and %s",
		e.FailOn, e.Errors, e.Warnings, e.ExceptionsPath, e.SummaryPath)
}

// Gate evaluates tagged issues against the fail-on threshold.
func Gate(failOn config.FailOn, issues []schema.Issue, exceptionsPath, summaryPath string) error {
	var errors, warnings int
	for _, issue := range issues {
		if issue.Severity == schema.SeverityError {
			errors++
		} else {
			warnings++
		}
	}

	abort := false
	switch failOn {
	case config.FailOnWarn:
		abort = errors+warnings > 0
	case config.FailOnError:
		abort = errors > 0
	case config.FailOnNever:
	}
	if !abort {
		return nil
	}
	return &ThresholdError{
		FailOn:         failOn,
		Errors:         errors,
		Warnings:       warnings,
		ExceptionsPath: exceptionsPath,
		SummaryPath:    summaryPath,
	}
}
