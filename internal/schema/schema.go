// Package schema implements the validation-rule engine: a schema is data
// (field rules plus whole-table checks), evaluated exhaustively against an
// untyped table. Data-level violations are collected as Issues, never
// raised; every row and every rule is checked before reporting.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/tulima-labs/finance-etl/internal/csvio"
)

// Type is the expected value type of a field.
type Type int

const (
	TypeString Type = iota
	TypeFloat
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float64"
	case TypeDate:
		return "datetime64[ns]"
	default:
		return "str"
	}
}

// NumCheck is a numeric range constraint on a float field.
type NumCheck int

const (
	NumAny NumCheck = iota
	NumPositive
	NumNonNegative
	NumNonZero
)

// Field is the rule set for one column: expected type, nullability and an
// optional membership constraint. Numeric constraints apply to float
// fields only.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
	Enum     []string
	Num      NumCheck
}

// Schema is a full per-source validation schema. All schemas are strict:
// a column the schema does not name is itself a violation.
type Schema struct {
	Dataset     string
	Fields      []Field
	TableChecks []TableCheck
}

// Result is the outcome of validating one table: the indices of rows that
// passed every rule, plus every issue found. A row implicated in any issue
// is excluded from Clean, so downstream stages (which only run when the
// severity gate allows) operate on rows satisfying all constraints.
type Result struct {
	Clean  []int
	Issues []Issue
}

// Validate evaluates every rule against every row of tbl. It never fails
// for data-level problems; structural problems (a required column missing
// entirely) are reported as table-level issues and leave Clean empty.
func (s *Schema) Validate(tbl *csvio.Table) Result {
	var issues []Issue
	bad := make(map[int]bool)

	report := func(row int, column, check, failureCase, context string) {
		issues = append(issues, Issue{
			Dataset:       s.Dataset,
			Row:           row,
			Column:        column,
			Check:         check,
			FailureCase:   failureCase,
			SchemaContext: context,
		})
		if row >= 0 {
			bad[row] = true
		}
	}

	missingColumn := false
	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = true
		if tbl.Index(f.Name) < 0 {
			report(-1, f.Name, "column_required", f.Name, contextTable)
			missingColumn = true
		}
	}
	for _, col := range tbl.Columns {
		if !known[col] {
			report(-1, col, "column_in_schema", col, contextTable)
		}
	}

	for _, f := range s.Fields {
		if tbl.Index(f.Name) < 0 {
			continue
		}
		for row := range tbl.Rows {
			s.checkCell(tbl, row, f, report)
		}
	}

	for _, tc := range s.TableChecks {
		tc.Apply(tbl, func(row int, column, check, failureCase string) {
			report(row, column, check, failureCase, contextTable)
		})
	}

	if missingColumn {
		return Result{Issues: issues}
	}

	clean := make([]int, 0, len(tbl.Rows))
	for row := range tbl.Rows {
		if !bad[row] {
			clean = append(clean, row)
		}
	}
	return Result{Clean: clean, Issues: issues}
}

func (s *Schema) checkCell(tbl *csvio.Table, row int, f Field, report func(row int, column, check, failureCase, context string)) {
	raw := strings.TrimSpace(tbl.Cell(row, f.Name))

	if raw == "" {
		if !f.Nullable {
			report(row, f.Name, "required", "", contextColumn)
		}
		return
	}

	switch f.Type {
	case TypeDate:
		if _, err := ParseDate(raw); err != nil {
			report(row, f.Name, fmt.Sprintf("dtype('%s')", f.Type), raw, contextColumn)
			return
		}
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			report(row, f.Name, fmt.Sprintf("dtype('%s')", f.Type), raw, contextColumn)
			return
		}
		switch f.Num {
		case NumPositive:
			if v <= 0 {
				report(row, f.Name, "greater_than(0)", raw, contextColumn)
			}
		case NumNonNegative:
			if v < 0 {
				report(row, f.Name, "greater_than_or_equal_to(0)", raw, contextColumn)
			}
		case NumNonZero:
			if v == 0 {
				report(row, f.Name, "not_equal_to(0)", raw, contextColumn)
			}
		}
	}

	if f.Enum != nil && !inSet(f.Enum, raw) {
		report(row, f.Name, fmt.Sprintf("isin(%s)", strings.Join(f.Enum, ", ")), raw, contextColumn)
	}
}

func inSet(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate coerces a raw cell into a calendar day. Time-of-day, when
// present, is discarded.
func ParseDate(raw string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(ts), nil
		}
	}
	return civil.Date{}, fmt.Errorf("schema: %q is not a date", raw)
}
