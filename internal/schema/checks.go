package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tulima-labs/finance-etl/internal/csvio"
)

// TableCheck is a whole-table rule evaluated after the per-cell rules.
// Implementations report one failure per offending row.
type TableCheck interface {
	Apply(tbl *csvio.Table, report func(row int, column, check, failureCase string))
}

// UniqueKey enforces a natural-key uniqueness constraint: every row after
// the first occurrence of a key is reported.
type UniqueKey struct {
	Columns []string
	Label   string
}

func (c UniqueKey) checkName() string {
	return fmt.Sprintf("Duplicates found for keys %v in %s", c.Columns, c.Label)
}

func (c UniqueKey) Apply(tbl *csvio.Table, report func(row int, column, check, failureCase string)) {
	// A missing key column is already a column_required issue; comparing
	// partially-empty keys would only report spurious duplicates on top.
	for _, col := range c.Columns {
		if tbl.Index(col) < 0 {
			return
		}
	}

	seen := make(map[string]bool, len(tbl.Rows))
	for row := range tbl.Rows {
		parts := make([]string, len(c.Columns))
		for i, col := range c.Columns {
			parts[i] = tbl.Cell(row, col)
		}
		key := strings.Join(parts, "|")
		if seen[key] {
			report(row, strings.Join(c.Columns, ","), c.checkName(), key)
			continue
		}
		seen[key] = true
	}
}

// NumericIdentity enforces a cross-field identity
// |minuend - subtrahend - result| < tolerance on every row. Rows whose
// operands do not parse are skipped here; the dtype rules already
// reported them.
type NumericIdentity struct {
	Minuend    string
	Subtrahend string
	Result     string
	Tolerance  float64
	Label      string
}

func (c NumericIdentity) Apply(tbl *csvio.Table, report func(row int, column, check, failureCase string)) {
	for row := range tbl.Rows {
		a, errA := strconv.ParseFloat(strings.TrimSpace(tbl.Cell(row, c.Minuend)), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(tbl.Cell(row, c.Subtrahend)), 64)
		r, errR := strconv.ParseFloat(strings.TrimSpace(tbl.Cell(row, c.Result)), 64)
		if errA != nil || errB != nil || errR != nil {
			continue
		}
		residual := a - b - r
		if math.Abs(residual) >= c.Tolerance {
			report(row, c.Result, c.Label, fmt.Sprintf("%.2f", residual))
		}
	}
}
