// Package csvio implements the tabular file contracts of the pipeline:
// raw and reference inputs are read into untyped tables, curated outputs
// are written with fixed column orders.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Table is an untyped tabular dataset as ingested from disk. No invariants
// hold yet; schema validation decides what the rows mean.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column, or -1 when the table does not
// carry it.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Cell returns the raw value at (row, col), or "" when the column is absent.
func (t *Table) Cell(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// ReadTable loads a CSV file into a Table. A missing file is an error; the
// caller decides whether that aborts the run.
func ReadTable(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: missing file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows surface as validation issues, not read errors
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvio: reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csvio: %s has no header row", path)
	}

	return &Table{Name: name, Columns: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes a header plus rows to path, creating parent directories.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csvio: creating %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvio: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csvio: writing header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csvio: writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvio: flushing %s: %w", path, err)
	}
	return nil
}
