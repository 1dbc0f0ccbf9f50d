package csvio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	content := []byte("date,entity,amount\n2025-12-01,TLM,100.00\n2025-12-02,UPE,200.00\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadTable(path, "sales")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Columns) != 3 || len(tbl.Rows) != 2 {
		t.Fatalf("shape = %d cols x %d rows", len(tbl.Columns), len(tbl.Rows))
	}
	if got := tbl.Cell(1, "entity"); got != "UPE" {
		t.Errorf("Cell(1, entity) = %q", got)
	}
	if got := tbl.Cell(0, "missing"); got != "" {
		t.Errorf("absent column must read empty, got %q", got)
	}
	if tbl.Index("amount") != 2 {
		t.Errorf("Index(amount) = %d", tbl.Index("amount"))
	}
}

func TestReadTableMissingFile(t *testing.T) {
	if _, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"), "nope"); err == nil {
		t.Fatal("missing file must be an error")
	}
}

func TestReadTableEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTable(path, "empty"); err == nil {
		t.Fatal("a file without a header row must be an error")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	header := []string{"a", "b"}
	rows := [][]string{{"1", "x,y"}, {"2", ""}}

	if err := WriteCSV(path, header, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	tbl, err := ReadTable(path, "out")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tbl.Cell(0, "b"); got != "x,y" {
		t.Errorf("quoted comma round trip failed: %q", got)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("rows = %d", len(tbl.Rows))
	}
}
