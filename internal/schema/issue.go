package schema

// Severity of a data-quality issue. Severity is derived from the check
// name after validation, not stored at the point of failure.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
)

// Issue is one structured data-quality exception: a single check failing
// on a single row (or on the table as a whole, Row = -1). Issues are
// created during validation, never mutated afterwards, and aggregated
// into the run-level exception log.
type Issue struct {
	Dataset       string
	Row           int // 0-based data row index; -1 for table-level issues
	Column        string
	Check         string
	FailureCase   string
	SchemaContext string // "Column" or "DataFrameSchema"
	Severity      Severity
}

const (
	contextColumn = "Column"
	contextTable  = "DataFrameSchema"
)
