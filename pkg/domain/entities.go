// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by gridcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityBase identifies a top-level base container record.
	EntityBase EntityType = "base"
	// EntityTable identifies a table record.
	EntityTable EntityType = "table"
	// EntityColumn identifies a column record.
	EntityColumn EntityType = "column"
	// EntityRow identifies a row record.
	EntityRow EntityType = "row"
	// EntityCell identifies a cell record.
	EntityCell EntityType = "cell"
	// EntityView identifies a saved view record.
	EntityView EntityType = "view"
)

// ColumnType enumerates the supported column value types.
type ColumnType string

// Canonical column types. Number columns accept only values that parse as a
// finite number, or the empty string.
const (
	ColumnText   ColumnType = "text"
	ColumnNumber ColumnType = "number"
)

// IndexColumnID is the reserved identifier for the synthetic index column.
// It is always a valid column reference inside view configurations even
// though no Column record carries it.
const IndexColumnID = "__index__"

// Record contains common fields for all domain records.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Base is the top-level container a user owns, holding multiple tables.
type Base struct {
	Record
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
}

// Table is a named grid of rows and columns within a base. Every table owns
// at least one view at all times, exactly one of which is the default.
type Table struct {
	Record
	BaseID string `json:"base_id"`
	Name   string `json:"name"`
}

// Column belongs to one table. Order is a comparison key, not an index: the
// sequence is dense on creation but gaps are tolerated after deletions.
type Column struct {
	Record
	TableID string     `json:"table_id"`
	Label   string     `json:"label"`
	Type    ColumnType `json:"type"`
	Order   int        `json:"order"`
}

// Row belongs to one table and carries the same order semantics as Column.
type Row struct {
	Record
	TableID string `json:"table_id"`
	Order   int    `json:"order"`
}

// CellKey addresses a cell by its owning table, row, and column.
type CellKey struct {
	TableID  string `json:"table_id"`
	RowID    string `json:"row_id"`
	ColumnID string `json:"column_id"`
}

// Cell stores a single value. A cell record exists only once it has been
// written; a blank value is represented as an empty string, not a deletion,
// and count-based limits treat empty values as not counted.
type Cell struct {
	CellKey
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty reports whether the cell holds no value.
func (c Cell) Empty() bool { return c.Value == "" }

// SortKey orders rows by one column.
type SortKey struct {
	ColumnID   string `json:"column_id"`
	Descending bool   `json:"descending,omitempty"`
}

// ColumnFilter restricts rows to those whose cell in the column matches value.
type ColumnFilter struct {
	ColumnID string `json:"column_id"`
	Value    string `json:"value"`
}

// ColumnPinning holds the columns pinned to each table edge.
type ColumnPinning struct {
	Left  []string `json:"left,omitempty"`
	Right []string `json:"right,omitempty"`
}

// ViewConfig bundles the presentation state a view persists. All column
// references inside the configuration must resolve to live columns of the
// owning table; NormalizeViewConfig actively repairs this invariant.
type ViewConfig struct {
	Sorting          []SortKey          `json:"sorting,omitempty"`
	ColumnFilters    []ColumnFilter     `json:"column_filters,omitempty"`
	ColumnVisibility map[string]bool    `json:"column_visibility,omitempty"`
	ColumnSizing     map[string]float64 `json:"column_sizing,omitempty"`
	ColumnPinning    ColumnPinning      `json:"column_pinning"`
	GlobalSearch     string             `json:"global_search,omitempty"`
}

// View is a saved presentation configuration for a table.
type View struct {
	Record
	TableID   string     `json:"table_id"`
	Name      string     `json:"name"`
	IsDefault bool       `json:"is_default"`
	Config    ViewConfig `json:"config"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured per transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn records a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
