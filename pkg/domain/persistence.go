package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Every method observes writes made
// earlier in the same transaction; nothing is visible outside it until the
// transaction commits.
type Transaction interface {
	Snapshot() TransactionView

	CreateBase(Base) (Base, error)
	UpdateBase(id string, mutator func(*Base) error) (Base, error)
	DeleteBase(id string) error

	CreateTable(Table) (Table, error)
	UpdateTable(id string, mutator func(*Table) error) (Table, error)
	DeleteTable(id string) error

	CreateColumn(Column) (Column, error)
	UpdateColumn(id string, mutator func(*Column) error) (Column, error)
	DeleteColumn(id string) error

	CreateRow(Row) (Row, error)
	DeleteRow(id string) error

	CreateView(View) (View, error)
	UpdateView(id string, mutator func(*View) error) (View, error)
	DeleteView(id string) error

	// SetCell writes the value at key, creating the cell record if it has
	// never been written. Writing an empty value keeps the record and blanks
	// it; blank cells are not counted against cell limits.
	SetCell(key CellKey, value string) (Cell, error)

	FindBase(id string) (Base, bool)
	FindTable(id string) (Table, bool)
	FindColumn(id string) (Column, bool)
	FindRow(id string) (Row, bool)
	FindView(id string) (View, bool)
	FindCell(key CellKey) (Cell, bool)

	ListTables(baseID string) []Table
	ListColumns(tableID string) []Column
	ListRows(tableID string) []Row
	ListViews(tableID string) []View
	ListCells(tableID string) []Cell

	CountBases(ownerID string) int
	CountTables(baseID string) int
	CountColumns(tableID string) int
	CountRows(tableID string) int
	CountViews(tableID string) int
	// CountNonEmptyCells counts the cells of a table holding a non-empty value.
	CountNonEmptyCells(tableID string) int
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListBases() []Base
	ListTables(baseID string) []Table
	ListColumns(tableID string) []Column
	ListRows(tableID string) []Row
	ListViews(tableID string) []View
	ListCells(tableID string) []Cell
	FindBase(id string) (Base, bool)
	FindTable(id string) (Table, bool)
	FindColumn(id string) (Column, bool)
	FindRow(id string) (Row, bool)
	FindView(id string) (View, bool)
	FindCell(key CellKey) (Cell, bool)
	AllTables() []Table
}

// PersistentStore is a minimal abstraction over durable backends. Each call
// to RunInTransaction is atomic: either every write in fn commits, or none
// do. Registered rules are evaluated against the post-transaction state and
// blocking violations abort the commit.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error

	GetBase(id string) (Base, bool)
	GetTable(id string) (Table, bool)
	GetView(id string) (View, bool)
	ListBases(ownerID string) []Base
	ListTables(baseID string) []Table
	ListColumns(tableID string) []Column
	ListRows(tableID string) []Row
	ListViews(tableID string) []View
	ListCells(tableID string) []Cell
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
