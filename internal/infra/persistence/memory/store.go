// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"gridcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Base aliases domain.Base for in-memory persistence operations.
	Base = domain.Base
	// Table aliases domain.Table.
	Table = domain.Table
	// Column aliases domain.Column.
	Column = domain.Column
	// Row aliases domain.Row.
	Row = domain.Row
	// Cell aliases domain.Cell.
	Cell = domain.Cell
	// CellKey aliases domain.CellKey.
	CellKey = domain.CellKey
	// View aliases domain.View.
	View = domain.View
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	bases   map[string]Base
	tables  map[string]Table
	columns map[string]Column
	rows    map[string]Row
	cells   map[CellKey]Cell
	views   map[string]View
}

func newMemoryState() memoryState {
	return memoryState{
		bases:   make(map[string]Base),
		tables:  make(map[string]Table),
		columns: make(map[string]Column),
		rows:    make(map[string]Row),
		cells:   make(map[CellKey]Cell),
		views:   make(map[string]View),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.bases {
		cloned.bases[k] = v
	}
	for k, v := range s.tables {
		cloned.tables[k] = v
	}
	for k, v := range s.columns {
		cloned.columns[k] = v
	}
	for k, v := range s.rows {
		cloned.rows[k] = v
	}
	for k, v := range s.cells {
		cloned.cells[k] = v
	}
	for k, v := range s.views {
		cloned.views[k] = cloneView(v)
	}
	return cloned
}

func cloneView(v View) View {
	cp := v
	cp.Config = cloneViewConfig(v.Config)
	return cp
}

func cloneViewConfig(cfg domain.ViewConfig) domain.ViewConfig {
	cp := cfg
	cp.Sorting = append([]domain.SortKey(nil), cfg.Sorting...)
	cp.ColumnFilters = append([]domain.ColumnFilter(nil), cfg.ColumnFilters...)
	if cfg.ColumnVisibility != nil {
		cp.ColumnVisibility = make(map[string]bool, len(cfg.ColumnVisibility))
		for k, v := range cfg.ColumnVisibility {
			cp.ColumnVisibility[k] = v
		}
	}
	if cfg.ColumnSizing != nil {
		cp.ColumnSizing = make(map[string]float64, len(cfg.ColumnSizing))
		for k, v := range cfg.ColumnSizing {
			cp.ColumnSizing[k] = v
		}
	}
	cp.ColumnPinning.Left = append([]string(nil), cfg.ColumnPinning.Left...)
	cp.ColumnPinning.Right = append([]string(nil), cfg.ColumnPinning.Right...)
	return cp
}

// Snapshot captures a point-in-time clone of the store state, ordered
// deterministically for external persistence.
type Snapshot struct {
	Bases   []Base   `json:"bases"`
	Tables  []Table  `json:"tables"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Cells   []Cell   `json:"cells"`
	Views   []View   `json:"views"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	snap := Snapshot{
		Bases:   make([]Base, 0, len(state.bases)),
		Tables:  make([]Table, 0, len(state.tables)),
		Columns: make([]Column, 0, len(state.columns)),
		Rows:    make([]Row, 0, len(state.rows)),
		Cells:   make([]Cell, 0, len(state.cells)),
		Views:   make([]View, 0, len(state.views)),
	}
	for _, b := range state.bases {
		snap.Bases = append(snap.Bases, b)
	}
	for _, t := range state.tables {
		snap.Tables = append(snap.Tables, t)
	}
	for _, c := range state.columns {
		snap.Columns = append(snap.Columns, c)
	}
	for _, r := range state.rows {
		snap.Rows = append(snap.Rows, r)
	}
	for _, c := range state.cells {
		snap.Cells = append(snap.Cells, c)
	}
	for _, v := range state.views {
		snap.Views = append(snap.Views, cloneView(v))
	}
	sort.Slice(snap.Bases, func(i, j int) bool { return snap.Bases[i].ID < snap.Bases[j].ID })
	sort.Slice(snap.Tables, func(i, j int) bool { return snap.Tables[i].ID < snap.Tables[j].ID })
	sort.Slice(snap.Columns, func(i, j int) bool { return snap.Columns[i].ID < snap.Columns[j].ID })
	sort.Slice(snap.Rows, func(i, j int) bool { return snap.Rows[i].ID < snap.Rows[j].ID })
	sort.Slice(snap.Cells, func(i, j int) bool { return cellKeyLess(snap.Cells[i].CellKey, snap.Cells[j].CellKey) })
	sort.Slice(snap.Views, func(i, j int) bool { return snap.Views[i].ID < snap.Views[j].ID })
	return snap
}

func cellKeyLess(a, b CellKey) bool {
	if a.TableID != b.TableID {
		return a.TableID < b.TableID
	}
	if a.RowID != b.RowID {
		return a.RowID < b.RowID
	}
	return a.ColumnID < b.ColumnID
}

func memoryStateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for _, b := range snap.Bases {
		state.bases[b.ID] = b
	}
	for _, t := range snap.Tables {
		state.tables[t.ID] = t
	}
	for _, c := range snap.Columns {
		state.columns[c.ID] = c
	}
	for _, r := range snap.Rows {
		state.rows[r.ID] = r
	}
	for _, c := range snap.Cells {
		state.cells[c.CellKey] = c
	}
	for _, v := range snap.Views {
		state.views[v.ID] = cloneView(v)
	}
	return state
}

// Store provides an in-memory transactional store for the grid domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine returns the engine evaluated at commit time.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// SetNowFunc overrides the clock used to stamp records. Test hook.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   *memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn succeeds and no blocking
// rule violation is present.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	tx := &transaction{
		store: s,
		state: &working,
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&working)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = working
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state read-only.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(tx.state)
}

// CreateBase stores a new base container within the transaction.
func (tx *transaction) CreateBase(b Base) (Base, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if _, exists := tx.state.bases[b.ID]; exists {
		return Base{}, fmt.Errorf("base %q already exists", b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.bases[b.ID] = b
	tx.recordChange(Change{Entity: domain.EntityBase, Action: domain.ActionCreate, After: b})
	return b, nil
}

// UpdateBase mutates a base using the provided mutator function.
func (tx *transaction) UpdateBase(id string, mutator func(*Base) error) (Base, error) {
	current, ok := tx.state.bases[id]
	if !ok {
		return Base{}, domain.NotFoundError{Entity: domain.EntityBase, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Base{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.bases[id] = current
	tx.recordChange(Change{Entity: domain.EntityBase, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteBase removes a base record. Child tables must already be gone.
func (tx *transaction) DeleteBase(id string) error {
	current, ok := tx.state.bases[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityBase, ID: id}
	}
	delete(tx.state.bases, id)
	tx.recordChange(Change{Entity: domain.EntityBase, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateTable stores a new table.
func (tx *transaction) CreateTable(t Table) (Table, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.tables[t.ID]; exists {
		return Table{}, fmt.Errorf("table %q already exists", t.ID)
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tables[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityTable, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTable mutates an existing table.
func (tx *transaction) UpdateTable(id string, mutator func(*Table) error) (Table, error) {
	current, ok := tx.state.tables[id]
	if !ok {
		return Table{}, domain.NotFoundError{Entity: domain.EntityTable, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Table{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.tables[id] = current
	tx.recordChange(Change{Entity: domain.EntityTable, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTable removes a table record. Child rows, columns, cells, and views
// must already be gone.
func (tx *transaction) DeleteTable(id string) error {
	current, ok := tx.state.tables[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTable, ID: id}
	}
	delete(tx.state.tables, id)
	tx.recordChange(Change{Entity: domain.EntityTable, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateColumn stores a new column.
func (tx *transaction) CreateColumn(c Column) (Column, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.columns[c.ID]; exists {
		return Column{}, fmt.Errorf("column %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.columns[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityColumn, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateColumn mutates an existing column.
func (tx *transaction) UpdateColumn(id string, mutator func(*Column) error) (Column, error) {
	current, ok := tx.state.columns[id]
	if !ok {
		return Column{}, domain.NotFoundError{Entity: domain.EntityColumn, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Column{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.columns[id] = current
	tx.recordChange(Change{Entity: domain.EntityColumn, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteColumn removes a column record and its cells.
func (tx *transaction) DeleteColumn(id string) error {
	current, ok := tx.state.columns[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityColumn, ID: id}
	}
	delete(tx.state.columns, id)
	for key := range tx.state.cells {
		if key.ColumnID == id {
			delete(tx.state.cells, key)
		}
	}
	tx.recordChange(Change{Entity: domain.EntityColumn, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateRow stores a new row.
func (tx *transaction) CreateRow(r Row) (Row, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.rows[r.ID]; exists {
		return Row{}, fmt.Errorf("row %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.rows[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityRow, Action: domain.ActionCreate, After: r})
	return r, nil
}

// DeleteRow removes a row record and its cells.
func (tx *transaction) DeleteRow(id string) error {
	current, ok := tx.state.rows[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityRow, ID: id}
	}
	delete(tx.state.rows, id)
	for key := range tx.state.cells {
		if key.RowID == id {
			delete(tx.state.cells, key)
		}
	}
	tx.recordChange(Change{Entity: domain.EntityRow, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateView stores a new view.
func (tx *transaction) CreateView(v View) (View, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.views[v.ID]; exists {
		return View{}, fmt.Errorf("view %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.views[v.ID] = cloneView(v)
	tx.recordChange(Change{Entity: domain.EntityView, Action: domain.ActionCreate, After: cloneView(v)})
	return cloneView(v), nil
}

// UpdateView mutates an existing view.
func (tx *transaction) UpdateView(id string, mutator func(*View) error) (View, error) {
	current, ok := tx.state.views[id]
	if !ok {
		return View{}, domain.NotFoundError{Entity: domain.EntityView, ID: id}
	}
	before := cloneView(current)
	working := cloneView(current)
	if err := mutator(&working); err != nil {
		return View{}, err
	}
	working.ID = id
	working.UpdatedAt = tx.now
	tx.state.views[id] = cloneView(working)
	tx.recordChange(Change{Entity: domain.EntityView, Action: domain.ActionUpdate, Before: before, After: cloneView(working)})
	return working, nil
}

// DeleteView removes a view record.
func (tx *transaction) DeleteView(id string) error {
	current, ok := tx.state.views[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityView, ID: id}
	}
	delete(tx.state.views, id)
	tx.recordChange(Change{Entity: domain.EntityView, Action: domain.ActionDelete, Before: cloneView(current)})
	return nil
}

// SetCell writes the value at key, creating the cell record on first write.
func (tx *transaction) SetCell(key CellKey, value string) (Cell, error) {
	if key.TableID == "" || key.RowID == "" || key.ColumnID == "" {
		return Cell{}, fmt.Errorf("cell key incomplete: %+v", key)
	}
	before, existed := tx.state.cells[key]
	cell := Cell{CellKey: key, Value: value, UpdatedAt: tx.now}
	tx.state.cells[key] = cell
	change := Change{Entity: domain.EntityCell, Action: domain.ActionCreate, After: cell}
	if existed {
		change.Action = domain.ActionUpdate
		change.Before = before
	}
	tx.recordChange(change)
	return cell, nil
}

// Find helpers --------------------------------------------------------------

func (tx *transaction) FindBase(id string) (Base, bool) {
	b, ok := tx.state.bases[id]
	return b, ok
}

func (tx *transaction) FindTable(id string) (Table, bool) {
	t, ok := tx.state.tables[id]
	return t, ok
}

func (tx *transaction) FindColumn(id string) (Column, bool) {
	c, ok := tx.state.columns[id]
	return c, ok
}

func (tx *transaction) FindRow(id string) (Row, bool) {
	r, ok := tx.state.rows[id]
	return r, ok
}

func (tx *transaction) FindView(id string) (View, bool) {
	v, ok := tx.state.views[id]
	if !ok {
		return View{}, false
	}
	return cloneView(v), true
}

func (tx *transaction) FindCell(key CellKey) (Cell, bool) {
	c, ok := tx.state.cells[key]
	return c, ok
}

// List helpers --------------------------------------------------------------

func (tx *transaction) ListTables(baseID string) []Table {
	return listTables(tx.state, baseID)
}

func (tx *transaction) ListColumns(tableID string) []Column {
	return listColumns(tx.state, tableID)
}

func (tx *transaction) ListRows(tableID string) []Row {
	return listRows(tx.state, tableID)
}

func (tx *transaction) ListViews(tableID string) []View {
	return listViews(tx.state, tableID)
}

func (tx *transaction) ListCells(tableID string) []Cell {
	return listCells(tx.state, tableID)
}

// Count helpers -------------------------------------------------------------

func (tx *transaction) CountBases(ownerID string) int {
	n := 0
	for _, b := range tx.state.bases {
		if b.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (tx *transaction) CountTables(baseID string) int {
	n := 0
	for _, t := range tx.state.tables {
		if t.BaseID == baseID {
			n++
		}
	}
	return n
}

func (tx *transaction) CountColumns(tableID string) int {
	n := 0
	for _, c := range tx.state.columns {
		if c.TableID == tableID {
			n++
		}
	}
	return n
}

func (tx *transaction) CountRows(tableID string) int {
	n := 0
	for _, r := range tx.state.rows {
		if r.TableID == tableID {
			n++
		}
	}
	return n
}

func (tx *transaction) CountViews(tableID string) int {
	n := 0
	for _, v := range tx.state.views {
		if v.TableID == tableID {
			n++
		}
	}
	return n
}

func (tx *transaction) CountNonEmptyCells(tableID string) int {
	n := 0
	for key, c := range tx.state.cells {
		if key.TableID == tableID && !c.Empty() {
			n++
		}
	}
	return n
}

// shared list implementations ------------------------------------------------

func listTables(state *memoryState, baseID string) []Table {
	out := make([]Table, 0)
	for _, t := range state.tables {
		if baseID == "" || t.BaseID == baseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listColumns(state *memoryState, tableID string) []Column {
	out := make([]Column, 0)
	for _, c := range state.columns {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listRows(state *memoryState, tableID string) []Row {
	out := make([]Row, 0)
	for _, r := range state.rows {
		if r.TableID == tableID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listViews(state *memoryState, tableID string) []View {
	out := make([]View, 0)
	for _, v := range state.views {
		if v.TableID == tableID {
			out = append(out, cloneView(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listCells(state *memoryState, tableID string) []Cell {
	out := make([]Cell, 0)
	for key, c := range state.cells {
		if key.TableID == tableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return cellKeyLess(out[i].CellKey, out[j].CellKey) })
	return out
}

// transactionView -----------------------------------------------------------

func (v transactionView) ListBases() []Base {
	out := make([]Base, 0, len(v.state.bases))
	for _, b := range v.state.bases {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) AllTables() []Table {
	return listTables(v.state, "")
}

func (v transactionView) ListTables(baseID string) []Table {
	return listTables(v.state, baseID)
}

func (v transactionView) ListColumns(tableID string) []Column {
	return listColumns(v.state, tableID)
}

func (v transactionView) ListRows(tableID string) []Row {
	return listRows(v.state, tableID)
}

func (v transactionView) ListViews(tableID string) []View {
	return listViews(v.state, tableID)
}

func (v transactionView) ListCells(tableID string) []Cell {
	return listCells(v.state, tableID)
}

func (v transactionView) FindBase(id string) (Base, bool) {
	b, ok := v.state.bases[id]
	return b, ok
}

func (v transactionView) FindTable(id string) (Table, bool) {
	t, ok := v.state.tables[id]
	return t, ok
}

func (v transactionView) FindColumn(id string) (Column, bool) {
	c, ok := v.state.columns[id]
	return c, ok
}

func (v transactionView) FindRow(id string) (Row, bool) {
	r, ok := v.state.rows[id]
	return r, ok
}

func (v transactionView) FindView(id string) (View, bool) {
	view, ok := v.state.views[id]
	if !ok {
		return View{}, false
	}
	return cloneView(view), true
}

func (v transactionView) FindCell(key CellKey) (Cell, bool) {
	c, ok := v.state.cells[key]
	return c, ok
}

// Committed-state read helpers ----------------------------------------------

// GetBase retrieves a base by ID from committed state.
func (s *Store) GetBase(id string) (Base, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.bases[id]
	return b, ok
}

// GetTable retrieves a table by ID from committed state.
func (s *Store) GetTable(id string) (Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.tables[id]
	return t, ok
}

// GetView retrieves a view by ID from committed state.
func (s *Store) GetView(id string) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.views[id]
	if !ok {
		return View{}, false
	}
	return cloneView(v), true
}

// ListBases returns the committed bases belonging to ownerID; all bases when
// ownerID is empty.
func (s *Store) ListBases(ownerID string) []Base {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Base, 0, len(s.state.bases))
	for _, b := range s.state.bases {
		if ownerID == "" || b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTables returns the committed tables of a base.
func (s *Store) ListTables(baseID string) []Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTables(&s.state, baseID)
}

// ListColumns returns the committed columns of a table in order.
func (s *Store) ListColumns(tableID string) []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listColumns(&s.state, tableID)
}

// ListRows returns the committed rows of a table in order.
func (s *Store) ListRows(tableID string) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRows(&s.state, tableID)
}

// ListViews returns the committed views of a table.
func (s *Store) ListViews(tableID string) []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listViews(&s.state, tableID)
}

// ListCells returns the committed cells of a table.
func (s *Store) ListCells(tableID string) []Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCells(&s.state, tableID)
}
