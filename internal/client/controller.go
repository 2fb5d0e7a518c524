// Package client maintains an optimistic local replica of one table for an
// interactive surface. Edits appear locally with zero latency while the
// authoritative mutation is in flight; reconciliation afterwards is
// deterministic. Structural edits hold the StructuralGate so the periodic
// cell flush never references rows or columns that are still provisional.
package client

import (
	"context"
	"sync"

	"gridcore/internal/core"
	"gridcore/pkg/domain"
)

// ID tags an identifier as provisional or canonical. Local is the stable key
// the rendering layer binds selection and focus to; it never changes once
// minted. Canonical is empty until the server has confirmed the entity.
type ID struct {
	Local     string
	Canonical string
}

// Confirmed reports whether the server has assigned a canonical identifier.
func (id ID) Confirmed() bool {
	return id.Canonical != ""
}

// ServerID returns the identifier to use when talking to the server.
func (id ID) ServerID() string {
	if id.Canonical != "" {
		return id.Canonical
	}
	return id.Local
}

func canonicalID(id string) ID {
	return ID{Local: id, Canonical: id}
}

// EditState tracks an in-flight edit.
type EditState int

const (
	EditPending EditState = iota
	EditCommitted
	EditRolledBack
)

// Edit is the per-edit state machine. Done is closed once the edit has either
// committed or rolled back.
type Edit struct {
	mu    sync.Mutex
	state EditState
	err   error
	done  chan struct{}
}

func newEdit() *Edit {
	return &Edit{done: make(chan struct{})}
}

// Done returns a channel closed when the edit leaves the pending state.
func (e *Edit) Done() <-chan struct{} {
	return e.done
}

// State returns the edit's current state.
func (e *Edit) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the failure that rolled the edit back, if any.
func (e *Edit) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Edit) finish(err error) {
	e.mu.Lock()
	if err != nil {
		e.state = EditRolledBack
		e.err = err
	} else {
		e.state = EditCommitted
	}
	e.mu.Unlock()
	close(e.done)
}

// LocalColumn is the client's view of a column. Optimistic marks records the
// server has not confirmed yet.
type LocalColumn struct {
	ID         ID
	Label      string
	Type       domain.ColumnType
	Order      int
	Optimistic bool
}

// LocalRow is the client's view of a row.
type LocalRow struct {
	ID         ID
	Order      int
	Optimistic bool
}

// LocalView is the client's view of a saved view.
type LocalView struct {
	ID         ID
	Name       string
	IsDefault  bool
	Config     domain.ViewConfig
	Optimistic bool
}

type cellRef struct {
	row, col string // local keys
}

// Controller keeps the optimistic replica for one table and drives every
// mutation against the service.
type Controller struct {
	svc     *core.Service
	actor   string
	tableID string
	gate    StructuralGate

	mu        sync.Mutex
	columns   []LocalColumn
	rows      []LocalRow
	views     []LocalView
	cells     map[cellRef]string
	pending   map[cellRef]pendingCell
	deferred  map[string]pendingView // local view key -> save awaiting gate
	canonical map[string]string      // provisional token -> canonical id
}

// NewController constructs a controller for one table.
func NewController(svc *core.Service, actor, tableID string) *Controller {
	return &Controller{
		svc:       svc,
		actor:     actor,
		tableID:   tableID,
		cells:     make(map[cellRef]string),
		pending:   make(map[cellRef]pendingCell),
		deferred:  make(map[string]pendingView),
		canonical: make(map[string]string),
	}
}

// Gate exposes the structural gate, mainly for tests and for composing
// several controllers over one surface.
func (c *Controller) Gate() *StructuralGate {
	return &c.gate
}

// Load replaces the local replica with the server's committed state.
func (c *Controller) Load(ctx context.Context) error {
	columns := c.svc.ListColumns(c.tableID)
	rows := c.svc.ListRows(c.tableID)
	views := c.svc.ListViews(c.tableID)
	cellRecords := c.svc.ListCells(c.tableID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.columns = c.columns[:0]
	for _, col := range columns {
		c.columns = append(c.columns, LocalColumn{ID: canonicalID(col.ID), Label: col.Label, Type: col.Type, Order: col.Order})
	}
	c.rows = c.rows[:0]
	for _, row := range rows {
		c.rows = append(c.rows, LocalRow{ID: canonicalID(row.ID), Order: row.Order})
	}
	c.views = c.views[:0]
	for _, view := range views {
		c.views = append(c.views, LocalView{ID: canonicalID(view.ID), Name: view.Name, IsDefault: view.IsDefault, Config: view.Config})
	}
	c.cells = make(map[cellRef]string, len(cellRecords))
	for _, cell := range cellRecords {
		if cell.Empty() {
			continue
		}
		c.cells[cellRef{row: cell.RowID, col: cell.ColumnID}] = cell.Value
	}
	return nil
}

// Columns returns a copy of the local column list in display order.
func (c *Controller) Columns() []LocalColumn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LocalColumn, len(c.columns))
	copy(out, c.columns)
	return out
}

// Rows returns a copy of the local row list in display order.
func (c *Controller) Rows() []LocalRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LocalRow, len(c.rows))
	copy(out, c.rows)
	return out
}

// Views returns a copy of the local view list.
func (c *Controller) Views() []LocalView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LocalView, len(c.views))
	copy(out, c.views)
	return out
}

// CellValue returns the local value at (rowKey, colKey), pending edits
// included.
func (c *Controller) CellValue(rowKey, colKey string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cells[cellRef{row: rowKey, col: colKey}]
}

// resolve maps a provisional token to its canonical id once confirmed. It
// satisfies domain.ResolveFunc.
func (c *Controller) resolve(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.canonical[token]
	return id, ok
}

func (c *Controller) confirm(local, canonical string) {
	c.mu.Lock()
	c.canonical[local] = canonical
	c.mu.Unlock()
}

// AddColumn inserts an optimistic column and submits the authoritative
// mutation. On success the provisional record is replaced in place, keeping
// its local key; on failure it is removed.
func (c *Controller) AddColumn(ctx context.Context, label string, columnType domain.ColumnType) (string, *Edit, error) {
	local := NewProvisionalID()
	edit := newEdit()

	c.mu.Lock()
	order := 0
	for _, col := range c.columns {
		if col.Order >= order {
			order = col.Order + 1
		}
	}
	c.columns = append(c.columns, LocalColumn{ID: ID{Local: local}, Label: label, Type: columnType, Order: order, Optimistic: true})
	// Enter the gate before the provisional record becomes observable without
	// it; a flush tick between the two would reference an unconfirmed column.
	c.gate.Enter()
	c.mu.Unlock()
	defer c.gate.Leave()

	outcome, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationAddColumn,
		Actor:   c.actor,
		Payload: core.AddColumnPayload{TableID: c.tableID, Label: label, Type: columnType},
	})
	if err != nil {
		c.removeColumn(local)
		edit.finish(err)
		return "", edit, err
	}

	c.mu.Lock()
	for i := range c.columns {
		if c.columns[i].ID.Local != local {
			continue
		}
		c.columns[i] = LocalColumn{
			ID:    ID{Local: local, Canonical: outcome.Column.ID},
			Label: outcome.Column.Label,
			Type:  outcome.Column.Type,
			Order: outcome.Column.Order,
		}
		break
	}
	c.canonical[local] = outcome.Column.ID
	c.mu.Unlock()
	edit.finish(nil)
	return local, edit, nil
}

// AddRow inserts an optimistic row and submits the authoritative mutation.
func (c *Controller) AddRow(ctx context.Context) (string, *Edit, error) {
	local := NewProvisionalID()
	edit := newEdit()

	c.mu.Lock()
	order := 0
	for _, row := range c.rows {
		if row.Order >= order {
			order = row.Order + 1
		}
	}
	c.rows = append(c.rows, LocalRow{ID: ID{Local: local}, Order: order, Optimistic: true})
	c.gate.Enter()
	c.mu.Unlock()
	defer c.gate.Leave()

	outcome, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationAddRow,
		Actor:   c.actor,
		Payload: core.AddRowPayload{TableID: c.tableID},
	})
	if err != nil {
		c.removeRow(local)
		edit.finish(err)
		return "", edit, err
	}

	c.mu.Lock()
	for i := range c.rows {
		if c.rows[i].ID.Local != local {
			continue
		}
		c.rows[i] = LocalRow{ID: ID{Local: local, Canonical: outcome.Row.ID}, Order: outcome.Row.Order}
		break
	}
	c.canonical[local] = outcome.Row.ID
	c.mu.Unlock()
	edit.finish(nil)
	return local, edit, nil
}

// CreateView inserts an optimistic view and submits the authoritative
// mutation. The configuration is normalized against the confirmed column set
// before submission.
func (c *Controller) CreateView(ctx context.Context, name string, isDefault bool, cfg domain.ViewConfig) (string, *Edit, error) {
	local := NewProvisionalID()
	edit := newEdit()

	c.mu.Lock()
	c.views = append(c.views, LocalView{ID: ID{Local: local}, Name: name, IsDefault: isDefault, Config: cfg, Optimistic: true})
	c.gate.Enter()
	c.mu.Unlock()
	defer c.gate.Leave()

	outcome, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationCreateView,
		Actor:   c.actor,
		Payload: core.CreateViewPayload{TableID: c.tableID, Name: name, IsDefault: isDefault, Config: c.normalizeConfig(cfg)},
	})
	if err != nil {
		c.removeView(local)
		edit.finish(err)
		return "", edit, err
	}

	c.mu.Lock()
	for i := range c.views {
		if c.views[i].ID.Local != local {
			continue
		}
		c.views[i] = LocalView{
			ID:        ID{Local: local, Canonical: outcome.View.ID},
			Name:      outcome.View.Name,
			IsDefault: outcome.View.IsDefault,
			Config:    outcome.View.Config,
		}
		break
	}
	c.canonical[local] = outcome.View.ID
	c.mu.Unlock()
	edit.finish(nil)
	return local, edit, nil
}

// DeleteColumn removes the column locally, drops its cells, and submits the
// authoritative mutation. On failure the pre-edit state is restored.
func (c *Controller) DeleteColumn(ctx context.Context, localKey string) error {
	c.mu.Lock()
	target, ok := c.findColumn(localKey)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	snapColumns := append([]LocalColumn(nil), c.columns...)
	snapCells := c.snapshotCellsLocked()
	c.columns = removeColumnSlice(c.columns, localKey)
	for ref := range c.cells {
		if ref.col == localKey {
			delete(c.cells, ref)
		}
	}
	c.gate.Enter()
	c.mu.Unlock()
	defer c.gate.Leave()

	_, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationDeleteColumn,
		Actor:   c.actor,
		Payload: core.DeleteColumnPayload{TableID: c.tableID, ColumnID: target.ID.ServerID()},
	})
	if err != nil {
		c.mu.Lock()
		c.columns = snapColumns
		c.cells = snapCells
		c.mu.Unlock()
		return err
	}
	return nil
}

// DeleteRow removes the row locally and submits the authoritative mutation.
func (c *Controller) DeleteRow(ctx context.Context, localKey string) error {
	c.mu.Lock()
	target, ok := c.findRow(localKey)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	snapRows := append([]LocalRow(nil), c.rows...)
	snapCells := c.snapshotCellsLocked()
	c.rows = removeRowSlice(c.rows, localKey)
	for ref := range c.cells {
		if ref.row == localKey {
			delete(c.cells, ref)
		}
	}
	c.gate.Enter()
	c.mu.Unlock()
	defer c.gate.Leave()

	_, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationDeleteRow,
		Actor:   c.actor,
		Payload: core.DeleteRowPayload{TableID: c.tableID, RowID: target.ID.ServerID()},
	})
	if err != nil {
		c.mu.Lock()
		c.rows = snapRows
		c.cells = snapCells
		c.mu.Unlock()
		return err
	}
	return nil
}

// DeleteView removes the view locally and submits the authoritative mutation.
func (c *Controller) DeleteView(ctx context.Context, localKey string) error {
	c.mu.Lock()
	target, ok := c.findView(localKey)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	snapViews := append([]LocalView(nil), c.views...)
	c.views = removeViewSlice(c.views, localKey)
	delete(c.deferred, localKey)
	c.mu.Unlock()

	_, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationDeleteView,
		Actor:   c.actor,
		Payload: core.DeleteViewPayload{TableID: c.tableID, ViewID: target.ID.ServerID()},
	})
	if err != nil {
		c.mu.Lock()
		c.views = snapViews
		c.mu.Unlock()
		return err
	}
	return nil
}

// RenameColumn applies the rename locally and submits the authoritative
// mutation. On failure the previous label is restored.
func (c *Controller) RenameColumn(ctx context.Context, localKey, label string) error {
	c.mu.Lock()
	target, ok := c.findColumn(localKey)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	previous := target.Label
	c.setColumnLabel(localKey, label)
	c.mu.Unlock()

	_, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationRenameColumn,
		Actor:   c.actor,
		Payload: core.RenameColumnPayload{TableID: c.tableID, ColumnID: target.ID.ServerID(), Label: label},
	})
	if err != nil {
		c.mu.Lock()
		c.setColumnLabel(localKey, previous)
		c.mu.Unlock()
		return err
	}
	return nil
}

// SaveView persists a view configuration. While a structural edit is in
// flight the save is deferred and replayed by the next flush, since the
// configuration may reference columns that are still provisional. On failure
// the previous configuration is restored.
func (c *Controller) SaveView(ctx context.Context, localKey string, cfg domain.ViewConfig) error {
	c.mu.Lock()
	target, ok := c.findView(localKey)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	previous := target.Config
	c.setViewConfig(localKey, cfg)
	if c.gate.Held() {
		entry, queued := c.deferred[localKey]
		if !queued {
			entry = pendingView{previous: previous}
		}
		entry.cfg = cfg
		c.deferred[localKey] = entry
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if err := c.pushViewConfig(ctx, target.ID.ServerID(), cfg); err != nil {
		c.rollbackView(localKey, previous)
		return err
	}
	return nil
}

func (c *Controller) pushViewConfig(ctx context.Context, viewID string, cfg domain.ViewConfig) error {
	normalized := c.normalizeConfig(cfg)
	_, _, err := c.svc.Submit(ctx, core.Mutation{
		Kind:    core.MutationUpdateView,
		Actor:   c.actor,
		Payload: core.UpdateViewPayload{TableID: c.tableID, ViewID: viewID, Config: &normalized},
	})
	return err
}

// normalizeConfig maps provisional column references to canonical ids and
// drops references to columns that no longer exist.
func (c *Controller) normalizeConfig(cfg domain.ViewConfig) domain.ViewConfig {
	c.mu.Lock()
	ids := make([]string, 0, len(c.columns))
	for _, col := range c.columns {
		if col.ID.Confirmed() {
			ids = append(ids, col.ID.Canonical)
		}
	}
	c.mu.Unlock()
	return domain.NormalizeViewConfig(cfg, domain.NewIDSet(ids...), c.resolve)
}

func (c *Controller) findColumn(localKey string) (LocalColumn, bool) {
	for _, col := range c.columns {
		if col.ID.Local == localKey {
			return col, true
		}
	}
	return LocalColumn{}, false
}

func (c *Controller) findRow(localKey string) (LocalRow, bool) {
	for _, row := range c.rows {
		if row.ID.Local == localKey {
			return row, true
		}
	}
	return LocalRow{}, false
}

func (c *Controller) findView(localKey string) (LocalView, bool) {
	for _, view := range c.views {
		if view.ID.Local == localKey {
			return view, true
		}
	}
	return LocalView{}, false
}

func (c *Controller) setColumnLabel(localKey, label string) {
	for i := range c.columns {
		if c.columns[i].ID.Local == localKey {
			c.columns[i].Label = label
			return
		}
	}
}

func (c *Controller) setViewConfig(localKey string, cfg domain.ViewConfig) {
	for i := range c.views {
		if c.views[i].ID.Local == localKey {
			c.views[i].Config = cfg
			return
		}
	}
}

func (c *Controller) snapshotCellsLocked() map[cellRef]string {
	snap := make(map[cellRef]string, len(c.cells))
	for ref, value := range c.cells {
		snap[ref] = value
	}
	return snap
}

func (c *Controller) removeColumn(localKey string) {
	c.mu.Lock()
	c.columns = removeColumnSlice(c.columns, localKey)
	c.mu.Unlock()
}

func (c *Controller) removeRow(localKey string) {
	c.mu.Lock()
	c.rows = removeRowSlice(c.rows, localKey)
	c.mu.Unlock()
}

func (c *Controller) removeView(localKey string) {
	c.mu.Lock()
	c.views = removeViewSlice(c.views, localKey)
	c.mu.Unlock()
}

func removeColumnSlice(columns []LocalColumn, localKey string) []LocalColumn {
	out := columns[:0]
	for _, col := range columns {
		if col.ID.Local != localKey {
			out = append(out, col)
		}
	}
	return out
}

func removeRowSlice(rows []LocalRow, localKey string) []LocalRow {
	out := rows[:0]
	for _, row := range rows {
		if row.ID.Local != localKey {
			out = append(out, row)
		}
	}
	return out
}

func removeViewSlice(views []LocalView, localKey string) []LocalView {
	out := views[:0]
	for _, view := range views {
		if view.ID.Local != localKey {
			out = append(out, view)
		}
	}
	return out
}
