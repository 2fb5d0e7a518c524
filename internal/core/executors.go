package core

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"gridcore/pkg/domain"
)

// executors perform the effect of a single mutation against an open
// transaction. Authorization and payload-shape validation happen before
// enqueue; by the time an executor runs, the payload is well-formed. Each
// executor enforces its count limits inside the same transaction that
// inserts, so limits cannot be overshot by racing mutations even without the
// queue's per-key serialization.

func (s *Service) applyMutation(tx Transaction, m Mutation) (Outcome, error) {
	switch p := m.Payload.(type) {
	case CreateBasePayload:
		return s.execCreateBase(tx, p)
	case DeleteBasePayload:
		return s.execDeleteBase(tx, p)
	case CreateTablePayload:
		return s.execCreateTable(tx, p)
	case RenameTablePayload:
		return s.execRenameTable(tx, p)
	case DeleteTablePayload:
		return s.execDeleteTable(tx, p)
	case AddColumnPayload:
		return s.execAddColumn(tx, p)
	case RenameColumnPayload:
		return s.execRenameColumn(tx, p)
	case DeleteColumnPayload:
		return s.execDeleteColumn(tx, p)
	case AddRowPayload:
		return s.execAddRow(tx, p)
	case DeleteRowPayload:
		return s.execDeleteRow(tx, p)
	case CreateViewPayload:
		return s.execCreateView(tx, p)
	case UpdateViewPayload:
		return s.execUpdateView(tx, p)
	case DeleteViewPayload:
		return s.execDeleteView(tx, p)
	case UpdateCellsPayload:
		return s.execUpdateCells(tx, p)
	}
	return Outcome{}, ValidationError{Reason: fmt.Sprintf("no executor for kind %s", m.Kind)}
}

func (s *Service) execCreateBase(tx Transaction, p CreateBasePayload) (Outcome, error) {
	if max := s.limits.MaxBasesPerOwner; max > 0 && tx.CountBases(p.OwnerID) >= max {
		return Outcome{}, LimitError{Entity: EntityBase, Limit: max}
	}
	created, err := tx.CreateBase(Base{
		OwnerID: p.OwnerID,
		Name:    s.limits.TruncateText(p.Name),
		Icon:    p.Icon,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Base: &created}, nil
}

// execDeleteBase clears children in scoped passes (cells and rows and columns
// per table, then views, then tables, then the base). Each pass is idempotent
// so an interrupted cascade can simply be re-run.
func (s *Service) execDeleteBase(tx Transaction, p DeleteBasePayload) (Outcome, error) {
	base, ok := tx.FindBase(p.BaseID)
	if !ok || base.OwnerID != p.OwnerID {
		return Outcome{}, nil // already gone
	}
	for _, table := range tx.ListTables(p.BaseID) {
		if err := clearTable(tx, table.ID); err != nil {
			return Outcome{}, err
		}
		if err := tx.DeleteTable(table.ID); err != nil {
			return Outcome{}, err
		}
	}
	if err := tx.DeleteBase(p.BaseID); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

func clearTable(tx Transaction, tableID string) error {
	for _, row := range tx.ListRows(tableID) {
		if err := tx.DeleteRow(row.ID); err != nil {
			return err
		}
	}
	for _, col := range tx.ListColumns(tableID) {
		if err := tx.DeleteColumn(col.ID); err != nil {
			return err
		}
	}
	for _, view := range tx.ListViews(tableID) {
		if err := tx.DeleteView(view.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) execCreateTable(tx Transaction, p CreateTablePayload) (Outcome, error) {
	if _, ok := tx.FindBase(p.BaseID); !ok {
		return Outcome{}, NotFoundError{Entity: EntityBase, ID: p.BaseID}
	}
	if max := s.limits.MaxTablesPerBase; max > 0 && tx.CountTables(p.BaseID) >= max {
		return Outcome{}, LimitError{Entity: EntityTable, Limit: max}
	}
	table, err := tx.CreateTable(Table{BaseID: p.BaseID, Name: s.limits.TruncateText(p.Name)})
	if err != nil {
		return Outcome{}, err
	}
	// Every table carries exactly one default view from the moment it exists.
	view, err := tx.CreateView(View{TableID: table.ID, Name: "Grid view", IsDefault: true})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Table: &table, DefaultView: &view}, nil
}

func (s *Service) execRenameTable(tx Transaction, p RenameTablePayload) (Outcome, error) {
	if _, ok := tx.FindTable(p.TableID); !ok {
		return Outcome{}, nil // renaming a vanished table is a no-op
	}
	updated, err := tx.UpdateTable(p.TableID, func(t *Table) error {
		t.Name = s.limits.TruncateText(p.Name)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Table: &updated}, nil
}

func (s *Service) execDeleteTable(tx Transaction, p DeleteTablePayload) (Outcome, error) {
	table, ok := tx.FindTable(p.TableID)
	if !ok || table.BaseID != p.BaseID {
		return Outcome{}, nil // already gone
	}
	if err := clearTable(tx, p.TableID); err != nil {
		return Outcome{}, err
	}
	if err := tx.DeleteTable(p.TableID); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

func (s *Service) execAddColumn(tx Transaction, p AddColumnPayload) (Outcome, error) {
	if _, ok := tx.FindTable(p.TableID); !ok {
		return Outcome{}, NotFoundError{Entity: EntityTable, ID: p.TableID}
	}
	columns := tx.ListColumns(p.TableID)
	if max := s.limits.MaxColumnsPerTable; max > 0 && len(columns) >= max {
		return Outcome{}, LimitError{Entity: EntityColumn, Limit: max}
	}
	order := 0
	for _, c := range columns {
		if c.Order >= order {
			order = c.Order + 1
		}
	}
	created, err := tx.CreateColumn(Column{
		TableID: p.TableID,
		Label:   s.limits.TruncateText(p.Label),
		Type:    p.Type,
		Order:   order,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Column: &created}, nil
}

func (s *Service) execRenameColumn(tx Transaction, p RenameColumnPayload) (Outcome, error) {
	column, ok := tx.FindColumn(p.ColumnID)
	if !ok || column.TableID != p.TableID {
		return Outcome{}, nil // renaming a vanished column is a no-op
	}
	updated, err := tx.UpdateColumn(p.ColumnID, func(c *Column) error {
		c.Label = s.limits.TruncateText(p.Label)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Column: &updated}, nil
}

// execDeleteColumn removes the column and its cells, then repairs every view
// of the table that still referenced it.
func (s *Service) execDeleteColumn(tx Transaction, p DeleteColumnPayload) (Outcome, error) {
	column, ok := tx.FindColumn(p.ColumnID)
	if !ok || column.TableID != p.TableID {
		return Outcome{}, nil // already gone
	}
	if err := tx.DeleteColumn(p.ColumnID); err != nil {
		return Outcome{}, err
	}
	if err := normalizeTableViews(tx, p.TableID); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

func normalizeTableViews(tx Transaction, tableID string) error {
	valid := domain.ColumnIDsOf(tx.ListColumns(tableID))
	for _, view := range tx.ListViews(tableID) {
		normalized := domain.NormalizeViewConfig(view.Config, valid, nil)
		if reflect.DeepEqual(normalized, view.Config) {
			continue
		}
		if _, err := tx.UpdateView(view.ID, func(v *View) error {
			v.Config = normalized
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) execAddRow(tx Transaction, p AddRowPayload) (Outcome, error) {
	if _, ok := tx.FindTable(p.TableID); !ok {
		return Outcome{}, NotFoundError{Entity: EntityTable, ID: p.TableID}
	}
	rows := tx.ListRows(p.TableID)
	if max := s.limits.MaxRowsPerTable; max > 0 && len(rows) >= max {
		return Outcome{}, LimitError{Entity: EntityRow, Limit: max}
	}
	order := 0
	for _, r := range rows {
		if r.Order >= order {
			order = r.Order + 1
		}
	}
	created, err := tx.CreateRow(Row{TableID: p.TableID, Order: order})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Row: &created}, nil
}

func (s *Service) execDeleteRow(tx Transaction, p DeleteRowPayload) (Outcome, error) {
	row, ok := tx.FindRow(p.RowID)
	if !ok || row.TableID != p.TableID {
		return Outcome{}, nil // already gone
	}
	if err := tx.DeleteRow(p.RowID); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

func (s *Service) execCreateView(tx Transaction, p CreateViewPayload) (Outcome, error) {
	if _, ok := tx.FindTable(p.TableID); !ok {
		return Outcome{}, NotFoundError{Entity: EntityTable, ID: p.TableID}
	}
	if max := s.limits.MaxViewsPerTable; max > 0 && tx.CountViews(p.TableID) >= max {
		return Outcome{}, LimitError{Entity: EntityView, Limit: max}
	}
	if p.IsDefault {
		if err := clearDefaultViews(tx, p.TableID); err != nil {
			return Outcome{}, err
		}
	}
	valid := domain.ColumnIDsOf(tx.ListColumns(p.TableID))
	created, err := tx.CreateView(View{
		TableID:   p.TableID,
		Name:      s.limits.TruncateText(p.Name),
		IsDefault: p.IsDefault,
		Config:    domain.NormalizeViewConfig(p.Config, valid, nil),
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{View: &created}, nil
}

func clearDefaultViews(tx Transaction, tableID string) error {
	for _, sibling := range tx.ListViews(tableID) {
		if !sibling.IsDefault {
			continue
		}
		if _, err := tx.UpdateView(sibling.ID, func(v *View) error {
			v.IsDefault = false
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) execUpdateView(tx Transaction, p UpdateViewPayload) (Outcome, error) {
	view, ok := tx.FindView(p.ViewID)
	if !ok || view.TableID != p.TableID {
		return Outcome{}, nil // updating a vanished view is a no-op
	}
	if p.IsDefault != nil && *p.IsDefault {
		if err := clearDefaultViews(tx, p.TableID); err != nil {
			return Outcome{}, err
		}
	}
	valid := domain.ColumnIDsOf(tx.ListColumns(p.TableID))
	updated, err := tx.UpdateView(p.ViewID, func(v *View) error {
		if p.Name != nil {
			v.Name = s.limits.TruncateText(*p.Name)
		}
		if p.IsDefault != nil {
			v.IsDefault = *p.IsDefault
		}
		if p.Config != nil {
			v.Config = domain.NormalizeViewConfig(*p.Config, valid, nil)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{View: &updated}, nil
}

func (s *Service) execDeleteView(tx Transaction, p DeleteViewPayload) (Outcome, error) {
	view, ok := tx.FindView(p.ViewID)
	if !ok || view.TableID != p.TableID {
		return Outcome{}, nil // already gone
	}
	if err := tx.DeleteView(p.ViewID); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

// execUpdateCells applies a batch of cell writes. Writes referencing unknown
// rows or columns, or values a number column cannot hold, are skipped per
// cell. Value normalization happens before the limit check so the cap
// reflects post-normalization state; the non-empty count including this
// batch's net delta must stay within the cap.
func (s *Service) execUpdateCells(tx Transaction, p UpdateCellsPayload) (Outcome, error) {
	if _, ok := tx.FindTable(p.TableID); !ok {
		return Outcome{}, nil // table vanished: the whole batch is a no-op
	}
	type applied struct {
		key   CellKey
		value string
	}
	keep := make([]applied, 0, len(p.Writes))
	// filled simulates per-key fill state across the batch so duplicate keys
	// contribute their final value to the delta, not one increment per write.
	filled := make(map[CellKey]bool)
	skipped := 0
	delta := 0
	for _, w := range p.Writes {
		row, ok := tx.FindRow(w.RowID)
		if !ok || row.TableID != p.TableID {
			skipped++
			continue
		}
		column, ok := tx.FindColumn(w.ColumnID)
		if !ok || column.TableID != p.TableID {
			skipped++
			continue
		}
		value, ok := s.normalizeCellValue(column.Type, w.Value)
		if !ok {
			skipped++
			continue
		}
		key := CellKey{TableID: p.TableID, RowID: w.RowID, ColumnID: w.ColumnID}
		wasFilled, seen := filled[key]
		if !seen {
			existing, exists := tx.FindCell(key)
			wasFilled = exists && existing.Value != ""
		}
		isFilled := value != ""
		if isFilled && !wasFilled {
			delta++
		} else if !isFilled && wasFilled {
			delta--
		}
		filled[key] = isFilled
		keep = append(keep, applied{key: key, value: value})
	}
	if max := s.limits.MaxCellsPerTable; max > 0 && tx.CountNonEmptyCells(p.TableID)+delta > max {
		return Outcome{}, LimitError{Entity: EntityCell, Limit: max}
	}
	for _, a := range keep {
		if _, err := tx.SetCell(a.key, a.value); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{CellsWritten: len(keep), CellsSkipped: skipped}, nil
}

// normalizeCellValue clamps and type-checks a raw value for a column. The
// boolean result is false when the value cannot be stored in the column.
func (s *Service) normalizeCellValue(columnType ColumnType, value string) (string, bool) {
	switch columnType {
	case ColumnText:
		return s.limits.TruncateText(value), true
	case ColumnNumber:
		if value == "" {
			return "", true
		}
		value = s.limits.TruncateNumeric(value)
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return "", false
		}
		return value, true
	}
	return "", false
}
