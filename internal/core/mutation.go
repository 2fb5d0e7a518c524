package core

import (
	"gridcore/pkg/domain"
)

// MutationKind tags the requested change carried by a Mutation.
type MutationKind string

// Supported mutation kinds.
const (
	MutationCreateBase   MutationKind = "create_base"
	MutationDeleteBase   MutationKind = "delete_base"
	MutationCreateTable  MutationKind = "create_table"
	MutationRenameTable  MutationKind = "rename_table"
	MutationDeleteTable  MutationKind = "delete_table"
	MutationAddColumn    MutationKind = "add_column"
	MutationRenameColumn MutationKind = "rename_column"
	MutationDeleteColumn MutationKind = "delete_column"
	MutationAddRow       MutationKind = "add_row"
	MutationDeleteRow    MutationKind = "delete_row"
	MutationCreateView   MutationKind = "create_view"
	MutationUpdateView   MutationKind = "update_view"
	MutationDeleteView   MutationKind = "delete_view"
	MutationUpdateCells  MutationKind = "update_cells"
)

// Idempotent reports whether re-applying the mutation after it already took
// effect is a no-op. Not-found failures on idempotent kinds are swallowed:
// callers cannot distinguish "already applied" from "never existed".
func (k MutationKind) Idempotent() bool {
	switch k {
	case MutationDeleteBase, MutationDeleteTable, MutationDeleteColumn,
		MutationDeleteRow, MutationDeleteView,
		MutationRenameTable, MutationRenameColumn,
		MutationUpdateView, MutationUpdateCells:
		return true
	}
	return false
}

// Mutation describes one requested change: kind, payload, and the submitting
// user. Mutations are ephemeral; only their effects persist.
type Mutation struct {
	Kind    MutationKind
	Actor   string
	Payload any
}

// Payload types, one per mutation kind -------------------------------------

// CreateBasePayload creates a base container for an owner.
type CreateBasePayload struct {
	OwnerID string
	Name    string
	Icon    string
}

// DeleteBasePayload cascade-deletes a base and everything under it.
type DeleteBasePayload struct {
	OwnerID string
	BaseID  string
}

// CreateTablePayload creates a table and its default view atomically.
type CreateTablePayload struct {
	BaseID string
	Name   string
}

// RenameTablePayload renames a table; a no-op when the table is gone.
type RenameTablePayload struct {
	BaseID  string
	TableID string
	Name    string
}

// DeleteTablePayload cascade-deletes a table and everything under it.
type DeleteTablePayload struct {
	BaseID  string
	TableID string
}

// AddColumnPayload appends a column after the current highest order.
type AddColumnPayload struct {
	TableID string
	Label   string
	Type    ColumnType
}

// RenameColumnPayload relabels a column; a no-op when the column is gone.
type RenameColumnPayload struct {
	TableID  string
	ColumnID string
	Label    string
}

// DeleteColumnPayload removes a column, its cells, and any view references.
type DeleteColumnPayload struct {
	TableID  string
	ColumnID string
}

// AddRowPayload appends a row after the current highest order.
type AddRowPayload struct {
	TableID string
}

// DeleteRowPayload removes a row and its cells; a no-op when already gone.
type DeleteRowPayload struct {
	TableID string
	RowID   string
}

// CreateViewPayload creates a view, optionally making it the table default.
type CreateViewPayload struct {
	TableID   string
	Name      string
	IsDefault bool
	Config    ViewConfig
}

// UpdateViewPayload patches only the supplied fields of a view.
type UpdateViewPayload struct {
	TableID   string
	ViewID    string
	Name      *string
	IsDefault *bool
	Config    *ViewConfig
}

// DeleteViewPayload removes a view. Callers are responsible for never
// deleting a table's last or default view.
type DeleteViewPayload struct {
	TableID string
	ViewID  string
}

// CellWrite is one entry of a batched cell update.
type CellWrite struct {
	RowID    string
	ColumnID string
	Value    string
}

// UpdateCellsPayload applies a batch of cell writes. Writes referencing
// unknown rows or columns, or values a number column cannot hold, are
// skipped per cell rather than failing the batch.
type UpdateCellsPayload struct {
	TableID string
	Writes  []CellWrite
}

// QueueKey computes the serialization key for the mutation: table identifier
// for per-table operations, base identifier for table-level operations (table
// creation must serialize against sibling-count checks on the base), owner
// identifier for base creation.
func (m Mutation) QueueKey() string {
	switch p := m.Payload.(type) {
	case CreateBasePayload:
		return "owner/" + p.OwnerID
	case DeleteBasePayload:
		return "owner/" + p.OwnerID
	case CreateTablePayload:
		return "base/" + p.BaseID
	case RenameTablePayload:
		return "base/" + p.BaseID
	case DeleteTablePayload:
		return "base/" + p.BaseID
	case AddColumnPayload:
		return "table/" + p.TableID
	case RenameColumnPayload:
		return "table/" + p.TableID
	case DeleteColumnPayload:
		return "table/" + p.TableID
	case AddRowPayload:
		return "table/" + p.TableID
	case DeleteRowPayload:
		return "table/" + p.TableID
	case CreateViewPayload:
		return "table/" + p.TableID
	case UpdateViewPayload:
		return "table/" + p.TableID
	case DeleteViewPayload:
		return "table/" + p.TableID
	case UpdateCellsPayload:
		return "table/" + p.TableID
	}
	return ""
}

// Validate checks payload shape before the mutation is enqueued. Failures are
// ValidationError and are never retried.
func (m Mutation) Validate() error {
	missing := func(field string) error {
		return ValidationError{Reason: string(m.Kind) + " requires " + field}
	}
	switch p := m.Payload.(type) {
	case CreateBasePayload:
		if m.Kind != MutationCreateBase {
			return kindMismatch(m.Kind)
		}
		if p.OwnerID == "" {
			return missing("owner id")
		}
		if p.Name == "" {
			return missing("a name")
		}
	case DeleteBasePayload:
		if m.Kind != MutationDeleteBase {
			return kindMismatch(m.Kind)
		}
		if p.OwnerID == "" || p.BaseID == "" {
			return missing("owner and base ids")
		}
	case CreateTablePayload:
		if m.Kind != MutationCreateTable {
			return kindMismatch(m.Kind)
		}
		if p.BaseID == "" {
			return missing("base id")
		}
		if p.Name == "" {
			return missing("a name")
		}
	case RenameTablePayload:
		if m.Kind != MutationRenameTable {
			return kindMismatch(m.Kind)
		}
		if p.BaseID == "" || p.TableID == "" {
			return missing("base and table ids")
		}
		if p.Name == "" {
			return missing("a name")
		}
	case DeleteTablePayload:
		if m.Kind != MutationDeleteTable {
			return kindMismatch(m.Kind)
		}
		if p.BaseID == "" || p.TableID == "" {
			return missing("base and table ids")
		}
	case AddColumnPayload:
		if m.Kind != MutationAddColumn {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" {
			return missing("table id")
		}
		if p.Type != ColumnText && p.Type != ColumnNumber {
			return ValidationError{Reason: "unknown column type " + string(p.Type)}
		}
	case RenameColumnPayload:
		if m.Kind != MutationRenameColumn {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" || p.ColumnID == "" {
			return missing("table and column ids")
		}
	case DeleteColumnPayload:
		if m.Kind != MutationDeleteColumn {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" || p.ColumnID == "" {
			return missing("table and column ids")
		}
	case AddRowPayload:
		if m.Kind != MutationAddRow {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" {
			return missing("table id")
		}
	case DeleteRowPayload:
		if m.Kind != MutationDeleteRow {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" || p.RowID == "" {
			return missing("table and row ids")
		}
	case CreateViewPayload:
		if m.Kind != MutationCreateView {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" {
			return missing("table id")
		}
		if p.Name == "" {
			return missing("a name")
		}
	case UpdateViewPayload:
		if m.Kind != MutationUpdateView {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" || p.ViewID == "" {
			return missing("table and view ids")
		}
		if p.Name == nil && p.IsDefault == nil && p.Config == nil {
			return ValidationError{Reason: "update_view patches nothing"}
		}
	case DeleteViewPayload:
		if m.Kind != MutationDeleteView {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" || p.ViewID == "" {
			return missing("table and view ids")
		}
	case UpdateCellsPayload:
		if m.Kind != MutationUpdateCells {
			return kindMismatch(m.Kind)
		}
		if p.TableID == "" {
			return missing("table id")
		}
		if len(p.Writes) == 0 {
			return ValidationError{Reason: "update_cells carries no writes"}
		}
	default:
		return ValidationError{Reason: "unknown payload type"}
	}
	return nil
}

func kindMismatch(kind MutationKind) error {
	return ValidationError{Reason: "payload does not match kind " + string(kind)}
}

// Outcome reports the typed result of an executed mutation. Only the fields
// relevant to the mutation kind are populated.
type Outcome struct {
	Base         *Base
	Table        *Table
	Column       *Column
	Row          *Row
	View         *View
	DefaultView  *View
	CellsWritten int
	CellsSkipped int
	Rules        domain.Result
}
