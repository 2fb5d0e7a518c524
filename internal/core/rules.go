package core

import (
	"context"
	"fmt"

	"gridcore/pkg/domain"
)

// NewDefaultRulesEngine returns a rules engine with the structural
// consistency rules registered. Stores constructed by OpenPersistentStore use
// this engine unless a caller supplies its own.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(DefaultViewRule{})
	engine.Register(CellOwnershipRule{})
	engine.Register(ViewReferenceRule{})
	return engine
}

// DefaultViewRule blocks any commit that would leave a table without exactly
// one default view. Deleting a table's default view, or clearing its flag
// without promoting a sibling, aborts the transaction.
type DefaultViewRule struct{}

func (DefaultViewRule) Name() string { return "default_view" }

func (DefaultViewRule) Evaluate(_ context.Context, view TransactionView, _ []Change) (Result, error) {
	var result Result
	for _, table := range view.AllTables() {
		defaults := 0
		for _, v := range view.ListViews(table.ID) {
			if v.IsDefault {
				defaults++
			}
		}
		if defaults == 1 {
			continue
		}
		result.Violations = append(result.Violations, Violation{
			Rule:     "default_view",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("table must have exactly one default view, found %d", defaults),
			Entity:   EntityTable,
			EntityID: table.ID,
		})
	}
	return result, nil
}

// CellOwnershipRule blocks commits that leave a non-empty cell referencing a
// row or column that no longer exists. Delete cascades keep this invariant;
// the rule catches executors that forget to.
type CellOwnershipRule struct{}

func (CellOwnershipRule) Name() string { return "cell_ownership" }

func (CellOwnershipRule) Evaluate(_ context.Context, view TransactionView, _ []Change) (Result, error) {
	var result Result
	for _, table := range view.AllTables() {
		for _, cell := range view.ListCells(table.ID) {
			if cell.Empty() {
				continue
			}
			if _, ok := view.FindRow(cell.RowID); !ok {
				result.Violations = append(result.Violations, orphanCell(cell, "row"))
				continue
			}
			if _, ok := view.FindColumn(cell.ColumnID); !ok {
				result.Violations = append(result.Violations, orphanCell(cell, "column"))
			}
		}
	}
	return result, nil
}

func orphanCell(cell Cell, missing string) Violation {
	return Violation{
		Rule:     "cell_ownership",
		Severity: SeverityBlock,
		Message:  fmt.Sprintf("cell references deleted %s", missing),
		Entity:   EntityCell,
		EntityID: fmt.Sprintf("%s/%s/%s", cell.TableID, cell.RowID, cell.ColumnID),
	}
}

// ViewReferenceRule warns when a persisted view configuration references a
// column that no longer exists. Configurations are repaired when the column
// is deleted through a mutation, so a surviving dead reference points at a
// write path that bypassed normalization.
type ViewReferenceRule struct{}

func (ViewReferenceRule) Name() string { return "view_references" }

func (ViewReferenceRule) Evaluate(_ context.Context, view TransactionView, _ []Change) (Result, error) {
	var result Result
	for _, table := range view.AllTables() {
		valid := domain.ColumnIDsOf(view.ListColumns(table.ID))
		for _, v := range view.ListViews(table.ID) {
			for _, id := range configColumnRefs(v.Config) {
				if valid.Contains(id) {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     "view_references",
					Severity: SeverityWarn,
					Message:  fmt.Sprintf("view config references unknown column %s", id),
					Entity:   EntityView,
					EntityID: v.ID,
				})
			}
		}
	}
	return result, nil
}

func configColumnRefs(cfg ViewConfig) []string {
	var refs []string
	for _, s := range cfg.Sorting {
		refs = append(refs, s.ColumnID)
	}
	for _, f := range cfg.ColumnFilters {
		refs = append(refs, f.ColumnID)
	}
	for id := range cfg.ColumnVisibility {
		refs = append(refs, id)
	}
	for id := range cfg.ColumnSizing {
		refs = append(refs, id)
	}
	refs = append(refs, cfg.ColumnPinning.Left...)
	refs = append(refs, cfg.ColumnPinning.Right...)
	return refs
}
