package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"gridcore/pkg/domain"
)

func TestStoreCRUDAndQueries(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var (
		baseID   string
		tableID  string
		columnID string
		rowID    string
		viewID   string
	)

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base, err := tx.CreateBase(domain.Base{OwnerID: "user_1", Name: "Projects"})
		if err != nil {
			return err
		}
		baseID = base.ID

		table, err := tx.CreateTable(domain.Table{BaseID: baseID, Name: "Tasks"})
		if err != nil {
			return err
		}
		tableID = table.ID

		column, err := tx.CreateColumn(domain.Column{TableID: tableID, Label: "Title", Type: domain.ColumnText})
		if err != nil {
			return err
		}
		columnID = column.ID

		row, err := tx.CreateRow(domain.Row{TableID: tableID})
		if err != nil {
			return err
		}
		rowID = row.ID

		view, err := tx.CreateView(domain.View{TableID: tableID, Name: "Grid view", IsDefault: true})
		if err != nil {
			return err
		}
		viewID = view.ID

		if _, err := tx.SetCell(domain.CellKey{TableID: tableID, RowID: rowID, ColumnID: columnID}, "hello"); err != nil {
			return err
		}

		if tx.CountTables(baseID) != 1 || tx.CountColumns(tableID) != 1 || tx.CountRows(tableID) != 1 {
			return fmt.Errorf("unexpected in-transaction counts")
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}

	if _, ok := store.GetBase(baseID); !ok {
		t.Fatalf("base not committed")
	}
	if tables := store.ListTables(baseID); len(tables) != 1 || tables[0].ID != tableID {
		t.Fatalf("tables = %+v", tables)
	}
	if views := store.ListViews(tableID); len(views) != 1 || views[0].ID != viewID || !views[0].IsDefault {
		t.Fatalf("views = %+v", views)
	}
	cells := store.ListCells(tableID)
	if len(cells) != 1 || cells[0].Value != "hello" {
		t.Fatalf("cells = %+v", cells)
	}

	if err := store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindColumn(columnID); !ok {
			return fmt.Errorf("column missing from view")
		}
		if _, ok := view.FindCell(domain.CellKey{TableID: tableID, RowID: rowID, ColumnID: columnID}); !ok {
			return fmt.Errorf("cell missing from view")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	sentinel := errors.New("abort")
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateBase(domain.Base{OwnerID: "user_1", Name: "Doomed"}); err != nil {
			return err
		}
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if bases := store.ListBases("user_1"); len(bases) != 0 {
		t.Fatalf("rolled-back base is visible: %+v", bases)
	}
}

func TestDeleteColumnAndRowCascadeCells(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var tableID string
	var colA, colB, rowID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base, err := tx.CreateBase(domain.Base{OwnerID: "user_1", Name: "B"})
		if err != nil {
			return err
		}
		table, err := tx.CreateTable(domain.Table{BaseID: base.ID, Name: "T"})
		if err != nil {
			return err
		}
		tableID = table.ID
		a, err := tx.CreateColumn(domain.Column{TableID: tableID, Label: "A", Type: domain.ColumnText})
		if err != nil {
			return err
		}
		colA = a.ID
		b, err := tx.CreateColumn(domain.Column{TableID: tableID, Label: "B", Type: domain.ColumnText, Order: 1})
		if err != nil {
			return err
		}
		colB = b.ID
		row, err := tx.CreateRow(domain.Row{TableID: tableID})
		if err != nil {
			return err
		}
		rowID = row.ID
		for _, col := range []string{colA, colB} {
			if _, err := tx.SetCell(domain.CellKey{TableID: tableID, RowID: rowID, ColumnID: col}, "v"); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteColumn(colA)
	}); err != nil {
		t.Fatalf("delete column: %v", err)
	}
	cells := store.ListCells(tableID)
	if len(cells) != 1 || cells[0].ColumnID != colB {
		t.Fatalf("cells after column delete = %+v", cells)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteRow(rowID)
	}); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	if cells := store.ListCells(tableID); len(cells) != 0 {
		t.Fatalf("cells after row delete = %+v", cells)
	}
}

func TestCountNonEmptyCellsIgnoresBlanks(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base, err := tx.CreateBase(domain.Base{OwnerID: "u", Name: "B"})
		if err != nil {
			return err
		}
		table, err := tx.CreateTable(domain.Table{BaseID: base.ID, Name: "T"})
		if err != nil {
			return err
		}
		col, err := tx.CreateColumn(domain.Column{TableID: table.ID, Label: "A", Type: domain.ColumnText})
		if err != nil {
			return err
		}
		row, err := tx.CreateRow(domain.Row{TableID: table.ID})
		if err != nil {
			return err
		}
		key := domain.CellKey{TableID: table.ID, RowID: row.ID, ColumnID: col.ID}
		if _, err := tx.SetCell(key, "filled"); err != nil {
			return err
		}
		if got := tx.CountNonEmptyCells(table.ID); got != 1 {
			return fmt.Errorf("count after fill = %d", got)
		}
		if _, err := tx.SetCell(key, ""); err != nil {
			return err
		}
		if got := tx.CountNonEmptyCells(table.ID); got != 0 {
			return fmt.Errorf("count after blank = %d", got)
		}
		// The record survives as a blank.
		if _, ok := tx.FindCell(key); !ok {
			return fmt.Errorf("blanked cell record dropped")
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

type blockEverything struct{}

func (blockEverything) Name() string { return "block_everything" }

func (blockEverything) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "block_everything",
		Severity: domain.SeverityBlock,
		Message:  "no writes allowed",
	}}}, nil
}

func TestBlockingRuleViolationAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockEverything{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBase(domain.Base{OwnerID: "u", Name: "B"})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if bases := store.ListBases("u"); len(bases) != 0 {
		t.Fatalf("blocked write is visible: %+v", bases)
	}
}

func TestSnapshotExportImportRoundTrip(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return now })

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base, err := tx.CreateBase(domain.Base{OwnerID: "u", Name: "B"})
		if err != nil {
			return err
		}
		table, err := tx.CreateTable(domain.Table{BaseID: base.ID, Name: "T"})
		if err != nil {
			return err
		}
		_, err = tx.CreateView(domain.View{TableID: table.ID, Name: "Grid view", IsDefault: true, Config: domain.ViewConfig{
			GlobalSearch: "q",
		}})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snapshot := store.ExportState()
	restored := NewStore(nil)
	restored.ImportState(snapshot)

	if !reflect.DeepEqual(restored.ExportState(), snapshot) {
		t.Fatalf("snapshot round trip diverged")
	}
}
