package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"gridcore/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var tableID, rowID, columnID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base, err := tx.CreateBase(domain.Base{OwnerID: "user_1", Name: "Projects"})
		if err != nil {
			return err
		}
		table, err := tx.CreateTable(domain.Table{BaseID: base.ID, Name: "Tasks"})
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
		if _, err := tx.CreateView(domain.View{TableID: tableID, Name: "Grid view", IsDefault: true}); err != nil {
			return err
		}
		_, err = tx.SetCell(domain.CellKey{TableID: tableID, RowID: rowID, ColumnID: columnID}, "hello")
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, ok := reopened.GetTable(tableID); !ok {
		t.Fatalf("table lost across reopen")
	}
	if views := reopened.ListViews(tableID); len(views) != 1 || !views[0].IsDefault {
		t.Fatalf("views lost across reopen: %+v", views)
	}
	cells := reopened.ListCells(tableID)
	if len(cells) != 1 || cells[0].Value != "hello" || cells[0].RowID != rowID {
		t.Fatalf("cells lost across reopen: %+v", cells)
	}
}

func TestFailedTransactionLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateBase(domain.Base{OwnerID: "u", Name: "Doomed"}); err != nil {
			return err
		}
		return domain.ValidationError{Reason: "abort"}
	}); err == nil {
		t.Fatalf("expected error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if bases := reopened.ListBases("u"); len(bases) != 0 {
		t.Fatalf("aborted write persisted: %+v", bases)
	}
}
