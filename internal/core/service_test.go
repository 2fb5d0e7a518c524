package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"gridcore/internal/infra/blob"
	"gridcore/pkg/domain"
)

func TestEndToEndTableLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, tableID := seedTable(t, svc)

	column := addColumn(t, svc, tableID, "Title", ColumnText)
	row := addRow(t, svc, tableID)
	mustSubmit(t, svc, Mutation{
		Kind:  MutationUpdateCells,
		Actor: "user_1",
		Payload: UpdateCellsPayload{TableID: tableID, Writes: []CellWrite{
			{RowID: row.ID, ColumnID: column.ID, Value: "hello"},
		}},
	})

	snap, err := svc.ExportTable(ctx, tableID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Columns) != 1 || len(snap.Rows) != 1 {
		t.Fatalf("snapshot shape: %d columns, %d rows", len(snap.Columns), len(snap.Rows))
	}
	if snap.Values[0][0] != "hello" {
		t.Fatalf("values = %+v", snap.Values)
	}

	view := mustSubmit(t, svc, Mutation{
		Kind:  MutationCreateView,
		Actor: "user_1",
		Payload: CreateViewPayload{TableID: tableID, Name: "Sorted", Config: ViewConfig{
			Sorting:       []domain.SortKey{{ColumnID: column.ID}},
			ColumnPinning: domain.ColumnPinning{Left: []string{column.ID}},
		}},
	})

	mustSubmit(t, svc, Mutation{
		Kind:    MutationDeleteColumn,
		Actor:   "user_1",
		Payload: DeleteColumnPayload{TableID: tableID, ColumnID: column.ID},
	})

	got, ok := svc.GetView(view.View.ID)
	if !ok {
		t.Fatalf("view missing")
	}
	if got.Config.Sorting != nil || got.Config.ColumnPinning.Left != nil {
		t.Fatalf("view still references deleted column: %+v", got.Config)
	}
}

func TestExportArchiverWritesBlob(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, tableID := seedTable(t, svc)
	column := addColumn(t, svc, tableID, "Title", ColumnText)
	row := addRow(t, svc, tableID)
	mustSubmit(t, svc, Mutation{
		Kind:  MutationUpdateCells,
		Actor: "user_1",
		Payload: UpdateCellsPayload{TableID: tableID, Writes: []CellWrite{
			{RowID: row.ID, ColumnID: column.ID, Value: "hello"},
		}},
	})

	snap, err := svc.ExportTable(ctx, tableID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	blobs := blob.NewMemory()
	archiver := NewExportArchiver(blobs)
	archiver.SetNowFunc(func() time.Time {
		return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	})
	key, err := archiver.Archive(ctx, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	info, rc, err := blobs.Get(ctx, key)
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	payload, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if info.ContentType != "application/json" || info.Metadata["table_id"] != tableID {
		t.Fatalf("info = %+v", info)
	}
	var restored TableSnapshot
	if err := json.Unmarshal(payload, &restored); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if restored.Values[0][0] != "hello" {
		t.Fatalf("restored values = %+v", restored.Values)
	}
}

func TestExportTableNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ExportTable(context.Background(), "tbl_missing")
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := newTestService(t, WithMetrics(rec))
	_, tableID := seedTable(t, svc)
	addRow(t, svc, tableID)

	snap := rec.Snapshot()
	if snap.Results[string(MutationAddRow)]["success"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
	if snap.Results[string(MutationCreateBase)]["success"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
}

func TestExpvarMetricsRecorderCountsDrops(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Dropped("table/t1")
	rec.Dropped("table/t1")
	rec.QueueDepth("table/t1", 3)

	snap := rec.Snapshot()
	if snap.Dropped["table/t1"] != 2 {
		t.Fatalf("dropped = %+v", snap.Dropped)
	}
	if snap.QueueDepths["table/t1"] != 3 {
		t.Fatalf("depths = %+v", snap.QueueDepths)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)

	rec.Observe(context.Background(), "add_row", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "add_row", false, time.Millisecond)
	rec.QueueDepth("table/t1", 4)
	rec.Dropped("table/t1")

	if got := promtestutil.ToFloat64(rec.results.WithLabelValues("add_row", "success")); got != 1 {
		t.Fatalf("success counter = %v", got)
	}
	if got := promtestutil.ToFloat64(rec.results.WithLabelValues("add_row", "error")); got != 1 {
		t.Fatalf("error counter = %v", got)
	}
	if got := promtestutil.ToFloat64(rec.depth.WithLabelValues("table/t1")); got != 4 {
		t.Fatalf("depth gauge = %v", got)
	}
	if got := promtestutil.ToFloat64(rec.dropped.WithLabelValues("table/t1")); got != 1 {
		t.Fatalf("dropped counter = %v", got)
	}
}
