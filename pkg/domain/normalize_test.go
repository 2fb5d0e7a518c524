package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeViewConfigDropsDeadReferences(t *testing.T) {
	valid := NewIDSet("col_a", "col_b")
	cfg := ViewConfig{
		Sorting: []SortKey{
			{ColumnID: "col_a", Descending: true},
			{ColumnID: "col_gone"},
		},
		ColumnFilters: []ColumnFilter{
			{ColumnID: "col_b", Value: "x"},
			{ColumnID: "col_gone", Value: "y"},
		},
		ColumnVisibility: map[string]bool{"col_a": false, "col_gone": true},
		ColumnSizing:     map[string]float64{"col_b": 120, "col_gone": 80},
		ColumnPinning:    ColumnPinning{Left: []string{"col_a", "col_gone"}, Right: []string{"col_b"}},
		GlobalSearch:     "needle",
	}

	got := NormalizeViewConfig(cfg, valid, nil)

	if len(got.Sorting) != 1 || got.Sorting[0].ColumnID != "col_a" || !got.Sorting[0].Descending {
		t.Fatalf("sorting = %+v", got.Sorting)
	}
	if len(got.ColumnFilters) != 1 || got.ColumnFilters[0].ColumnID != "col_b" {
		t.Fatalf("filters = %+v", got.ColumnFilters)
	}
	if _, ok := got.ColumnVisibility["col_gone"]; ok {
		t.Fatalf("visibility kept dead reference: %+v", got.ColumnVisibility)
	}
	if got.ColumnVisibility["col_a"] != false || len(got.ColumnVisibility) != 1 {
		t.Fatalf("visibility = %+v", got.ColumnVisibility)
	}
	if !reflect.DeepEqual(got.ColumnSizing, map[string]float64{"col_b": 120}) {
		t.Fatalf("sizing = %+v", got.ColumnSizing)
	}
	if !reflect.DeepEqual(got.ColumnPinning, ColumnPinning{Left: []string{"col_a"}, Right: []string{"col_b"}}) {
		t.Fatalf("pinning = %+v", got.ColumnPinning)
	}
	if got.GlobalSearch != "needle" {
		t.Fatalf("global search = %q", got.GlobalSearch)
	}
}

func TestNormalizeViewConfigResolvesProvisionalReferences(t *testing.T) {
	valid := NewIDSet("col_real")
	resolve := func(id string) (string, bool) {
		if id == "prov_1" {
			return "col_real", true
		}
		if id == "prov_dead" {
			return "col_deleted", true
		}
		return "", false
	}
	cfg := ViewConfig{
		Sorting:       []SortKey{{ColumnID: "prov_1"}, {ColumnID: "prov_dead"}, {ColumnID: "prov_unknown"}},
		ColumnPinning: ColumnPinning{Left: []string{"prov_1"}},
	}

	got := NormalizeViewConfig(cfg, valid, resolve)

	if len(got.Sorting) != 1 || got.Sorting[0].ColumnID != "col_real" {
		t.Fatalf("sorting = %+v", got.Sorting)
	}
	if !reflect.DeepEqual(got.ColumnPinning.Left, []string{"col_real"}) {
		t.Fatalf("pinning = %+v", got.ColumnPinning)
	}
}

func TestNormalizeViewConfigIndexColumnAlwaysValid(t *testing.T) {
	cfg := ViewConfig{
		Sorting:       []SortKey{{ColumnID: IndexColumnID}},
		ColumnPinning: ColumnPinning{Left: []string{IndexColumnID}},
	}
	got := NormalizeViewConfig(cfg, NewIDSet(), nil)
	if len(got.Sorting) != 1 || got.Sorting[0].ColumnID != IndexColumnID {
		t.Fatalf("index column dropped from sorting: %+v", got.Sorting)
	}
	if len(got.ColumnPinning.Left) != 1 {
		t.Fatalf("index column dropped from pinning: %+v", got.ColumnPinning)
	}
}

func TestNormalizeViewConfigPinningDedupLeftWins(t *testing.T) {
	valid := NewIDSet("a", "b")
	cfg := ViewConfig{
		ColumnPinning: ColumnPinning{Left: []string{"a", "a", "b"}, Right: []string{"b", "a"}},
	}
	got := NormalizeViewConfig(cfg, valid, nil)
	if !reflect.DeepEqual(got.ColumnPinning, ColumnPinning{Left: []string{"a", "b"}}) {
		t.Fatalf("pinning = %+v", got.ColumnPinning)
	}
}

func TestNormalizeViewConfigIdempotent(t *testing.T) {
	valid := NewIDSet("col_a", "col_b")
	cfg := ViewConfig{
		Sorting:          []SortKey{{ColumnID: "col_a"}, {ColumnID: "dead"}},
		ColumnFilters:    []ColumnFilter{{ColumnID: "dead", Value: "v"}},
		ColumnVisibility: map[string]bool{"col_b": true, "dead": false},
		ColumnSizing:     map[string]float64{"dead": 10},
		ColumnPinning:    ColumnPinning{Left: []string{"col_a"}, Right: []string{"col_a", "col_b"}},
	}

	once := NormalizeViewConfig(cfg, valid, nil)
	twice := NormalizeViewConfig(once, valid, nil)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

// A fully valid configuration must pass through untouched, keeping the exact
// slices and maps so a round trip through normalization is byte-for-byte.
func TestNormalizeViewConfigPreservesValidConfig(t *testing.T) {
	valid := NewIDSet("col_a", "col_b")
	cfg := ViewConfig{
		Sorting:          []SortKey{{ColumnID: "col_a", Descending: true}},
		ColumnFilters:    []ColumnFilter{{ColumnID: "col_b", Value: "v"}},
		ColumnVisibility: map[string]bool{"col_a": true},
		ColumnSizing:     map[string]float64{"col_b": 200},
		ColumnPinning:    ColumnPinning{Left: []string{"col_a"}, Right: []string{"col_b"}},
		GlobalSearch:     "q",
	}

	got := NormalizeViewConfig(cfg, valid, nil)

	if &got.Sorting[0] != &cfg.Sorting[0] {
		t.Fatalf("sorting slice was reallocated")
	}
	if reflect.ValueOf(got.ColumnVisibility).Pointer() != reflect.ValueOf(cfg.ColumnVisibility).Pointer() {
		t.Fatalf("visibility map was reallocated")
	}

	before, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	after, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("round trip changed encoding:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestNormalizeViewConfigEmptyResultsBecomeNil(t *testing.T) {
	cfg := ViewConfig{
		Sorting:          []SortKey{{ColumnID: "dead"}},
		ColumnFilters:    []ColumnFilter{{ColumnID: "dead", Value: "v"}},
		ColumnVisibility: map[string]bool{"dead": true},
		ColumnSizing:     map[string]float64{"dead": 1},
		ColumnPinning:    ColumnPinning{Left: []string{"dead"}},
	}
	got := NormalizeViewConfig(cfg, NewIDSet(), nil)
	if got.Sorting != nil || got.ColumnFilters != nil || got.ColumnVisibility != nil || got.ColumnSizing != nil {
		t.Fatalf("expected nil collections, got %+v", got)
	}
	if got.ColumnPinning.Left != nil || got.ColumnPinning.Right != nil {
		t.Fatalf("expected nil pinning, got %+v", got.ColumnPinning)
	}
}
