package domain

// Limits configures the per-resource count and length caps enforced inside
// mutation executors. A zero value for any field means that cap is disabled.
type Limits struct {
	MaxBasesPerOwner   int `json:"max_bases_per_owner"`
	MaxTablesPerBase   int `json:"max_tables_per_base"`
	MaxColumnsPerTable int `json:"max_columns_per_table"`
	MaxRowsPerTable    int `json:"max_rows_per_table"`
	MaxViewsPerTable   int `json:"max_views_per_table"`
	MaxCellsPerTable   int `json:"max_cells_per_table"`
	MaxTextLength      int `json:"max_text_length"`
	MaxNumericLength   int `json:"max_numeric_length"`
}

// DefaultLimits returns the caps applied when a deployment does not override
// them.
func DefaultLimits() Limits {
	return Limits{
		MaxBasesPerOwner:   20,
		MaxTablesPerBase:   50,
		MaxColumnsPerTable: 200,
		MaxRowsPerTable:    10000,
		MaxViewsPerTable:   50,
		MaxCellsPerTable:   100000,
		MaxTextLength:      10000,
		MaxNumericLength:   40,
	}
}

// TruncateText clamps s to the configured maximum text length.
func (l Limits) TruncateText(s string) string {
	if l.MaxTextLength > 0 && len(s) > l.MaxTextLength {
		return s[:l.MaxTextLength]
	}
	return s
}

// TruncateNumeric clamps s to the configured maximum numeric string length.
func (l Limits) TruncateNumeric(s string) string {
	if l.MaxNumericLength > 0 && len(s) > l.MaxNumericLength {
		return s[:l.MaxNumericLength]
	}
	return s
}
