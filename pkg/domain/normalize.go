package domain

// IDSet is the set of currently-valid column identifiers for one table.
type IDSet map[string]struct{}

// NewIDSet builds an IDSet from the given identifiers.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set. The reserved index column
// identifier is always considered valid.
func (s IDSet) Contains(id string) bool {
	if id == IndexColumnID {
		return true
	}
	_, ok := s[id]
	return ok
}

// ColumnIDsOf collects the identifiers of the given columns.
func ColumnIDsOf(columns []Column) IDSet {
	set := make(IDSet, len(columns))
	for _, c := range columns {
		set[c.ID] = struct{}{}
	}
	return set
}

// ResolveFunc maps a provisional column identifier to its canonical
// identifier, reporting whether the column has been confirmed. A nil
// ResolveFunc resolves nothing.
type ResolveFunc func(provisional string) (canonical string, ok bool)

// NormalizeViewConfig reconciles a view configuration against the table's
// live column set. Each column reference is kept if already valid, remapped
// if it resolves to a valid canonical identifier, and dropped otherwise. The
// pinning lists are additionally deduplicated, with a left pin winning over a
// later right pin for the same column.
//
// The function is pure and idempotent: normalizing an already-normalized
// configuration returns it unchanged, preserving the original slices and maps.
func NormalizeViewConfig(cfg ViewConfig, valid IDSet, resolve ResolveFunc) ViewConfig {
	remap := func(id string) (string, bool) {
		if valid.Contains(id) {
			return id, true
		}
		if resolve != nil {
			if canonical, ok := resolve(id); ok && valid.Contains(canonical) {
				return canonical, true
			}
		}
		return "", false
	}

	out := cfg
	out.Sorting = normalizeSortKeys(cfg.Sorting, remap)
	out.ColumnFilters = normalizeFilters(cfg.ColumnFilters, remap)
	out.ColumnVisibility = normalizeBoolMap(cfg.ColumnVisibility, remap)
	out.ColumnSizing = normalizeSizeMap(cfg.ColumnSizing, remap)
	out.ColumnPinning = normalizePinning(cfg.ColumnPinning, remap)
	return out
}

func normalizeSortKeys(keys []SortKey, remap func(string) (string, bool)) []SortKey {
	changed := false
	kept := make([]SortKey, 0, len(keys))
	for _, k := range keys {
		id, ok := remap(k.ColumnID)
		if !ok {
			changed = true
			continue
		}
		if id != k.ColumnID {
			changed = true
			k.ColumnID = id
		}
		kept = append(kept, k)
	}
	if !changed {
		return keys
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func normalizeFilters(filters []ColumnFilter, remap func(string) (string, bool)) []ColumnFilter {
	changed := false
	kept := make([]ColumnFilter, 0, len(filters))
	for _, f := range filters {
		id, ok := remap(f.ColumnID)
		if !ok {
			changed = true
			continue
		}
		if id != f.ColumnID {
			changed = true
			f.ColumnID = id
		}
		kept = append(kept, f)
	}
	if !changed {
		return filters
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func normalizeBoolMap(m map[string]bool, remap func(string) (string, bool)) map[string]bool {
	changed := false
	for id := range m {
		if mapped, ok := remap(id); !ok || mapped != id {
			changed = true
			break
		}
	}
	if !changed {
		return m
	}
	kept := make(map[string]bool, len(m))
	for id, v := range m {
		if mapped, ok := remap(id); ok {
			kept[mapped] = v
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func normalizeSizeMap(m map[string]float64, remap func(string) (string, bool)) map[string]float64 {
	changed := false
	for id := range m {
		if mapped, ok := remap(id); !ok || mapped != id {
			changed = true
			break
		}
	}
	if !changed {
		return m
	}
	kept := make(map[string]float64, len(m))
	for id, v := range m {
		if mapped, ok := remap(id); ok {
			kept[mapped] = v
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func normalizePinning(p ColumnPinning, remap func(string) (string, bool)) ColumnPinning {
	seen := make(map[string]struct{}, len(p.Left)+len(p.Right))
	left := normalizePinList(p.Left, remap, seen)
	right := normalizePinList(p.Right, remap, seen)
	return ColumnPinning{Left: left, Right: right}
}

func normalizePinList(ids []string, remap func(string) (string, bool), seen map[string]struct{}) []string {
	changed := false
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		mapped, ok := remap(id)
		if !ok {
			changed = true
			continue
		}
		if _, dup := seen[mapped]; dup {
			changed = true
			continue
		}
		seen[mapped] = struct{}{}
		if mapped != id {
			changed = true
		}
		kept = append(kept, mapped)
	}
	if !changed {
		return ids
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
