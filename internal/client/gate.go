package client

import "sync/atomic"

// StructuralGate tracks in-flight structural mutations (column adds and
// deletes, row deletes, table deletes). While any are in flight, the cell
// flusher holds its buffer: a cell write raced against the structure change
// it depends on would otherwise be silently skipped server-side.
type StructuralGate struct {
	inflight atomic.Int64
}

// Enter marks a structural mutation as started.
func (g *StructuralGate) Enter() {
	g.inflight.Add(1)
}

// Leave marks a structural mutation as finished. It must pair with a prior
// Enter, success or failure alike.
func (g *StructuralGate) Leave() {
	if g.inflight.Add(-1) < 0 {
		panic("client: StructuralGate.Leave without matching Enter")
	}
}

// Held reports whether any structural mutation is in flight.
func (g *StructuralGate) Held() bool {
	return g.inflight.Load() > 0
}

// Inflight returns the current number of in-flight structural mutations.
func (g *StructuralGate) Inflight() int {
	return int(g.inflight.Load())
}
