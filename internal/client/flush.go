package client

import (
	"context"
	"time"

	"gridcore/internal/core"
	"gridcore/pkg/domain"
)

type pendingCell struct {
	value    string
	previous string
	had      bool
}

// pendingView is a view save deferred while the gate was held, keeping the
// configuration to restore should the replay fail.
type pendingView struct {
	cfg      domain.ViewConfig
	previous domain.ViewConfig
}

// SetCell records a cell edit locally. Cell edits are never submitted
// individually; they accumulate until the next flush.
func (c *Controller) SetCell(rowKey, colKey, value string) {
	ref := cellRef{row: rowKey, col: colKey}
	c.mu.Lock()
	entry, queued := c.pending[ref]
	if !queued {
		prev, had := c.cells[ref]
		entry = pendingCell{previous: prev, had: had}
	}
	entry.value = value
	c.pending[ref] = entry
	c.cells[ref] = value
	c.mu.Unlock()
}

// PendingCells returns the number of buffered cell edits.
func (c *Controller) PendingCells() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush submits buffered cell edits as one batched mutation and replays any
// view saves deferred while the gate was held. It is a no-op while a
// structural mutation is in flight; the whole flush waits for the next tick
// rather than trickling cells out. On failure the optimistic cell patch is
// rolled back and the error returned.
func (c *Controller) Flush(ctx context.Context) error {
	if c.gate.Held() {
		return nil
	}

	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[cellRef]pendingCell)
	deferred := c.deferred
	c.deferred = make(map[string]pendingView)
	writes := make([]core.CellWrite, 0, len(batch))
	for ref, entry := range batch {
		row, rowOK := c.findRow(ref.row)
		col, colOK := c.findColumn(ref.col)
		if !rowOK || !colOK {
			// The row or column was deleted after the edit; drop the cell.
			continue
		}
		writes = append(writes, core.CellWrite{
			RowID:    row.ID.ServerID(),
			ColumnID: col.ID.ServerID(),
			Value:    entry.value,
		})
	}
	views := make(map[string]pendingView, len(deferred))
	viewIDs := make(map[string]string, len(deferred))
	for localKey, entry := range deferred {
		if view, ok := c.findView(localKey); ok {
			views[localKey] = entry
			viewIDs[localKey] = view.ID.ServerID()
		}
	}
	c.mu.Unlock()

	var firstErr error
	if len(writes) > 0 {
		_, _, err := c.svc.Submit(ctx, core.Mutation{
			Kind:    core.MutationUpdateCells,
			Actor:   c.actor,
			Payload: core.UpdateCellsPayload{TableID: c.tableID, Writes: writes},
		})
		if err != nil {
			c.rollbackCells(batch)
			firstErr = err
		}
	}
	for localKey, entry := range views {
		if err := c.pushViewConfig(ctx, viewIDs[localKey], entry.cfg); err != nil {
			c.rollbackView(localKey, entry.previous)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// rollbackView restores a view's previous configuration after a failed save,
// unless a newer local save has already replaced it again.
func (c *Controller) rollbackView(localKey string, previous domain.ViewConfig) {
	c.mu.Lock()
	if _, requeued := c.deferred[localKey]; !requeued {
		c.setViewConfig(localKey, previous)
	}
	c.mu.Unlock()
}

// rollbackCells restores the pre-edit values for a failed batch, unless a
// newer local edit has already replaced the cell again.
func (c *Controller) rollbackCells(batch map[cellRef]pendingCell) {
	c.mu.Lock()
	for ref, entry := range batch {
		if _, requeued := c.pending[ref]; requeued {
			continue
		}
		if entry.had {
			c.cells[ref] = entry.previous
		} else {
			delete(c.cells, ref)
		}
	}
	c.mu.Unlock()
}

// Run flushes on a fixed interval until ctx is cancelled. A tick that finds
// the structural gate held is skipped entirely.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.gate.Held() {
				continue
			}
			_ = c.Flush(ctx)
		}
	}
}
