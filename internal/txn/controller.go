// Package txn implements the transaction controller (§4.3, §5): the state
// machine that turns an operation list into a finalized transaction,
// maintaining the undo/redo and unsaved queues and suspending across an
// async code-cell run rather than blocking the caller's goroutine.
package txn

import (
	"sync"

	"gridcore/internal/compute"
	"gridcore/internal/executor"
	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/logger"
	"gridcore/pkg/operation"
	"gridcore/pkg/value"
)

// Type tags who originated a transaction (§4.3).
type Type string

const (
	TypeUser        Type = "User"
	TypeMultiplayer Type = "Multiplayer"
	TypeRollback    Type = "Rollback"
	TypeUnsaved     Type = "Unsaved"
)

// suspended captures everything needed to resume a transaction once an
// async code run reports back (§4.3 "capture currentSheetPos,
// waitingForAsync").
type suspended struct {
	txnID      string
	txnType    Type
	cursor     string
	forwardOps []operation.Operation
	reverseOps []operation.Operation
	summary    *operation.Summary
	state      *compute.DrainState
	sheetPos   value.SheetPos
}

// Controller owns the grid exclusively (§5): every mutation flows through
// StartUserTransaction/StartTransaction, and the non-reentrant mutex
// rejects a call arriving while one is already in progress instead of
// blocking the calling goroutine.
type Controller struct {
	mu sync.Mutex

	g       *grid.Grid
	ex      *executor.Executor
	compute *compute.Engine

	undoStack []operation.Transaction
	redoStack []operation.Transaction
	unsaved   []operation.UnsavedEntry

	lastSequenceNum uint64
	pending         *suspended
}

func New(g *grid.Grid, ex *executor.Executor, ce *compute.Engine) *Controller {
	return &Controller{g: g, ex: ex, compute: ce}
}

// StartUserTransaction is the entry point for locally originated edits.
func (c *Controller) StartUserTransaction(ops []operation.Operation, cursor string) (*operation.Summary, error) {
	return c.StartTransaction(ops, cursor, TypeUser)
}

// StartTransaction drains ops through the executor, then the compute loop,
// suspending if a code cell goes async (§4.3).
func (c *Controller) StartTransaction(ops []operation.Operation, cursor string, ttype Type) (*operation.Summary, error) {
	if !c.mu.TryLock() {
		return nil, apperrors.ReentrantController()
	}

	txnID := grid.NewTransactionID()
	summary := operation.NewSummary()
	summary.TransactionID = txnID

	var reverseOps []operation.Operation
	var pendingQueue []value.SheetPos
	for _, op := range ops {
		res, err := c.ex.Apply(op)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		reverseOps = append([]operation.Operation{res.Reverse}, reverseOps...)
		summary.Merge(res.Summary)
		pendingQueue = append(pendingQueue, res.ComputeAdditions...)
	}

	return c.runCompute(txnID, ttype, cursor, ops, reverseOps, summary, compute.NewDrainState(pendingQueue))
}

// runCompute drives the compute loop from state, either suspending (mutex
// stays held, c.pending records resume state) or finalizing (mutex
// released). Caller must already hold c.mu.
func (c *Controller) runCompute(txnID string, ttype Type, cursor string, forwardOps, reverseOps []operation.Operation, summary *operation.Summary, state *compute.DrainState) (*operation.Summary, error) {
	suspendedAt, err := c.compute.Drain(state)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if suspendedAt != nil {
		logger.TxnDebug("transaction " + txnID + " suspended awaiting async result")
		c.pending = &suspended{
			txnID: txnID, txnType: ttype, cursor: cursor,
			forwardOps: forwardOps, reverseOps: reverseOps, summary: summary,
			state: state, sheetPos: *suspendedAt,
		}
		return summary, nil
	}

	c.finalize(txnID, ttype, cursor, forwardOps, reverseOps, summary)
	c.mu.Unlock()
	return summary, nil
}

// FinalizeCodeCell resumes a suspended transaction with an async runtime's
// result (§4.3). pos must match the cell the controller is currently
// waiting on; any other value is a stale reply from a since-superseded run
// and is rejected rather than corrupting live state (§5 "Cancellation").
func (c *Controller) FinalizeCodeCell(pos value.SheetPos, outcome compute.RunOutcome) (*operation.Summary, error) {
	if c.pending == nil || c.pending.sheetPos != pos {
		return nil, apperrors.StaleAsyncReply(pos.Pos.String())
	}
	p := c.pending
	c.pending = nil

	if err := c.compute.Resume(p.state, pos, outcome); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	return c.runCompute(p.txnID, p.txnType, p.cursor, p.forwardOps, p.reverseOps, p.summary, p.state)
}

// finalize closes out a non-suspended transaction: recomputes bounds,
// pushes onto the undo/unsaved queues (user transactions only), clears
// redo, and leaves summary ready to emit (§4.3).
func (c *Controller) finalize(txnID string, ttype Type, cursor string, forwardOps, reverseOps []operation.Operation, summary *operation.Summary) {
	for sheetID := range summary.DirtySheets {
		if sheet, ok := c.g.SheetByID(sheetID); ok {
			sheet.RecalculateBounds()
		}
	}

	if ttype == TypeUser {
		c.undoStack = append(c.undoStack, operation.Transaction{ID: txnID, Operations: reverseOps, Cursor: cursor})
		c.redoStack = nil
		c.unsaved = append(c.unsaved, operation.UnsavedEntry{ID: txnID, Forward: forwardOps, Reverse: reverseOps})
		summary.Save = true
	}
	logger.TxnInfo("finalized " + string(ttype) + " transaction " + txnID)
}

// Undo pops the most recent user transaction's reverse ops and runs them
// as a User transaction whose own reverse is pushed onto redo (§4.3).
func (c *Controller) Undo() (*operation.Summary, error) {
	if len(c.undoStack) == 0 {
		return operation.NewSummary(), nil
	}
	entry := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]
	return c.applyUndoRedoEntry(entry, &c.redoStack)
}

// Redo is the symmetric counterpart of Undo.
func (c *Controller) Redo() (*operation.Summary, error) {
	if len(c.redoStack) == 0 {
		return operation.NewSummary(), nil
	}
	entry := c.redoStack[len(c.redoStack)-1]
	c.redoStack = c.redoStack[:len(c.redoStack)-1]
	return c.applyUndoRedoEntry(entry, &c.undoStack)
}

// applyUndoRedoEntry runs entry's operations through the executor directly
// (bypassing StartTransaction's own undo/redo bookkeeping, which would
// otherwise clear the very stack this call is popping from), and pushes
// its own reverse onto dest.
func (c *Controller) applyUndoRedoEntry(entry operation.Transaction, dest *[]operation.Transaction) (*operation.Summary, error) {
	if !c.mu.TryLock() {
		return nil, apperrors.ReentrantController()
	}

	txnID := grid.NewTransactionID()
	summary := operation.NewSummary()
	summary.TransactionID = txnID

	var reverseOps []operation.Operation
	var pendingQueue []value.SheetPos
	for _, op := range entry.Operations {
		res, err := c.ex.Apply(op)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		reverseOps = append([]operation.Operation{res.Reverse}, reverseOps...)
		summary.Merge(res.Summary)
		pendingQueue = append(pendingQueue, res.ComputeAdditions...)
	}

	state := compute.NewDrainState(pendingQueue)
	suspendedAt, err := c.compute.Drain(state)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if suspendedAt != nil {
		// Undo/redo of an async code cell is out of scope for this
		// lightweight engine (there is no host to resume it against); fall
		// through and finalize with whatever completed synchronously.
		logger.TxnWarn("undo/redo touched an async code cell; leaving it unresolved")
	}

	for sheetID := range summary.DirtySheets {
		if sheet, ok := c.g.SheetByID(sheetID); ok {
			sheet.RecalculateBounds()
		}
	}
	*dest = append(*dest, operation.Transaction{ID: txnID, Operations: reverseOps, Cursor: entry.Cursor})
	c.mu.Unlock()
	return summary, nil
}

// AckUnsaved implements the acknowledgement path of §4.4 point 1: pop the
// unsaved entry matching id once the server confirms sequence seq.
func (c *Controller) AckUnsaved(id string, seq uint64) error {
	if len(c.unsaved) == 0 || c.unsaved[0].ID != id {
		return apperrors.NotFound("no matching unsaved transaction at head of queue")
	}
	if seq != c.lastSequenceNum+1 {
		return apperrors.OutOfOrderAck(c.lastSequenceNum+1, seq)
	}
	c.unsaved = c.unsaved[1:]
	c.lastSequenceNum = seq
	return nil
}

// UnsavedEntries exposes the unsaved queue for the multiplayer reconciler.
func (c *Controller) UnsavedEntries() []operation.UnsavedEntry {
	return c.unsaved
}

// SetUnsavedEntries replaces the unsaved queue, used by the reconciler's
// rollback/reapply sequence (§4.4 point 3).
func (c *Controller) SetUnsavedEntries(entries []operation.UnsavedEntry) {
	c.unsaved = entries
}

func (c *Controller) LastSequenceNum() uint64     { return c.lastSequenceNum }
func (c *Controller) SetLastSequenceNum(n uint64) { c.lastSequenceNum = n }

// Grid exposes the controlled grid for read-only consumers (renderer,
// export). Mutation must go through a transaction (§5).
func (c *Controller) Grid() *grid.Grid { return c.g }
