package multiplayer

import (
	"testing"

	"gridcore/internal/compute"
	"gridcore/internal/executor"
	"gridcore/internal/txn"
	"gridcore/pkg/grid"
	"gridcore/pkg/operation"
	"gridcore/pkg/value"
)

func newTestReconciler(t *testing.T) (*Reconciler, *txn.Controller, *grid.Grid, grid.SheetID) {
	t.Helper()
	g := grid.NewGrid()
	sheetID := g.SheetsOrdered()[0].ID
	ce := compute.New(g)
	ce.RegisterRunner(value.LanguageFormula, compute.FormulaRunner{})
	ex := executor.New(g, ce)
	c := txn.New(g, ex, ce)
	return New(c), c, g, sheetID
}

func setOp(sheetID grid.SheetID, p value.Pos, text string) operation.Operation {
	rect := value.NewSheetRect(string(sheetID), value.NewRect(p, p))
	arr, _ := value.NewArrayFrom(1, 1, []value.CellValue{value.Text(text)})
	return operation.SetCellValues(rect, arr)
}

func seq(n uint64) *uint64 { return &n }

func TestReceiveAckPopsUnsavedQueue(t *testing.T) {
	r, c, _, sheetID := newTestReconciler(t)
	if _, err := c.StartUserTransaction([]operation.Operation{setOp(sheetID, value.Pos{X: 0, Y: 0}, "a")}, ""); err != nil {
		t.Fatalf("StartUserTransaction: %v", err)
	}
	id := c.UnsavedEntries()[0].ID

	if _, err := r.Receive(Incoming{TransactionID: id, SequenceNum: seq(1)}); err != nil {
		t.Fatalf("Receive ack: %v", err)
	}
	if len(c.UnsavedEntries()) != 0 {
		t.Fatalf("expected unsaved queue empty after ack, got %d", len(c.UnsavedEntries()))
	}
	if c.LastSequenceNum() != 1 {
		t.Fatalf("LastSequenceNum = %d, want 1", c.LastSequenceNum())
	}
}

func TestReceiveOutOfOrderRejected(t *testing.T) {
	r, c, _, sheetID := newTestReconciler(t)
	if _, err := c.StartUserTransaction([]operation.Operation{setOp(sheetID, value.Pos{X: 0, Y: 0}, "a")}, ""); err != nil {
		t.Fatalf("txn 1: %v", err)
	}
	if _, err := c.StartUserTransaction([]operation.Operation{setOp(sheetID, value.Pos{X: 0, Y: 1}, "b")}, ""); err != nil {
		t.Fatalf("txn 2: %v", err)
	}
	secondID := c.UnsavedEntries()[1].ID

	if _, err := r.Receive(Incoming{TransactionID: secondID, SequenceNum: seq(1)}); err == nil {
		t.Fatal("expected out-of-order ack (not at head) to be rejected")
	}
}

func TestReceiveForeignWithEmptyQueueApplies(t *testing.T) {
	r, _, g, sheetID := newTestReconciler(t)
	sheet, _ := g.SheetByID(sheetID)

	_, err := r.Receive(Incoming{
		TransactionID: "foreign-1",
		SequenceNum:   seq(1),
		Operations:    []operation.Operation{setOp(sheetID, value.Pos{X: 0, Y: 0}, "remote")},
	})
	if err != nil {
		t.Fatalf("Receive foreign: %v", err)
	}
	got, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if got.Text != "remote" {
		t.Fatalf("A1 = %q, want remote", got.Text)
	}
}

func TestReceiveForeignRollsBackAndReappliesUnsaved(t *testing.T) {
	r, c, g, sheetID := newTestReconciler(t)
	sheet, _ := g.SheetByID(sheetID)

	if _, err := c.StartUserTransaction([]operation.Operation{setOp(sheetID, value.Pos{X: 0, Y: 0}, "local")}, ""); err != nil {
		t.Fatalf("local txn: %v", err)
	}

	_, err := r.Receive(Incoming{
		TransactionID: "foreign-1",
		SequenceNum:   seq(1),
		Operations:    []operation.Operation{setOp(sheetID, value.Pos{X: 1, Y: 0}, "remote")},
	})
	if err != nil {
		t.Fatalf("Receive foreign: %v", err)
	}

	// Both the foreign write and the reapplied local write must be visible.
	a1, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if a1.Text != "local" {
		t.Fatalf("A1 = %q, want local (reapplied)", a1.Text)
	}
	b1, _ := sheet.GetCellValue(value.Pos{X: 1, Y: 0})
	if b1.Text != "remote" {
		t.Fatalf("B1 = %q, want remote", b1.Text)
	}

	// The reapplied local transaction stays unsaved (un-acked).
	if len(c.UnsavedEntries()) != 1 {
		t.Fatalf("expected 1 unsaved entry after reapply, got %d", len(c.UnsavedEntries()))
	}
	if c.LastSequenceNum() != 1 {
		t.Fatalf("LastSequenceNum = %d, want 1", c.LastSequenceNum())
	}
}
