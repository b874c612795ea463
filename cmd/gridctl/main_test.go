package main

import (
	"testing"

	"gridcore/pkg/grid"
	"gridcore/pkg/operation"
	"gridcore/pkg/value"
)

func setValueOp(sheetID grid.SheetID, p value.Pos, v value.CellValue) operation.Operation {
	rect := value.NewSheetRect(string(sheetID), value.NewRect(p, p))
	arr, _ := value.NewArrayFrom(1, 1, []value.CellValue{v})
	return operation.SetCellValues(rect, arr)
}

// execAll drives cmds through sess.exec one at a time (rather than
// runScript, which always starts its own fresh session) so a test can
// reference the session's actual sheet id between commands.
func execAll(sess *session, cmds ...command) []commandResult {
	var results []commandResult
	for _, c := range cmds {
		res := sess.exec(c)
		results = append(results, res)
		if !res.OK {
			break
		}
	}
	return results
}

func TestSessionApplyUndoRedoExport(t *testing.T) {
	sess := newSession()
	sheetID := sess.g.SheetsOrdered()[0].ID

	results := execAll(sess,
		command{Op: "apply", Cursor: "cursor-1", Operations: []operation.Operation{
			setValueOp(sheetID, value.Pos{X: 0, Y: 0}, value.Text("hello")),
		}},
		command{Op: "undo"},
		command{Op: "redo"},
		command{Op: "heartbeat"},
		command{Op: "export"},
	)

	for _, r := range results {
		if !r.OK {
			t.Fatalf("command %q failed: %s", r.Op, r.Error)
		}
	}

	exportRes := results[len(results)-1]
	if len(exportRes.Grid) == 0 {
		t.Fatal("export command returned no grid data")
	}

	sheet, _ := sess.g.SheetByID(sheetID)
	got, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if got.Text != "hello" {
		t.Fatalf("A1 = %q, want hello (undo then redo should restore it)", got.Text)
	}
}

func TestRunScriptStopsOnFirstError(t *testing.T) {
	s := script{Commands: []command{
		{Op: "create"},
		{Op: "bogus-command"},
		{Op: "heartbeat"},
	}}

	results := runScript(s)
	if len(results) != 2 {
		t.Fatalf("expected script to stop after the failing command, got %d results", len(results))
	}
	if results[1].OK {
		t.Fatal("expected the unknown command to fail")
	}
}

func TestSessionOpenReplacesGrid(t *testing.T) {
	sess := newSession()
	data, err := sess.export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	results := execAll(sess,
		command{Op: "open", Data: string(data)},
		command{Op: "heartbeat"},
	)
	for _, r := range results {
		if !r.OK {
			t.Fatalf("command %q failed: %s", r.Op, r.Error)
		}
	}
}

func TestSessionReceiveForeignTransaction(t *testing.T) {
	sess := newSession()
	sheetID := sess.g.SheetsOrdered()[0].ID
	seq := uint64(1)

	results := execAll(sess,
		command{Op: "receive", TransactionID: "remote-1", SequenceNum: &seq, Operations: []operation.Operation{
			setValueOp(sheetID, value.Pos{X: 1, Y: 0}, value.Text("from-peer")),
		}},
	)
	if !results[0].OK {
		t.Fatalf("receive command failed: %s", results[0].Error)
	}

	sheet, _ := sess.g.SheetByID(sheetID)
	got, _ := sheet.GetCellValue(value.Pos{X: 1, Y: 0})
	if got.Text != "from-peer" {
		t.Fatalf("B1 = %q, want from-peer", got.Text)
	}
}
