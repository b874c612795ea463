package grid

import "github.com/google/uuid"

// SheetID, ColumnID, RowID and CellRef are opaque, globally unique, stable
// identifiers (§3). They are generated uuid-style so two independent
// sessions never collide.
type SheetID string
type ColumnID string
type RowID string

// CellRef is a stable reference to a logical cell, independent of its
// current (x,y) position. A CellRef may outlive the column/row it refers
// to; resolving it to a Pos can fail ("not found").
type CellRef struct {
	Sheet  SheetID
	Column ColumnID
	Row    RowID
}

func NewSheetID() SheetID   { return SheetID(uuid.NewString()) }
func NewColumnID() ColumnID { return ColumnID(uuid.NewString()) }
func NewRowID() RowID       { return RowID(uuid.NewString()) }

func NewCellRef(sheet SheetID) CellRef {
	return CellRef{Sheet: sheet, Column: NewColumnID(), Row: NewRowID()}
}

func (r CellRef) String() string {
	return string(r.Sheet) + "/" + string(r.Column) + "/" + string(r.Row)
}

// NewTransactionID generates a uuid-style id for a Transaction.
func NewTransactionID() string { return uuid.NewString() }
