// Package multiplayer implements the reconciler contract of §4.4: merging a
// server's totally-ordered transaction log with the local unsaved queue. The
// reconciler is pure state-machine logic over a txn.Controller — framing the
// wire format and owning the socket connection is a separate concern
// (transport.go), so this half is testable without a live connection.
package multiplayer

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"gridcore/internal/txn"
	"gridcore/pkg/apperrors"
	"gridcore/pkg/logger"
	"gridcore/pkg/operation"
)

// Incoming is one frame off the wire: (transaction_id, sequence_num?, ops).
type Incoming struct {
	TransactionID string
	SequenceNum   *uint64
	Operations    []operation.Operation
}

// Reconciler applies Incoming frames to a Controller per §4.4's three-branch
// contract, keeping the controller's unsaved queue and last-acked sequence
// number in sync with the server's log.
type Reconciler struct {
	c *txn.Controller
}

func New(c *txn.Controller) *Reconciler {
	return &Reconciler{c: c}
}

// Receive dispatches an incoming frame to the ack, reject, or foreign-
// transaction branch and returns the resulting summary.
func (r *Reconciler) Receive(in Incoming) (*operation.Summary, error) {
	unsaved := r.c.UnsavedEntries()

	if len(unsaved) > 0 && unsaved[0].ID == in.TransactionID {
		return r.receiveAck(in)
	}
	if entryIndex(unsaved, in.TransactionID) >= 0 {
		return nil, apperrors.NewWithComponent(apperrors.ErrCodeOutOfOrderAck, "multiplayer",
			"transaction "+in.TransactionID+" acknowledged out of order")
	}
	return r.receiveForeign(in)
}

// receiveAck is §4.4 point 1: the head-of-queue entry is confirmed.
func (r *Reconciler) receiveAck(in Incoming) (*operation.Summary, error) {
	seq := uint64(0)
	if in.SequenceNum != nil {
		seq = *in.SequenceNum
	}
	if err := r.c.AckUnsaved(in.TransactionID, seq); err != nil {
		return nil, err
	}
	logger.MultiplayerDebug("acknowledged transaction " + in.TransactionID)
	return operation.NewSummary(), nil
}

// receiveForeign is §4.4 point 3: a transaction this client didn't send.
// With an empty unsaved queue it applies directly; otherwise it rolls back
// every unsaved transaction (newest first), applies the foreign ops, then
// reapplies the unsaved forward ops in their ORIGINAL order (see the Note on
// (c) in SPEC_FULL.md — the reapply order is oldest-first, not a mirror of
// the rollback order, despite both walking the same stack).
func (r *Reconciler) receiveForeign(in Incoming) (*operation.Summary, error) {
	unsaved := r.c.UnsavedEntries()
	if len(unsaved) == 0 {
		summary, err := r.c.StartTransaction(in.Operations, "", txn.TypeMultiplayer)
		if err != nil {
			return nil, err
		}
		r.advanceSequence(in)
		return summary, nil
	}

	combined := operation.NewSummary()

	for i := len(unsaved) - 1; i >= 0; i-- {
		s, err := r.c.StartTransaction(unsaved[i].Reverse, "", txn.TypeRollback)
		if err != nil {
			return nil, err
		}
		combined.Merge(s)
	}

	s, err := r.c.StartTransaction(in.Operations, "", txn.TypeMultiplayer)
	if err != nil {
		return nil, err
	}
	combined.Merge(s)

	replayed := make([]operation.UnsavedEntry, 0, len(unsaved))
	for i := 0; i < len(unsaved); i++ {
		s, err := r.c.StartTransaction(unsaved[i].Forward, "", txn.TypeRollback)
		if err != nil {
			return nil, err
		}
		combined.Merge(s)
		replayed = append(replayed, unsaved[i])
	}
	r.c.SetUnsavedEntries(replayed)

	r.advanceSequence(in)
	ids := lo.Map(unsaved, func(e operation.UnsavedEntry, _ int) string { return e.ID })
	logger.MultiplayerInfo("reconciled foreign transaction " + in.TransactionID + " against " + strconv.Itoa(len(unsaved)) +
		" unsaved entries [" + strings.Join(ids, ", ") + "]")
	return combined, nil
}

func (r *Reconciler) advanceSequence(in Incoming) {
	if in.SequenceNum != nil {
		r.c.SetLastSequenceNum(*in.SequenceNum)
	}
}

func entryIndex(entries []operation.UnsavedEntry, id string) int {
	_, idx, ok := lo.FindIndexOf(entries, func(e operation.UnsavedEntry) bool { return e.ID == id })
	if !ok {
		return -1
	}
	return idx
}

