// Package main implements gridctl, the §6 CLI host surface: create grid,
// open from string, export to string, apply transaction, undo, redo,
// receive remote transaction, heartbeat. Because those operations share a
// single in-memory txn.Controller (undo/redo stacks and the unsaved queue
// are not part of the file envelope), gridctl exposes them as a single
// ordered "run" session rather than independent one-shot processes: a
// script of commands executed in order against one Controller, the way a
// real host process would drive the engine across a connection's lifetime.
package main

import (
	"encoding/json"
	"strings"
	"time"

	"gridcore/internal/compute"
	"gridcore/internal/executor"
	"gridcore/internal/importexport"
	"gridcore/internal/multiplayer"
	"gridcore/internal/txn"
	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/logger"
	"gridcore/pkg/operation"
	"gridcore/pkg/value"
)

// command is one step of a run script. Op names the operation; the other
// fields are populated depending on which op it is.
type command struct {
	Op string `json:"op"`

	// open
	Data string `json:"data,omitempty"`

	// apply
	Operations []operation.Operation `json:"operations,omitempty"`
	Cursor     string                 `json:"cursor,omitempty"`

	// receive
	TransactionID string  `json:"transaction_id,omitempty"`
	SequenceNum   *uint64 `json:"sequence_num,omitempty"`
}

// script is the top-level run-session document.
type script struct {
	Commands []command `json:"commands"`
}

// commandResult is one script command's outcome, reported back in order.
type commandResult struct {
	Op      string             `json:"op"`
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Summary *operation.Summary `json:"summary,omitempty"`
	Grid    json.RawMessage    `json:"grid,omitempty"`
}

// session owns the live engine stack for the lifetime of one run invocation.
type session struct {
	g    *grid.Grid
	ex   *executor.Executor
	ce   *compute.Engine
	c    *txn.Controller
	recv *multiplayer.Reconciler
}

func newSession() *session {
	g := grid.NewGrid()
	ce := compute.New(g)
	ce.RegisterRunner(value.LanguageFormula, compute.FormulaRunner{})
	ex := executor.New(g, ce)
	c := txn.New(g, ex, ce)
	return &session{g: g, ex: ex, ce: ce, c: c, recv: multiplayer.New(c)}
}

// runScript executes every command in s in order, stopping at the first error,
// and returns one result per command attempted (including the failing one).
func runScript(s script) []commandResult {
	sess := newSession()
	results := make([]commandResult, 0, len(s.Commands))
	for _, cmd := range s.Commands {
		res := sess.exec(cmd)
		results = append(results, res)
		if !res.OK {
			break
		}
	}
	return results
}

func (sess *session) exec(cmd command) commandResult {
	res := commandResult{Op: cmd.Op}
	var err error

	switch cmd.Op {
	case "create":
		// sess.g already starts as a fresh single-sheet grid.
	case "open":
		err = sess.open(cmd.Data)
	case "export":
		res.Grid, err = sess.export()
	case "apply":
		res.Summary, err = sess.c.StartUserTransaction(cmd.Operations, cmd.Cursor)
	case "undo":
		res.Summary, err = sess.c.Undo()
	case "redo":
		res.Summary, err = sess.c.Redo()
	case "receive":
		res.Summary, err = sess.recv.Receive(multiplayer.Incoming{
			TransactionID: cmd.TransactionID,
			SequenceNum:   cmd.SequenceNum,
			Operations:    cmd.Operations,
		})
	case "heartbeat":
		res.Summary = operation.NewSummary()
		logger.CLIInfo("heartbeat at " + time.Now().UTC().Format(time.RFC3339))
	default:
		err = apperrors.InvalidInput("unknown command: " + cmd.Op)
	}

	if err != nil {
		res.OK = false
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}

// open replaces the session's grid wholesale with the one encoded in data
// (the native JSON file envelope, §6 "open from string").
func (sess *session) open(data string) error {
	g, err := importexport.ImportJSON(strings.NewReader(data))
	if err != nil {
		return err
	}
	sess.g = g
	sess.ce = compute.New(g)
	sess.ce.RegisterRunner(value.LanguageFormula, compute.FormulaRunner{})
	sess.ex = executor.New(g, sess.ce)
	sess.c = txn.New(g, sess.ex, sess.ce)
	sess.recv = multiplayer.New(sess.c)
	return nil
}

// export serializes the session's current grid to the native JSON file
// envelope (§6 "export to string").
func (sess *session) export() (json.RawMessage, error) {
	data, err := json.Marshal(sess.c.Grid())
	if err != nil {
		return nil, apperrors.ExportFailed(err)
	}
	return json.RawMessage(data), nil
}
