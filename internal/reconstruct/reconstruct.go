// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package reconstruct is C7: it turns a sat Model back into a concrete
// predicted history a human (or internal/report) can read. Nothing here
// touches the oracle or the bag; it only evaluates the boundary, choice,
// happens-before and co_weak symbols symctx.Context minted against an
// already-solved Model.
package reconstruct

import (
	"fmt"
	"sort"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// EventKind distinguishes a retained write from a retained, possibly
// rewritten, read.
type EventKind int

const (
	WriteEvent EventKind = iota
	ReadEvent
)

// RetainedEvent is one event that survived truncation, projected from the
// original history.
type RetainedEvent struct {
	Kind   EventKind
	Key    string
	Seq    int
	FromTx historystore.TxID // only meaningful for ReadEvent
}

// RetainedTx is one transaction's surviving events.
type RetainedTx struct {
	Tx     historystore.TxID
	Events []RetainedEvent
}

// History is the reconstructed predicted execution: every retained
// transaction, in the commit order the model witnesses.
type History struct {
	Transactions []RetainedTx
}

// Reconstruct projects the Store through model. Per session it evaluates
// the boundary and identifies the boundary transaction — the one straddling
// the cut, if any. Every event strictly inside the boundary survives; a
// read sitting on the cut is re-bound to whatever write its choice variable
// selected, provided that write itself survives, while every interior read
// keeps its original source. Settled (non-boundary) transactions are
// ordered by the observed commit order, skipping any transaction a boundary
// transaction happens-before (those lie strictly past the cut); boundary
// transactions follow, ordered by the weak-isolation commit order coWeak
// the model solved for.
func Reconstruct(ctx *symctx.Context, model formula.Model, coWeak *formula.IntFunc) *History {
	store := ctx.Store

	boundaries := make(map[string]int)
	boundaryTx := make(map[historystore.TxID]bool)
	for _, session := range store.Sessions() {
		b := formula.EvalInt(ctx.Boundary(session), model)
		boundaries[session] = b
		for _, tx := range store.Transactions(session) {
			lo, _ := store.FirstEventInTx(tx)
			hi := lo + store.TransactionEventCount(tx)
			if lo < b && hi >= b {
				boundaryTx[tx] = true
				break
			}
		}
	}

	events := make(map[historystore.TxID][]RetainedEvent)
	for _, key := range store.Keys() {
		writes := store.Writes(key)
		for _, r := range store.Reads(key) {
			b := boundaries[r.Session]
			if truncated(ctx, r.Tx, r.Seq, b) {
				continue
			}
			if interior(ctx, r.Tx, r.Seq, b) {
				events[r.Tx] = append(events[r.Tx], RetainedEvent{Kind: ReadEvent, Key: key, Seq: r.Seq, FromTx: r.FromTx})
				continue
			}
			choiceVal := formula.EvalInt(ctx.Choice(r), model)
			if choiceVal < 0 || choiceVal >= len(writes) {
				// An encoder bug, not a recoverable input fault: every model
				// the choice axioms admit indexes W[k].
				panic(fmt.Sprintf("reconstruct: choice %d out of range for key %s (%d writes)", choiceVal, key, len(writes)))
			}
			w := writes[choiceVal]
			wFirst, _ := store.FirstEventInTx(w.Tx)
			if wFirst >= boundaries[w.Session] {
				continue
			}
			events[r.Tx] = append(events[r.Tx], RetainedEvent{Kind: ReadEvent, Key: key, Seq: r.Seq, FromTx: w.Tx})
		}
		for _, w := range writes {
			if truncated(ctx, w.Tx, w.Seq, boundaries[w.Session]) {
				continue
			}
			events[w.Tx] = append(events[w.Tx], RetainedEvent{Kind: WriteEvent, Key: key, Seq: w.Seq})
		}
	}

	type ranked struct {
		tx    historystore.TxID
		order int
	}
	pastCut := func(tx historystore.TxID) bool {
		for b := range boundaryTx {
			if b != tx && formula.EvalBool(ctx.Hb.At(b, tx), model) {
				return true
			}
		}
		return false
	}
	var settled, frontier []ranked
	for _, session := range store.Sessions() {
		for _, tx := range store.Transactions(session) {
			if len(events[tx]) == 0 || pastCut(tx) {
				continue
			}
			if boundaryTx[tx] {
				frontier = append(frontier, ranked{tx: tx, order: formula.EvalInt(coWeak.At1(tx), model)})
				continue
			}
			order, _ := store.ObservedCO(tx)
			settled = append(settled, ranked{tx: tx, order: order})
		}
	}
	sort.Slice(settled, func(i, j int) bool { return settled[i].order < settled[j].order })
	sort.Slice(frontier, func(i, j int) bool { return frontier[i].order < frontier[j].order })

	h := &History{}
	for _, group := range [][]ranked{settled, frontier} {
		for _, p := range group {
			evs := events[p.tx]
			sort.Slice(evs, func(i, j int) bool { return evs[i].Seq < evs[j].Seq })
			h.Transactions = append(h.Transactions, RetainedTx{Tx: p.tx, Events: evs})
		}
	}
	return h
}

// truncated reports whether the event at seq in tx lies past its session's
// boundary b: by its own position under Strict, by its transaction's first
// event under Relaxed (where a straddling transaction keeps even its tail).
func truncated(ctx *symctx.Context, tx historystore.TxID, seq, b int) bool {
	if ctx.Strategy == symctx.Relaxed {
		first, _ := ctx.Store.FirstEventInTx(tx)
		return first >= b
	}
	return seq >= b
}

// interior reports whether a surviving read keeps its original source: it
// does unless it sits on the cut — the last surviving event under Strict,
// any event of the straddling transaction under Relaxed.
func interior(ctx *symctx.Context, tx historystore.TxID, seq, b int) bool {
	if ctx.Strategy == symctx.Relaxed {
		first, _ := ctx.Store.FirstEventInTx(tx)
		return first+ctx.Store.TransactionEventCount(tx) < b
	}
	return seq < b-1
}
