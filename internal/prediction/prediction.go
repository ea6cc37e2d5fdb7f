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

// Package prediction is C4: it mints the per-session boundary and per-read
// choice variables, constrains their shapes, and defines wrₖ in terms of
// them — the only place a read's source write is actually free to vary.
package prediction

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// Constrain asserts, for every key, the defining equation of wrₖ in terms
// of each read's choice variable, the per-session boundary-shape axiom
// (a boundary sits immediately after one of the session's reads, or just
// past the session's last event), and the per-read choice-validity axiom
// (some write must be chosen and survive truncation, and never one from
// later in the read's own session). It also declares every choice and
// boundary variable's finite domain on bag.
func Constrain(ctx *symctx.Context, bag *formula.Bag, keys []string) {
	constrainBoundaryShape(ctx, bag)
	for _, key := range keys {
		constrainKey(ctx, bag, key)
	}
	ctx.DeclareBoundaryDomains(bag)
}

// constrainBoundaryShape is the admissible-truncation axiom: only cuts
// immediately after a read can alter a write-read binding, so every other
// cut position is excluded outright. A session with no reads can only be
// kept whole.
func constrainBoundaryShape(ctx *symctx.Context, bag *formula.Bag) {
	store := ctx.Store
	for _, session := range store.Sessions() {
		boundary := ctx.Boundary(session)
		shapes := []formula.BoolExpr{
			formula.IntEq(boundary, formula.IntLit(store.SessionEventCount(session)+1)),
		}
		for _, seq := range store.SessionReadEvents(session) {
			shapes = append(shapes, formula.IntEq(boundary, formula.IntLit(seq+1)))
		}
		bag.Assert(formula.Or(shapes...))
	}
}

func constrainKey(ctx *symctx.Context, bag *formula.Bag, key string) {
	writes := ctx.Store.Writes(key)
	if len(writes) == 0 {
		return
	}
	reads := ctx.Store.Reads(key)

	readsByTx := make(map[historystore.TxID][]historystore.Read)
	for _, r := range reads {
		readsByTx[r.Tx] = append(readsByTx[r.Tx], r)
	}

	for _, r := range reads {
		bag.Declare(ctx.Choice(r), 0, len(writes)-1)
		constrainChoice(ctx, bag, r, writes)
	}

	txs := ctx.Store.AllTransactions()
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			var disjuncts []formula.BoolExpr
			for _, r := range readsByTx[t2] {
				for i, w := range writes {
					if w.Tx != t1 {
						continue
					}
					disjuncts = append(disjuncts, candidateCondition(ctx, r, w, i))
				}
			}
			bag.Assert(formula.Iff(ctx.WrK(key).At(t1, t2), formula.Or(disjuncts...)))
		}
	}
}

// constrainChoice asserts the per-read write-choice axiom directly on r's
// choice variable, independent of any wrₖ pair that happens to reference
// it: some write in writes must be chosen and that write must survive
// truncation, and no write from later in r's own session may ever be
// chosen.
func constrainChoice(ctx *symctx.Context, bag *formula.Bag, r historystore.Read, writes []historystore.Write) {
	choice := ctx.Choice(r)

	var valid []formula.BoolExpr
	for i, w := range writes {
		valid = append(valid, formula.And(
			formula.IntEq(choice, formula.IntLit(i)),
			ctx.WriteInBoundary(w),
		))
	}
	bag.Assert(formula.Or(valid...))

	for i, w := range writes {
		if w.Session == r.Session && w.Seq > r.Seq {
			bag.Assert(formula.Not(formula.IntEq(choice, formula.IntLit(i))))
		}
	}
}

// CandidateReadsFrom is the disjunction, over every write writerTx makes on
// key, of the wrₖ-shaped candidate condition asserting that read r observes
// that particular write, each conjoined with that write surviving
// truncation. Unlike ctx.WrK(key).At(writerTx, r.Tx) — which aggregates
// over every read r's transaction makes on key — this tests one specific
// read, the granularity internal/isolation's Read Committed axiom needs
// (spec.md §4.5 quantifies over a single read r1, not its transaction).
func CandidateReadsFrom(ctx *symctx.Context, key string, r historystore.Read, writerTx historystore.TxID) formula.BoolExpr {
	var disjuncts []formula.BoolExpr
	for i, w := range ctx.Store.Writes(key) {
		if w.Tx != writerTx || w.Tx == r.Tx {
			continue
		}
		disjuncts = append(disjuncts, formula.And(
			candidateCondition(ctx, r, w, i),
			ctx.WriteInBoundary(w),
		))
	}
	return formula.Or(disjuncts...)
}

// candidateCondition is one (write, read) pair's contribution to
// wrₖ(w.Tx, r.Tx). A read sitting on its session's cut is re-executed in
// the predicted history, so its source is whatever the choice variable
// selects; everywhere else the read already happened and its binding is a
// fact — the pair holds iff w is the write the log recorded and the read
// survives truncation at all.
func candidateCondition(ctx *symctx.Context, r historystore.Read, w historystore.Write, candidateIndex int) formula.BoolExpr {
	selected := formula.IntEq(ctx.Choice(r), formula.IntLit(candidateIndex))
	original := w.Session == r.FromSession && w.Tx == r.FromTx && w.Seq == r.FromSeq
	if original {
		return formula.IfElse(ctx.ReadOnBoundary(r), selected, ctx.ReadInBoundary(r))
	}
	return formula.And(ctx.ReadOnBoundary(r), selected)
}
