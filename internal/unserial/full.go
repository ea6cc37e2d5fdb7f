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

// Package unserial is C6: it asserts that the predicted history is *not*
// serializable, in either of spec.md's two shapes. Full asks for the
// nonexistence of a witnessing total commit order, nesting the serial
// write-write arbitration directly inside that same existential. Express
// instead asks whether a transitive-closure relation already contains a
// 2-cycle, trading the nested quantifier for a few more relation
// definitions (see express.go).
package unserial

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// ConstrainFull asserts "no total commit order co_S exists respecting so,
// wr, and the serial write-write arbitration they imply" — the classical
// serialization-graph cycle condition, expressed as a negated existential
// so its witness (when there is one) never leaks into the model C7 reads.
func ConstrainFull(ctx *symctx.Context, bag *formula.Bag, keys []string) *formula.IntFunc {
	coS, txs, edges := SerializationEdges(ctx, "co_S", keys)
	bag.Assert(formula.Not(formula.TotalOrder(coS, txs, edges)))
	return coS
}

// SerializationEdges builds the commit-order function and TotalOrder edges
// shared by ConstrainFull's negated existential and internal/verify's
// positive one ("does some serialization exist", rather than "none does").
// coName lets a caller mint an independently named function when it needs
// both existentials live in the same bag at once.
func SerializationEdges(ctx *symctx.Context, coName string, keys []string) (*formula.IntFunc, []historystore.TxID, []formula.OrderEdge) {
	coS := ctx.CommitOrder(coName)
	txs := ctx.Store.AllTransactions()

	var edges []formula.OrderEdge
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			edges = append(edges, formula.OrderEdge{Cond: ctx.So.At(t1, t2), Before: t1, After: t2})
			edges = append(edges, formula.OrderEdge{Cond: ctx.Wr.At(t1, t2), Before: t1, After: t2})
			if cond := wwCond(ctx, keys, coS, t1, t2); cond != nil {
				edges = append(edges, formula.OrderEdge{Cond: cond, Before: t1, After: t2})
			}
		}
	}
	return coS, txs, edges
}

// wwCond builds the condition under which conflictTx must precede wTx in
// any valid serialization: on some key k both transactions write, a read r
// observes wTx's write, and this same candidate co_S already places the
// conflicting write before r — the reader saw wTx's version, so anything
// serialized before the reader that also wrote k must come before wTx too.
// The co_S reference is sound only because the condition lives inside the
// very TotalOrder existential that quantifies co_S: evaluating it against
// one candidate labeling (as internal/oracle's permutation search does) is
// exactly what "inside this existential" means.
func wwCond(ctx *symctx.Context, keys []string, coS *formula.IntFunc, conflictTx, wTx historystore.TxID) formula.BoolExpr {
	var disjuncts []formula.BoolExpr
	for _, k := range keys {
		reads := ctx.Store.Reads(k)
		if len(reads) == 0 {
			continue
		}
		writes := ctx.Store.Writes(k)
		for _, conflict := range writes {
			if conflict.Tx != conflictTx {
				continue
			}
			for _, write := range writes {
				if write.Tx != wTx || (write.Tx == conflict.Tx && write.Seq == conflict.Seq) {
					continue
				}
				for _, r := range reads {
					disjuncts = append(disjuncts, formula.And(
						ctx.WriteInBoundary(conflict),
						ctx.TxInBoundary(conflict.Tx),
						ctx.TxInBoundary(r.Tx),
						ctx.TxInBoundary(write.Tx),
						ctx.WrK(k).At(write.Tx, r.Tx),
						formula.Lt(coS.At1(conflict.Tx), coS.At1(r.Tx)),
					))
				}
			}
		}
	}
	if len(disjuncts) == 0 {
		return nil
	}
	return formula.Or(disjuncts...)
}
