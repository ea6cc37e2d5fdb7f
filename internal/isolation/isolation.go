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

// Package isolation is C5: it asserts the weak-isolation commit order axiom
// the predicted history must satisfy, for whichever of the two supported
// levels the analysis was asked for.
package isolation

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/relation"
	"github.com/isopredict/isopredict/internal/symctx"
)

// ReadsFrom tests, at single-read granularity, whether read r observes some
// write by writerTx on key. The predictive encoder (internal/prediction)
// answers this over free boundary/choice variables;
// internal/verify's observed-execution check answers it as a ground-truth
// fact straight off the log's recorded from-fields. Constrain's Read
// Committed clause needs single-read precision (spec.md §4.5 quantifies over
// one read r1, not its whole transaction), so it takes this as a parameter
// rather than assuming either shape.
type ReadsFrom func(key string, r historystore.Read, writerTx historystore.TxID) formula.BoolExpr

// Level names a weak isolation level the predicted history must satisfy.
type Level int

const (
	// ReadCommitted requires commit order to respect session order and
	// write-read edges, plus the per-key monotonicity clause: a transaction
	// never reads a write older than one an earlier read of it observed.
	ReadCommitted Level = iota
	// CausalConsistency requires commit order to respect session order,
	// write-read edges, and causal arbitration (ar) edges.
	CausalConsistency
)

func (l Level) String() string {
	if l == CausalConsistency {
		return "causal-consistency"
	}
	return "read-committed"
}

// Constrain mints a fresh commit-order function named "co_weak" and asserts
// that it exists and is consistent with level, returning it so
// internal/reconstruct can read its value back out of the model for the
// boundary transactions it needs to order. keys and readsFrom are only
// consulted for ReadCommitted, which has a per-key axiom beyond the common
// so/wr edges (spec.md §4.5); Causal Consistency needs nothing beyond hb/ar,
// so callers encoding only Causal Consistency may pass nil for both.
func Constrain(ctx *symctx.Context, bag *formula.Bag, level Level, keys []string, readsFrom ReadsFrom) *formula.IntFunc {
	co := ctx.CommitOrder("co_weak")
	txs := ctx.Store.AllTransactions()

	var edges []formula.OrderEdge
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			edges = append(edges, formula.OrderEdge{Cond: ctx.Wr.At(t1, t2), Before: t1, After: t2})
			edges = append(edges, formula.OrderEdge{Cond: ctx.So.At(t1, t2), Before: t1, After: t2})
		}
	}
	if level == CausalConsistency {
		for _, t1 := range txs {
			for _, t2 := range txs {
				if t1 == t2 {
					continue
				}
				edges = append(edges, formula.OrderEdge{Cond: ctx.Ar.At(t1, t2), Before: t1, After: t2})
			}
		}
	}
	if level == ReadCommitted && readsFrom != nil {
		edges = append(edges, readCommittedMonotonicityEdges(ctx, keys, readsFrom)...)
	}
	bag.Assert(formula.TotalOrder(co, txs, edges))
	return co
}

// readCommittedMonotonicityEdges builds spec.md §4.5's Read Committed clause
// beyond the common so/wr edges as OrderEdges over co_weak, rather than a
// separate bag.Assert: a plain assertion referencing co_weak would be
// checked before a TotalOrder existential's permutation search has picked
// co_weak's values, so the clause has to ride inside the same existential as
// one more conditional edge. For every key k, every pair of distinct writers
// t1, t2 of k, and every read r1 on k: if r1 reads from t1 (A) and some
// earlier read of r1's own transaction read from t2 on its own key (B), then
// t2 must commit before t1 — a transaction can never stop seeing a write it
// already observed earlier in the same transaction.
func readCommittedMonotonicityEdges(ctx *symctx.Context, keys []string, readsFrom ReadsFrom) []formula.OrderEdge {
	var edges []formula.OrderEdge
	for _, key := range keys {
		writers := relation.Writers(ctx.Store, key)
		reads := ctx.Store.Reads(key)
		for t1 := range writers {
			for t2 := range writers {
				if t1 == t2 {
					continue
				}
				for _, r1 := range reads {
					a := readsFrom(key, r1, t1)
					b := priorSameTxReadsFrom(ctx, keys, r1, t2, readsFrom)
					if b == nil {
						continue
					}
					edges = append(edges, formula.OrderEdge{Cond: formula.And(a, b), Before: t2, After: t1})
				}
			}
		}
	}
	return edges
}

// priorSameTxReadsFrom disjoins the candidate condition of every read that
// precedes r1 within r1's own transaction and observes a write by writerTx
// on that read's own key. Returns nil (not formula.False) when no such
// candidate read exists, so the caller can skip asserting a vacuous clause.
func priorSameTxReadsFrom(ctx *symctx.Context, keys []string, r1 historystore.Read, writerTx historystore.TxID, readsFrom ReadsFrom) formula.BoolExpr {
	var disjuncts []formula.BoolExpr
	for _, k2 := range keys {
		for _, r := range ctx.Store.Reads(k2) {
			if r.Tx != r1.Tx || r.Seq >= r1.Seq {
				continue
			}
			disjuncts = append(disjuncts, readsFrom(k2, r, writerTx))
		}
	}
	if len(disjuncts) == 0 {
		return nil
	}
	return formula.Or(disjuncts...)
}
