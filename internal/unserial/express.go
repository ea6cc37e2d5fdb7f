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

package unserial

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// ConstrainExpress asserts unserializability as "reachable already contains
// a 2-cycle" instead of Full's negated total-order existential. wwₖ and rwₖ
// mirror Full's candidate shape (wwCond in full.go) but gate on a rank
// comparison and an already-established reachable edge instead of a co_S
// inequality living inside a TotalOrder existential — rank is the
// well-founded measure that lets a mediated reachability step be asserted
// directly, as a finite disjunction over witnesses t3, without unbounded
// quantifier alternation. The resulting system (wwₖ, rwₖ, ww, rw,
// reachable) is mutually recursive but monotone under the rank bounds, so
// the same fixed-point settling relation.DefineHb already relies on
// resolves it too.
func ConstrainExpress(ctx *symctx.Context, bag *formula.Bag, keys []string) {
	txs := ctx.Store.AllTransactions()

	for _, key := range keys {
		wwCandidates := make(map[[2]historystore.TxID][]formula.BoolExpr)
		rwCandidates := make(map[[2]historystore.TxID][]formula.BoolExpr)
		writes := ctx.Store.Writes(key)
		reads := ctx.Store.Reads(key)

		for _, conflict := range writes {
			for _, write := range writes {
				if conflict.Tx == write.Tx {
					continue
				}
				pair := [2]historystore.TxID{conflict.Tx, write.Tx}
				for _, r := range reads {
					wwCandidates[pair] = append(wwCandidates[pair], wwKCandidate(ctx, key, conflict, r, write))
				}
			}
		}
		for _, r := range reads {
			for _, conflict := range writes {
				for _, write := range writes {
					if write.Tx == conflict.Tx {
						continue
					}
					pair := [2]historystore.TxID{r.Tx, conflict.Tx}
					rwCandidates[pair] = append(rwCandidates[pair], rwKCandidate(ctx, key, r, conflict, write))
				}
			}
		}

		for _, t1 := range txs {
			for _, t2 := range txs {
				if t1 == t2 {
					bag.Assert(formula.Not(ctx.WwK(key).At(t1, t2)))
					bag.Assert(formula.Not(ctx.RwK(key).At(t1, t2)))
					continue
				}
				pair := [2]historystore.TxID{t1, t2}
				bag.Assert(formula.Iff(ctx.WwK(key).At(t1, t2), formula.Or(wwCandidates[pair]...)))
				bag.Assert(formula.Iff(ctx.RwK(key).At(t1, t2), formula.Or(rwCandidates[pair]...)))
			}
		}
	}

	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				bag.Assert(formula.Not(ctx.Ww.At(t1, t2)))
				bag.Assert(formula.Not(ctx.Rw.At(t1, t2)))
				bag.Assert(formula.Not(ctx.Reachable.At(t1, t2)))
				continue
			}
			wws := make([]formula.BoolExpr, 0, len(keys))
			rws := make([]formula.BoolExpr, 0, len(keys))
			for _, k := range keys {
				wws = append(wws, ctx.WwK(k).At(t1, t2))
				rws = append(rws, ctx.RwK(k).At(t1, t2))
			}
			bag.Assert(formula.Iff(ctx.Ww.At(t1, t2), formula.Or(wws...)))
			bag.Assert(formula.Iff(ctx.Rw.At(t1, t2), formula.Or(rws...)))
		}
	}

	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			mediated := make([]formula.BoolExpr, 0, len(txs))
			for _, t3 := range txs {
				if t3 == t1 || t3 == t2 {
					continue
				}
				step := formula.Or(ctx.Hb.At(t3, t2), ctx.Ar.At(t3, t2), ctx.Ww.At(t3, t2), ctx.Rw.At(t3, t2))
				mediated = append(mediated, formula.And(
					ctx.Reachable.At(t1, t3),
					formula.Lt(ctx.Rank(t1, t3), ctx.Rank(t1, t2)),
					formula.Lt(ctx.Rank(t3, t2), ctx.Rank(t1, t2)),
					step,
				))
			}
			base := []formula.BoolExpr{ctx.Hb.At(t1, t2), ctx.Ar.At(t1, t2), ctx.Ww.At(t1, t2), ctx.Rw.At(t1, t2)}
			bag.Assert(formula.Iff(ctx.Reachable.At(t1, t2), formula.Or(append(base, mediated...)...)))
		}
	}

	var cycle []formula.BoolExpr
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			cycle = append(cycle, formula.And(ctx.Reachable.At(t1, t2), ctx.Reachable.At(t2, t1)))
		}
	}
	bag.Assert(formula.Or(cycle...))

	ctx.DeclareRankDomains(bag)
}

// wwKCandidate is one (conflict, r, write) triple's contribution to
// wwₖ(conflict.Tx, write.Tx): Full's wwCond shape with the co_S inequality
// replaced by rank(conflict, write) > rank(conflict, r) over an
// already-established reachable(conflict, r).
func wwKCandidate(ctx *symctx.Context, key string, conflict historystore.Write, r historystore.Read, write historystore.Write) formula.BoolExpr {
	return formula.And(
		ctx.WriteInBoundary(conflict),
		ctx.TxInBoundary(conflict.Tx),
		ctx.TxInBoundary(r.Tx),
		ctx.TxInBoundary(write.Tx),
		ctx.WrK(key).At(write.Tx, r.Tx),
		formula.Lt(ctx.Rank(conflict.Tx, r.Tx), ctx.Rank(conflict.Tx, write.Tx)),
		ctx.Reachable.At(conflict.Tx, r.Tx),
	)
}

// rwKCandidate is one (r, conflict, write) triple's contribution to
// rwₖ(r.Tx, conflict.Tx): r observes write's version of the key and
// conflict overwrites it, so the read precedes the overwrite whenever the
// overwrite is reachable from the write it displaced and the rank measure
// orders the read's edge above the write's.
func rwKCandidate(ctx *symctx.Context, key string, r historystore.Read, conflict, write historystore.Write) formula.BoolExpr {
	return formula.And(
		ctx.WriteInBoundary(conflict),
		ctx.TxInBoundary(conflict.Tx),
		ctx.TxInBoundary(r.Tx),
		ctx.TxInBoundary(write.Tx),
		ctx.WrK(key).At(write.Tx, r.Tx),
		formula.Lt(ctx.Rank(write.Tx, conflict.Tx), ctx.Rank(r.Tx, conflict.Tx)),
		ctx.Reachable.At(write.Tx, conflict.Tx),
	)
}
