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

// Package relation is C3: it asserts the defining equations that wire the
// structural relations — session order, write-read, happens-before, causal
// arbitration — together. It never introduces a free variable itself; so
// comes straight from the store, and wr/hb/ar are defined in terms of
// per-key relations internal/prediction and internal/unserial mint and
// constrain.
package relation

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// DefineSessionOrder asserts the full ground truth of so: the adjacent
// (prev, next) pair inside each session, plus the virtual edge from the
// initial transaction to each session's first transaction. Everything else,
// self-pairs included, is false. so is fully determined by the input log,
// so its truth table is baked in rather than left free; hb supplies the
// within-session transitivity.
func DefineSessionOrder(ctx *symctx.Context, bag *formula.Bag) {
	store := ctx.Store
	candidates := make(map[[2]historystore.TxID]bool)
	hasInit := false
	for _, session := range store.Sessions() {
		if session == historystore.InitSession {
			hasInit = true
		}
	}
	for _, session := range store.Sessions() {
		txs := store.Transactions(session)
		if len(txs) == 0 {
			continue
		}
		if hasInit && session != historystore.InitSession {
			candidates[[2]historystore.TxID{historystore.InitTx, txs[0]}] = true
		}
		for i := 1; i < len(txs); i++ {
			candidates[[2]historystore.TxID{txs[i-1], txs[i]}] = true
		}
	}

	txs := store.AllTransactions()
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				bag.Assert(formula.Not(ctx.So.At(t1, t2)))
				continue
			}
			holds := candidates[[2]historystore.TxID{t1, t2}]
			bag.Assert(formula.Iff(ctx.So.At(t1, t2), formula.BoolExprFromBool(holds)))
		}
	}
}

// DefineWr asserts wr(t1, t2) iff t1 writes some key k that t2 reads from,
// i.e. wr is the union of every key's wrₖ. Self-pairs of wr and of every
// wrₖ are false outright.
func DefineWr(ctx *symctx.Context, bag *formula.Bag, keys []string) {
	txs := ctx.Store.AllTransactions()
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				bag.Assert(formula.Not(ctx.Wr.At(t1, t2)))
				for _, k := range keys {
					bag.Assert(formula.Not(ctx.WrK(k).At(t1, t2)))
				}
				continue
			}
			terms := make([]formula.BoolExpr, 0, len(keys))
			for _, k := range keys {
				terms = append(terms, ctx.WrK(k).At(t1, t2))
			}
			bag.Assert(formula.Iff(ctx.Wr.At(t1, t2), formula.Or(terms...)))
		}
	}
}

// DefineHb asserts hb as the transitive closure of so union wr, expanded by
// a single trailing hop over the (finite, known-at-encode-time) transaction
// set: hb(t1,t2) iff wr(t1,t2) or so(t1,t2) or exists t3 with hb(t1,t3) and
// (wr(t3,t2) or so(t3,t2)). Because the Tx sort is finite and enumerable
// when the bag is built, the "exists" is a literal finite disjunction, not
// a quantifier formula needs to support; the oracle settles the fixed point.
func DefineHb(ctx *symctx.Context, bag *formula.Bag) {
	txs := ctx.Store.AllTransactions()
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				bag.Assert(formula.Not(ctx.Hb.At(t1, t2)))
				continue
			}
			mediated := make([]formula.BoolExpr, 0, len(txs))
			for _, t3 := range txs {
				if t3 == t1 || t3 == t2 {
					continue
				}
				hop := formula.Or(ctx.Wr.At(t3, t2), ctx.So.At(t3, t2))
				mediated = append(mediated, formula.And(ctx.Hb.At(t1, t3), hop))
			}
			rhs := formula.Or(append([]formula.BoolExpr{ctx.Wr.At(t1, t2), ctx.So.At(t1, t2)}, mediated...)...)
			bag.Assert(formula.Iff(ctx.Hb.At(t1, t2), rhs))
		}
	}
}

// DefineAr asserts causal arbitration: for every triple (conflict, r,
// write) with conflict, write ∈ W[k] from distinct transactions and
// r ∈ R[k], arₖ(conflict.tx, write.tx) candidates on conflict surviving
// truncation, every one of conflict/r/write's transactions surviving it,
// write's transaction actually being the one r reads from on k, and
// conflict happening-before r. The read-mediated hb(conflict, r) — not
// hb(conflict, write) — is what makes this causal consistency's
// commit-order requirement rather than a strictly weaker approximation of
// it: a conflicting write that precedes a reader the winning writer feeds
// is exactly the edge that must be ordered, even when conflict never
// directly happens-before write itself. Pairs with no candidate triple, and
// all self-pairs, are false; ar is the union of every key's arₖ.
func DefineAr(ctx *symctx.Context, bag *formula.Bag, keys []string) {
	txs := ctx.Store.AllTransactions()

	for _, k := range keys {
		writes := ctx.Store.Writes(k)
		reads := ctx.Store.Reads(k)

		candidates := make(map[[2]historystore.TxID][]formula.BoolExpr)
		for _, conflict := range writes {
			for _, write := range writes {
				if conflict.Tx == write.Tx {
					continue
				}
				for _, r := range reads {
					pair := [2]historystore.TxID{conflict.Tx, write.Tx}
					candidates[pair] = append(candidates[pair], arCandidate(ctx, k, conflict, r, write))
				}
			}
		}

		for _, t1 := range txs {
			for _, t2 := range txs {
				if t1 == t2 {
					bag.Assert(formula.Not(ctx.ArK(k).At(t1, t2)))
					continue
				}
				terms := candidates[[2]historystore.TxID{t1, t2}]
				bag.Assert(formula.Iff(ctx.ArK(k).At(t1, t2), formula.Or(terms...)))
			}
		}
	}
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				bag.Assert(formula.Not(ctx.Ar.At(t1, t2)))
				continue
			}
			terms := make([]formula.BoolExpr, 0, len(keys))
			for _, k := range keys {
				terms = append(terms, ctx.ArK(k).At(t1, t2))
			}
			bag.Assert(formula.Iff(ctx.Ar.At(t1, t2), formula.Or(terms...)))
		}
	}
}

// arCandidate builds one (conflict, r, write) triple's contribution to
// arₖ(conflict.Tx, write.Tx): conflict must survive truncation, every one
// of the triple's three transactions must survive it, r must actually read
// from write on k, and conflict must happen-before r.
func arCandidate(ctx *symctx.Context, key string, conflict historystore.Write, r historystore.Read, write historystore.Write) formula.BoolExpr {
	return formula.And(
		ctx.WriteInBoundary(conflict),
		ctx.TxInBoundary(conflict.Tx),
		ctx.TxInBoundary(r.Tx),
		ctx.TxInBoundary(write.Tx),
		ctx.WrK(key).At(write.Tx, r.Tx),
		ctx.Hb.At(conflict.Tx, r.Tx),
	)
}

// Writers returns the transactions with at least one write on key,
// including InitTx's synthesized initial write.
func Writers(store *historystore.Store, key string) map[historystore.TxID]bool {
	out := make(map[historystore.TxID]bool)
	for _, w := range store.Writes(key) {
		out[w.Tx] = true
	}
	return out
}
