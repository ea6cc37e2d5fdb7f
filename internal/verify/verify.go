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

// Package verify checks an ALREADY-OBSERVED execution directly, rather than
// predicting an unobserved extension of one. It has no choice variables,
// and every boundary variable is pinned past the end of its session, so
// nothing is truncated: wrₖ is read straight off the log's recorded
// read-from-write edges instead of being left free, because nothing about
// an observed execution is hypothetical. It answers two independent
// questions about the same observed wr: did the run actually satisfy the
// isolation level it was supposed to, and was it serializable outright.
// Grounded on the teacher's original_source counterpart,
// src/isopredict/verify.py's do_check/serializable_constraints.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/isolation"
	"github.com/isopredict/isopredict/internal/relation"
	"github.com/isopredict/isopredict/internal/symctx"
	"github.com/isopredict/isopredict/internal/unserial"
)

// Result is the outcome of one Check call.
type Result struct {
	// IsolationHolds is Sat when the observed execution's commit order is
	// consistent with the requested isolation level, Unsat when no such
	// commit order exists (the run violated the level), Unknown if the
	// oracle could not decide within its timeout.
	IsolationHolds formula.Result
	// Serializable is Sat when, independently of isolation, some total
	// commit order exists making the observed execution equivalent to a
	// serial one.
	Serializable formula.Result
}

// Verifier checks one isolation level's axiom against observed executions.
type Verifier struct {
	log    *zap.SugaredLogger
	oracle formula.Oracle
	level  isolation.Level
}

// New returns a Verifier that decides with oracle against level. logger may
// be nil, in which case Verifier logs nothing.
func New(logger *zap.Logger, oracle formula.Oracle, level isolation.Level) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{log: logger.Sugar(), oracle: oracle, level: level}
}

// Check runs both questions against store's observed execution, each in its
// own independent Bag (they share no free variable, so there is nothing to
// gain from combining them, and keeping them apart means either oracle call
// can fail without invalidating the other's answer).
func (v *Verifier) Check(ctx context.Context, store *historystore.Store, timeout time.Duration) (*Result, error) {
	keys := store.Keys()

	v.log.Debugw("checking observed isolation", "level", v.level)
	isoOutcome, err := v.checkIsolation(ctx, store, keys, timeout)
	if err != nil {
		return nil, err
	}

	v.log.Debugw("checking observed serializability")
	serOutcome, err := v.checkSerializable(ctx, store, keys, timeout)
	if err != nil {
		return nil, err
	}

	return &Result{IsolationHolds: isoOutcome, Serializable: serOutcome}, nil
}

func (v *Verifier) checkIsolation(ctx context.Context, store *historystore.Store, keys []string, timeout time.Duration) (formula.Result, error) {
	symCtx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()

	symCtx.PinBoundaries(bag)
	relation.DefineSessionOrder(symCtx, bag)
	defineObservedWr(symCtx, bag, keys)
	relation.DefineWr(symCtx, bag, keys)
	relation.DefineHb(symCtx, bag)
	relation.DefineAr(symCtx, bag, keys)
	isolation.Constrain(symCtx, bag, v.level, keys, observedReadsFrom)

	outcome, _, err := v.oracle.Check(ctx, bag, timeout)
	return outcome, err
}

func (v *Verifier) checkSerializable(ctx context.Context, store *historystore.Store, keys []string, timeout time.Duration) (formula.Result, error) {
	symCtx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()

	// Boundaries pinned past end-of-session collapse every truncation guard
	// inside SerializationEdges' ww condition to true — an observed
	// execution has nothing truncated.
	symCtx.PinBoundaries(bag)
	relation.DefineSessionOrder(symCtx, bag)
	defineObservedWr(symCtx, bag, keys)
	relation.DefineWr(symCtx, bag, keys)
	relation.DefineHb(symCtx, bag)

	coS, txs, edges := unserial.SerializationEdges(symCtx, "co_S", keys)
	bag.Assert(formula.TotalOrder(coS, txs, edges))

	outcome, _, err := v.oracle.Check(ctx, bag, timeout)
	return outcome, err
}

// observedReadsFrom is an isolation.ReadsFrom over ground truth: the
// observed execution has already committed to one writer per read (no
// boundary, no choice), so "does r read from writerTx on key" is a plain
// fact pulled off the log's recorded from-fields, never a free variable.
func observedReadsFrom(_ string, r historystore.Read, writerTx historystore.TxID) formula.BoolExpr {
	return formula.BoolExprFromBool(r.FromTx == writerTx)
}

// defineObservedWr asserts wrₖ's complete truth table directly from the
// log's recorded read-from-write edges: no choice variable, because an
// observed read never had more than one answer to begin with.
func defineObservedWr(ctx *symctx.Context, bag *formula.Bag, keys []string) {
	txs := ctx.Store.AllTransactions()
	for _, key := range keys {
		observed := make(map[historystore.TxID]map[historystore.TxID]bool)
		for _, r := range ctx.Store.Reads(key) {
			if observed[r.FromTx] == nil {
				observed[r.FromTx] = make(map[historystore.TxID]bool)
			}
			observed[r.FromTx][r.Tx] = true
		}
		for _, t1 := range txs {
			for _, t2 := range txs {
				if t1 == t2 {
					continue
				}
				holds := observed[t1][t2]
				bag.Assert(formula.Iff(ctx.WrK(key).At(t1, t2), formula.BoolExprFromBool(holds)))
			}
		}
	}
}
