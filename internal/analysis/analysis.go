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

package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/isolation"
	"github.com/isopredict/isopredict/internal/prediction"
	"github.com/isopredict/isopredict/internal/reconstruct"
	"github.com/isopredict/isopredict/internal/relation"
	"github.com/isopredict/isopredict/internal/symctx"
	"github.com/isopredict/isopredict/internal/unserial"
)

// Default oracle timeouts, per spec.md §5: two hours for a prediction call,
// thirty minutes for a verification call (the latter used by
// internal/verify, not here).
const (
	DefaultPredictTimeout = 2 * time.Hour
	DefaultVerifyTimeout  = 30 * time.Minute
)

// Analysis runs one configuration of the predictive encoder against an
// Oracle. It holds no history-specific state itself — Predict takes the
// Store fresh each call — so one Analysis value is safe to reuse (but not
// to share concurrently; see internal/runner for the concurrent-invocation
// story spec.md §5 describes).
type Analysis struct {
	log    *zap.SugaredLogger
	oracle formula.Oracle
	cfg    Config
}

// New returns an Analysis that encodes with cfg and decides with oracle.
// logger may be nil, in which case Analysis logs nothing (zap.NewNop()).
func New(logger *zap.Logger, oracle formula.Oracle, cfg Config) *Analysis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analysis{log: logger.Sugar(), oracle: oracle, cfg: cfg}
}

// Result is the outcome of one Predict call.
type Result struct {
	Outcome formula.Result
	// History and Changed are only set when Outcome is formula.Sat.
	History *reconstruct.History
	Changed []reconstruct.ChangedRead
	// Bag and Model back the debug dump (internal/report); populated only
	// when Config.Debug is set.
	Bag   *formula.Bag
	Model formula.Model
}

// Predict is the single call spec.md's component table's data-flow row
// names: C1 (store, already built by the caller) -> C2 -> {C3, C4} -> C5 ->
// C6 -> oracle -> C7. It returns whatever three-valued Outcome the oracle
// reports; Unknown/Unsat both leave History nil, per spec.md §7's
// propagation policy ("the reconstructor refuses to run on non-sat
// results").
func (a *Analysis) Predict(ctx context.Context, store *historystore.Store, timeout time.Duration) (*Result, error) {
	keys := store.Keys()
	symCtx := symctx.New(store, a.cfg.BoundaryStrategy)
	bag := formula.NewBag()

	a.log.Debugw("encoding session order", "keys", len(keys))
	relation.DefineSessionOrder(symCtx, bag)
	relation.DefineWr(symCtx, bag, keys)
	relation.DefineHb(symCtx, bag)
	relation.DefineAr(symCtx, bag, keys)

	a.log.Debugw("encoding boundary and choice constraints")
	prediction.Constrain(symCtx, bag, keys)

	a.log.Debugw("encoding isolation axioms", "level", a.cfg.IsolationLevel)
	readsFrom := func(key string, r historystore.Read, writerTx historystore.TxID) formula.BoolExpr {
		return prediction.CandidateReadsFrom(symCtx, key, r, writerTx)
	}
	coWeak := isolation.Constrain(symCtx, bag, a.cfg.IsolationLevel, keys, readsFrom)

	a.log.Debugw("encoding unserializability", "form", a.cfg.UnserialForm)
	switch a.cfg.UnserialForm {
	case Express:
		unserial.ConstrainExpress(symCtx, bag, keys)
	default:
		unserial.ConstrainFull(symCtx, bag, keys)
	}

	a.log.Infow("invoking oracle", "assertions", bag.Len(), "timeout", timeout)
	start := time.Now()
	outcome, model, err := a.oracle.Check(ctx, bag, timeout)
	elapsed := time.Since(start)
	if err != nil {
		a.log.Warnw("oracle returned an error", "elapsed", elapsed, "error", err)
		return nil, err
	}
	a.log.Infow("oracle finished", "result", outcome, "elapsed", elapsed)
	if outcome == formula.Unknown {
		a.log.Warnw("oracle could not decide", "elapsed", elapsed)
	}

	res := &Result{Outcome: outcome}
	if a.cfg.Debug {
		res.Bag = bag
		res.Model = model
	}
	if outcome != formula.Sat {
		return res, nil
	}

	res.History = reconstruct.Reconstruct(symCtx, model, coWeak)
	res.Changed = reconstruct.Diff(store, res.History)
	return res, nil
}
