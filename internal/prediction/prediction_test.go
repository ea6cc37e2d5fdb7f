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

package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/oracle"
	"github.com/isopredict/isopredict/internal/relation"
	"github.com/isopredict/isopredict/internal/symctx"
)

func buildSimpleStore(t *testing.T) (*historystore.Store, historystore.TxID, historystore.TxID) {
	t.Helper()
	b := historystore.NewBuilder()
	a1 := historystore.TxID{Session: "1", Local: "1"}
	a2 := historystore.TxID{Session: "2", Local: "1"}
	b.AddWrite(a1, "x")
	b.AddRead(a2, "x", a1)
	b.AddWrite(a2, "y")
	store, err := b.Build()
	require.NoError(t, err)
	return store, a1, a2
}

// encodeNoTruncation runs C3 and C4 over store and forces every session to
// keep all of its events, so the only freedom left is how each read's
// binding resolves under those whole boundaries.
func encodeNoTruncation(ctx *symctx.Context, bag *formula.Bag, store *historystore.Store) {
	keys := store.Keys()
	relation.DefineSessionOrder(ctx, bag)
	Constrain(ctx, bag, keys)
	relation.DefineWr(ctx, bag, keys)
	relation.DefineHb(ctx, bag)
	for _, s := range store.Sessions() {
		bag.Assert(formula.IntEq(ctx.Boundary(s), formula.IntLit(store.SessionEventCount(s)+1)))
	}
}

func TestConstrainKeepsInteriorReadBoundToItsObservedWriter(t *testing.T) {
	store, a1, a2 := buildSimpleStore(t)
	ctx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()
	encodeNoTruncation(ctx, bag, store)

	o := oracle.New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)

	// With no event on any boundary, a2's read of x is interior: its wrₖ
	// edge is pinned to the writer the log recorded, regardless of what its
	// (unused) choice variable settled on.
	require.True(t, formula.EvalBool(ctx.WrK("x").At(a1, a2), model))
	require.False(t, formula.EvalBool(ctx.WrK("x").At(historystore.InitTx, a2), model))
}

func TestConstrainChoiceNeverSelectsATruncatedWrite(t *testing.T) {
	store, a1, a2 := buildSimpleStore(t)
	ctx := symctx.New(store, symctx.Strict)
	keys := store.Keys()

	bag := formula.NewBag()
	relation.DefineSessionOrder(ctx, bag)
	Constrain(ctx, bag, keys)
	relation.DefineWr(ctx, bag, keys)
	relation.DefineHb(ctx, bag)
	// Cut session 2 immediately after its read, and session 1 down to
	// nothing the boundary shape admits — session 1 has no reads, so it can
	// only stay whole; its write of x therefore survives and remains the one
	// eligible choice besides the initial write.
	bag.Assert(formula.IntEq(ctx.Boundary("2"), formula.IntLit(1)))

	o := oracle.New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)

	reads := store.Reads("x")
	require.Len(t, reads, 1)
	writes := store.Writes("x")
	choiceVal := formula.EvalInt(ctx.Choice(reads[0]), model)
	require.GreaterOrEqual(t, choiceVal, 0)
	require.Less(t, choiceVal, len(writes))
	chosen := writes[choiceVal]
	first, _ := store.FirstEventInTx(chosen.Tx)
	boundary := formula.EvalInt(ctx.Boundary(chosen.Session), model)
	require.Less(t, first, boundary, "the chosen write must survive its own session's truncation")
	require.Contains(t, []historystore.TxID{a1, historystore.InitTx}, chosen.Tx,
		"only a1's write and the initial write exist for x, and both survive")
	require.NotEqual(t, a2, chosen.Tx)
}

func TestConstrainHonorsNoFutureReadGuard(t *testing.T) {
	// A transaction reads x and then overwrites it later in the same
	// session; the overwrite (and any same-session write sequenced after
	// the read) must never be an eligible choice for that read.
	b := historystore.NewBuilder()
	t1 := historystore.TxID{Session: "1", Local: "1"}
	t2 := historystore.TxID{Session: "1", Local: "2"}
	b.AddWrite(t1, "x")
	b.AddRead(t2, "x", t1)
	b.AddWrite(t2, "x")
	store, err := b.Build()
	require.NoError(t, err)

	ctx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()
	encodeNoTruncation(ctx, bag, store)

	o := oracle.New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)

	writes := store.Writes("x")
	reads := store.Reads("x")
	require.Len(t, reads, 1)
	choiceVal := formula.EvalInt(ctx.Choice(reads[0]), model)
	chosen := writes[choiceVal]
	if chosen.Session == reads[0].Session {
		require.LessOrEqual(t, chosen.Seq, reads[0].Seq, "a read can never observe its own session's future")
	}
}

func TestConstrainBoundaryShapeOnlyAdmitsCutsAfterReads(t *testing.T) {
	store, _, _ := buildSimpleStore(t)
	ctx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()
	relation.DefineSessionOrder(ctx, bag)
	Constrain(ctx, bag, store.Keys())
	relation.DefineWr(ctx, bag, store.Keys())
	relation.DefineHb(ctx, bag)
	// Session 2's events are read(0), write(1): the admissible boundaries
	// are 1 (cut after the read) and 3 (whole). Forcing 2 — a cut after the
	// write — must be unsatisfiable.
	bag.Assert(formula.IntEq(ctx.Boundary("2"), formula.IntLit(2)))

	o := oracle.New()
	result, _, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, result)
}
