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

package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
)

func tx(session, local string) historystore.TxID {
	return historystore.TxID{Session: session, Local: local}
}

func TestCheckPlainConstraintSatisfiable(t *testing.T) {
	bag := formula.NewBag()
	boundary := formula.IntVar("boundary[1]")
	bag.Declare(boundary, 0, 3)
	bag.Assert(formula.Lt(formula.IntLit(1), boundary))

	o := New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)
	require.Greater(t, formula.EvalInt(boundary, model), 1)
}

func TestCheckPlainConstraintUnsatisfiable(t *testing.T) {
	bag := formula.NewBag()
	boundary := formula.IntVar("boundary[1]")
	bag.Declare(boundary, 0, 1)
	bag.Assert(formula.Lt(formula.IntLit(5), boundary))

	o := New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, result)
	require.Nil(t, model)
}

func TestCheckResolvesRelationDefinitionByFixedPoint(t *testing.T) {
	t1, t2, t3 := tx("1", "1"), tx("2", "1"), tx("3", "1")
	so := formula.NewRelation("so")
	hb := formula.NewRelation("hb")

	bag := formula.NewBag()
	// Ground truth: so(t1, t2) and so(t2, t3); nothing else direct.
	bag.Assert(formula.Iff(so.At(t1, t2), formula.True()))
	bag.Assert(formula.Iff(so.At(t2, t3), formula.True()))
	bag.Assert(formula.Iff(so.At(t1, t3), formula.False()))

	// hb is the last-hop expansion of so's closure, same shape
	// relation.DefineHb uses.
	txs := []historystore.TxID{t1, t2, t3}
	for _, a := range txs {
		for _, b := range txs {
			if a == b {
				continue
			}
			var mediated []formula.BoolExpr
			for _, c := range txs {
				if c == a || c == b {
					continue
				}
				mediated = append(mediated, formula.And(hb.At(a, c), so.At(c, b)))
			}
			bag.Assert(formula.Iff(hb.At(a, b), formula.Or(append([]formula.BoolExpr{so.At(a, b)}, mediated...)...)))
		}
	}
	// The one fact we actually want checked: hb must reach all the way from
	// t1 to t3 through the mediating t2, even though so never says so directly.
	bag.Assert(hb.At(t1, t3))

	o := New()
	result, _, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)
}

func TestCheckTotalOrderExistsFindsWitness(t *testing.T) {
	t1, t2, t3 := tx("1", "1"), tx("2", "1"), tx("3", "1")
	txs := []historystore.TxID{t1, t2, t3}
	co := formula.NewUnaryIntFunc("co_weak")

	bag := formula.NewBag()
	bag.Assert(formula.TotalOrder(co, txs, []formula.OrderEdge{
		{Cond: formula.True(), Before: t1, After: t2},
		{Cond: formula.True(), Before: t2, After: t3},
	}))

	o := New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)
	require.Less(t, formula.EvalInt(co.At1(t1), model), formula.EvalInt(co.At1(t2), model))
	require.Less(t, formula.EvalInt(co.At1(t2), model), formula.EvalInt(co.At1(t3), model))
}

func TestCheckTotalOrderExistsUnsatisfiableWhenCyclic(t *testing.T) {
	t1, t2 := tx("1", "1"), tx("2", "1")
	txs := []historystore.TxID{t1, t2}
	co := formula.NewUnaryIntFunc("co_weak")

	bag := formula.NewBag()
	bag.Assert(formula.TotalOrder(co, txs, []formula.OrderEdge{
		{Cond: formula.True(), Before: t1, After: t2},
		{Cond: formula.True(), Before: t2, After: t1},
	}))

	o := New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, result)
	require.Nil(t, model)
}

func TestCheckNegatedTotalOrderSatisfiedWhenNoWitnessExists(t *testing.T) {
	t1, t2 := tx("1", "1"), tx("2", "1")
	txs := []historystore.TxID{t1, t2}
	coS := formula.NewUnaryIntFunc("co_S")

	bag := formula.NewBag()
	// A cyclic pair of edges means no witnessing order can ever exist, so
	// the negated existential (C6 Full's unserializability assertion) holds.
	bag.Assert(formula.Not(formula.TotalOrder(coS, txs, []formula.OrderEdge{
		{Cond: formula.True(), Before: t1, After: t2},
		{Cond: formula.True(), Before: t2, After: t1},
	})))

	o := New()
	result, _, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, result)
}

func TestCheckNegatedTotalOrderUnsatisfiableWhenWitnessExists(t *testing.T) {
	t1, t2 := tx("1", "1"), tx("2", "1")
	txs := []historystore.TxID{t1, t2}
	coS := formula.NewUnaryIntFunc("co_S")

	bag := formula.NewBag()
	bag.Assert(formula.Not(formula.TotalOrder(coS, txs, []formula.OrderEdge{
		{Cond: formula.True(), Before: t1, After: t2},
	})))

	o := New()
	result, model, err := o.Check(context.Background(), bag, time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, result)
	require.Nil(t, model)
}
