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

package visualize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/isolation"
	"github.com/isopredict/isopredict/internal/oracle"
	"github.com/isopredict/isopredict/internal/prediction"
	"github.com/isopredict/isopredict/internal/relation"
	"github.com/isopredict/isopredict/internal/symctx"
	"github.com/isopredict/isopredict/internal/unserial"
)

func tx(session, local string) historystore.TxID {
	return historystore.TxID{Session: session, Local: local}
}

func TestGraphAndFindCycleOnWriteSkewExpress(t *testing.T) {
	b := historystore.NewBuilder()
	s1t1, s2t1 := tx("1", "1"), tx("2", "1")
	b.AddRead(s1t1, "x", historystore.InitTx)
	b.AddWrite(s1t1, "y")
	b.AddRead(s2t1, "y", historystore.InitTx)
	b.AddWrite(s2t1, "x")
	store, err := b.Build()
	require.NoError(t, err)

	keys := store.Keys()
	ctx := symctx.New(store, symctx.Strict)
	bag := formula.NewBag()
	relation.DefineSessionOrder(ctx, bag)
	relation.DefineWr(ctx, bag, keys)
	relation.DefineHb(ctx, bag)
	relation.DefineAr(ctx, bag, keys)
	prediction.Constrain(ctx, bag, keys)
	isolation.Constrain(ctx, bag, isolation.CausalConsistency, nil, nil)
	unserial.ConstrainExpress(ctx, bag, keys)

	outcome, model, err := oracle.New().Check(context.Background(), bag, 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, outcome)

	g := Graph(ctx, model)
	dotText := String(g)
	require.Contains(t, dotText, "digraph")

	cycle := FindCycle(ctx, model)
	require.NotEmpty(t, cycle, "express form always witnesses a reachable cycle on a sat result")
}
