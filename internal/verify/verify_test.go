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

package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/isolation"
	"github.com/isopredict/isopredict/internal/oracle"
)

func tx(session, local string) historystore.TxID {
	return historystore.TxID{Session: session, Local: local}
}

// A single write observed by a single read in another session: already a
// serial history, so both questions must come back Sat regardless of level.
func TestCheckAlreadySerialHistoryHoldsAndSerializes(t *testing.T) {
	b := historystore.NewBuilder()
	s1t1, s2t1 := tx("1", "1"), tx("2", "1")
	b.AddWrite(s1t1, "x")
	b.AddRead(s2t1, "x", s1t1)
	store, err := b.Build()
	require.NoError(t, err)

	v := New(nil, oracle.New(), isolation.CausalConsistency)
	res, err := v.Check(context.Background(), store, time.Second*5)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, res.IsolationHolds)
	require.Equal(t, formula.Sat, res.Serializable)
}

// Two sessions each observe the other's pre-write snapshot (classic write
// skew): no serialization exists, yet the observed wr/so/ar edges never
// force a commit-order contradiction under causal consistency, so the run
// is a level-holding but non-serializable execution.
func TestCheckWriteSkewHoldsButIsNotSerializable(t *testing.T) {
	b := historystore.NewBuilder()
	s1t1, s2t1 := tx("1", "1"), tx("2", "1")
	b.AddRead(s1t1, "x", historystore.InitTx)
	b.AddWrite(s1t1, "y")
	b.AddRead(s2t1, "y", historystore.InitTx)
	b.AddWrite(s2t1, "x")
	store, err := b.Build()
	require.NoError(t, err)

	v := New(nil, oracle.New(), isolation.CausalConsistency)
	res, err := v.Check(context.Background(), store, time.Second*5)
	require.NoError(t, err)
	require.Equal(t, formula.Sat, res.IsolationHolds)
	require.Equal(t, formula.Unsat, res.Serializable, "write skew has no witnessing total order")
}

// Two writers each update both x and y, and two readers observe them
// crossed: T3 reads x from W1 and then y from W2, while T4 reads x from W2
// and then y from W1. The Read Committed clause says a transaction that
// already observed one writer cannot later observe a write the other
// writer made before it — T3 forces co(W1) < co(W2) while T4 forces the
// reverse — so no commit order exists and the level must not hold.
func TestCheckCrossedReadersViolateReadCommitted(t *testing.T) {
	b := historystore.NewBuilder()
	w1, w2 := tx("1", "1"), tx("2", "1")
	t3, t4 := tx("3", "1"), tx("4", "1")
	b.AddWrite(w1, "x")
	b.AddWrite(w1, "y")
	b.AddWrite(w2, "x")
	b.AddWrite(w2, "y")
	b.AddRead(t3, "x", w1)
	b.AddRead(t3, "y", w2)
	b.AddRead(t4, "x", w2)
	b.AddRead(t4, "y", w1)
	store, err := b.Build()
	require.NoError(t, err)

	v := New(nil, oracle.New(), isolation.ReadCommitted)
	res, err := v.Check(context.Background(), store, time.Second*5)
	require.NoError(t, err)
	require.Equal(t, formula.Unsat, res.IsolationHolds, "crossed observation orders admit no consistent commit order under read committed")
}
