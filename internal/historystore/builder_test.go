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

package historystore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tx(session, local string) TxID { return TxID{Session: session, Local: local} }

func TestBuildEmptyIsCorrupt(t *testing.T) {
	_, err := NewBuilder().Build()
	require.ErrorIs(t, err, ErrCorruptLog)
}

func TestReadFromInitSynthesizesWrite(t *testing.T) {
	b := NewBuilder()
	b.AddRead(tx("1", "0"), "x", InitTx)
	s, err := b.Build()
	require.NoError(t, err)

	ws := s.Writes("x")
	require.Len(t, ws, 1)
	require.Equal(t, InitTx, ws[0].Tx)

	reads := s.Reads("x")
	require.Len(t, reads, 1)
	require.Equal(t, InitTx, reads[0].FromTx)
	require.Equal(t, 0, reads[0].FromSeq)
}

func TestLocalReadIsDropped(t *testing.T) {
	b := NewBuilder()
	t1 := tx("1", "0")
	b.AddWrite(t1, "x")
	b.AddRead(t1, "x", t1)
	s, err := b.Build()
	require.NoError(t, err)
	require.Empty(t, s.Reads("x"))
}

func TestBuildGivesInitTxTheInitialWriteOfEveryKey(t *testing.T) {
	b := NewBuilder()
	t1 := tx("1", "0")
	b.AddWrite(t1, "x")
	s, err := b.Build()
	require.NoError(t, err)

	ws := s.Writes("x")
	require.Len(t, ws, 2, "x was only ever written by t1, so T0's initial write is synthesized")
	require.Equal(t, InitTx, ws[0].Tx, "the initial write sits at index 0")
	require.Equal(t, t1, ws[1].Tx)
}

func TestSameTxRewriteCollapsesToLastWrite(t *testing.T) {
	b := NewBuilder()
	t1 := tx("1", "0")
	b.AddWrite(t1, "x")
	b.AddWrite(t1, "x")
	s, err := b.Build()
	require.NoError(t, err)

	ws := s.Writes("x")
	require.Len(t, ws, 2)
	require.Equal(t, InitTx, ws[0].Tx)
	require.Equal(t, t1, ws[1].Tx)
	require.Equal(t, 1, ws[1].Seq, "only t1's later write of x survives")
}

func TestReadHistoryOrderedBySessionThenSeq(t *testing.T) {
	b := NewBuilder()
	t1, t2 := tx("1", "0"), tx("2", "0")
	b.AddWrite(t1, "x")
	b.AddRead(t2, "x", t1)
	b.AddWrite(t2, "y")
	b.AddRead(tx("1", "1"), "x", t1)
	s, err := b.Build()
	require.NoError(t, err)

	reads := s.Reads("x")
	require.Len(t, reads, 2)
	require.Equal(t, "1", reads[0].Session)
	require.Equal(t, "2", reads[1].Session)
}

func TestInsertContainsDeleteMapToMembershipKey(t *testing.T) {
	b := NewBuilder()
	t1, t2 := tx("1", "0"), tx("2", "0")
	b.AddInsert(t1, "S", "a")
	b.AddContains(t2, "S", "a", t1)
	b.AddDelete(t1, "S", "a")
	s, err := b.Build()
	require.NoError(t, err)

	require.Len(t, s.Keys(), 1)
	require.Equal(t, "Set(S:a)", s.Keys()[0])
	ws := s.Writes(s.Keys()[0])
	require.Len(t, ws, 2, "the insert and the delete are both writes from t1 on the same key, so the delete collapses onto the insert; T0's initial write precedes it")
	require.Equal(t, InitTx, ws[0].Tx)
	require.Equal(t, t1, ws[1].Tx)
}

func TestStatsExcludesInitTx(t *testing.T) {
	b := NewBuilder()
	t1 := tx("1", "0")
	b.AddRead(t1, "x", InitTx)
	s, err := b.Build()
	require.NoError(t, err)

	stats := s.Stats()
	require.Equal(t, 1, stats.Sessions)
	require.Equal(t, 1, stats.Transactions)
	require.Equal(t, 1, stats.Reads)
	require.Equal(t, 1, stats.ReadOnlyTx)
}
