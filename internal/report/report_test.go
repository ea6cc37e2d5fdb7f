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

package report

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/reconstruct"
)

func TestWriteStatsRendersEveryMetric(t *testing.T) {
	var buf bytes.Buffer
	WriteStats(&buf, historystore.Stats{Sessions: 2, Transactions: 3, Reads: 1, Writes: 2})
	out := buf.String()
	require.Contains(t, out, "sessions")
	require.Contains(t, out, "transactions")
}

func TestWriteChangedReadsHandlesEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteChangedReads(&buf, nil)
	require.Contains(t, buf.String(), "TRANSACTION")
}

func TestWritePredictedHistoryRoundTripsThroughMemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := &reconstruct.History{Transactions: []reconstruct.RetainedTx{
		{Tx: historystore.TxID{Session: "1", Local: "1"}, Events: []reconstruct.RetainedEvent{
			{Kind: reconstruct.WriteEvent, Key: "x", Seq: 0},
		}},
	}}
	require.NoError(t, WritePredictedHistory(fs, "out/history.log", h))

	data, err := afero.ReadFile(fs, "out/history.log")
	require.NoError(t, err)
	require.Contains(t, string(data), "WRITE KEY[x]")
}

func TestDumpDebugProducesNonEmptyCompressedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	bag := formula.NewBag()
	bag.Assert(formula.True())
	require.NoError(t, DumpDebug(fs, "debug.zst", bag, nil))

	data, err := afero.ReadFile(fs, "debug.zst")
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
