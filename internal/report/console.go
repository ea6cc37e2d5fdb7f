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

// Package report renders an analysis.Result for a human: a console summary
// (historystore.Stats plus the changed write-read pairs a prediction
// rewrote), the predicted history itself as a log-format file, and an
// optional compressed debug dump of the raw constraint bag and model. None
// of it feeds back into the encoder; it only reads what internal/analysis
// already produced.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/reconstruct"
)

// WriteStats renders st as a two-column table to w, the way
// datastore.show_stats printed its summary in the original implementation.
func WriteStats(w io.Writer, st historystore.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRows([]table.Row{
		{"sessions", st.Sessions},
		{"transactions", st.Transactions},
		{"events", st.Events},
		{"reads", st.Reads},
		{"writes", st.Writes},
		{"keys", st.Keys},
		{"read-only transactions", st.ReadOnlyTx},
		{"write-only transactions", st.WriteOnlyTx},
		{"keys with conflicting writers", st.ConflictingKeys},
	})
	t.Render()
}

// WriteChangedReads renders changed, the reads a prediction rerouted away
// from what the log actually observed, as a table to w. An empty slice
// still renders a header-only table, so the caller doesn't need to special
// case "nothing changed".
func WriteChangedReads(w io.Writer, changed []reconstruct.ChangedRead) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"transaction", "key", "seq", "observed from", "predicted from"})
	for _, c := range changed {
		t.AppendRow(table.Row{c.Tx, c.Key, c.Seq, c.OldFrom, c.NewFrom})
	}
	t.Render()
}
