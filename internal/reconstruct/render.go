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

package reconstruct

import (
	"fmt"
	"strings"

	"github.com/isopredict/isopredict/internal/historystore"
)

// String renders h in the same record shapes the log format parses, in
// final commit order — the predicted-history file internal/report writes.
func (h *History) String() string {
	var sb strings.Builder
	for _, t := range h.Transactions {
		for _, e := range t.Events {
			switch e.Kind {
			case WriteEvent:
				fmt.Fprintf(&sb, "WRITE KEY[%s] Txn(%s)\n", e.Key, t.Tx)
			case ReadEvent:
				fmt.Fprintf(&sb, "READ KEY[%s] Txn(%s) From(%s)\n", e.Key, t.Tx, e.FromTx)
			}
		}
	}
	return sb.String()
}

// ChangedRead is one retained read whose predicted source write differs
// from the write it observed in the original log.
type ChangedRead struct {
	Tx      historystore.TxID
	Key     string
	Seq     int
	OldFrom historystore.TxID
	NewFrom historystore.TxID
}

// Diff compares h against store's original read history and returns every
// read whose source write changed — the "changed write-read pairs"
// spec.md's console report surfaces. A read truncated out of h entirely is
// not reported here; it simply doesn't appear in the predicted history.
func Diff(store *historystore.Store, h *History) []ChangedRead {
	var out []ChangedRead
	for _, t := range h.Transactions {
		for _, e := range t.Events {
			if e.Kind != ReadEvent {
				continue
			}
			for _, orig := range store.Reads(e.Key) {
				if orig.Tx == t.Tx && orig.Seq == e.Seq {
					if orig.FromTx != e.FromTx {
						out = append(out, ChangedRead{
							Tx: t.Tx, Key: e.Key, Seq: e.Seq,
							OldFrom: orig.FromTx, NewFrom: e.FromTx,
						})
					}
					break
				}
			}
		}
	}
	return out
}
