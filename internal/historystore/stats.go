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

// Stats summarizes a Store the way datastore.show_stats / show_tx_summary
// did in the original implementation: read-only derived counts, never
// consulted by the encoder itself. internal/report renders this.
type Stats struct {
	Sessions        int
	Transactions    int
	Events          int
	Reads           int
	Writes          int
	Keys            int
	ReadOnlyTx      int
	WriteOnlyTx     int
	ConflictingKeys int // keys with more than one non-initial writer
}

// Stats computes a Stats snapshot over s, excluding InitSession/InitTx from
// every count (T0 is bookkeeping, not an observed transaction).
func (s *Store) Stats() Stats {
	var st Stats
	st.Keys = len(s.writeHistory)

	readTx := make(map[TxID]bool)
	writeTx := make(map[TxID]bool)

	for key := range s.writeHistory {
		writers := make(map[TxID]bool)
		for _, w := range s.writeHistory[key] {
			if w.Tx == InitTx {
				continue
			}
			writers[w.Tx] = true
			writeTx[w.Tx] = true
		}
		if len(writers) > 1 {
			st.ConflictingKeys++
		}
	}
	for key := range s.readHistory {
		for _, r := range s.Reads(key) {
			readTx[r.Tx] = true
			st.Reads++
		}
		_ = key
	}
	for key := range s.writeHistory {
		for _, w := range s.writeHistory[key] {
			if w.Tx == InitTx {
				continue
			}
			st.Writes++
		}
	}

	for _, session := range s.sessionOrder {
		if session == InitSession {
			continue
		}
		st.Sessions++
		st.Transactions += len(s.sessions[session])
	}
	for tx, count := range s.transactionEventCount {
		if tx == InitTx {
			continue
		}
		st.Events += count
		switch {
		case readTx[tx] && !writeTx[tx]:
			st.ReadOnlyTx++
		case writeTx[tx] && !readTx[tx]:
			st.WriteOnlyTx++
		}
	}
	return st
}
