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
	"sort"

	"github.com/google/btree"
)

// Store is the immutable result of Builder.Build: the parsed history plus
// every derived map the encoder packages (symctx, relation, prediction,
// reconstruct) read directly instead of recomputing.
type Store struct {
	// sessionOrder and sessions give the session_id -> ordered transaction
	// list relation, in first-appearance order (spec.md §3 Entities).
	sessionOrder []string
	sessions     map[string][]TxID

	writeHistory map[string][]Write      // W[k], insertion order, T0's write forced to index 0
	readHistory  map[string]*btree.BTreeG[Read] // R[k], ordered by (session, seq)

	sessionEventCount     map[string]int
	transactionEventCount map[TxID]int
	firstEventInTx        map[TxID]int
	lastEventInTx         map[TxID]int
	sessionReadEvents     map[string][]int // session -> seq numbers of its read events, in order
	observedCO            map[TxID]int     // the order transactions actually committed in, as observed in the log
}

func newStore() *Store {
	return &Store{
		sessions:              make(map[string][]TxID),
		writeHistory:          make(map[string][]Write),
		readHistory:           make(map[string]*btree.BTreeG[Read]),
		sessionEventCount:     make(map[string]int),
		transactionEventCount: make(map[TxID]int),
		firstEventInTx:        make(map[TxID]int),
		lastEventInTx:         make(map[TxID]int),
		sessionReadEvents:     make(map[string][]int),
		observedCO:            make(map[TxID]int),
	}
}

// Sessions returns the session ids in first-appearance order, including
// InitSession.
func (s *Store) Sessions() []string {
	out := make([]string, len(s.sessionOrder))
	copy(out, s.sessionOrder)
	return out
}

// Transactions returns the transactions of session in first-appearance order.
func (s *Store) Transactions(session string) []TxID {
	txs := s.sessions[session]
	out := make([]TxID, len(txs))
	copy(out, txs)
	return out
}

// AllTransactions returns every transaction in the store, including InitTx,
// in session-then-first-appearance order. The order is deterministic across
// calls for a given Store but carries no other significance.
func (s *Store) AllTransactions() []TxID {
	var out []TxID
	for _, session := range s.sessionOrder {
		out = append(out, s.sessions[session]...)
	}
	return out
}

// Keys returns every key that has a write history, sorted so encoding
// passes see a reproducible order.
func (s *Store) Keys() []string {
	out := make([]string, 0, len(s.writeHistory))
	for k := range s.writeHistory {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Writes returns W[k]: the writes on key k in the order they were built,
// with T0's synthesized write (if any) always at index 0.
func (s *Store) Writes(key string) []Write {
	ws := s.writeHistory[key]
	out := make([]Write, len(ws))
	copy(out, ws)
	return out
}

// Reads returns R[k]: the reads on key k, ordered by (session, seq) for
// reproducible iteration.
func (s *Store) Reads(key string) []Read {
	bt := s.readHistory[key]
	if bt == nil {
		return nil
	}
	out := make([]Read, 0, bt.Len())
	bt.Ascend(func(r Read) bool {
		out = append(out, r)
		return true
	})
	return out
}

// SessionEventCount is the number of events (reads + writes) session has
// produced so far; used to mint the next event's sequence number.
func (s *Store) SessionEventCount(session string) int {
	return s.sessionEventCount[session]
}

// TransactionEventCount is the number of events tx has produced.
func (s *Store) TransactionEventCount(tx TxID) int {
	return s.transactionEventCount[tx]
}

// FirstEventInTx is the session-relative sequence number of tx's first
// event; it anchors the per-session boundary predicate (C4).
func (s *Store) FirstEventInTx(tx TxID) (int, bool) {
	seq, ok := s.firstEventInTx[tx]
	return seq, ok
}

// LastEventInTx is the session-relative sequence number of tx's most
// recent event.
func (s *Store) LastEventInTx(tx TxID) (int, bool) {
	seq, ok := s.lastEventInTx[tx]
	return seq, ok
}

// SessionReadEvents returns the session-relative sequence numbers of every
// read event session has produced, in the order they occurred.
func (s *Store) SessionReadEvents(session string) []int {
	seqs := s.sessionReadEvents[session]
	out := make([]int, len(seqs))
	copy(out, seqs)
	return out
}

// ObservedCO is the commit order tx was observed to take in the input log,
// a dense 0-based rank assigned in the order transactions first appear
// across the whole log. internal/reconstruct uses it to order the
// transactions a prediction keeps whole (the interior of each session).
func (s *Store) ObservedCO(tx TxID) (int, bool) {
	rank, ok := s.observedCO[tx]
	return rank, ok
}
