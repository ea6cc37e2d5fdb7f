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

	"pgregory.net/rapid"
)

// applyRandomOps drives a Builder with a random mix of writes and reads
// over a small universe of sessions, transactions, and keys, and returns
// the built store (nil if the random log came out empty-corrupt). A
// transaction never writes a key again once some read has observed its
// write of it — re-writing would retroactively orphan the read's recorded
// source, which no log a store ever accepts contains.
func applyRandomOps(t *rapid.T) *Store {
	b := NewBuilder()
	sessions := []string{"1", "2", "3"}
	keys := []string{"x", "y", "z"}

	writers := make(map[string][]TxID)
	observed := make(map[string]map[TxID]bool)

	n := rapid.IntRange(1, 24).Draw(t, "ops")
	for i := 0; i < n; i++ {
		session := rapid.SampledFrom(sessions).Draw(t, "session")
		local := rapid.IntRange(1, 3).Draw(t, "local")
		txID := TxID{Session: session, Local: string(rune('0' + local))}
		key := rapid.SampledFrom(keys).Draw(t, "key")

		if rapid.Bool().Draw(t, "isWrite") || len(writers[key]) == 0 {
			if observed[key][txID] {
				continue
			}
			b.AddWrite(txID, key)
			writers[key] = append(writers[key], txID)
			continue
		}
		from := rapid.SampledFrom(writers[key]).Draw(t, "from")
		b.AddRead(txID, key, from)
		if from != txID {
			if observed[key] == nil {
				observed[key] = make(map[TxID]bool)
			}
			observed[key][from] = true
		}
	}
	store, err := b.Build()
	if err != nil {
		return nil
	}
	return store
}

// Sequence numbers are unique within a session, bounded by the session's
// event count, and ordered consistently with each transaction's recorded
// first and last event.
func TestSessionSeqNumbersAreConsistentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := applyRandomOps(t)
		if store == nil {
			return
		}
		for _, session := range store.Sessions() {
			count := store.SessionEventCount(session)
			seen := make(map[int]bool, count)
			check := func(tx TxID, seq int) {
				if seq < 0 || seq >= count || seen[seq] {
					t.Fatalf("seq %d invalid or duplicated in session %s (count %d)", seq, session, count)
				}
				seen[seq] = true
				first, ok := store.FirstEventInTx(tx)
				if !ok || seq < first {
					t.Fatalf("seq %d of %s precedes its transaction's first event %d", seq, tx, first)
				}
				last, ok := store.LastEventInTx(tx)
				if !ok || seq > last {
					t.Fatalf("seq %d of %s follows its transaction's last event %d", seq, tx, last)
				}
			}
			for _, key := range store.Keys() {
				for _, w := range store.Writes(key) {
					if w.Session == session {
						check(w.Tx, w.Seq)
					}
				}
				for _, r := range store.Reads(key) {
					if r.Session == session {
						check(r.Tx, r.Seq)
					}
				}
			}
		}
	})
}

// Every key's write history carries the initial transaction's write, every
// read resolves to a write on its own key by the transaction it names, and
// the observed commit order is a bijection onto 0..T-1.
func TestStoreResolutionInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := applyRandomOps(t)
		if store == nil {
			return
		}
		for _, key := range store.Keys() {
			writes := store.Writes(key)
			if len(writes) == 0 {
				t.Fatalf("key %s has an empty write history", key)
			}
			hasInit := false
			for _, w := range writes {
				if w.Tx == InitTx {
					hasInit = true
				}
			}
			if !hasInit {
				t.Fatalf("key %s lacks the initial transaction's write", key)
			}
			for _, r := range store.Reads(key) {
				resolved := false
				for _, w := range writes {
					if w.Tx == r.FromTx && w.Seq == r.FromSeq {
						resolved = true
					}
				}
				if !resolved {
					t.Fatalf("read of %s by %s names writer %s/%d with no matching write", key, r.Tx, r.FromTx, r.FromSeq)
				}
			}
		}

		ranks := make(map[int]bool)
		total := 0
		for _, session := range store.Sessions() {
			for _, tx := range store.Transactions(session) {
				total++
				rank, ok := store.ObservedCO(tx)
				if !ok || ranks[rank] {
					t.Fatalf("transaction %s has missing or duplicate observed rank", tx)
				}
				ranks[rank] = true
			}
		}
		for rank := 0; rank < total; rank++ {
			if !ranks[rank] {
				t.Fatalf("observed ranks are not dense: %d missing of %d", rank, total)
			}
		}
	})
}
