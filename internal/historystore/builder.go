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
	"fmt"
	"sort"

	"github.com/google/btree"
)

// btreeDegree matches erigon-lib's own per-key ordered index sizing; the
// indexes here are tiny (one process's worth of reads per key), so the
// constant mostly just avoids the library's minimum-degree panic.
const btreeDegree = 32

// Builder accumulates READ/WRITE/INSERT/CONTAINS/DELETE-shaped records into
// a Store. It is the sole construction path: Store has no exported fields
// and no other way to populate one. A Builder is not safe for concurrent
// use; internal/logformat drives it from a single goroutine per history.
type Builder struct {
	store *Store
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{store: newStore()}
}

// AddWrite records a write of key by tx. Per spec.md §4.1, a transaction
// writing the same key twice keeps only the later write: the earlier entry
// is removed from W[k] before the new one is appended.
func (b *Builder) AddWrite(tx TxID, key string) *Builder {
	b.addWrite(tx, key, false)
	return b
}

// AddRead records a read of key by tx, observing the write performed by
// from. If from has no write on key yet — the common case of reading the
// database's initial state — its write is synthesized at index 0 of W[k]
// before the read is recorded, so every read always resolves to a real
// write (spec.md Invariant 1).
//
// A read where from equals tx (a transaction "reading its own write") is a
// local read and is dropped: spec.md's history model only represents
// cross-transaction writer/reader edges.
func (b *Builder) AddRead(tx TxID, key string, from TxID) *Builder {
	if from == tx {
		return b
	}
	s := b.store

	if writeSeq := b.findWriteSeq(from, key); writeSeq < 0 {
		b.addWrite(from, key, true)
	}
	fromSeq := b.findWriteSeq(from, key)

	b.ensureSession(tx.Session)
	b.ensureTx(tx)

	seq := s.sessionEventCount[tx.Session]
	r := Read{
		Session:     tx.Session,
		Tx:          tx,
		Seq:         seq,
		Key:         key,
		FromSession: from.Session,
		FromTx:      from,
		FromSeq:     fromSeq,
	}
	bt := s.readHistory[key]
	if bt == nil {
		bt = btree.NewG[Read](btreeDegree, Read.less)
		s.readHistory[key] = bt
	}
	bt.ReplaceOrInsert(r)

	s.sessionReadEvents[tx.Session] = append(s.sessionReadEvents[tx.Session], seq)
	b.recordEvent(tx, seq)
	return b
}

// AddInsert records tx inserting elem into set, modeled as a write of the
// set-membership key for elem (spec.md's GLOSSARY "Key"; a collection is a
// family of per-element membership keys, not a single mutable value).
func (b *Builder) AddInsert(tx TxID, set, elem string) *Builder {
	return b.AddWrite(tx, membershipKey(set, elem))
}

// AddDelete records tx removing elem from set: another write of the same
// membership key AddInsert would use, observing the same dedup-to-last-write
// rule.
func (b *Builder) AddDelete(tx TxID, set, elem string) *Builder {
	return b.AddWrite(tx, membershipKey(set, elem))
}

// AddContains records tx observing elem's membership in set as of the write
// performed by from: a read of the membership key.
func (b *Builder) AddContains(tx TxID, set, elem string, from TxID) *Builder {
	return b.AddRead(tx, membershipKey(set, elem), from)
}

func membershipKey(set, elem string) string {
	return fmt.Sprintf("Set(%s:%s)", set, elem)
}

// Build finalizes the Store: the initial transaction's write is synthesized
// at index 0 of W[k] for every key that doesn't already have one, so T0
// provides the initial state of every key in the history, not just the keys
// some read explicitly named it for. Build fails with ErrCorruptLog if the
// stream named no transaction at all: a history with nothing to analyze. A
// transaction whose session id failed to parse (empty string) never counts
// toward a real transaction either — spec.md §8 scenario 5 is a log whose
// only transaction identifier is unparseable, which must be
// indistinguishable from an empty log, not silently accepted under a
// session named "".
func (b *Builder) Build() (*Store, error) {
	if len(b.store.sessions) == 0 {
		return nil, ErrCorruptLog
	}
	txCount := 0
	for session, txs := range b.store.sessions {
		if session == InitSession || session == "" {
			continue
		}
		txCount += len(txs)
	}
	if txCount == 0 {
		return nil, ErrCorruptLog
	}
	b.addInitialState()
	return b.store, nil
}

// addInitialState gives InitTx a write at index 0 of every key's history
// that doesn't already carry one. Keys are visited in sorted order so the
// synthesized writes' sequence numbers are reproducible across runs.
func (b *Builder) addInitialState() {
	keys := make([]string, 0, len(b.store.writeHistory))
	for k := range b.store.writeHistory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b.findWriteSeq(InitTx, k) < 0 {
			b.addWrite(InitTx, k, true)
		}
	}
}

func (b *Builder) addWrite(tx TxID, key string, isInit bool) {
	s := b.store
	b.ensureSession(tx.Session)
	b.ensureTx(tx)

	seq := s.sessionEventCount[tx.Session]
	w := Write{Session: tx.Session, Tx: tx, Seq: seq, Key: key}

	ws := s.writeHistory[key]
	filtered := ws[:0:0]
	for _, existing := range ws {
		if existing.Session == tx.Session && existing.Tx == tx {
			continue
		}
		filtered = append(filtered, existing)
	}
	if isInit {
		filtered = append([]Write{w}, filtered...)
	} else {
		filtered = append(filtered, w)
	}
	s.writeHistory[key] = filtered

	b.recordEvent(tx, seq)
}

func (b *Builder) findWriteSeq(tx TxID, key string) int {
	best := -1
	for _, w := range b.store.writeHistory[key] {
		if w.Session == tx.Session && w.Tx == tx && w.Seq > best {
			best = w.Seq
		}
	}
	return best
}

func (b *Builder) ensureSession(session string) {
	s := b.store
	if _, ok := s.sessions[session]; !ok {
		s.sessions[session] = nil
		s.sessionOrder = append(s.sessionOrder, session)
	}
}

func (b *Builder) ensureTx(tx TxID) {
	s := b.store
	for _, existing := range s.sessions[tx.Session] {
		if existing == tx {
			return
		}
	}
	s.sessions[tx.Session] = append(s.sessions[tx.Session], tx)
	if _, exists := s.observedCO[tx]; !exists {
		s.observedCO[tx] = len(s.observedCO)
	}
}

func (b *Builder) recordEvent(tx TxID, seq int) {
	s := b.store
	if _, ok := s.firstEventInTx[tx]; !ok {
		s.firstEventInTx[tx] = seq
	}
	s.lastEventInTx[tx] = seq
	s.transactionEventCount[tx]++
	s.sessionEventCount[tx.Session]++
}
