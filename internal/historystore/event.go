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

// Package historystore holds the in-memory representation of a parsed
// transactional log: sessions, transactions, per-key write/read histories,
// and the derived maps the encoder reads (spec.md §3, §4.1).
package historystore

import "fmt"

// InitSession and InitTx name the distinguished initial session/transaction
// S0/T0, which Builder.Build gives a write at index 0 of every key's
// write history.
const (
	InitSession = "0"
)

// InitTx is T0, the sole transaction of S0.
var InitTx = TxID{Session: InitSession, Local: "0"}

// TxID identifies a transaction by its (session_id, local_id) pair. It is
// globally unique and doubles as the abstract Tx sort's constant name.
type TxID struct {
	Session string
	Local   string
}

// String renders the wire form used by the log format and the predicted
// history file: "<session_id>, <local_id>".
func (t TxID) String() string {
	return fmt.Sprintf("%s, %s", t.Session, t.Local)
}

// Write is a write event on Key by Tx, at session-relative sequence Seq.
type Write struct {
	Session string
	Tx      TxID
	Seq     int
	Key     string
}

func (w Write) String() string {
	return fmt.Sprintf("WRITE KEY[%s] Txn(%s)\n", w.Key, w.Tx)
}

// Read is a read event on Key by Tx, at session-relative sequence Seq,
// naming the write (FromSession, FromTx, FromSeq) it observed.
type Read struct {
	Session     string
	Tx          TxID
	Seq         int
	Key         string
	FromSession string
	FromTx      TxID
	FromSeq     int
}

func (r Read) String() string {
	return fmt.Sprintf("READ KEY[%s] Txn(%s) From(%s)\n", r.Key, r.Tx, r.FromTx)
}

// less orders reads by (session, seq) for deterministic iteration over
// R[k], tie-broken by the transaction's local id. Two events of one session
// never share a seq (spec.md Invariant 4), so the tie-break is only a
// fallback and does not decide the order of reads the builder records.
func (r Read) less(other Read) bool {
	if r.Session != other.Session {
		return r.Session < other.Session
	}
	if r.Seq != other.Seq {
		return r.Seq < other.Seq
	}
	return r.Tx.Local < other.Tx.Local
}
