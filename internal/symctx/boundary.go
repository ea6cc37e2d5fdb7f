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

package symctx

import (
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
)

// EventInBoundary asserts that the event at session-relative sequence seq,
// belonging to tx, survives truncation under the Context's strategy:
//
//   - Strict: the event itself precedes the boundary, seq < boundary.
//   - Relaxed: the event's whole transaction is admitted as soon as the
//     transaction's first event precedes the boundary, even when the event
//     itself falls past it.
func (c *Context) EventInBoundary(session string, tx historystore.TxID, seq int) formula.BoolExpr {
	boundary := c.Boundary(session)
	if c.Strategy == Relaxed {
		first, _ := c.Store.FirstEventInTx(tx)
		return formula.Lt(formula.IntLit(first), boundary)
	}
	return formula.Lt(formula.IntLit(seq), boundary)
}

// WriteInBoundary is EventInBoundary for a write event.
func (c *Context) WriteInBoundary(w historystore.Write) formula.BoolExpr {
	return c.EventInBoundary(w.Session, w.Tx, w.Seq)
}

// ReadInBoundary is EventInBoundary for a read event.
func (c *Context) ReadInBoundary(r historystore.Read) formula.BoolExpr {
	return c.EventInBoundary(r.Session, r.Tx, r.Seq)
}

// ReadOnBoundary asserts that read r sits exactly on its session's
// truncation cut — the one position whose write choice is free (spec.md
// §4.2):
//
//   - Strict: r is the last surviving event of its session,
//     seq = boundary − 1, written as seq+1 = boundary to avoid integer
//     subtraction on an IntExpr.
//   - Relaxed: r's transaction straddles the cut — its first event precedes
//     the boundary, and the boundary falls at or before the position just
//     past the transaction's last event.
func (c *Context) ReadOnBoundary(r historystore.Read) formula.BoolExpr {
	boundary := c.Boundary(r.Session)
	if c.Strategy == Relaxed {
		first, _ := c.Store.FirstEventInTx(r.Tx)
		count := c.Store.TransactionEventCount(r.Tx)
		return formula.And(
			formula.Lt(formula.IntLit(first), boundary),
			formula.Not(formula.Lt(formula.IntLit(first+count), boundary)),
		)
	}
	return formula.IntEq(formula.IntLit(r.Seq+1), boundary)
}

// TxInBoundary asserts that tx belongs to the predicted execution: for
// every session, either that session's boundary sits past its last event
// (nothing of it was truncated), or some transaction t' straddling that
// session's cut does not happen-before tx. A transaction that every
// boundary-straddling transaction happens-before lies strictly beyond the
// prediction and is excluded from the ar/ww/rw candidate guards that call
// this. The happens-before reference makes this a symbolic condition, not a
// ground fact; the oracle settles it together with hb itself.
func (c *Context) TxInBoundary(tx historystore.TxID) formula.BoolExpr {
	var perSession []formula.BoolExpr
	for _, session := range c.Store.Sessions() {
		boundary := c.Boundary(session)
		whole := formula.IntEq(boundary, formula.IntLit(c.Store.SessionEventCount(session)+1))
		disjuncts := []formula.BoolExpr{whole}
		for _, straddler := range c.Store.Transactions(session) {
			lo, _ := c.Store.FirstEventInTx(straddler)
			hi := lo + c.Store.TransactionEventCount(straddler)
			disjuncts = append(disjuncts, formula.And(
				formula.Lt(formula.IntLit(lo), boundary),
				formula.Not(formula.Lt(formula.IntLit(hi), boundary)),
				formula.Not(c.Hb.At(straddler, tx)),
			))
		}
		perSession = append(perSession, formula.Or(disjuncts...))
	}
	return formula.And(perSession...)
}
