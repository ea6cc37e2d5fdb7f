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

// Package symctx is C2: it mints the symbolic vocabulary one analysis pass
// writes into — the relation and function handles of spec.md §3/§4.2 — and
// hands out the per-session boundary and per-read choice variables C4
// constrains. Nothing in this package decides satisfiability; it only names
// things, once, consistently.
package symctx

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
)

// Strategy selects how a transaction that straddles a session's truncation
// point is treated.
type Strategy int

const (
	// Strict admits each event by its own position: an event survives only
	// if its seq precedes the boundary, so a straddling transaction keeps
	// the events before the cut.
	Strict Strategy = iota
	// Relaxed keeps a transaction whose first event precedes the boundary,
	// even if a later event of the same transaction would be truncated.
	Relaxed
)

func (s Strategy) String() string {
	if s == Relaxed {
		return "relaxed"
	}
	return "strict"
}

// nameCacheSize bounds the minted-symbol cache; a few thousand names covers
// every relation/function application name an analysis of realistic size
// will ever format, per-key variants included.
const nameCacheSize = 4096

// Context is the symbolic vocabulary for one analysis invocation: one Tx
// sort (the store's transactions), the base relations of C3, and the
// per-key/per-level variants C3/C5/C6 mint as they go.
type Context struct {
	Store    *historystore.Store
	Strategy Strategy

	names *lru.Cache[string, string]

	So        *formula.Relation
	Wr        *formula.Relation
	Hb        *formula.Relation
	Ar        *formula.Relation
	Ww        *formula.Relation
	Rw        *formula.Relation
	Reachable *formula.Relation

	wrk map[string]*formula.Relation
	ark map[string]*formula.Relation
	wwk map[string]*formula.Relation
	rwk map[string]*formula.Relation
	co  map[string]*formula.IntFunc

	boundary map[string]formula.IntExpr
	choice   map[string]formula.IntExpr
	rank     map[string]formula.IntExpr
}

// New mints a fresh Context over store for the given strategy.
func New(store *historystore.Store, strategy Strategy) *Context {
	cache, err := lru.New[string, string](nameCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which nameCacheSize never is.
		panic(err)
	}
	return &Context{
		Store:     store,
		Strategy:  strategy,
		names:     cache,
		So:        formula.NewRelation("so"),
		Wr:        formula.NewRelation("wr"),
		Hb:        formula.NewRelation("hb"),
		Ar:        formula.NewRelation("ar"),
		Ww:        formula.NewRelation("ww"),
		Rw:        formula.NewRelation("rw"),
		Reachable: formula.NewRelation("reachable"),
		wrk:       make(map[string]*formula.Relation),
		ark:       make(map[string]*formula.Relation),
		wwk:       make(map[string]*formula.Relation),
		rwk:       make(map[string]*formula.Relation),
		co:        make(map[string]*formula.IntFunc),
		boundary:  make(map[string]formula.IntExpr),
		choice:    make(map[string]formula.IntExpr),
		rank:      make(map[string]formula.IntExpr),
	}
}

func (c *Context) mint(kind, key string) string {
	cacheKey := kind + "\x00" + key
	if name, ok := c.names.Get(cacheKey); ok {
		return name
	}
	name := fmt.Sprintf("%s[%s]", kind, key)
	c.names.Add(cacheKey, name)
	return name
}

// WrK returns (minting if needed) the per-key write-read relation for key.
func (c *Context) WrK(key string) *formula.Relation {
	if r, ok := c.wrk[key]; ok {
		return r
	}
	r := formula.NewRelation(c.mint("wr", key))
	c.wrk[key] = r
	return r
}

// ArK returns the per-key causal arbitration relation for key.
func (c *Context) ArK(key string) *formula.Relation {
	if r, ok := c.ark[key]; ok {
		return r
	}
	r := formula.NewRelation(c.mint("ar", key))
	c.ark[key] = r
	return r
}

// WwK returns the per-key serial arbitration relation for key.
func (c *Context) WwK(key string) *formula.Relation {
	if r, ok := c.wwk[key]; ok {
		return r
	}
	r := formula.NewRelation(c.mint("ww", key))
	c.wwk[key] = r
	return r
}

// RwK returns the per-key serial antidependency relation for key.
func (c *Context) RwK(key string) *formula.Relation {
	if r, ok := c.rwk[key]; ok {
		return r
	}
	r := formula.NewRelation(c.mint("rw", key))
	c.rwk[key] = r
	return r
}

// CommitOrder returns (minting if needed) a named commit-order function,
// e.g. "co_weak" or "co_S". Every call with the same name returns the same
// *formula.IntFunc.
func (c *Context) CommitOrder(name string) *formula.IntFunc {
	if f, ok := c.co[name]; ok {
		return f
	}
	f := formula.NewUnaryIntFunc(name)
	c.co[name] = f
	return f
}

// Boundary returns (minting if needed) the free integer variable bounding
// how many of session's events survive truncation: spec.md §4.4's
// boundary[session], ranging over [0, SessionEventCount(session)+1].
func (c *Context) Boundary(session string) formula.IntExpr {
	if v, ok := c.boundary[session]; ok {
		return v
	}
	v := formula.IntVar(c.mint("boundary", session))
	c.boundary[session] = v
	return v
}

// Choice returns (minting if needed) the free integer variable selecting
// which write r observed, ranging over [0, len(W[r.Key])).
func (c *Context) Choice(r historystore.Read) formula.IntExpr {
	key := fmt.Sprintf("%s,%d", r.Session, r.Seq)
	if v, ok := c.choice[key]; ok {
		return v
	}
	v := formula.IntVar(c.mint("choice", key))
	c.choice[key] = v
	return v
}

// DeclareBoundaryDomains registers every session's boundary variable
// (minting any not yet referenced) with its finite domain
// [0, SessionEventCount(session)+1]. The +1 is the "session kept whole"
// value: a boundary of count+1 admits every event while leaving no event on
// the boundary, which is distinct from count when the session's last event
// is a read. Sessions are visited in store order so the bag's declaration
// order (and with it the reference oracle's search order) is reproducible.
// Choice variables are declared by internal/prediction at the point it mints
// each one, since their domain (the size of W[key]) isn't recoverable from
// the variable alone.
func (c *Context) DeclareBoundaryDomains(bag *formula.Bag) {
	for _, session := range c.Store.Sessions() {
		bag.Declare(c.Boundary(session), 0, c.Store.SessionEventCount(session)+1)
	}
}

// PinBoundaries declares every session's boundary variable with its domain
// collapsed to the single value SessionEventCount(session)+1: nothing is
// ever truncated and no event sits on any boundary. internal/verify checks
// an already-observed execution, which has no truncation or choice of its
// own, but still shares relation.DefineAr and unserial.SerializationEdges
// with the predictive encoder; pinning every boundary past end-of-session
// keeps every in_boundary/tx_in_boundary guard those emit trivially true
// without requiring verify to search over a truncation it never has.
func (c *Context) PinBoundaries(bag *formula.Bag) {
	for _, session := range c.Store.Sessions() {
		n := c.Store.SessionEventCount(session) + 1
		bag.Declare(c.Boundary(session), n, n)
	}
}

// Rank returns (minting if needed) the free integer variable bounding the
// well-founded measure internal/unserial's Express form uses to gate its
// mediated reachability step: spec.md §4.6/§9(a)'s rank(t1, t2). It ranges
// over [0, T²) where T is the number of non-initial transactions in the
// store, declared by DeclareRankDomains.
func (c *Context) Rank(t1, t2 historystore.TxID) formula.IntExpr {
	key := t1.String() + "\x00" + t2.String()
	if v, ok := c.rank[key]; ok {
		return v
	}
	v := formula.IntVar(c.mint("rank", key))
	c.rank[key] = v
	return v
}

// DeclareRankDomains registers every ordered pair's rank variable (minting
// any not yet referenced) with the domain [0, T²), where T is the number of
// non-initial transactions in the store. Pairs are visited in transaction
// order so the bag's declaration order is reproducible.
func (c *Context) DeclareRankDomains(bag *formula.Bag) {
	t := 0
	for _, session := range c.Store.Sessions() {
		if session == historystore.InitSession {
			continue
		}
		t += len(c.Store.Transactions(session))
	}
	hi := t*t - 1
	if hi < 0 {
		hi = 0
	}
	txs := c.Store.AllTransactions()
	for _, t1 := range txs {
		for _, t2 := range txs {
			bag.Declare(c.Rank(t1, t2), 0, hi)
		}
	}
}
