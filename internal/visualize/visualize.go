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

// Package visualize renders a predicted history's serialization graph as
// DOT source text, the way the teacher's original_source counterpart
// (src/isopredict/graph.py's Graph) built an adjacency list behind
// graphviz.Digraph. Rendering the DOT text to an image is explicitly out of
// scope; a caller pipes the output to the "dot" tool themselves if they
// want a picture.
package visualize

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/symctx"
)

// edgeKind names which relation an edge was drawn from, for the DOT label
// and color graph.py's own comment argument played the same role for.
// perKey resolves the relation's per-key specializations, so an edge can be
// labeled with the keys that actually drew it (e.g. "wr[x y]"); nil for
// session order, which has no per-key variant.
type edgeKind struct {
	relation func(ctx *symctx.Context) *formula.Relation
	perKey   func(ctx *symctx.Context, key string) *formula.Relation
	label    string
	color    string
}

var baseKinds = []edgeKind{
	{func(ctx *symctx.Context) *formula.Relation { return ctx.So }, nil, "so", "black"},
	{func(ctx *symctx.Context) *formula.Relation { return ctx.Wr }, (*symctx.Context).WrK, "wr", "blue"},
	{func(ctx *symctx.Context) *formula.Relation { return ctx.Ar }, (*symctx.Context).ArK, "ar", "darkgreen"},
	{func(ctx *symctx.Context) *formula.Relation { return ctx.Ww }, (*symctx.Context).WwK, "ww", "orange"},
	{func(ctx *symctx.Context) *formula.Relation { return ctx.Rw }, (*symctx.Context).RwK, "rw", "red"},
}

// edgeLabel appends the keys whose per-key relation holds for (t1, t2).
func edgeLabel(ctx *symctx.Context, model formula.Model, kind edgeKind, t1, t2 historystore.TxID) string {
	if kind.perKey == nil {
		return kind.label
	}
	keys := ctx.Store.Keys()
	var held []string
	for _, k := range keys {
		if formula.EvalBool(kind.perKey(ctx, k).At(t1, t2), model) {
			held = append(held, k)
		}
	}
	if len(held) == 0 {
		return kind.label
	}
	return fmt.Sprintf("%s[%s]", kind.label, strings.Join(held, " "))
}

// Graph builds the serialization multigraph for ctx's history under model:
// one node per transaction, one edge per (t1, t2) pair the base relations
// (so, wr, ar, ww, rw) hold for, colored and labeled by which relation drew
// it. Model is typically the satisfying assignment internal/analysis
// returns for a Sat prediction; ctx must be the same Context that built the
// bag model solves.
func Graph(ctx *symctx.Context, model formula.Model) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	nodes := make(map[historystore.TxID]dot.Node, len(ctx.Store.AllTransactions()))
	nodeFor := func(tx historystore.TxID) dot.Node {
		if n, ok := nodes[tx]; ok {
			return n
		}
		n := g.Node(tx.String())
		nodes[tx] = n
		return n
	}

	txs := ctx.Store.AllTransactions()
	for _, t1 := range txs {
		nodeFor(t1)
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			for _, kind := range baseKinds {
				rel := kind.relation(ctx)
				if !formula.EvalBool(rel.At(t1, t2), model) {
					continue
				}
				g.Edge(nodeFor(t1), nodeFor(t2), edgeLabel(ctx, model, kind, t1, t2)).Attr("color", kind.color)
			}
		}
	}
	return g
}

// String renders g as DOT source text.
func String(g *dot.Graph) string {
	return g.String()
}

// FindCycle runs the same depth-first search graph.py's find_cycle did,
// over reachable (ctx.Reachable evaluated against model), starting from the
// store's first transaction. On meeting a transaction already on the
// current path it returns that path: from the start transaction to the
// repeated Tx, which appears twice, so the cycle is the suffix beginning
// at its first occurrence. It returns nil if no cycle is reachable from the
// start transaction.
// A Sat Express-form result always has one; a Sat Full-form result may not
// expose it through reachable directly (Full never defines that relation),
// so callers of this function should only use it against an Express
// prediction.
func FindCycle(ctx *symctx.Context, model formula.Model) []historystore.TxID {
	txs := ctx.Store.AllTransactions()
	if len(txs) == 0 {
		return nil
	}
	adjacency := make(map[historystore.TxID][]historystore.TxID, len(txs))
	for _, t1 := range txs {
		for _, t2 := range txs {
			if t1 == t2 {
				continue
			}
			if formula.EvalBool(ctx.Reachable.At(t1, t2), model) {
				adjacency[t1] = append(adjacency[t1], t2)
			}
		}
	}

	type frame struct {
		node    historystore.TxID
		parents []historystore.TxID
	}
	visited := make(map[historystore.TxID]bool, len(txs))
	stack := []frame{{node: txs[0]}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, p := range top.parents {
			if p == top.node {
				return append(append([]historystore.TxID(nil), top.parents...), top.node)
			}
		}
		if visited[top.node] {
			continue
		}
		visited[top.node] = true

		path := append(append([]historystore.TxID(nil), top.parents...), top.node)
		for _, next := range adjacency[top.node] {
			stack = append(stack, frame{node: next, parents: path})
		}
	}
	return nil
}
