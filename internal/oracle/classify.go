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

package oracle

import "github.com/isopredict/isopredict/internal/formula"

// relDef is one Iff(rel(t1, t2), rhs) assertion: a relation defined in terms
// of earlier ones (so, wr, hb, ar, wwₖ, rwₖ, ww, rw, reachable are all built
// this way). The whole system of relDefs is monotone, so stabilize resolves
// every one of them together by fixed-point iteration rather than needing
// per-relation handling.
type relDef struct {
	rel *formula.Relation
	t1  formula.Tx
	t2  formula.Tx
	rhs formula.BoolExpr
}

// totalOrderDef is one (possibly negated) TotalOrder assertion: C5's
// unquantified co_weak existential, or C6 Full's negated co_S one.
type totalOrderDef struct {
	fn      *formula.IntFunc
	vars    []formula.Tx
	edges   []formula.OrderEdge
	negated bool
}

// classify partitions bag's assertions into the three shapes BruteForce
// handles differently: relation-defining equations solved by fixed-point
// iteration, total-order existentials resolved by permutation search, and
// everything else, checked as plain constraints against a stabilized env.
func classify(bag *formula.Bag) (relDefs []relDef, orders []totalOrderDef, others []formula.BoolExpr) {
	for _, a := range bag.Assertions() {
		if rel, t1, t2, rhs, ok := formula.AsIffRel(a); ok {
			relDefs = append(relDefs, relDef{rel: rel, t1: t1, t2: t2, rhs: rhs})
			continue
		}
		if fn, vars, edges, negated, ok := formula.AsTotalOrder(a); ok {
			orders = append(orders, totalOrderDef{fn: fn, vars: vars, edges: edges, negated: negated})
			continue
		}
		others = append(others, a)
	}
	return relDefs, orders, others
}
