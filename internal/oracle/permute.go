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

// searchTotalOrder looks for a Distinct labeling of o.vars via o.fn, over
// base's already-stabilized relations, satisfying every edge whose Cond
// holds. It tries every permutation of {0, ..., len(vars)-1}; this is the
// exact, factorial-cost decision procedure the package doc promises, and is
// only meant for the small Tx sets the reference oracle's tests build.
//
// An edge's Cond may reference o.fn itself (C6 Full's serial write-write
// arbitration condition does, through co_S) — that is sound here precisely because the
// whole candidate labeling is bound into the scratch env before any edge is
// evaluated, which is exactly what "inside this existential" means for one
// candidate witness.
func searchTotalOrder(o totalOrderDef, base *env) (bool, map[string]int) {
	n := len(o.vars)
	used := make([]bool, n)
	labels := make([]int, n)
	trial := base.clone()
	var found map[string]int

	var rec func(i int) bool
	rec = func(i int) bool {
		if i == n {
			for idx, v := range o.vars {
				trial.setFunc(o.fn, []formula.Tx{v}, labels[idx])
			}
			for _, edge := range o.edges {
				if !formula.EvalBool(edge.Cond, trial) {
					continue
				}
				before := trial.Func(o.fn, []formula.Tx{edge.Before})
				after := trial.Func(o.fn, []formula.Tx{edge.After})
				if !(before < after) {
					return false
				}
			}
			found = make(map[string]int, n)
			for idx, v := range o.vars {
				found[v.String()] = labels[idx]
			}
			return true
		}
		for label := 0; label < n; label++ {
			if used[label] {
				continue
			}
			used[label] = true
			labels[i] = label
			if rec(i + 1) {
				return true
			}
			used[label] = false
		}
		return false
	}

	ok := rec(0)
	return ok, found
}

// resolveTotalOrders decides every TotalOrder assertion against e, binding
// the witnessing labeling permanently into e when one is asserted to exist
// and is found. A negated assertion only needs searchTotalOrder to fail; it
// asserts no witness, so none is bound.
func resolveTotalOrders(orders []totalOrderDef, e *env) bool {
	for _, o := range orders {
		found, labels := searchTotalOrder(o, e)
		if o.negated {
			if found {
				return false
			}
			continue
		}
		if !found {
			return false
		}
		for _, v := range o.vars {
			e.setFunc(o.fn, []formula.Tx{v}, labels[v.String()])
		}
	}
	return true
}
