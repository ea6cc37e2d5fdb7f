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

// stabilize resolves every relDef in defs against e by Kleene iteration: it
// repeatedly re-evaluates each rhs and writes the result back into e's
// relation table until a full pass makes no change. so, wr, hb, ar, wwₖ,
// rwₖ, ww, rw and reachable are all defined only in terms of each other and
// of relations that never shrink once true, so this system is monotone and
// the iteration is guaranteed to reach a least fixed point; it never needs
// to consider more rounds than there are equations to settle.
func stabilize(defs []relDef, e *env) {
	maxRounds := len(defs) + 8
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, d := range defs {
			newVal := formula.EvalBool(d.rhs, e)
			if e.Rel(d.rel, d.t1, d.t2) != newVal {
				e.setRel(d.rel, d.t1, d.t2, newVal)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
