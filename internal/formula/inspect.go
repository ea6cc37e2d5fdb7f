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

package formula

// FreeIntVars walks f and collects the names of every free IntVar it
// references. pure reports whether f is a ground arithmetic constraint over
// those variables alone: no Relation application, no IntFunc application,
// and no TotalOrder node anywhere inside it. internal/oracle uses this to
// check a pure assertion as soon as its last variable gets a trial value,
// instead of only after a complete assignment.
func FreeIntVars(f BoolExpr) (names []string, pure bool) {
	seen := make(map[string]bool)
	pure = collectBool(f, seen)
	names = make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	return names, pure
}

func collectBool(f BoolExpr, seen map[string]bool) bool {
	switch e := f.(type) {
	case boolLit:
		return true
	case andExpr:
		pure := true
		for _, t := range e.terms {
			pure = collectBool(t, seen) && pure
		}
		return pure
	case orExpr:
		pure := true
		for _, t := range e.terms {
			pure = collectBool(t, seen) && pure
		}
		return pure
	case notExpr:
		return collectBool(e.x, seen)
	case impliesExpr:
		p1 := collectBool(e.cond, seen)
		p2 := collectBool(e.then, seen)
		return p1 && p2
	case iffExpr:
		p1 := collectBool(e.a, seen)
		p2 := collectBool(e.b, seen)
		return p1 && p2
	case iteExpr:
		p1 := collectBool(e.cond, seen)
		p2 := collectBool(e.then, seen)
		p3 := collectBool(e.els, seen)
		return p1 && p2 && p3
	case intEqExpr:
		p1 := collectInt(e.a, seen)
		p2 := collectInt(e.b, seen)
		return p1 && p2
	case ltExpr:
		p1 := collectInt(e.a, seen)
		p2 := collectInt(e.b, seen)
		return p1 && p2
	case relApp:
		return false
	case totalOrderExpr:
		return false
	default:
		return false
	}
}

func collectInt(e IntExpr, seen map[string]bool) bool {
	switch x := e.(type) {
	case intLit:
		return true
	case intVar:
		seen[x.name] = true
		return true
	case intFuncApp:
		return false
	default:
		return false
	}
}
