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

// Env resolves the free symbols of a formula under one candidate
// assignment: relation values, free integer variables (boundary, choice),
// and integer function values (commit orders, rank). Solvers (internal/
// oracle) implement Env; the encoder never does.
type Env interface {
	Rel(rel *Relation, t1, t2 Tx) bool
	Var(name string) int
	Func(fn *IntFunc, args []Tx) int
}

// EvalBool evaluates f under env. A TotalOrder node is evaluated as a plain
// constraint against env's current Func bindings — whoever is searching for
// a witness (internal/oracle) is responsible for trying bindings and using
// EvalBool to check them; EvalBool itself performs no search. A negated
// TotalOrder therefore means "this particular binding is not a witness",
// not "no witness exists" — deciding the latter is the oracle's job, see
// AsTotalOrder.
func EvalBool(f BoolExpr, env Env) bool {
	switch e := f.(type) {
	case boolLit:
		return e.v
	case andExpr:
		for _, t := range e.terms {
			if !EvalBool(t, env) {
				return false
			}
		}
		return true
	case orExpr:
		for _, t := range e.terms {
			if EvalBool(t, env) {
				return true
			}
		}
		return false
	case notExpr:
		return !EvalBool(e.x, env)
	case impliesExpr:
		return !EvalBool(e.cond, env) || EvalBool(e.then, env)
	case iffExpr:
		return EvalBool(e.a, env) == EvalBool(e.b, env)
	case iteExpr:
		if EvalBool(e.cond, env) {
			return EvalBool(e.then, env)
		}
		return EvalBool(e.els, env)
	case relApp:
		return env.Rel(e.rel, e.t1, e.t2)
	case intEqExpr:
		return EvalInt(e.a, env) == EvalInt(e.b, env)
	case ltExpr:
		return EvalInt(e.a, env) < EvalInt(e.b, env)
	case totalOrderExpr:
		return evalTotalOrderBinding(e, env)
	default:
		panic("formula: EvalBool: unknown node type")
	}
}

// EvalInt evaluates e under env.
func EvalInt(e IntExpr, env Env) int {
	switch x := e.(type) {
	case intLit:
		return x.v
	case intVar:
		return env.Var(x.name)
	case intFuncApp:
		return env.Func(x.fn, x.args)
	default:
		panic("formula: EvalInt: unknown node type")
	}
}

func evalTotalOrderBinding(e totalOrderExpr, env Env) bool {
	seen := make(map[int]bool, len(e.vars))
	for _, v := range e.vars {
		val := env.Func(e.fn, []Tx{v})
		if seen[val] {
			return false
		}
		seen[val] = true
	}
	for _, edge := range e.edges {
		if !EvalBool(edge.Cond, env) {
			continue
		}
		before := env.Func(e.fn, []Tx{edge.Before})
		after := env.Func(e.fn, []Tx{edge.After})
		if !(before < after) {
			return false
		}
	}
	return true
}
