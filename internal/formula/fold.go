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

// PartialEnv resolves the symbols of a formula that already have settled
// values mid-search: relations whose defining equations involve no
// still-free variable, and integer variables already bound to a trial
// value. Everything else reports known=false and survives a Fold.
type PartialEnv interface {
	RelValue(rel *Relation, t1, t2 Tx) (val, known bool)
	VarValue(name string) (val int, known bool)
	FuncValue(fn *IntFunc, args []Tx) (val int, known bool)
}

// UnknownPolicy controls what Fold does with an integer comparison it
// cannot resolve because an operand is still free.
type UnknownPolicy int

const (
	// KeepUnknown leaves the comparison in place, to be decided later.
	KeepUnknown UnknownPolicy = iota
	// UnknownTrue replaces it with True — an optimistic reading that makes
	// the folded formula an upper bound of every completion.
	UnknownTrue
	// UnknownFalse replaces it with False — the matching pessimistic
	// reading, a lower bound of every completion.
	UnknownFalse
)

// Fold partially evaluates f under env: subtrees whose symbols are all
// known collapse to literals, And/Or absorb them, and unresolvable integer
// comparisons follow policy. The result is equivalent to f on every
// completion of env under KeepUnknown, and brackets it under the other two
// policies provided relations appear only positively in f.
func Fold(f BoolExpr, env PartialEnv, policy UnknownPolicy) BoolExpr {
	switch e := f.(type) {
	case boolLit:
		return e
	case relApp:
		if v, known := env.RelValue(e.rel, e.t1, e.t2); known {
			return BoolExprFromBool(v)
		}
		return e
	case andExpr:
		terms := make([]BoolExpr, 0, len(e.terms))
		for _, t := range e.terms {
			terms = append(terms, Fold(t, env, policy))
		}
		return And(terms...)
	case orExpr:
		terms := make([]BoolExpr, 0, len(e.terms))
		for _, t := range e.terms {
			terms = append(terms, Fold(t, env, policy))
		}
		return Or(terms...)
	case notExpr:
		x := Fold(e.x, env, invertPolicy(policy))
		if lit, ok := x.(boolLit); ok {
			return BoolExprFromBool(!lit.v)
		}
		return Not(x)
	case impliesExpr:
		cond := Fold(e.cond, env, invertPolicy(policy))
		then := Fold(e.then, env, policy)
		if lit, ok := cond.(boolLit); ok {
			if !lit.v {
				return True()
			}
			return then
		}
		if lit, ok := then.(boolLit); ok && lit.v {
			return True()
		}
		return Implies(cond, then)
	case iffExpr:
		// An equivalence has no single polarity; folding its sides with a
		// biased policy would not bracket anything, so both sides keep
		// their unknowns.
		a := Fold(e.a, env, KeepUnknown)
		b := Fold(e.b, env, KeepUnknown)
		la, aok := a.(boolLit)
		lb, bok := b.(boolLit)
		switch {
		case aok && bok:
			return BoolExprFromBool(la.v == lb.v)
		case aok && la.v:
			return b
		case aok:
			return Not(b)
		case bok && lb.v:
			return a
		case bok:
			return Not(a)
		}
		return Iff(a, b)
	case iteExpr:
		cond := Fold(e.cond, env, KeepUnknown)
		if lit, ok := cond.(boolLit); ok {
			if lit.v {
				return Fold(e.then, env, policy)
			}
			return Fold(e.els, env, policy)
		}
		return IfElse(cond, Fold(e.then, env, policy), Fold(e.els, env, policy))
	case intEqExpr:
		a, aok := foldInt(e.a, env)
		b, bok := foldInt(e.b, env)
		if aok && bok {
			return BoolExprFromBool(a == b)
		}
		return unresolved(e, policy)
	case ltExpr:
		a, aok := foldInt(e.a, env)
		b, bok := foldInt(e.b, env)
		if aok && bok {
			return BoolExprFromBool(a < b)
		}
		return unresolved(e, policy)
	default:
		// TotalOrder and anything else opaque passes through untouched.
		return f
	}
}

func invertPolicy(p UnknownPolicy) UnknownPolicy {
	switch p {
	case UnknownTrue:
		return UnknownFalse
	case UnknownFalse:
		return UnknownTrue
	default:
		return KeepUnknown
	}
}

func unresolved(f BoolExpr, policy UnknownPolicy) BoolExpr {
	switch policy {
	case UnknownTrue:
		return True()
	case UnknownFalse:
		return False()
	default:
		return f
	}
}

func foldInt(e IntExpr, env PartialEnv) (int, bool) {
	switch x := e.(type) {
	case intLit:
		return x.v, true
	case intVar:
		return env.VarValue(x.name)
	case intFuncApp:
		return env.FuncValue(x.fn, x.args)
	default:
		return 0, false
	}
}

// FreeRels walks f and collects the names of every Relation it applies.
func FreeRels(f BoolExpr, into map[string]bool) {
	switch e := f.(type) {
	case relApp:
		into[e.rel.Name] = true
	case andExpr:
		for _, t := range e.terms {
			FreeRels(t, into)
		}
	case orExpr:
		for _, t := range e.terms {
			FreeRels(t, into)
		}
	case notExpr:
		FreeRels(e.x, into)
	case impliesExpr:
		FreeRels(e.cond, into)
		FreeRels(e.then, into)
	case iffExpr:
		FreeRels(e.a, into)
		FreeRels(e.b, into)
	case iteExpr:
		FreeRels(e.cond, into)
		FreeRels(e.then, into)
		FreeRels(e.els, into)
	case totalOrderExpr:
		for _, edge := range e.edges {
			FreeRels(edge.Cond, into)
		}
	}
}

// EvalBoolBounds evaluates f against a bracketed relation assignment: lo
// and hi are full Envs agreeing on every integer symbol but bounding each
// relation's truth value from below and above. The returned pair bounds
// f's value over every relation table between the two.
func EvalBoolBounds(f BoolExpr, lo, hi Env) (bool, bool) {
	switch e := f.(type) {
	case boolLit:
		return e.v, e.v
	case relApp:
		return lo.Rel(e.rel, e.t1, e.t2), hi.Rel(e.rel, e.t1, e.t2)
	case andExpr:
		l, h := true, true
		for _, t := range e.terms {
			tl, th := EvalBoolBounds(t, lo, hi)
			l = l && tl
			h = h && th
		}
		return l, h
	case orExpr:
		l, h := false, false
		for _, t := range e.terms {
			tl, th := EvalBoolBounds(t, lo, hi)
			l = l || tl
			h = h || th
		}
		return l, h
	case notExpr:
		l, h := EvalBoolBounds(e.x, lo, hi)
		return !h, !l
	case impliesExpr:
		cl, ch := EvalBoolBounds(e.cond, lo, hi)
		tl, th := EvalBoolBounds(e.then, lo, hi)
		return !ch || tl, !cl || th
	case iffExpr:
		al, ah := EvalBoolBounds(e.a, lo, hi)
		bl, bh := EvalBoolBounds(e.b, lo, hi)
		if al == ah && bl == bh {
			return al == bl, al == bl
		}
		return false, true
	case iteExpr:
		cl, ch := EvalBoolBounds(e.cond, lo, hi)
		tl, th := EvalBoolBounds(e.then, lo, hi)
		el, eh := EvalBoolBounds(e.els, lo, hi)
		if cl == ch {
			if cl {
				return tl, th
			}
			return el, eh
		}
		return tl && el, th || eh
	case intEqExpr:
		v := EvalBool(f, lo)
		return v, v
	case ltExpr:
		v := EvalBool(f, lo)
		return v, v
	default:
		return false, true
	}
}
