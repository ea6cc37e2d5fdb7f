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

// Package formula is the target language the encoder (internal/symctx,
// internal/relation, internal/prediction, internal/isolation,
// internal/unserial) writes into: a first-order logic over an uninterpreted
// Tx sort, uninterpreted Boolean relations, and integer functions, per
// spec.md §3 and §6. It has no knowledge of transactions, sessions, or
// isolation levels — only of the shapes a constraint solver needs to see.
package formula

import (
	"fmt"
	"strings"

	"github.com/isopredict/isopredict/internal/historystore"
)

// Tx is the abstract sort the whole formula ranges over; its constants are
// exactly the transaction identifiers produced by historystore.
type Tx = historystore.TxID

// BoolExpr is a Boolean-valued formula node.
type BoolExpr interface {
	isBool()
	String() string
}

// IntExpr is an integer-valued formula node.
type IntExpr interface {
	isInt()
	String() string
}

// Relation is an uninterpreted Boolean function Tx x Tx -> Bool, e.g. so,
// wr, hb, ar, ww, rw, reachable, or one of their per-key variants.
type Relation struct {
	Name string
}

// NewRelation mints a Relation with the given name. Callers (internal/symctx)
// are responsible for name uniqueness; formula does no interning.
func NewRelation(name string) *Relation { return &Relation{Name: name} }

// At applies the relation to an ordered pair, producing a Boolean node.
func (r *Relation) At(t1, t2 Tx) BoolExpr { return relApp{rel: r, t1: t1, t2: t2} }

// IntFunc is an uninterpreted integer-valued function over Tx, either unary
// (commit order functions co_weak, co_S) or binary (rank).
type IntFunc struct {
	Name  string
	Arity int
}

// NewUnaryIntFunc mints a Tx -> Int function, e.g. a commit order.
func NewUnaryIntFunc(name string) *IntFunc { return &IntFunc{Name: name, Arity: 1} }

// NewBinaryIntFunc mints a Tx x Tx -> Int function, e.g. rank.
func NewBinaryIntFunc(name string) *IntFunc { return &IntFunc{Name: name, Arity: 2} }

// At1 applies a unary IntFunc.
func (f *IntFunc) At1(t Tx) IntExpr {
	if f.Arity != 1 {
		panic(fmt.Sprintf("formula: %s is not a unary function", f.Name))
	}
	return intFuncApp{fn: f, args: []Tx{t}}
}

// At2 applies a binary IntFunc.
func (f *IntFunc) At2(t1, t2 Tx) IntExpr {
	if f.Arity != 2 {
		panic(fmt.Sprintf("formula: %s is not a binary function", f.Name))
	}
	return intFuncApp{fn: f, args: []Tx{t1, t2}}
}

// IntVar is a free integer variable: a per-session boundary or a per-read
// choice (spec.md §4.4). Two IntVars with the same name are the same
// variable; internal/symctx is responsible for minting unique names.
func IntVar(name string) IntExpr { return intVar{name: name} }

// IntLit is an integer literal.
func IntLit(n int) IntExpr { return intLit{v: n} }

// --- node types ---

type relApp struct {
	rel    *Relation
	t1, t2 Tx
}

func (relApp) isBool() {}
func (e relApp) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.rel.Name, e.t1, e.t2)
}

type intFuncApp struct {
	fn   *IntFunc
	args []Tx
}

func (intFuncApp) isInt() {}
func (e intFuncApp) String() string {
	parts := make([]string, len(e.args))
	for i, a := range e.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.fn.Name, strings.Join(parts, ", "))
}

type intVar struct{ name string }

func (intVar) isInt()          {}
func (v intVar) String() string { return v.name }

type intLit struct{ v int }

func (intLit) isInt()          {}
func (l intLit) String() string { return fmt.Sprintf("%d", l.v) }

type boolLit struct{ v bool }

func (boolLit) isBool() {}
func (l boolLit) String() string {
	if l.v {
		return "true"
	}
	return "false"
}

// True is the trivially satisfied formula.
func True() BoolExpr { return boolLit{true} }

// False is the trivially unsatisfiable formula.
func False() BoolExpr { return boolLit{false} }

// BoolExprFromBool lifts a plain Go bool into the formula language, for
// ground-truth facts the store already knows (e.g. session order) that
// don't need to be left free for a solver.
func BoolExprFromBool(b bool) BoolExpr {
	if b {
		return True()
	}
	return False()
}

type andExpr struct{ terms []BoolExpr }

func (andExpr) isBool() {}
func (e andExpr) String() string { return joinBool("And", e.terms) }

// And conjoins terms. A nil/empty And is True; a literal False term
// collapses the whole conjunction.
func And(terms ...BoolExpr) BoolExpr {
	flat, short := flattenBool(terms, true)
	if short {
		return False()
	}
	if len(flat) == 0 {
		return True()
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return andExpr{terms: flat}
}

type orExpr struct{ terms []BoolExpr }

func (orExpr) isBool() {}
func (e orExpr) String() string { return joinBool("Or", e.terms) }

// Or disjoins terms. A nil/empty Or is False; a literal True term collapses
// the whole disjunction.
func Or(terms ...BoolExpr) BoolExpr {
	flat, short := flattenBool(terms, false)
	if short {
		return True()
	}
	if len(flat) == 0 {
		return False()
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return orExpr{terms: flat}
}

// flattenBool drops nil terms and the operator's identity literal (True for
// And, False for Or), and reports short=true when it hits the operator's
// absorbing literal instead.
func flattenBool(terms []BoolExpr, conjunction bool) (out []BoolExpr, short bool) {
	out = make([]BoolExpr, 0, len(terms))
	for _, t := range terms {
		if t == nil {
			continue
		}
		if lit, ok := t.(boolLit); ok {
			if lit.v == conjunction {
				continue
			}
			return nil, true
		}
		out = append(out, t)
	}
	return out, false
}

func joinBool(op string, terms []BoolExpr) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", op, strings.Join(parts, ", "))
}

type notExpr struct{ x BoolExpr }

func (notExpr) isBool() {}
func (e notExpr) String() string { return fmt.Sprintf("Not(%s)", e.x) }

// Not negates x.
func Not(x BoolExpr) BoolExpr {
	if n, ok := x.(notExpr); ok {
		return n.x // double negation collapses; keeps Express/Full formulas readable in debug dumps
	}
	return notExpr{x: x}
}

type impliesExpr struct{ cond, then BoolExpr }

func (impliesExpr) isBool() {}
func (e impliesExpr) String() string {
	return fmt.Sprintf("Implies(%s, %s)", e.cond, e.then)
}

// Implies builds cond => then.
func Implies(cond, then BoolExpr) BoolExpr { return impliesExpr{cond: cond, then: then} }

type iffExpr struct{ a, b BoolExpr }

func (iffExpr) isBool() {}
func (e iffExpr) String() string { return fmt.Sprintf("Iff(%s, %s)", e.a, e.b) }

// Iff asserts a and b are logically equivalent; used throughout C3/C6 to
// define a relation in terms of earlier ones.
func Iff(a, b BoolExpr) BoolExpr { return iffExpr{a: a, b: b} }

type iteExpr struct{ cond, then, els BoolExpr }

func (iteExpr) isBool() {}
func (e iteExpr) String() string {
	return fmt.Sprintf("If(%s, %s, %s)", e.cond, e.then, e.els)
}

// IfElse is the ternary if-then-else over Boolean results.
func IfElse(cond, then, els BoolExpr) BoolExpr { return iteExpr{cond: cond, then: then, els: els} }

type intEqExpr struct{ a, b IntExpr }

func (intEqExpr) isBool() {}
func (e intEqExpr) String() string { return fmt.Sprintf("Eq(%s, %s)", e.a, e.b) }

// IntEq asserts a == b for integer expressions.
func IntEq(a, b IntExpr) BoolExpr { return intEqExpr{a: a, b: b} }

type ltExpr struct{ a, b IntExpr }

func (ltExpr) isBool() {}
func (e ltExpr) String() string { return fmt.Sprintf("Lt(%s, %s)", e.a, e.b) }

// Lt asserts a < b for integer expressions.
func Lt(a, b IntExpr) BoolExpr { return ltExpr{a: a, b: b} }

// OrderEdge is one conjunct of a TotalOrder body: "if Cond holds, Before
// must be ordered strictly before After".
type OrderEdge struct {
	Cond         BoolExpr
	Before, After Tx
}

type totalOrderExpr struct {
	fn    *IntFunc
	vars  []Tx
	edges []OrderEdge
}

func (totalOrderExpr) isBool() {}
func (e totalOrderExpr) String() string {
	parts := make([]string, len(e.edges))
	for i, edge := range e.edges {
		parts[i] = fmt.Sprintf("%s => %s(%s) < %s(%s)", edge.Cond, e.fn.Name, edge.Before, e.fn.Name, edge.After)
	}
	return fmt.Sprintf("Exists %s distinct over {%d txs}. Distinct(%s) And %s",
		e.fn.Name, len(e.vars), e.fn.Name, strings.Join(parts, " And "))
}

// TotalOrder asserts the existence of a Distinct integer labeling of vars
// via fn such that, for every edge whose Cond holds, fn(Before) < fn(After).
// This is the literal shape of spec.md's commit-order existentials (C5's
// unquantified co_weak assertion and C6 Full's "exists co_S" — the latter
// is produced by wrapping this in Not, see C6's own package).
//
// Per spec.md's design note on Skolemization, implementations may decide
// existence however they like as long as the semantics match; the bundled
// internal/oracle reference implementation decides it by permutation search
// over small vars, which is exact for the toy-sized histories it is meant
// to serve.
func TotalOrder(fn *IntFunc, vars []Tx, edges []OrderEdge) BoolExpr {
	return totalOrderExpr{fn: fn, vars: append([]Tx(nil), vars...), edges: append([]OrderEdge(nil), edges...)}
}

// Fn exposes the witnessed function of a TotalOrder node so the oracle
// package can recognize and solve the shape without formula exporting its
// concrete node types.
func (e totalOrderExpr) Fn() *IntFunc     { return e.fn }
func (e totalOrderExpr) Vars() []Tx       { return e.vars }
func (e totalOrderExpr) Edges() []OrderEdge { return e.edges }

// AsTotalOrder reports whether f is a TotalOrder node (possibly the operand
// of a single Not, reporting negated=true in that case) and returns its
// parts. Used by internal/oracle's reference implementation.
func AsTotalOrder(f BoolExpr) (fn *IntFunc, vars []Tx, edges []OrderEdge, negated bool, ok bool) {
	if n, isNot := f.(notExpr); isNot {
		if to, isTO := n.x.(totalOrderExpr); isTO {
			return to.fn, to.vars, to.edges, true, true
		}
		return nil, nil, nil, false, false
	}
	if to, isTO := f.(totalOrderExpr); isTO {
		return to.fn, to.vars, to.edges, false, true
	}
	return nil, nil, nil, false, false
}

// AsIffRel reports whether f is Iff(rel(t1, t2), rhs) — the shape C3/C6 use
// throughout to define a relation in terms of earlier ones — and returns its
// parts. The encoder always builds these with the relation application on
// the left, so only that order is recognized. Used by internal/oracle to
// separate relation-defining equations (solved by fixed-point iteration)
// from the rest of a bag's assertions.
func AsIffRel(f BoolExpr) (rel *Relation, t1, t2 Tx, rhs BoolExpr, ok bool) {
	iff, isIff := f.(iffExpr)
	if !isIff {
		return nil, Tx{}, Tx{}, nil, false
	}
	app, isApp := iff.a.(relApp)
	if !isApp {
		return nil, Tx{}, Tx{}, nil, false
	}
	return app.rel, app.t1, app.t2, iff.b, true
}

