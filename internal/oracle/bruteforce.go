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

// Package oracle is the reference finite-domain implementation of
// formula.Oracle. It is not a decision procedure in any serious sense — it
// enumerates every combination of the bag's free IntVars (boundary, choice,
// rank), and for each trial stabilizes the bag's relation-defining
// equations by fixed-point iteration and resolves its TotalOrder
// existentials by permutation search. spec.md places the actual SMT decision
// procedure out of scope; this package exists so the rest of the module
// (and its own tests) has something to run the encoder's output against.
package oracle

import (
	"context"
	"time"

	"github.com/isopredict/isopredict/internal/formula"
)

// BruteForce is formula.Oracle's reference implementation.
type BruteForce struct{}

// New returns a BruteForce oracle.
func New() *BruteForce { return &BruteForce{} }

var _ formula.Oracle = (*BruteForce)(nil)

// search carries one Check call's precomputed shape: the partition of the
// bag, the variable order, and the pruning indexes.
type search struct {
	deadline time.Time
	ctx      context.Context

	baseDefs []relDef // relation equations free of auxiliary variables
	auxDefs  []relDef // equations the auxiliary block still steers
	orders   []totalOrderDef
	others   []formula.BoolExpr

	names    []string             // frontier variables first, auxiliary block last
	bounds   [][2]int
	frontier int                  // index of the first auxiliary variable
	early    [][]formula.BoolExpr // pure assertions checked mid-assignment

	assignment map[string]int
	partial    *env
	result     *env
	timedOut   bool
}

// Check implements formula.Oracle. It is exhaustive and exponential in the
// number and size of bag's declared IntVar domains; callers are expected to
// size their histories accordingly, per the package doc. A search that
// outruns timeout, or a canceled ctx, surfaces as Unknown — a three-valued
// oracle answer, not an error, matching the decision-procedure contract.
//
// Three orderings keep the exhaustion tractable for the bags the encoder
// actually emits. Assertions mentioning only free IntVars — the
// boundary-shape and choice-validity axioms — are checked as soon as their
// last variable receives a trial value, pruning whole assignment subtrees
// no relation ever needs stabilizing for. Variables referenced only inside
// relation-defining equations (the Express form's rank block) are moved to
// the end of the order; once everything else is assigned, the equations are
// partially evaluated and the residual system's fixed point is bracketed
// optimistically and pessimistically — when even the optimistic bracket
// falsifies some assertion, the entire auxiliary subspace is skipped
// without a single trial. The bracketing is sound because the encoder's
// equations reference the still-free variables only inside positive
// comparisons.
func (BruteForce) Check(ctx context.Context, bag *formula.Bag, timeout time.Duration) (formula.Result, formula.Model, error) {
	s := &search{deadline: time.Now().Add(timeout), ctx: ctx, assignment: map[string]int{}}
	relDefs, orders, others := classify(bag)
	s.orders, s.others = orders, others

	// Variables referenced by a plain assertion or a TotalOrder edge have
	// to be enumerated up front; the rest form the auxiliary block.
	outside := make(map[string]bool)
	for _, a := range others {
		vars, _ := formula.FreeIntVars(a)
		for _, v := range vars {
			outside[v] = true
		}
	}
	for _, o := range orders {
		for _, edge := range o.edges {
			vars, _ := formula.FreeIntVars(edge.Cond)
			for _, v := range vars {
				outside[v] = true
			}
		}
	}

	declared := bag.Domains()
	isAux := func(name string) bool { return !outside[name] }

	// A relation is auxiliary-dependent if any of its defining equations
	// references an auxiliary variable, or another auxiliary-dependent
	// relation; everything else stabilizes exactly once the frontier
	// variables have values.
	auxRel := make(map[string]bool)
	type defInfo struct {
		def  relDef
		vars []string
		rels map[string]bool
	}
	infos := make([]defInfo, len(relDefs))
	for i, d := range relDefs {
		vars, _ := formula.FreeIntVars(d.rhs)
		rels := make(map[string]bool)
		formula.FreeRels(d.rhs, rels)
		infos[i] = defInfo{def: d, vars: vars, rels: rels}
		for _, v := range vars {
			if isAux(v) {
				auxRel[d.rel.Name] = true
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, info := range infos {
			if auxRel[info.def.rel.Name] {
				continue
			}
			for name := range info.rels {
				if auxRel[name] {
					auxRel[info.def.rel.Name] = true
					changed = true
					break
				}
			}
		}
	}
	for _, info := range infos {
		if auxRel[info.def.rel.Name] {
			s.auxDefs = append(s.auxDefs, info.def)
		} else {
			s.baseDefs = append(s.baseDefs, info.def)
		}
	}

	for _, n := range declared {
		if !isAux(n) {
			s.names = append(s.names, n)
		}
	}
	s.frontier = len(s.names)
	for _, n := range declared {
		if isAux(n) {
			s.names = append(s.names, n)
		}
	}
	s.bounds = make([][2]int, len(s.names))
	depth := make(map[string]int, len(s.names))
	for i, n := range s.names {
		lo, hi, _ := bag.Domain(n)
		s.bounds[i] = [2]int{lo, hi}
		depth[n] = i
	}

	s.early = make([][]formula.BoolExpr, len(s.names))
	for _, a := range others {
		vars, pure := formula.FreeIntVars(a)
		if !pure || len(vars) == 0 {
			continue
		}
		at, known := 0, true
		for _, v := range vars {
			d, ok := depth[v]
			if !ok {
				known = false
				break
			}
			if d > at {
				at = d
			}
		}
		if known {
			s.early[at] = append(s.early[at], a)
		}
	}

	s.partial = newEnv(nil)
	s.recFrontier(0)

	if s.timedOut {
		return formula.Unknown, nil, nil
	}
	if s.result != nil {
		return formula.Sat, s.result, nil
	}
	return formula.Unsat, nil, nil
}

func (s *search) expired() bool {
	if s.timedOut {
		return true
	}
	if time.Now().After(s.deadline) || s.ctx.Err() != nil {
		s.timedOut = true
	}
	return s.timedOut
}

// recFrontier enumerates the frontier variables, checking each pure
// assertion the moment its last variable is bound.
func (s *search) recFrontier(i int) bool {
	if s.expired() {
		return true
	}
	if i == s.frontier {
		return s.atFrontier()
	}
	for v := s.bounds[i][0]; v <= s.bounds[i][1]; v++ {
		s.assignment[s.names[i]] = v
		s.partial.vars[s.names[i]] = v
		ok := true
		for _, a := range s.early[i] {
			if !formula.EvalBool(a, s.partial) {
				ok = false
				break
			}
		}
		if ok && s.recFrontier(i+1) {
			return true
		}
	}
	delete(s.assignment, s.names[i])
	delete(s.partial.vars, s.names[i])
	return false
}

// atFrontier stabilizes the auxiliary-free equations, partially evaluates
// the rest under the frontier assignment, and brackets the residual system
// before committing to enumerating the auxiliary block.
func (s *search) atFrontier() bool {
	base := newEnv(s.assignment)
	stabilize(s.baseDefs, base)

	penv := &foldEnv{base: base, known: baseRelNames(s.baseDefs), vars: s.assignment}
	folded := make([]relDef, len(s.auxDefs))
	for i, d := range s.auxDefs {
		folded[i] = relDef{rel: d.rel, t1: d.t1, t2: d.t2, rhs: formula.Fold(d.rhs, penv, formula.KeepUnknown)}
	}

	if len(s.auxDefs) > 0 {
		nothing := &foldEnv{}
		upperDefs := make([]relDef, len(folded))
		lowerDefs := make([]relDef, len(folded))
		for i, d := range folded {
			upperDefs[i] = relDef{rel: d.rel, t1: d.t1, t2: d.t2, rhs: formula.Fold(d.rhs, nothing, formula.UnknownTrue)}
			lowerDefs[i] = relDef{rel: d.rel, t1: d.t1, t2: d.t2, rhs: formula.Fold(d.rhs, nothing, formula.UnknownFalse)}
		}
		upper := base.clone()
		stabilize(upperDefs, upper)
		lower := base.clone()
		stabilize(lowerDefs, lower)
		for _, a := range s.others {
			if _, hi := formula.EvalBoolBounds(a, lower, upper); !hi {
				return false
			}
		}
	}

	return s.recAux(s.frontier, base, folded)
}

// recAux enumerates the auxiliary block; each complete assignment settles
// the residual equations and runs the full check.
func (s *search) recAux(i int, base *env, folded []relDef) bool {
	if s.expired() {
		return true
	}
	if i == len(s.names) {
		e := base.clone()
		for _, n := range s.names[s.frontier:] {
			e.vars[n] = s.assignment[n]
		}
		stabilize(folded, e)
		for _, a := range s.others {
			if !formula.EvalBool(a, e) {
				return false
			}
		}
		if !resolveTotalOrders(s.orders, e) {
			return false
		}
		s.result = e
		return true
	}
	for v := s.bounds[i][0]; v <= s.bounds[i][1]; v++ {
		s.assignment[s.names[i]] = v
		if s.recAux(i+1, base, folded) {
			return true
		}
	}
	delete(s.assignment, s.names[i])
	return false
}

func baseRelNames(defs []relDef) map[string]bool {
	out := make(map[string]bool, len(defs))
	for _, d := range defs {
		out[d.rel.Name] = true
	}
	return out
}

// foldEnv adapts a stabilized env plus the frontier assignment into a
// formula.PartialEnv: relations settled by the auxiliary-free equations
// and already-assigned variables are known, everything else is not.
type foldEnv struct {
	base  *env
	known map[string]bool
	vars  map[string]int
}

func (f *foldEnv) RelValue(rel *formula.Relation, t1, t2 formula.Tx) (bool, bool) {
	if f.base == nil || !f.known[rel.Name] {
		return false, false
	}
	return f.base.Rel(rel, t1, t2), true
}

func (f *foldEnv) VarValue(name string) (int, bool) {
	v, ok := f.vars[name]
	return v, ok
}

func (f *foldEnv) FuncValue(*formula.IntFunc, []formula.Tx) (int, bool) {
	return 0, false
}
