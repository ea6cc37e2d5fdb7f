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

import (
	"fmt"
	"strings"

	"github.com/isopredict/isopredict/internal/formula"
)

// env is a mutable formula.Env/formula.Model: one trial assignment of the
// free IntVars (boundary, choice) plus whatever relation and function values
// have been derived for it so far. It has no notion of which bag produced
// it; BruteForce is the only thing that ever constructs or mutates one.
type env struct {
	vars  map[string]int
	rels  map[string]bool
	funcs map[string]int
}

func newEnv(vars map[string]int) *env {
	v := make(map[string]int, len(vars))
	for k, val := range vars {
		v[k] = val
	}
	return &env{vars: v, rels: make(map[string]bool), funcs: make(map[string]int)}
}

// clone copies e, including its derived relation and function values, so a
// permutation trial inside resolveTotalOrders can mutate a scratch copy
// without disturbing the caller's stabilized env.
func (e *env) clone() *env {
	c := &env{
		vars:  make(map[string]int, len(e.vars)),
		rels:  make(map[string]bool, len(e.rels)),
		funcs: make(map[string]int, len(e.funcs)),
	}
	for k, v := range e.vars {
		c.vars[k] = v
	}
	for k, v := range e.rels {
		c.rels[k] = v
	}
	for k, v := range e.funcs {
		c.funcs[k] = v
	}
	return c
}

func relKey(rel *formula.Relation, t1, t2 formula.Tx) string {
	return rel.Name + "\x00" + t1.String() + "\x00" + t2.String()
}

func funcKey(fn *formula.IntFunc, args []formula.Tx) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return fn.Name + "\x00" + strings.Join(parts, "\x00")
}

func (e *env) Rel(rel *formula.Relation, t1, t2 formula.Tx) bool {
	return e.rels[relKey(rel, t1, t2)]
}

func (e *env) setRel(rel *formula.Relation, t1, t2 formula.Tx, v bool) {
	e.rels[relKey(rel, t1, t2)] = v
}

func (e *env) Var(name string) int {
	v, ok := e.vars[name]
	if !ok {
		panic(fmt.Sprintf("oracle: no trial value bound for free variable %q", name))
	}
	return v
}

func (e *env) Func(fn *formula.IntFunc, args []formula.Tx) int {
	return e.funcs[funcKey(fn, args)]
}

func (e *env) setFunc(fn *formula.IntFunc, args []formula.Tx, v int) {
	e.funcs[funcKey(fn, args)] = v
}
