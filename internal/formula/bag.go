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

import "strings"

// Bag is the constraint bag the encoder builds incrementally: an implicitly
// conjoined set of top-level assertions, plus the finite domains of its free
// IntVars (boundary and choice), which the solver needs to search over but
// which the assertions alone don't bound tightly enough to enumerate.
type Bag struct {
	asserts []BoolExpr
	domains map[string][2]int
	order   []string // domain declaration order, for reproducible debug dumps
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{domains: make(map[string][2]int)}
}

// Assert adds f to the bag.
func (b *Bag) Assert(f BoolExpr) {
	b.asserts = append(b.asserts, f)
}

// Declare records that the named IntVar ranges over [lo, hi] inclusive.
// Declaring the same variable twice overwrites the earlier bound.
func (b *Bag) Declare(v IntExpr, lo, hi int) {
	iv, ok := v.(intVar)
	if !ok {
		panic("formula: Declare called on a non-IntVar expression")
	}
	if _, exists := b.domains[iv.name]; !exists {
		b.order = append(b.order, iv.name)
	}
	b.domains[iv.name] = [2]int{lo, hi}
}

// Assertions returns a copy of the bag's top-level conjuncts.
func (b *Bag) Assertions() []BoolExpr {
	return append([]BoolExpr(nil), b.asserts...)
}

// Conjunction folds every assertion into one BoolExpr.
func (b *Bag) Conjunction() BoolExpr {
	return And(b.asserts...)
}

// Domain returns the declared [lo, hi] bound for the named IntVar and
// whether it was declared at all.
func (b *Bag) Domain(name string) (lo, hi int, ok bool) {
	d, exists := b.domains[name]
	return d[0], d[1], exists
}

// Domains returns the declared IntVar names in declaration order; Domain
// looks up each name's [lo, hi] bound.
func (b *Bag) Domains() []string {
	return append([]string(nil), b.order...)
}

// String renders the bag as one assertion per line, for debug dumps.
func (b *Bag) String() string {
	var sb strings.Builder
	for _, a := range b.asserts {
		sb.WriteString(a.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Len reports how many top-level assertions the bag holds.
func (b *Bag) Len() int { return len(b.asserts) }
