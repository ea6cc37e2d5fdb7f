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

import (
	"context"
	"time"
)

// Result is the three-valued outcome of an Oracle.Check call, matching the
// decision procedure contract in spec.md §6.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model answers queries against one satisfying assignment of a Bag. It
// implements Env so relation/reconstruction code can evaluate arbitrary
// BoolExpr/IntExpr trees against it directly.
type Model interface {
	Env
}

// Oracle decides the satisfiability of a Bag. The production decision
// procedure (an external SMT solver) is out of scope per spec.md §1; Oracle
// is the seam a real binding would be wired in behind. internal/oracle
// ships a reference implementation, used by the tests and by
// cmd/isopredict.
type Oracle interface {
	Check(ctx context.Context, bag *Bag, timeout time.Duration) (Result, Model, error)
}
