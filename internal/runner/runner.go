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

// Package runner is the concurrent multi-history invocation the teacher's
// original_source counterpart, src/isopredict/benchmark.py, drove with a
// multiprocessing.Pool: one independent analysis per input history, run in
// parallel. CSV/LaTeX table writing (benchmark.py's own output format) is
// out of scope here; a caller wanting a report pipes each Outcome through
// internal/report itself.
package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/isopredict/isopredict/internal/analysis"
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
)

// Job is one named history to analyze. Name is carried through purely for
// Outcome.Name, e.g. the source log's file path.
type Job struct {
	Name  string
	Store *historystore.Store
}

// Outcome is one Job's result, or the error it failed with.
type Outcome struct {
	Name   string
	Result *analysis.Result
	Err    error
}

// OracleFactory returns a fresh formula.Oracle for one job. Jobs run
// concurrently, so a factory that shares mutable state across calls must
// synchronize it itself; internal/oracle's BruteForce holds no state and so
// the same value can safely be returned every time.
type OracleFactory func() formula.Oracle

// RunMany runs cfg's analysis against every job in jobs concurrently, one
// goroutine per job via errgroup, and returns one Outcome per job in the
// same order jobs was given — matching benchmark.py's run_benchmarks(mp=true)
// in spirit (independent per-file invocation) without its pooled-CSV output
// format. A job's error never aborts its siblings; each job's error is
// reported in its own Outcome instead of failing the whole call, since one
// malformed input shouldn't void a benchmark run's other results.
func RunMany(ctx context.Context, jobs []Job, cfg analysis.Config, newOracle OracleFactory, timeout time.Duration) []Outcome {
	out := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			a := analysis.New(nil, newOracle(), cfg)
			res, err := a.Predict(gctx, job.Store, timeout)
			out[i] = Outcome{Name: job.Name, Result: res, Err: err}
			return nil
		})
	}
	// g.Wait's error is always nil: every job reports its failure through its
	// own Outcome rather than aborting the group, so there is nothing for the
	// caller to check here beyond the slice itself.
	_ = g.Wait()
	return out
}
