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

// Command isopredict wires the log-format parser, the predictive encoder,
// and the report/visualize writers into one invocation over a single
// transactional log file. A CLI framework is explicitly out of scope
// (spec.md Non-goals), so this stays on the standard flag package, the same
// way the rest of the module leans on real libraries only where the domain
// actually needs one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spf13/afero"

	"github.com/isopredict/isopredict/internal/analysis"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/isolation"
	"github.com/isopredict/isopredict/internal/logformat"
	"github.com/isopredict/isopredict/internal/oracle"
	"github.com/isopredict/isopredict/internal/report"
	"github.com/isopredict/isopredict/internal/symctx"
	"github.com/isopredict/isopredict/internal/verify"
	"github.com/isopredict/isopredict/internal/visualize"
)

func main() {
	var (
		logPath    = flag.String("log", "", "path to the transactional log file to analyze")
		level      = flag.String("isolation", "causal", "weak isolation level to predict against: causal | read-committed")
		boundary   = flag.String("boundary", "strict", "per-session truncation boundary strategy: strict | relaxed")
		form       = flag.String("form", "full", "C6 unserializability encoding: full | express")
		doVerify   = flag.Bool("verify", false, "check the log's observed execution directly, instead of predicting an extension of it")
		outDir     = flag.String("out", ".", "directory to write the predicted history and debug artifacts into")
		debug      = flag.Bool("debug", false, "dump the raw constraint bag and model alongside the predicted history")
		visualFlag = flag.Bool("visualize", false, "also emit the serialization graph as DOT text")
		timeout    = flag.Duration("timeout", analysis.DefaultPredictTimeout, "oracle timeout")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	sugar := logger.Sugar()

	if *logPath == "" {
		sugar.Fatal("missing required -log flag")
	}

	cfg := analysis.Default()
	var err error
	cfg.IsolationLevel, err = parseLevel(*level)
	if err != nil {
		sugar.Fatalw("invalid -isolation", "error", err)
	}
	cfg.BoundaryStrategy, err = parseStrategy(*boundary)
	if err != nil {
		sugar.Fatalw("invalid -boundary", "error", err)
	}
	cfg.UnserialForm, err = parseForm(*form)
	if err != nil {
		sugar.Fatalw("invalid -form", "error", err)
	}
	cfg.Debug = *debug
	cfg.Visualize = *visualFlag

	f, err := os.Open(*logPath)
	if err != nil {
		sugar.Fatalw("opening log file", "path", *logPath, "error", err)
	}
	defer f.Close()

	builder := historystore.NewBuilder()
	if err := logformat.Parse(f, builder); err != nil {
		sugar.Fatalw("parsing log", "error", err)
	}
	store, err := builder.Build()
	if err != nil {
		sugar.Fatalw("building history", "error", err)
	}

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(*outDir, 0o755); err != nil {
		sugar.Fatalw("creating output directory", "path", *outDir, "error", err)
	}

	stats := store.Stats()
	report.WriteStats(os.Stdout, stats)

	if *doVerify {
		v := verify.New(logger, oracle.New(), cfg.IsolationLevel)
		res, err := v.Check(context.Background(), store, analysis.DefaultVerifyTimeout)
		if err != nil {
			sugar.Fatalw("verifying observed execution", "error", err)
		}
		fmt.Printf("observed execution: isolation holds = %s, serializable = %s\n", res.IsolationHolds, res.Serializable)
		return
	}

	a := analysis.New(logger, oracle.New(), cfg)
	res, err := a.Predict(context.Background(), store, *timeout)
	if err != nil {
		sugar.Fatalw("predicting", "error", err)
	}
	fmt.Printf("predicted: %s\n", res.Outcome)

	if res.History == nil {
		return
	}

	report.WriteChangedReads(os.Stdout, res.Changed)

	historyPath := filepath.Join(*outDir, basenameWithoutExt(*logPath)+".predicted.log")
	if err := report.WritePredictedHistory(fs, historyPath, res.History); err != nil {
		sugar.Fatalw("writing predicted history", "error", err)
	}
	sugar.Infow("predicted history written", "path", historyPath)

	if cfg.Debug && res.Bag != nil {
		debugPath := filepath.Join(*outDir, basenameWithoutExt(*logPath)+".debug.zst")
		if err := report.DumpDebug(fs, debugPath, res.Bag, res.Model); err != nil {
			sugar.Fatalw("writing debug dump", "error", err)
		}
		sugar.Infow("debug dump written", "path", debugPath)
	}

	if cfg.Visualize && res.Model != nil {
		symCtx := symctx.New(store, cfg.BoundaryStrategy)
		g := visualize.Graph(symCtx, res.Model)
		dotPath := filepath.Join(*outDir, basenameWithoutExt(*logPath)+".dot")
		if err := afero.WriteFile(fs, dotPath, []byte(visualize.String(g)), 0o644); err != nil {
			sugar.Fatalw("writing serialization graph", "error", err)
		}
		sugar.Infow("serialization graph written", "path", dotPath)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func parseLevel(s string) (isolation.Level, error) {
	switch strings.ToLower(s) {
	case "causal", "causal-consistency":
		return isolation.CausalConsistency, nil
	case "read-committed", "readcommitted":
		return isolation.ReadCommitted, nil
	default:
		return 0, fmt.Errorf("unknown isolation level %q", s)
	}
}

func parseStrategy(s string) (symctx.Strategy, error) {
	switch strings.ToLower(s) {
	case "strict":
		return symctx.Strict, nil
	case "relaxed":
		return symctx.Relaxed, nil
	default:
		return 0, fmt.Errorf("unknown boundary strategy %q", s)
	}
}

func parseForm(s string) (analysis.UnserialForm, error) {
	switch strings.ToLower(s) {
	case "full":
		return analysis.Full, nil
	case "express":
		return analysis.Express, nil
	default:
		return 0, fmt.Errorf("unknown unserializability form %q", s)
	}
}

func basenameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
