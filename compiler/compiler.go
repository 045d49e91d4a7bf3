// Package compiler transforms memplan model specifications into planned
// binary artifacts.
//
// The compilation pipeline:
//  1. Parse the .mps text spec into a model.Graph
//  2. Validate the graph and sort ops into dependency order
//  3. Run the static memory planning pass (liveness + packing + rewrite)
//  4. Emit the .mpl binary artifact, optionally zstd-compressed
//
// Planning is an ordinary compilation pass: with StrategyNone configured
// the artifact is written unplanned and every tensor allocates at run
// time. Any other strategy rewrites the graph so a single arena backs
// every eligible tensor.
package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sbl8/memplan/liveness"
	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/plan"
)

// Options configures the compilation process.
type Options struct {
	Strategy plan.Strategy // memory planning strategy
	Compress bool          // zstd-compress the artifact
	SortOps  bool          // reorder ops into dependency order
	Validate bool          // check graph structure before planning
	Logger   *slog.Logger
}

// DefaultOptions provides sensible compilation defaults.
func DefaultOptions() Options {
	return Options{
		Strategy: plan.StrategyGreedyBySize,
		SortOps:  true,
		Validate: true,
	}
}

// Compile turns a .mps text spec into a planned binary .mpl artifact
// using default options.
func Compile(src, out string) error {
	return CompileWithOptions(src, out, DefaultOptions())
}

// CompileWithOptions runs the full pipeline with explicit options.
func CompileWithOptions(src, out string, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	spec, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	g, res, err := build(spec, opts)
	if err != nil {
		return err
	}

	if res.Planned() {
		opts.Logger.Info("memory plan applied",
			"source", src,
			"strategy", res.Strategy.String(),
			"planned_values", len(res.Regions),
			"arena_bytes", res.TotalSize)
	}

	if err := model.WriteFile(g, out, opts.Compress); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Parse builds a graph from spec source without planning it. Exposed for
// tooling that wants to inspect or plan the graph separately.
func Parse(spec []byte) (*model.Graph, error) {
	return parseSpec(spec)
}

// build runs parse, validate, sort, and the planning pass.
func build(spec []byte, opts Options) (*model.Graph, *plan.Result, error) {
	g, err := parseSpec(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("parse error: %w", err)
	}

	if opts.Validate {
		if err := g.Validate(); err != nil {
			return nil, nil, fmt.Errorf("validation error: %w", err)
		}
	}
	if opts.SortOps {
		if err := g.SortOps(); err != nil {
			return nil, nil, fmt.Errorf("sort error: %w", err)
		}
	}

	res, err := plan.PlanMemory(g, liveness.Analyze(g), plan.Options{
		Strategy: opts.Strategy,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("planning error: %w", err)
	}
	if err := res.Apply(g); err != nil {
		return nil, nil, fmt.Errorf("plan application error: %w", err)
	}

	return g, res, nil
}

// BuildGraph parses and plans a spec in memory, returning both the
// rewritten graph and the plan. Used by the CLI's plan inspection command.
func BuildGraph(spec []byte, opts Options) (*model.Graph, *plan.Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return build(spec, opts)
}
