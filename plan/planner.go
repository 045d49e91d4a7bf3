package plan

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
)

// Options configures a planning run.
type Options struct {
	Strategy Strategy
	Eligible EligibilityFn // defaults to the kernel catalog's predicate
	Logger   *slog.Logger  // defaults to a discard logger
}

// DefaultOptions returns the planner defaults: greedy-by-size packing with
// eligibility from the kernel catalog.
func DefaultOptions() Options {
	return Options{
		Strategy: StrategyGreedyBySize,
		Eligible: kernels.HasOutVariant,
	}
}

// Result is a finalized plan: the immutable value-to-region mapping, the
// implied arena size, and the managed set it was computed from. ID tags
// the run for diagnostics only; the plan content is fully determined by
// the inputs.
type Result struct {
	ID        uuid.UUID
	Strategy  Strategy
	Regions   map[model.ValueID]Region
	TotalSize uint64
	Managed   *Managed
}

// Planned reports whether the run produced any regions. A run under
// StrategyNone (or with nothing eligible) plans nothing.
func (r *Result) Planned() bool {
	return len(r.Regions) > 0
}

// Apply rewrites the graph to execute this plan. No-op when nothing was
// planned.
func (r *Result) Apply(g *model.Graph) error {
	return Apply(g, r.Regions, r.TotalSize)
}

// PlanMemory runs a complete planning pass: collect the managed set, pack
// it with the configured strategy, and return the finalized plan. The
// graph is not modified; call Result.Apply to rewrite it.
//
// The computation is single-threaded and deterministic: identical graphs
// and liveness produce identical region mappings.
func PlanMemory(g *model.Graph, lv LivenessInfo, opts Options) (*Result, error) {
	if opts.Eligible == nil {
		opts.Eligible = kernels.HasOutVariant
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := Collect(g, lv, opts.Eligible, opts.Logger)
	regions := Pack(opts.Strategy, g, m)

	res := &Result{
		ID:        uuid.New(),
		Strategy:  opts.Strategy,
		Regions:   regions,
		TotalSize: TotalSize(regions),
		Managed:   m,
	}

	opts.Logger.Debug("memory plan computed",
		"plan_id", res.ID.String(),
		"strategy", res.Strategy.String(),
		"managed_values", m.Len(),
		"planned_values", len(regions),
		"total_size", res.TotalSize)

	return res, nil
}
