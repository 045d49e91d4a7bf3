package plan

import (
	"log/slog"

	"github.com/sbl8/memplan/model"
)

// LivenessInfo is the planner's view of an external liveness analysis:
// per-value live intervals over the graph's op order, plus the set of
// values pinned alive for the whole program (inputs, outputs, weights).
type LivenessInfo interface {
	Range(model.ValueID) (LiveRange, bool)
	AlwaysAlive(model.ValueID) bool
}

// EligibilityFn reports whether an opcode's operation has an out-buffer
// variant. Supplied by the kernel registry.
type EligibilityFn func(kernel uint8) bool

// Managed is the planner's working set: the values that will receive
// arena regions, with their byte sizes and live intervals.
//
// Values preserves discovery order (the order outputs are encountered
// walking ops in program order); it is the stable secondary sort key every
// strategy uses to break ties, so plans are reproducible across runs.
type Managed struct {
	Values []model.ValueID
	Sizes  map[model.ValueID]uint64
	Ranges map[model.ValueID]LiveRange
	OutOps []model.OpID // ops whose kernels have out-buffer variants
}

// Len returns the number of managed values.
func (m *Managed) Len() int {
	return len(m.Values)
}

// Collect walks the graph in program order and filters every op output
// down to the managed set. A value is excluded (and keeps its own
// allocation) when its op has no out-buffer variant, when liveness pins it
// always-alive, or when its byte size cannot be computed from concrete
// extents and element type. Exclusions for incomplete inputs are logged at
// warning level; they cost reuse opportunity, never correctness.
func Collect(g *model.Graph, lv LivenessInfo, eligible EligibilityFn, logger *slog.Logger) *Managed {
	m := &Managed{
		Sizes:  make(map[model.ValueID]uint64),
		Ranges: make(map[model.ValueID]LiveRange),
	}

	for i := range g.Ops {
		op := &g.Ops[i]
		if !eligible(op.Kernel) {
			continue
		}
		m.OutOps = append(m.OutOps, op.ID)

		for _, out := range op.Outputs {
			if lv.AlwaysAlive(out) {
				continue
			}
			v := g.Value(out)
			size, ok := v.StorageSize()
			if !ok || size == 0 {
				logger.Warn("leaking value with unknown storage size",
					"value", v.Name, "dtype", v.DType.String())
				continue
			}
			rng, ok := lv.Range(out)
			if !ok {
				logger.Warn("leaking value with no live range", "value", v.Name)
				continue
			}
			m.Values = append(m.Values, out)
			m.Sizes[out] = size
			m.Ranges[out] = rng
		}
	}

	return m
}
