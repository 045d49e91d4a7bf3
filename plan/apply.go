package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sbl8/memplan/model"
)

// ErrPlanInvariant reports a plan that is internally inconsistent: a
// region falls outside the declared arena. This is a planner bug, not a
// user error, and no rewriting happens once it is detected.
var ErrPlanInvariant = errors.New("plan violates arena bounds")

// Apply rewrites the graph to execute the plan: it records the single
// arena directive and attaches to each planned value's producing op a
// binding carrying offset, size, extents, strides, device, and element
// type. The binding switches the op to its out-buffer variant.
//
// Every region is validated against totalSize before any mutation; on
// violation the graph is returned untouched. An empty plan is a no-op.
func Apply(g *model.Graph, regions map[model.ValueID]Region, totalSize uint64) error {
	if len(regions) == 0 {
		return nil
	}

	order := make([]model.ValueID, 0, len(regions))
	for v, r := range regions {
		if r.Offset+r.Size > totalSize {
			return fmt.Errorf("%w: value %d offset %d size %d exceeds total %d",
				ErrPlanInvariant, v, r.Offset, r.Size, totalSize)
		}
		if g.Value(v).Producer == model.NoOp {
			return fmt.Errorf("%w: value %d has no producing op", ErrPlanInvariant, v)
		}
		order = append(order, v)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	g.Arena = &model.ArenaDirective{TotalSize: totalSize, Device: g.Device}

	for _, v := range order {
		reg := regions[v]
		val := g.Value(v)
		op := g.Op(val.Producer)
		op.Bindings = append(op.Bindings, model.Binding{
			Value:   v,
			Offset:  reg.Offset,
			Size:    reg.Size,
			Extents: val.Extents,
			Strides: val.ConcreteStrides(),
			Device:  g.Device,
			DType:   val.DType,
		})
	}
	return nil
}
