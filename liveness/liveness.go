// Package liveness computes live intervals for values of a memplan graph.
//
// The analysis is the planner's external collaborator: it assigns every
// produced value a closed interval over the graph's op order (production
// position through last-use position) and pins a set of values as always
// alive, never eligible for storage reuse. The planner consumes the
// result through the plan.LivenessInfo interface and performs no liveness
// reasoning of its own.
package liveness

import (
	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/plan"
)

// Info holds the analysis result for one graph.
type Info struct {
	ranges      map[model.ValueID]plan.LiveRange
	alwaysAlive map[model.ValueID]struct{}
}

var _ plan.LivenessInfo = (*Info)(nil)

// Analyze walks the graph once in program order. A produced value's range
// starts at its producer's position and ends at its last consumer's
// position (its own position when never consumed). Graph inputs, graph
// outputs, and values without a producer (weights, constants) are pinned
// always alive.
func Analyze(g *model.Graph) *Info {
	info := &Info{
		ranges:      make(map[model.ValueID]plan.LiveRange, len(g.Values)),
		alwaysAlive: make(map[model.ValueID]struct{}),
	}

	for pos := range g.Ops {
		op := &g.Ops[pos]
		for _, out := range op.Outputs {
			info.ranges[out] = plan.LiveRange{Start: pos, End: pos}
		}
		for _, in := range op.Inputs {
			if r, ok := info.ranges[in]; ok && pos > r.End {
				r.End = pos
				info.ranges[in] = r
			}
		}
	}

	for _, v := range g.Inputs {
		info.Pin(v)
	}
	for _, v := range g.Outputs {
		info.Pin(v)
	}
	for i := range g.Values {
		if g.Values[i].Producer == model.NoOp {
			info.Pin(g.Values[i].ID)
		}
	}

	return info
}

// Pin marks a value always alive, excluding it from planning.
func (i *Info) Pin(v model.ValueID) {
	i.alwaysAlive[v] = struct{}{}
}

// Range returns the value's live interval, if it has one.
func (i *Info) Range(v model.ValueID) (plan.LiveRange, bool) {
	r, ok := i.ranges[v]
	return r, ok
}

// AlwaysAlive reports whether the value is pinned for the whole program.
func (i *Info) AlwaysAlive(v model.ValueID) bool {
	_, ok := i.alwaysAlive[v]
	return ok
}
