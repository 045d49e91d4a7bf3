package plan

import (
	"sort"

	"github.com/sbl8/memplan/model"
)

// greedyByBreadth walks operations in program order. For each managed
// output it first tries the regions of inputs the op is retiring: values
// consumed here whose live range ends at or before this position. Operator
// fusion patterns usually retire an input right as they produce an output
// of similar size, so this local reuse often beats global size sorting on
// elementwise chains.
//
// A retiring input's region is only taken when the overlap test admits it
// against everything already placed; otherwise the value falls back to the
// greedy-by-size placement rule.
func greedyByBreadth(g *model.Graph, m *Managed) map[model.ValueID]Region {
	regions := make(map[model.ValueID]Region, m.Len())
	placed := make([]placement, 0, m.Len())

	for pos := range g.Ops {
		op := &g.Ops[pos]
		for _, out := range op.Outputs {
			size, ok := m.Sizes[out]
			if !ok {
				continue
			}
			rng := m.Ranges[out]

			cands := retiringInputs(op, pos, size, m, regions)

			var reg Region
			found := false
			for _, c := range cands {
				r := Region{Offset: c.Offset, Size: size}
				if admissible(placed, rng, r) {
					reg = r
					found = true
					break
				}
			}
			if !found {
				reg = Region{Offset: firstFit(placed, rng, size), Size: size}
			}

			placed = append(placed, placement{value: out, region: reg, rng: rng})
			regions[out] = reg
		}
	}
	return regions
}

// retiringInputs returns the regions of op inputs whose live range ends at
// or before pos and whose region can hold size bytes, smallest and lowest
// first so reuse wastes as little slack as possible.
func retiringInputs(op *model.Op, pos int, size uint64, m *Managed, regions map[model.ValueID]Region) []Region {
	var cands []Region
	seen := make(map[model.ValueID]bool, len(op.Inputs))
	for _, in := range op.Inputs {
		if seen[in] {
			continue
		}
		seen[in] = true
		reg, ok := regions[in]
		if !ok || reg.Size < size {
			continue
		}
		if m.Ranges[in].End > pos {
			continue
		}
		cands = append(cands, reg)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Size != cands[j].Size {
			return cands[i].Size < cands[j].Size
		}
		return cands[i].Offset < cands[j].Offset
	})
	return cands
}
