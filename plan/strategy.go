package plan

import (
	"github.com/sbl8/memplan/model"
)

// Strategy selects the packing algorithm.
type Strategy uint8

const (
	// StrategyNone performs no planning: the graph is left untouched and
	// every value keeps its own allocation.
	StrategyNone Strategy = iota
	// StrategyGreedyBySize packs largest values first, first-fit by offset
	// among time-conflicting neighbors.
	StrategyGreedyBySize
	// StrategyLinearScan replays values in chronological start order with
	// a best-fit free list, mirroring linear-scan register allocation.
	StrategyLinearScan
	// StrategyGreedyByBreadth walks ops in program order and prefers
	// reusing regions of inputs the op is retiring.
	StrategyGreedyByBreadth
)

func (s Strategy) String() string {
	switch s {
	case StrategyGreedyBySize:
		return "greedy-by-size"
	case StrategyLinearScan:
		return "linear-scan"
	case StrategyGreedyByBreadth:
		return "greedy-by-breadth"
	}
	return "none"
}

// ParseStrategy maps a selector string to a Strategy. Unknown selectors
// fall back to StrategyNone: the unplanned program is the safe default.
func ParseStrategy(s string) Strategy {
	switch s {
	case "greedy-by-size", "greedy_by_size":
		return StrategyGreedyBySize
	case "linear-scan", "linear_scan":
		return StrategyLinearScan
	case "greedy-by-breadth", "greedy_by_breadth":
		return StrategyGreedyByBreadth
	}
	return StrategyNone
}

// Pack runs the selected strategy over the managed set and returns the
// value-to-region plan. StrategyNone (and any unknown strategy) returns
// nil: nothing is planned. The graph is only consulted by
// greedy-by-breadth, which needs the op order.
func Pack(strat Strategy, g *model.Graph, m *Managed) map[model.ValueID]Region {
	switch strat {
	case StrategyGreedyBySize:
		return greedyBySize(m)
	case StrategyLinearScan:
		return linearScan(m)
	case StrategyGreedyByBreadth:
		return greedyByBreadth(g, m)
	}
	return nil
}

// placement pairs a placed region with its owner's live range for the
// admissibility test.
type placement struct {
	value  model.ValueID
	region Region
	rng    LiveRange
}

// admissible reports whether reg can be assigned to a value live over rng:
// no placed region with an overlapping live range may intersect it in
// byte range. The overlap test is the sole admissibility rule.
func admissible(placed []placement, rng LiveRange, reg Region) bool {
	for i := range placed {
		if placed[i].rng.Overlaps(rng) && placed[i].region.ByteOverlaps(reg) {
			return false
		}
	}
	return true
}
