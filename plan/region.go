// Package plan implements static memory planning for memplan graphs.
//
// Given the byte size and live interval of every eligible value in a
// program, the planner packs values into a single contiguous arena so that
// no two values alive at the same time share bytes, then rewrites the
// graph: one arena directive up front, and a binding on each planned
// value's producing op redirecting it to write into its assigned region.
//
// Three interchangeable packing strategies are provided (greedy-by-size,
// linear-scan, greedy-by-breadth) plus a pass-through mode that performs
// no rewriting. All strategies are deterministic: identical inputs produce
// identical plans.
//
// The planner does not compute liveness or decide which operations support
// out-buffer writes; both are supplied by collaborators (see LivenessInfo
// and the eligibility predicate passed to Collect).
package plan

import (
	"fmt"

	"github.com/sbl8/memplan/model"
)

// LiveRange is the closed interval of program positions during which a
// value must remain valid. Positions index the graph's op order.
type LiveRange struct {
	Start int
	End   int
}

// Overlaps reports whether two closed intervals intersect. A range ending
// at position K overlaps one starting at K: the value is still live as an
// input to the op at K.
func (r LiveRange) Overlaps(o LiveRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r LiveRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Region is a half-open byte range [Offset, Offset+Size) inside the arena.
type Region struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte past the region.
func (r Region) End() uint64 {
	return r.Offset + r.Size
}

// ByteOverlaps reports whether two byte ranges intersect.
func (r Region) ByteOverlaps(o Region) bool {
	return r.Offset < o.End() && o.Offset < r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("{off:%d size:%d}", r.Offset, r.Size)
}

// TotalSize returns the arena size implied by a plan: the maximum
// Offset+Size over all regions, 0 for an empty plan.
func TotalSize(regions map[model.ValueID]Region) uint64 {
	var total uint64
	for _, r := range regions {
		if end := r.End(); end > total {
			total = end
		}
	}
	return total
}
