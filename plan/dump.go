package plan

import (
	"fmt"
	"io"
	"sort"

	"github.com/sbl8/memplan/model"
)

// Dump writes a human-readable listing of the plan: every managed value
// with its live interval and assigned region, ordered by ascending live
// range start. Intended for inspection only; nothing downstream consumes
// this output.
func (r *Result) Dump(w io.Writer, g *model.Graph) {
	fmt.Fprintf(w, "plan %s strategy=%s values=%d total=%d bytes\n",
		r.ID, r.Strategy, len(r.Regions), r.TotalSize)

	order := make([]model.ValueID, 0, len(r.Regions))
	for v := range r.Regions {
		order = append(order, v)
	}
	sort.Slice(order, func(i, j int) bool {
		ri, rj := r.Managed.Ranges[order[i]], r.Managed.Ranges[order[j]]
		if ri.Start != rj.Start {
			return ri.Start < rj.Start
		}
		if ri.End != rj.End {
			return ri.End < rj.End
		}
		return order[i] < order[j]
	})

	for _, v := range order {
		name := g.Value(v).Name
		if name == "" {
			name = fmt.Sprintf("%%%d", v)
		}
		fmt.Fprintf(w, "  %s: %s %s\n", name, r.Managed.Ranges[v], r.Regions[v])
	}
}
