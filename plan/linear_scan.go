package plan

import (
	"sort"

	"github.com/sbl8/memplan/model"
)

// linearScan packs managed values in chronological order of live range
// start, the way linear-scan register allocation replays intervals.
//
// A free list of retired regions is kept sorted by offset. When a value's
// interval begins, every active region whose owner has fully ended is
// retired to the free list; the value then takes the smallest free region
// that fits (best-fit, leftover tracked as a new free entry) or grows the
// arena when none does.
func linearScan(m *Managed) map[model.ValueID]Region {
	order := append([]model.ValueID(nil), m.Values...)
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := m.Ranges[order[i]], m.Ranges[order[j]]
		if ri.Start != rj.Start {
			return ri.Start < rj.Start
		}
		return ri.End < rj.End
	})

	type activeEntry struct {
		end    int
		region Region
	}

	regions := make(map[model.ValueID]Region, len(order))
	active := make([]activeEntry, 0, len(order))
	var free []Region // disjoint, sorted by offset
	var highWater uint64

	for _, v := range order {
		rng := m.Ranges[v]
		size := m.Sizes[v]

		// Retire every region whose owner ended before this interval.
		keep := active[:0]
		for _, a := range active {
			if a.end < rng.Start {
				free = insertByOffset(free, a.region)
			} else {
				keep = append(keep, a)
			}
		}
		active = keep

		// Best fit: smallest sufficient free region, lowest offset on ties.
		best := -1
		for i, f := range free {
			if f.Size < size {
				continue
			}
			if best == -1 || f.Size < free[best].Size ||
				(f.Size == free[best].Size && f.Offset < free[best].Offset) {
				best = i
			}
		}

		var reg Region
		if best >= 0 {
			f := free[best]
			reg = Region{Offset: f.Offset, Size: size}
			if f.Size > size {
				// Leftover stays in place; free regions are disjoint, so the
				// shrunken entry is still sorted.
				free[best] = Region{Offset: f.Offset + size, Size: f.Size - size}
			} else {
				free = append(free[:best], free[best+1:]...)
			}
		} else {
			reg = Region{Offset: highWater, Size: size}
		}

		if reg.End() > highWater {
			highWater = reg.End()
		}
		active = append(active, activeEntry{end: rng.End, region: reg})
		regions[v] = reg
	}
	return regions
}

// insertByOffset inserts r into the offset-sorted free list.
func insertByOffset(free []Region, r Region) []Region {
	i := sort.Search(len(free), func(i int) bool {
		return free[i].Offset >= r.Offset
	})
	free = append(free, Region{})
	copy(free[i+1:], free[i:])
	free[i] = r
	return free
}
