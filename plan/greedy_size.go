package plan

import (
	"sort"

	"github.com/sbl8/memplan/model"
)

// greedyBySize packs managed values in descending size order. Placing the
// large residents first keeps them from fragmenting the arena; ties keep
// discovery order so the result is reproducible.
//
// Each value takes the lowest offset at which its byte range clears every
// already-placed region whose owner is alive at the same time. Values with
// disjoint lifetimes may share bytes freely; when no gap fits, the value
// lands past the current high-water mark.
func greedyBySize(m *Managed) map[model.ValueID]Region {
	order := append([]model.ValueID(nil), m.Values...)
	sort.SliceStable(order, func(i, j int) bool {
		return m.Sizes[order[i]] > m.Sizes[order[j]]
	})

	regions := make(map[model.ValueID]Region, len(order))
	placed := make([]placement, 0, len(order))

	for _, v := range order {
		rng := m.Ranges[v]
		reg := Region{Offset: firstFit(placed, rng, m.Sizes[v]), Size: m.Sizes[v]}
		placed = append(placed, placement{value: v, region: reg, rng: rng})
		regions[v] = reg
	}
	return regions
}

// firstFit returns the lowest offset at which a region of the given size
// avoids every placed region whose owner's live range overlaps rng.
func firstFit(placed []placement, rng LiveRange, size uint64) uint64 {
	conflicts := make([]Region, 0, len(placed))
	for i := range placed {
		if placed[i].rng.Overlaps(rng) {
			conflicts = append(conflicts, placed[i].region)
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Offset != conflicts[j].Offset {
			return conflicts[i].Offset < conflicts[j].Offset
		}
		return conflicts[i].Size < conflicts[j].Size
	})

	var offset uint64
	for _, c := range conflicts {
		if offset+size <= c.Offset {
			break
		}
		if c.End() > offset {
			offset = c.End()
		}
	}
	return offset
}
