package pagerender

// PageRange is a contiguous run of page indices, inclusive start and
// exclusive end. Ranges are always a subset of the pages that need
// rasterization.
type PageRange struct {
	Start, End int
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	return r.End - r.Start
}

// RenderTask assigns a group of page ranges to one worker slot.
// A task usually holds a single range; it holds several only when there are
// more contiguous runs than workers and neighboring runs were merged into
// one slot to minimize handoffs.
type RenderTask struct {
	Slot   int
	Ranges []PageRange
}

// pages returns the total page count across the task's ranges.
func (t RenderTask) pages() int {
	n := 0
	for _, r := range t.Ranges {
		n += r.Len()
	}
	return n
}

// contiguousRuns groups a sorted index list into maximal contiguous runs.
func contiguousRuns(indices []int) []PageRange {
	var runs []PageRange
	for _, idx := range indices {
		if n := len(runs); n > 0 && runs[n-1].End == idx {
			runs[n-1].End = idx + 1
			continue
		}
		runs = append(runs, PageRange{Start: idx, End: idx + 1})
	}
	return runs
}

// partitionPages turns the sorted NeedsRasterization index set into at most
// k render tasks, one per worker slot.
//
// Contiguous runs are the unit of assignment: adjacent pages tend to reuse
// the same fonts and shared resources, so keeping a run on one worker keeps
// its cache hits local. When there are more runs than slots, the smallest
// neighboring runs are grouped into one task first. When there are fewer,
// the largest runs are split into contiguous sub-runs so every slot has
// work. The union of all ranges is always exactly the input set, with no
// gaps and no overlaps.
func partitionPages(indices []int, k int) []RenderTask {
	if len(indices) == 0 || k <= 0 {
		return nil
	}
	if k > len(indices) {
		k = len(indices)
	}

	runs := contiguousRuns(indices)
	groups := make([][]PageRange, len(runs))
	for i, r := range runs {
		groups[i] = []PageRange{r}
	}

	for len(groups) > k {
		groups = mergeSmallestNeighbors(groups)
	}
	for len(groups) < k {
		grown := splitLargestGroup(groups)
		if grown == nil {
			break // nothing splittable left (all single-page ranges)
		}
		groups = grown
	}

	tasks := make([]RenderTask, len(groups))
	for slot, g := range groups {
		tasks[slot] = RenderTask{Slot: slot, Ranges: g}
	}
	return tasks
}

// mergeSmallestNeighbors joins the pair of neighboring groups with the
// smallest combined page count into one group.
func mergeSmallestNeighbors(groups [][]PageRange) [][]PageRange {
	best := 0
	bestSize := groupPages(groups[0]) + groupPages(groups[1])
	for i := 1; i < len(groups)-1; i++ {
		size := groupPages(groups[i]) + groupPages(groups[i+1])
		if size < bestSize {
			best = i
			bestSize = size
		}
	}

	combined := make([]PageRange, 0, len(groups[best])+len(groups[best+1]))
	combined = append(combined, groups[best]...)
	combined = append(combined, groups[best+1]...)

	merged := make([][]PageRange, 0, len(groups)-1)
	merged = append(merged, groups[:best]...)
	merged = append(merged, combined)
	merged = append(merged, groups[best+2:]...)
	return merged
}

// splitLargestGroup splits the largest single-range group into two
// contiguous halves. Returns nil if no group can be split further.
func splitLargestGroup(groups [][]PageRange) [][]PageRange {
	best := -1
	bestSize := 1
	for i, g := range groups {
		// Only single-range groups split cleanly into contiguous halves.
		if len(g) == 1 && g[0].Len() > bestSize {
			best = i
			bestSize = g[0].Len()
		}
	}
	if best < 0 {
		return nil
	}

	r := groups[best][0]
	mid := r.Start + r.Len()/2
	split := make([][]PageRange, 0, len(groups)+1)
	split = append(split, groups[:best]...)
	split = append(split, []PageRange{{Start: r.Start, End: mid}})
	split = append(split, []PageRange{{Start: mid, End: r.End}})
	split = append(split, groups[best+1:]...)
	return split
}

// groupPages returns the page count of one group.
func groupPages(g []PageRange) int {
	n := 0
	for _, r := range g {
		n += r.Len()
	}
	return n
}
