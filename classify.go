package pagerender

// PageClass labels how a page will be produced.
type PageClass uint8

const (
	// ClassNeedsRaster sends the page through the general rasterizer.
	// This is the conservative default for anything ambiguous.
	ClassNeedsRaster PageClass = iota

	// ClassFastPath extracts and transcodes the page's single full-bleed
	// embedded image, skipping the rasterizer.
	ClassFastPath
)

// String returns the class name.
func (c PageClass) String() string {
	if c == ClassFastPath {
		return "fast-path"
	}
	return "raster"
}

// RenderPlan is the per-page classification for one render operation.
// It is computed once, before the parallel phase begins, and never mutated
// afterwards except to demote failed fast-path pages back to rasterization
// (which happens strictly before partitioning).
//
// The plan always has exactly one entry per requested page.
type RenderPlan struct {
	first   int
	classes []PageClass
}

// Class returns the classification of the given document page index.
func (p *RenderPlan) Class(index int) PageClass {
	return p.classes[index-p.first]
}

// FastPages returns the indices classified ClassFastPath, ascending.
func (p *RenderPlan) FastPages() []int {
	var pages []int
	for i, c := range p.classes {
		if c == ClassFastPath {
			pages = append(pages, p.first+i)
		}
	}
	return pages
}

// RasterPages returns the indices classified ClassNeedsRaster, ascending.
func (p *RenderPlan) RasterPages() []int {
	var pages []int
	for i, c := range p.classes {
		if c == ClassNeedsRaster {
			pages = append(pages, p.first+i)
		}
	}
	return pages
}

// demote reclassifies a fast-path page as needing rasterization. Used when
// extraction fails; the page costs one wasted attempt, never a hard failure.
func (p *RenderPlan) demote(index int) {
	p.classes[index-p.first] = ClassNeedsRaster
}

// classifyPages runs the single-threaded pre-scan over the loaded handles
// and produces the render plan. Handles that failed to load get the raster
// class; their load error is already recorded and the partitioner skips them.
func classifyPages(handles []*PageHandle, first int, fastPath bool) *RenderPlan {
	plan := &RenderPlan{
		first:   first,
		classes: make([]PageClass, len(handles)),
	}
	if !fastPath {
		return plan
	}
	for i, h := range handles {
		if h == nil {
			continue
		}
		if classifyPage(h) {
			plan.classes[i] = ClassFastPath
		}
	}
	return plan
}

// classifyPage reports whether a page is eligible for direct extraction.
//
// The rule: the entire visible content is one image mark whose footprint
// covers the full media box, placed under a pure quarter-turn rotation/scale.
// Text, vector marks, shading, nested groups, or a second image (compositing
// order would be ambiguous) all disqualify. The geometric test is a
// heuristic; a false negative only costs rasterization speed and a false
// "eligible" is caught later by extraction failure, so every uncertain case
// answers false.
func classifyPage(h *PageHandle) bool {
	content := h.content
	if content == nil || len(content.Marks) != 1 {
		return false
	}
	mark := content.Marks[0]
	if mark.Kind != MarkImage || mark.Image == nil {
		return false
	}
	if mark.Image.Width <= 0 || mark.Image.Height <= 0 || len(mark.Image.Data) == 0 {
		return false
	}
	if _, ok := mark.CTM.QuarterTurns(); !ok {
		return false
	}
	box := h.mediaBox
	if box.Empty() {
		return false
	}
	// Full bleed: the image footprint must cover the whole visible area.
	return mark.CTM.TransformBounds().Contains(box)
}
