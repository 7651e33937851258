package pagerender

// FormatHint describes where a page's pixels came from, so output encoders
// can pick a sympathetic file format (JPEG for photographic fast-path pages,
// PNG for synthetic rasterized ones). Purely advisory.
type FormatHint int

const (
	// FormatRaster marks pixels produced by the general rasterizer.
	FormatRaster FormatHint = iota

	// FormatExtracted marks pixels transcoded from an embedded raster
	// stream by the fast-path extractor.
	FormatExtracted
)

// String returns the hint name.
func (f FormatHint) String() string {
	switch f {
	case FormatRaster:
		return "raster"
	case FormatExtracted:
		return "extracted"
	default:
		return "unknown"
	}
}

// RenderedPage is the successful result for one page.
type RenderedPage struct {
	// Index is the zero-based page index within the document.
	Index int

	// Width and Height are the final pixel dimensions.
	Width, Height int

	// Pix holds the pixels. Ownership transfers to the caller.
	Pix *Pixmap

	// Format hints at the provenance of the pixels.
	Format FormatHint
}

// PageOutcome is the per-page result record: either a rendered page or the
// error that kept it from rendering. Exactly one of Page and Err is set.
type PageOutcome struct {
	Index int
	Page  *RenderedPage
	Err   error
}

// ResultSet collects one outcome per requested page, addressable by page
// index. Workers finish in arbitrary order but consumers never observe it:
// outcomes are stored in a slice positioned by index.
type ResultSet struct {
	first    int
	outcomes []PageOutcome
}

// newResultSet creates a result set covering pages [first, first+n).
// Each worker writes only the slots of its own pages, so the slice needs no
// locking during the parallel phase.
func newResultSet(first, n int) *ResultSet {
	rs := &ResultSet{
		first:    first,
		outcomes: make([]PageOutcome, n),
	}
	for i := range rs.outcomes {
		rs.outcomes[i].Index = first + i
	}
	return rs
}

// put records the outcome for a page index.
func (rs *ResultSet) put(out PageOutcome) {
	rs.outcomes[out.Index-rs.first] = out
}

// Len returns the number of requested pages.
func (rs *ResultSet) Len() int {
	return len(rs.outcomes)
}

// Outcome returns the outcome for the given document page index.
// The second return is false if the index is outside the rendered range.
func (rs *ResultSet) Outcome(index int) (PageOutcome, bool) {
	i := index - rs.first
	if i < 0 || i >= len(rs.outcomes) {
		return PageOutcome{}, false
	}
	return rs.outcomes[i], true
}

// Outcomes returns all outcomes in ascending page order.
func (rs *ResultSet) Outcomes() []PageOutcome {
	return rs.outcomes
}

// Errs returns the outcomes that carry a per-page error, in page order.
func (rs *ResultSet) Errs() []PageOutcome {
	var failed []PageOutcome
	for _, out := range rs.outcomes {
		if out.Err != nil {
			failed = append(failed, out)
		}
	}
	return failed
}
