package pagerender

import "context"

// DocumentSource is the page-load capability provided by a document parser.
//
// pagerender does not parse documents itself. A parser adapter implements
// DocumentSource and hands it to [NewDocumentSession]; the session then owns
// all access to it.
//
// Implementations do not need to be safe for concurrent use. The session
// serializes every LoadPage call under its page-load lock during the
// sequential pre-load phase, and never calls LoadPage after that phase.
type DocumentSource interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// LoadPage structurally loads the page at the given zero-based index.
	// Loading may mutate document-wide state (object tables, first-time
	// cache population inside the parser); the session guarantees calls are
	// serialized. A structurally broken page returns an error; the session
	// records it as a per-page LoadError without aborting the batch.
	LoadPage(index int) (Page, error)
}

// Page is a structurally loaded page as exposed by the parser.
//
// Pages are read-only once returned from LoadPage. The session wraps each
// page in a [PageHandle] during pre-load; workers only ever read.
type Page interface {
	// MediaBox returns the page's visible area in page units (points).
	MediaBox() Rect

	// Content returns a summary of the page's visible content, detailed
	// enough for fast-path classification. Must be cheap: the classifier
	// calls it exactly once per page.
	Content() *PageContent

	// Resources lists the shared resources (fonts, color profiles, decoded
	// assets) this page needs at render time. The session resolves and
	// caches every listed resource during pre-load so that nothing is
	// lazily created while workers run.
	Resources() []ResourceRef
}

// MarkKind identifies the kind of a visible content mark.
type MarkKind int

const (
	// MarkImage is a placed raster image.
	MarkImage MarkKind = iota

	// MarkText is drawn text.
	MarkText

	// MarkPath is vector geometry (fills and strokes).
	MarkPath

	// MarkShading is a gradient or shading fill.
	MarkShading

	// MarkGroup is a transparency group or nested form.
	MarkGroup
)

// String returns the mark kind name.
func (k MarkKind) String() string {
	switch k {
	case MarkImage:
		return "image"
	case MarkText:
		return "text"
	case MarkPath:
		return "path"
	case MarkShading:
		return "shading"
	case MarkGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Mark is one visible drawing operation on a page.
type Mark struct {
	Kind MarkKind

	// CTM places the mark on the page. For MarkImage it maps the unit
	// square to the image footprint in page space.
	CTM Matrix

	// Image is the embedded raster stream for MarkImage, nil otherwise.
	Image *ImageStream
}

// PageContent is the classification summary of a page's visible content.
// Computed once by the parser adapter, never mutated afterwards.
type PageContent struct {
	Marks []Mark
}

// ImageStream is an embedded raster stream as stored in the document,
// before any decoding.
type ImageStream struct {
	// Width and Height are the stored raster dimensions in samples.
	Width, Height int

	// Codec names the embedded encoding: "jpeg", "png", "gif", "bmp",
	// "tiff", or "raw" for unencoded 8-bit RGBA samples.
	Codec string

	// Data is the raw encoded stream.
	Data []byte
}

// ResourceKind identifies a class of shared render resource.
type ResourceKind int

const (
	// ResourceFont is an embedded font program (TTF/OTF bytes).
	ResourceFont ResourceKind = iota

	// ResourceColorProfile is an ICC profile or color space definition.
	ResourceColorProfile

	// ResourceRaw is any other opaque shared blob the renderer wants
	// pre-resolved (pattern cells, halftone definitions).
	ResourceRaw
)

// ResourceRef names a shared resource a page needs at render time.
//
// Fallback forms a chain: if the referenced resource cannot be used, the
// renderer falls back to the next one. The session resolves the chain
// depth-first so that every dependency is already cached before the entry
// that needs it — cache population never recurses through the cache.
type ResourceRef struct {
	Kind ResourceKind

	// Name identifies the resource within the document.
	Name string

	// Data is the raw resource payload.
	Data []byte

	// Language is a BCP-47 tag for font resources; it keys the session's
	// substitute-font table. Empty for non-font resources.
	Language string

	// Fallback is the substitute used when this resource fails to resolve.
	Fallback *ResourceRef
}

// RenderParams carries the per-page settings handed to the render capability.
type RenderParams struct {
	// Width and Height are the exact pixel dimensions the renderer must
	// produce. The scheduler derives them from the media box and scale;
	// renderers must not recompute them (rounding differences would break
	// the supersample/resolve size contract).
	Width, Height int

	// Scale converts page units to device pixels. When antialiasing is on
	// the scheduler doubles the caller-visible scale and the compositor
	// box-filters the result back down.
	Scale float64

	// Antialias is the caller's quality flag, forwarded for renderers that
	// hint their own internals with it. The supersample/resolve contract is
	// handled by the scheduler; renderers must not change geometry based on
	// this flag or determinism across compositor backends breaks.
	Antialias bool
}

// PageRenderer is the render capability: it interprets a loaded page's
// content into pixels.
//
// RenderPage must be safe to call from multiple goroutines at once for
// distinct handles. It must be deterministic: identical handle and params
// produce identical pixels. It must not create shared resources lazily; all
// resources listed by the page were resolved during pre-load and can be read
// through [DocumentSession.Resource] without locking.
//
// Some malformed documents are known to drive content interpreters into
// unbounded work. The context passed to RenderPage carries the page time
// budget; implementations should honor cancellation, but the scheduler
// bounds the wait externally either way.
type PageRenderer interface {
	RenderPage(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error)
}
