package pagerender

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-text/typesetting/font"

	"github.com/gogpu/pagerender/cache"
)

// resourceKey identifies a shared resource in the session cache.
type resourceKey struct {
	kind ResourceKind
	name string
}

// resourceKeyHasher hashes the name; the kind only disambiguates collisions
// inside a shard's map, so it doesn't need to feed the shard selection.
func resourceKeyHasher(k resourceKey) uint64 {
	return cache.StringHasher(k.name)
}

// DocumentSession owns one parsed document and its shared caches.
//
// A session is created once per input document and released with Close.
// Structural mutation — loading pages, first-time resource resolution —
// happens only inside the sequential pre-load phase of a render call, under
// the page-load lock. After pre-load, page handles and cached resources are
// read-only for the remainder of the operation, which is what lets the
// parallel phase run without any locking at all.
//
// Sessions are safe for concurrent use in the narrow sense that RenderPages
// calls are internally serialized where they must be (structural mutation);
// the intended usage is still one render operation at a time.
type DocumentSession struct {
	src      DocumentSource
	renderer PageRenderer
	defaults renderConfig

	// loadMu serializes LoadPage calls. The parser may mutate
	// document-wide state on any load, so two threads must never be in
	// LoadPage at once — even for distinct pages.
	loadMu sync.Mutex

	resources *cache.ShardedCache[resourceKey, any]
	fonts     *fontTable

	closed atomic.Bool
}

// NewDocumentSession creates a session for the given document source and
// render capability. Options become session defaults for RenderPages.
//
// Construction fails only when the collaborators are unusable; a document
// whose individual pages are broken still constructs fine and reports those
// pages as per-page errors at render time.
func NewDocumentSession(src DocumentSource, renderer PageRenderer, opts ...Option) (*DocumentSession, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if n := src.PageCount(); n < 0 {
		return nil, fmt.Errorf("pagerender: source reports %d pages", n)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &DocumentSession{
		src:       src,
		renderer:  renderer,
		defaults:  cfg,
		resources: cache.NewSharded[resourceKey, any](0, resourceKeyHasher),
		fonts:     newFontTable(),
	}, nil
}

// Close releases the session. Render calls after Close fail with
// ErrSessionClosed. Close does not touch the underlying source; its
// lifetime belongs to the caller.
func (s *DocumentSession) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.resources.Clear()
	}
}

// Resource returns a resolved shared resource by kind and name. During the
// parallel phase this is a read-only lookup; every resource a page listed
// was resolved during pre-load, so renderers never trigger lazy creation.
// Font resources are stored as *font.Font from go-text/typesetting.
func (s *DocumentSession) Resource(kind ResourceKind, name string) (any, bool) {
	return s.resources.Get(resourceKey{kind: kind, name: name})
}

// SubstituteFont returns the best cached substitute font for a BCP-47
// language tag, if any font was registered for a matching language.
func (s *DocumentSession) SubstituteFont(lang string) (*font.Font, bool) {
	return s.fonts.substitute(lang)
}

// CacheStats returns a snapshot of the shared resource cache counters.
func (s *DocumentSession) CacheStats() cache.Stats {
	return s.resources.Stats()
}

// PageHandle is an opaque reference to a structurally loaded page.
// Handles are created during pre-load, immutable afterwards, and owned by
// whichever worker renders them.
type PageHandle struct {
	index    int
	page     Page
	mediaBox Rect
	content  *PageContent
}

// Index returns the zero-based document page index.
func (h *PageHandle) Index() int { return h.index }

// MediaBox returns the page's visible area in page units.
func (h *PageHandle) MediaBox() Rect { return h.mediaBox }

// Content returns the page's content summary.
func (h *PageHandle) Content() *PageContent { return h.content }

// Page returns the underlying parser page, for renderer adapters that need
// direct access. Read-only after pre-load.
func (h *PageHandle) Page() Page { return h.page }

// pixelSize returns the page's device pixel dimensions at the given scale,
// never smaller than 1x1.
func (h *PageHandle) pixelSize(scale float64) (int, int) {
	w := int(math.Round(h.mediaBox.W * scale))
	h2 := int(math.Round(h.mediaBox.H * scale))
	if w < 1 {
		w = 1
	}
	if h2 < 1 {
		h2 = 1
	}
	return w, h2
}

// loadPage structurally loads one page under the page-load lock and wraps
// it in an immutable handle.
func (s *DocumentSession) loadPage(index int) (*PageHandle, error) {
	s.loadMu.Lock()
	page, err := s.src.LoadPage(index)
	s.loadMu.Unlock()
	if err != nil {
		return nil, &LoadError{Page: index, Err: err}
	}
	if page == nil {
		return nil, &LoadError{Page: index, Err: fmt.Errorf("source returned no page")}
	}
	return &PageHandle{
		index:    index,
		page:     page,
		mediaBox: page.MediaBox(),
		content:  page.Content(),
	}, nil
}

// warmResources resolves and caches every resource the page lists. It runs
// only on the pre-load goroutine; by the time workers start, the cache is
// fully populated and nothing is created lazily again.
//
// Resolution is deliberately iterative: each ref's fallback chain is walked
// first and resolved deepest-first, so a resource's dependencies are cached
// before the resource itself. Nothing resolves *through* the cache, which
// keeps cache locking flat — no re-entrant locks to hide future ordering
// mistakes.
func (s *DocumentSession) warmResources(h *PageHandle) {
	for _, ref := range h.page.Resources() {
		chain := make([]*ResourceRef, 0, 4)
		for r := &ref; r != nil; r = r.Fallback {
			chain = append(chain, r)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			s.resolveOne(chain[i])
		}
	}
}

// resolveOne materializes a single resource and caches it. Failures are
// logged and skipped: the renderer will use the fallback that resolved
// earlier in the chain, or its own built-in default.
func (s *DocumentSession) resolveOne(r *ResourceRef) {
	key := resourceKey{kind: r.Kind, name: r.Name}
	if _, ok := s.resources.Get(key); ok {
		return
	}

	switch r.Kind {
	case ResourceFont:
		fnt, err := parseFontProgram(r.Data)
		if err != nil {
			Logger().Warn("font resource failed to parse, relying on fallback",
				"name", r.Name, "err", err)
			return
		}
		s.resources.Set(key, fnt)
		s.fonts.add(r.Language, r.Name, fnt)
	default:
		if len(r.Data) == 0 {
			Logger().Warn("empty resource skipped", "name", r.Name)
			return
		}
		s.resources.Set(key, r.Data)
	}
}
