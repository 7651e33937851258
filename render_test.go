package pagerender

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// fakePage is a minimal in-memory page.
type fakePage struct {
	box       Rect
	content   *PageContent
	resources []ResourceRef
}

func (p *fakePage) MediaBox() Rect           { return p.box }
func (p *fakePage) Content() *PageContent    { return p.content }
func (p *fakePage) Resources() []ResourceRef { return p.resources }

// fakeSource serves fakePages and can fail specific loads.
type fakeSource struct {
	pages   []*fakePage
	loadErr map[int]error
	loads   atomic.Int64
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (s *fakeSource) LoadPage(index int) (Page, error) {
	s.loads.Add(1)
	if err, ok := s.loadErr[index]; ok {
		return nil, err
	}
	return s.pages[index], nil
}

// vectorPage returns a page that always needs rasterization.
func vectorPage(w, h float64) *fakePage {
	return &fakePage{
		box: Rect{W: w, H: h},
		content: &PageContent{Marks: []Mark{
			{Kind: MarkPath},
			{Kind: MarkText},
		}},
	}
}

// rawImagePage returns a fast-path eligible page: one full-bleed raw RGBA
// image at identity placement, pixel dimensions equal to the media box.
func rawImagePage(w, h int, seed uint8) *fakePage {
	data := make([]byte, w*h*4)
	for i := range data {
		data[i] = uint8(i)*3 + seed
	}
	for i := 3; i < len(data); i += 4 {
		data[i] = 255
	}
	return &fakePage{
		box: Rect{W: float64(w), H: float64(h)},
		content: &PageContent{Marks: []Mark{{
			Kind: MarkImage,
			CTM:  Scale(float64(w), float64(h)),
			Image: &ImageStream{
				Width: w, Height: h, Codec: "raw", Data: data,
			},
		}}},
	}
}

// patternRenderer is a deterministic rasterizer: pixels depend only on the
// page index and the requested dimensions, never on timing or worker count.
type patternRenderer struct {
	calls   atomic.Int64
	failOn  int // page index to fail, -1 for none
	blockOn int // page index to hang on, -1 for none
}

func newPatternRenderer() *patternRenderer {
	return &patternRenderer{failOn: -1, blockOn: -1}
}

func (r *patternRenderer) RenderPage(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
	r.calls.Add(1)
	if h.Index() == r.failOn {
		return nil, fmt.Errorf("synthetic raster failure")
	}
	if h.Index() == r.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	pix := NewPixmap(params.Width, params.Height)
	data := pix.Data()
	base := uint8(h.Index() * 31)
	for i := range data {
		data[i] = base + uint8(i*7)
	}
	return pix, nil
}

// copyRenderer rasterizes a full-bleed raw image page by copying its bytes,
// producing exactly what the fast-path extractor produces at scale 1.
type copyRenderer struct{}

func (copyRenderer) RenderPage(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
	stream := h.Content().Marks[0].Image
	pix := NewPixmap(params.Width, params.Height)
	copy(pix.Data(), stream.Data)
	return pix, nil
}

func newTestSession(t *testing.T, src DocumentSource, r PageRenderer, opts ...Option) *DocumentSession {
	t.Helper()
	s, err := NewDocumentSession(src, r, opts...)
	if err != nil {
		t.Fatalf("NewDocumentSession() = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewDocumentSessionValidation(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{vectorPage(10, 10)}}
	r := newPatternRenderer()

	if _, err := NewDocumentSession(nil, r); !errors.Is(err, ErrNilSource) {
		t.Errorf("nil source: err = %v, want ErrNilSource", err)
	}
	if _, err := NewDocumentSession(src, nil); !errors.Is(err, ErrNilRenderer) {
		t.Errorf("nil renderer: err = %v, want ErrNilRenderer", err)
	}
	if _, err := NewDocumentSession(src, r); err != nil {
		t.Errorf("valid session: err = %v", err)
	}
}

func TestRenderPagesEmptyRange(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{vectorPage(10, 10), vectorPage(10, 10)}}
	r := newPatternRenderer()
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("RenderPages(1, 1) = %v", err)
	}
	if rs.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rs.Len())
	}
	if r.calls.Load() != 0 {
		t.Errorf("renderer called %d times for empty range", r.calls.Load())
	}
}

func TestRenderPagesZeroPageDocument(t *testing.T) {
	src := &fakeSource{}
	s := newTestSession(t, src, newPatternRenderer())

	rs, err := s.RenderPages(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("RenderPages on empty document = %v, want success", err)
	}
	if rs.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rs.Len())
	}
}

func TestRenderPagesInvalidRange(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{vectorPage(10, 10)}}
	s := newTestSession(t, src, newPatternRenderer())

	for _, tc := range []struct{ first, last int }{
		{-1, 1}, {0, 2}, {1, 0},
	} {
		if _, err := s.RenderPages(context.Background(), tc.first, tc.last); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("RenderPages(%d, %d) = %v, want ErrInvalidRange", tc.first, tc.last, err)
		}
	}
}

func TestRenderPagesClosedSession(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{vectorPage(10, 10)}}
	s := newTestSession(t, src, newPatternRenderer())
	s.Close()

	if _, err := s.RenderPages(context.Background(), 0, 1); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("RenderPages after Close = %v, want ErrSessionClosed", err)
	}
}

// renderHashes renders the full document with k workers and returns one
// pixel hash per page.
func renderHashes(t *testing.T, src *fakeSource, k int, opts ...Option) [][32]byte {
	t.Helper()
	s := newTestSession(t, src, newPatternRenderer())

	all := append([]Option{WithWorkers(k)}, opts...)
	rs, err := s.RenderPages(context.Background(), 0, src.PageCount(), all...)
	if err != nil {
		t.Fatalf("RenderPages(workers=%d) = %v", k, err)
	}

	hashes := make([][32]byte, 0, rs.Len())
	for _, out := range rs.Outcomes() {
		if out.Err != nil {
			t.Fatalf("page %d: %v", out.Index, out.Err)
		}
		hashes = append(hashes, out.Page.Pix.Hash())
	}
	return hashes
}

func TestRenderDeterministicAcrossWorkerCounts(t *testing.T) {
	makeDoc := func() *fakeSource {
		src := &fakeSource{}
		for i := 0; i < 12; i++ {
			if i%4 == 1 {
				src.pages = append(src.pages, rawImagePage(16, 12, uint8(i)))
			} else {
				src.pages = append(src.pages, vectorPage(20, 15))
			}
		}
		return src
	}

	for _, antialias := range []bool{false, true} {
		t.Run(fmt.Sprintf("antialias=%v", antialias), func(t *testing.T) {
			want := renderHashes(t, makeDoc(), 1, WithAntialiasing(antialias))
			for _, k := range []int{2, 4, 8} {
				got := renderHashes(t, makeDoc(), k, WithAntialiasing(antialias))
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("workers=%d: page %d hash differs from workers=1", k, i)
					}
				}
			}
		})
	}
}

func TestRenderAllFastPathSkipsRasterizer(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.pages = append(src.pages, rawImagePage(8, 8, uint8(i*17)))
	}
	r := newPatternRenderer()
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 0, 5, WithWorkers(4))
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}
	if r.calls.Load() != 0 {
		t.Errorf("renderer invoked %d times, want 0 (all pages fast-path)", r.calls.Load())
	}
	for _, out := range rs.Outcomes() {
		if out.Err != nil {
			t.Fatalf("page %d: %v", out.Index, out.Err)
		}
		if out.Page.Format != FormatExtracted {
			t.Errorf("page %d format = %v, want FormatExtracted", out.Index, out.Page.Format)
		}
	}
}

func TestRenderLoadErrorIsolated(t *testing.T) {
	src := &fakeSource{loadErr: map[int]error{3: errors.New("corrupt page dictionary")}}
	for i := 0; i < 10; i++ {
		src.pages = append(src.pages, vectorPage(10, 10))
	}
	s := newTestSession(t, src, newPatternRenderer())

	rs, err := s.RenderPages(context.Background(), 0, 10, WithWorkers(4))
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}

	out, ok := rs.Outcome(3)
	if !ok {
		t.Fatal("Outcome(3) missing")
	}
	var loadErr *LoadError
	if !errors.As(out.Err, &loadErr) {
		t.Fatalf("page 3 err = %v, want *LoadError", out.Err)
	}
	if loadErr.Page != 3 {
		t.Errorf("LoadError.Page = %d, want 3", loadErr.Page)
	}

	if got := len(rs.Errs()); got != 1 {
		t.Errorf("Errs() count = %d, want 1", got)
	}
	for _, out := range rs.Outcomes() {
		if out.Index != 3 && out.Err != nil {
			t.Errorf("page %d unexpectedly failed: %v", out.Index, out.Err)
		}
	}
}

func TestRenderRasterizationErrorIsolated(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 6; i++ {
		src.pages = append(src.pages, vectorPage(10, 10))
	}
	r := newPatternRenderer()
	r.failOn = 2
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 0, 6, WithWorkers(3))
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}

	out, _ := rs.Outcome(2)
	var rasterErr *RasterizationError
	if !errors.As(out.Err, &rasterErr) {
		t.Fatalf("page 2 err = %v, want *RasterizationError", out.Err)
	}
	if got := len(rs.Errs()); got != 1 {
		t.Errorf("Errs() count = %d, want 1", got)
	}
}

func TestRenderHangTimeoutIsFatal(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 4; i++ {
		src.pages = append(src.pages, vectorPage(10, 10))
	}
	r := newPatternRenderer()
	r.blockOn = 1
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 0, 4,
		WithWorkers(2), WithPageTimeout(20*time.Millisecond))
	if rs != nil {
		t.Error("result set should be nil on fatal hang")
	}
	var hang *HangTimeoutError
	if !errors.As(err, &hang) {
		t.Fatalf("err = %v, want *HangTimeoutError", err)
	}
	if hang.Page != 1 {
		t.Errorf("HangTimeoutError.Page = %d, want 1", hang.Page)
	}
}

func TestRenderContextCancellation(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 4; i++ {
		src.pages = append(src.pages, vectorPage(10, 10))
	}
	r := newPatternRenderer()
	r.blockOn = 0
	s := newTestSession(t, src, r)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	rs, err := s.RenderPages(ctx, 0, 4, WithWorkers(2), WithPageTimeout(0))
	if rs != nil {
		t.Error("result set should be nil on cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderFastPathDisabled(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 3; i++ {
		src.pages = append(src.pages, rawImagePage(8, 8, uint8(i)))
	}
	r := newPatternRenderer()
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 0, 3, WithFastPath(false))
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}
	if r.calls.Load() != 3 {
		t.Errorf("renderer invoked %d times, want 3", r.calls.Load())
	}
	for _, out := range rs.Outcomes() {
		if out.Page.Format != FormatRaster {
			t.Errorf("page %d format = %v, want FormatRaster", out.Index, out.Page.Format)
		}
	}
}

func TestRenderFastPathDemotion(t *testing.T) {
	// Looks fast-path eligible but the stream bytes are truncated, so
	// extraction fails and the page falls back to rasterization.
	broken := rawImagePage(8, 8, 1)
	broken.content.Marks[0].Image.Data = broken.content.Marks[0].Image.Data[:10]

	src := &fakeSource{pages: []*fakePage{broken}}
	r := newPatternRenderer()
	s := newTestSession(t, src, r)

	rs, err := s.RenderPages(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}
	out, _ := rs.Outcome(0)
	if out.Err != nil {
		t.Fatalf("demoted page failed: %v", out.Err)
	}
	if out.Page.Format != FormatRaster {
		t.Errorf("format = %v, want FormatRaster after demotion", out.Page.Format)
	}
	if r.calls.Load() != 1 {
		t.Errorf("renderer invoked %d times, want 1", r.calls.Load())
	}
}

func TestRenderFastPathEquivalence(t *testing.T) {
	// With a renderer that rasterizes a full-bleed raw image exactly as
	// the extractor transcodes it, enabling the shortcut must not change
	// a single byte of output.
	makeDoc := func() *fakeSource {
		return &fakeSource{pages: []*fakePage{
			rawImagePage(16, 16, 5), rawImagePage(16, 16, 99),
		}}
	}

	run := func(fastPath bool) [][32]byte {
		s := newTestSession(t, makeDoc(), copyRenderer{})
		rs, err := s.RenderPages(context.Background(), 0, 2, WithFastPath(fastPath))
		if err != nil {
			t.Fatalf("RenderPages(fastPath=%v) = %v", fastPath, err)
		}
		var hashes [][32]byte
		for _, out := range rs.Outcomes() {
			if out.Err != nil {
				t.Fatalf("page %d: %v", out.Index, out.Err)
			}
			hashes = append(hashes, out.Page.Pix.Hash())
		}
		return hashes
	}

	fast := run(true)
	slow := run(false)
	for i := range fast {
		if fast[i] != slow[i] {
			t.Errorf("page %d: fast-path output differs from rasterized output", i)
		}
	}
}

func TestRenderCompositorFallback(t *testing.T) {
	// An unknown backend name must not fail the render; the scheduler
	// falls back and output matches the explicit software backend.
	makeDoc := func() *fakeSource {
		return &fakeSource{pages: []*fakePage{vectorPage(10, 10), vectorPage(10, 10)}}
	}

	want := renderHashes(t, makeDoc(), 2, WithAntialiasing(true), WithCompositor("software"))
	got := renderHashes(t, makeDoc(), 2, WithAntialiasing(true), WithCompositor("no-such-backend"))
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d: fallback backend output differs from software", i)
		}
	}
}

func TestRenderSubrange(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 10; i++ {
		src.pages = append(src.pages, vectorPage(10, 10))
	}
	s := newTestSession(t, src, newPatternRenderer())

	rs, err := s.RenderPages(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("RenderPages(3, 7) = %v", err)
	}
	if rs.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", rs.Len())
	}
	if _, ok := rs.Outcome(2); ok {
		t.Error("Outcome(2) should be out of range")
	}
	out, ok := rs.Outcome(5)
	if !ok || out.Index != 5 {
		t.Errorf("Outcome(5) = %+v, ok=%v", out, ok)
	}
}

func TestRenderAntialiasDimensions(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{vectorPage(21, 13)}}
	s := newTestSession(t, src, newPatternRenderer())

	rs, err := s.RenderPages(context.Background(), 0, 1,
		WithAntialiasing(true), WithScale(2.0))
	if err != nil {
		t.Fatalf("RenderPages() = %v", err)
	}
	out, _ := rs.Outcome(0)
	if out.Err != nil {
		t.Fatalf("page 0: %v", out.Err)
	}
	// Final dimensions come from the target scale, not the supersampled
	// render scale.
	if out.Page.Width != 42 || out.Page.Height != 26 {
		t.Errorf("dimensions = %dx%d, want 42x26", out.Page.Width, out.Page.Height)
	}
	if out.Page.Pix.Width() != 42 || out.Page.Pix.Height() != 26 {
		t.Errorf("pixmap = %dx%d, want 42x26", out.Page.Pix.Width(), out.Page.Pix.Height())
	}
}
