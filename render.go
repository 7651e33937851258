package pagerender

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/gogpu/pagerender/compositor"
)

// pendingPage is a page whose pixels exist but are not yet resolved to
// final dimensions. With antialiasing off the pixels are already final and
// the resolve step is a plain handoff.
type pendingPage struct {
	handle *PageHandle
	pix    *Pixmap
	width  int // final pixel width
	height int // final pixel height
	format FormatHint
}

// RenderPages renders the pages [first, last) and returns one outcome per
// page.
//
// The operation runs in two phases. Pre-load is sequential: every page in
// the range is structurally loaded under the page-load lock and its shared
// resources are resolved into the session cache. Rasterization is parallel:
// the pages are partitioned into contiguous ranges, one task per worker,
// and each worker renders its own pages against the now read-only session
// state. Because workers share nothing mutable, the output is byte
// identical for any worker count.
//
// Pages that fail individually (load errors, rasterization errors) are
// reported in the result set; the rest of the range still renders. Three
// things fail the whole operation instead: context cancellation, a page
// exceeding its rasterization budget (HangTimeoutError), and a compositor
// resolve failure. In those cases the result set is nil.
//
// An empty range (first == last) succeeds with an empty result set.
func (s *DocumentSession) RenderPages(ctx context.Context, first, last int, opts ...Option) (*ResultSet, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if first < 0 || last < first || last > s.src.PageCount() {
		return nil, fmt.Errorf("%w: [%d, %d) of %d pages", ErrInvalidRange, first, last, s.src.PageCount())
	}

	cfg := s.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	supersample := 1
	if cfg.antialias {
		supersample = 2
	}

	n := last - first
	results := newResultSet(first, n)
	if n == 0 {
		return results, nil
	}

	Logger().Debug("render operation starting",
		"first", first, "last", last, "workers", workers,
		"scale", cfg.scale, "antialias", cfg.antialias)

	// Phase 1: sequential pre-load. Every structural mutation of the
	// document and every cache write happens here, on this goroutine.
	handles := make([]*PageHandle, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := s.loadPage(first + i)
		if err != nil {
			Logger().Warn("page failed to load", "page", first+i, "err", err)
			results.put(PageOutcome{Index: first + i, Err: err})
			continue
		}
		s.warmResources(h)
		handles[i] = h
	}

	plan := classifyPages(handles, first, cfg.fastPath)

	// Fast-path extraction runs inline, before partitioning, so demoted
	// pages flow into the partitioner like any other raster page.
	pending := make([]*pendingPage, n)
	for _, idx := range plan.FastPages() {
		h := handles[idx-first]
		pix, err := extractFastPath(h, cfg.scale, supersample)
		if err != nil {
			Logger().Warn("fast-path extraction failed, demoting to rasterization",
				"page", idx, "err", err)
			plan.demote(idx)
			continue
		}
		w, ph := h.pixelSize(cfg.scale)
		pending[idx-first] = &pendingPage{
			handle: h, pix: pix, width: w, height: ph, format: FormatExtracted,
		}
	}

	// Phase 2: parallel rasterization over the remaining pages.
	var rasterIdx []int
	for _, idx := range plan.RasterPages() {
		if handles[idx-first] != nil {
			rasterIdx = append(rasterIdx, idx)
		}
	}
	tasks := partitionPages(rasterIdx, workers)

	pool := newWorkerPool(workers)
	err := pool.run(ctx, tasks, func(slot, page int) error {
		h := handles[page-first]
		w, ph := h.pixelSize(cfg.scale)
		params := RenderParams{
			Width:     w * supersample,
			Height:    ph * supersample,
			Scale:     cfg.scale * float64(supersample),
			Antialias: cfg.antialias,
		}
		pix, rerr := renderWithWatchdog(ctx, s.renderer, h, params, cfg.pageTimeout)
		if rerr != nil {
			var hang *HangTimeoutError
			if errors.As(rerr, &hang) {
				return hang
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results.put(PageOutcome{Index: page, Err: &RasterizationError{Page: page, Err: rerr}})
			return nil
		}
		if pix == nil || pix.Width() != params.Width || pix.Height() != params.Height {
			results.put(PageOutcome{Index: page, Err: &RasterizationError{
				Page: page,
				Err:  fmt.Errorf("renderer produced wrong dimensions, want %dx%d", params.Width, params.Height),
			}})
			return nil
		}
		pending[page-first] = &pendingPage{
			handle: h, pix: pix, width: w, height: ph, format: FormatRaster,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.resolvePending(pending, results, cfg, supersample); err != nil {
		return nil, err
	}

	stats := s.resources.Stats()
	Logger().Debug("render operation finished",
		"pages", n, "errors", len(results.Errs()),
		"cacheHits", stats.Hits, "cacheMisses", stats.Misses)
	return results, nil
}

// resolvePending turns supersampled buffers into final pixels and records
// the successful outcomes. With supersampling off there is nothing to
// resolve; pixels are handed over as-is.
func (s *DocumentSession) resolvePending(pending []*pendingPage, results *ResultSet, cfg renderConfig, supersample int) error {
	if supersample == 1 {
		for _, p := range pending {
			if p == nil {
				continue
			}
			results.put(PageOutcome{Index: p.handle.index, Page: &RenderedPage{
				Index: p.handle.index, Width: p.width, Height: p.height,
				Pix: p.pix, Format: p.format,
			}})
		}
		return nil
	}

	var (
		frames []*compositor.Frame
		owners []*pendingPage
		finals []*Pixmap
	)
	for _, p := range pending {
		if p == nil {
			continue
		}
		dst := NewPixmap(p.width, p.height)
		frames = append(frames, &compositor.Frame{
			Src: p.pix.Data(), SrcWidth: p.pix.Width(), SrcHeight: p.pix.Height(),
			Dst: dst.Data(), DstWidth: p.width, DstHeight: p.height,
		})
		owners = append(owners, p)
		finals = append(finals, dst)
	}
	if len(frames) == 0 {
		return nil
	}

	comp := s.selectCompositor(cfg)
	defer comp.Close()
	if err := comp.ResolveBatch(frames, true); err != nil {
		// A hardware backend can lose its device mid-run; the software
		// resolver produces the same bytes, so the operation survives.
		if comp.Name() != compositor.BackendSoftware && !errors.Is(err, compositor.ErrBadFrame) {
			Logger().Warn("compositor resolve failed, retrying in software",
				"backend", comp.Name(), "err", err)
			if err := compositor.NewSoftware().ResolveBatch(frames, true); err != nil {
				return fmt.Errorf("pagerender: resolve batch: %w", err)
			}
		} else {
			return fmt.Errorf("pagerender: resolve batch: %w", err)
		}
	}

	for i, p := range owners {
		results.put(PageOutcome{Index: p.handle.index, Page: &RenderedPage{
			Index: p.handle.index, Width: p.width, Height: p.height,
			Pix: finals[i], Format: p.format,
		}})
	}
	return nil
}

// selectCompositor picks and initializes the resolve backend for one
// operation. Backend failures never fail the render: anything that cannot
// initialize falls back to the software resolver, which is always available
// and produces identical bytes.
func (s *DocumentSession) selectCompositor(cfg renderConfig) compositor.BatchCompositor {
	var comp compositor.BatchCompositor
	if cfg.compositor != "" {
		comp = compositor.Get(cfg.compositor)
		if comp == nil {
			Logger().Warn("unknown compositor backend, using default", "name", cfg.compositor)
		}
	}
	if comp == nil {
		comp = compositor.Default()
	}
	if comp == nil {
		return compositor.NewSoftware()
	}
	if err := comp.Init(); err != nil {
		if !errors.Is(err, compositor.ErrUnavailable) {
			Logger().Warn("compositor backend failed to initialize",
				"backend", comp.Name(), "err", err)
		} else {
			Logger().Debug("compositor backend unavailable, using software",
				"backend", comp.Name())
		}
		comp.Close()
		return compositor.NewSoftware()
	}
	Logger().Debug("compositor backend selected", "backend", comp.Name())
	return comp
}
