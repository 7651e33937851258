// Package pagerender schedules parallel rendering of multi-page documents.
//
// # Overview
//
// pagerender sits between a document parser and a page rasterizer, neither of
// which it implements itself. The parser is consumed through the
// [DocumentSource] capability, the rasterizer through [PageRenderer]. What
// pagerender adds is the scheduling layer: per-page classification between a
// cheap extraction shortcut and full rasterization, contiguous partitioning of
// the rasterization workload across a fixed set of workers, and optional batch
// compositing on a GPU backend with transparent software fallback.
//
// # Quick Start
//
//	src := myparser.Open("report.pdf")   // implements pagerender.DocumentSource
//	rnd := myraster.New()                // implements pagerender.PageRenderer
//
//	session, err := pagerender.NewDocumentSession(src, rnd)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	results, err := session.RenderPages(ctx, 0, src.PageCount(),
//	    pagerender.WithWorkers(4),
//	    pagerender.WithAntialiasing(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, out := range results.Outcomes() {
//	    if out.Err != nil {
//	        log.Printf("page %d: %v", out.Index, out.Err)
//	        continue
//	    }
//	    _ = out.Page.Pix.SavePNG(fmt.Sprintf("page-%03d.png", out.Index))
//	}
//
// # Two-Phase Execution
//
// A render call runs in two phases. The pre-load phase is strictly
// sequential: every requested page is structurally loaded under the session's
// page-load lock, and every shared resource (fonts, substitute tables, decoded
// assets) is resolved and cached. The parallel phase that follows touches no
// shared mutable state at all: workers read immutable [PageHandle] values and
// write into pixel buffers they own exclusively. This is what makes output
// byte-identical for any worker count.
//
// # Determinism
//
// For a given document and flags, RenderPages produces pixel-identical output
// regardless of worker count, and regardless of whether the compositor runs in
// software or on the GPU. Only wall-clock time differs.
//
// # GPU Compositing
//
// The compositor resolves (antialiases) batches of decoded page buffers. The
// software implementation is always available; the wgpu implementation is
// enabled with a blank import:
//
//	import _ "github.com/gogpu/pagerender/compositor/wgpu"
//
// If GPU initialization fails the scheduler logs a warning and falls back to
// software with identical output.
package pagerender
