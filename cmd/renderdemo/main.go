// Command renderdemo renders a synthetic multi-page document with the
// pagerender scheduler and saves the pages as PNG files.
//
// The document mixes plain gradient pages (rasterized by a tiny built-in
// renderer) with full-bleed image pages that take the fast extraction path.
// Run with -v to watch the scheduler's phase logging.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/pagerender"
	_ "github.com/gogpu/pagerender/compositor/wgpu"
)

func main() {
	var (
		pages     = flag.Int("pages", 8, "number of pages to render")
		workers   = flag.Int("workers", 0, "worker count (0 = GOMAXPROCS)")
		scale     = flag.Float64("scale", 1.0, "page units to pixels")
		antialias = flag.Bool("aa", true, "supersampled antialiasing")
		outDir    = flag.String("out", ".", "output directory")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		pagerender.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	src := newDemoDocument(*pages)
	session, err := pagerender.NewDocumentSession(src, &gradientRenderer{},
		pagerender.WithWorkers(*workers),
		pagerender.WithScale(*scale),
		pagerender.WithAntialiasing(*antialias),
	)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	rs, err := session.RenderPages(context.Background(), 0, src.PageCount())
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	for _, out := range rs.Outcomes() {
		if out.Err != nil {
			log.Printf("page %d failed: %v", out.Index, out.Err)
			continue
		}
		name := filepath.Join(*outDir, fmt.Sprintf("page-%03d.png", out.Index))
		if err := out.Page.Pix.SavePNG(name); err != nil {
			log.Fatalf("Failed to save %s: %v", name, err)
		}
		log.Printf("page %d -> %s (%dx%d, %s)", out.Index, name,
			out.Page.Width, out.Page.Height, out.Page.Format)
	}
}

// demoDocument is a synthetic document. Every third page is a full-bleed
// PNG page eligible for fast-path extraction; the rest are rasterized.
type demoDocument struct {
	pages []*demoPage
}

func newDemoDocument(n int) *demoDocument {
	doc := &demoDocument{}
	for i := 0; i < n; i++ {
		p := &demoPage{box: pagerender.Rect{W: 320, H: 240}}
		if i%3 == 2 {
			p.content = fullBleedImage(320, 240, uint8(40*i))
		} else {
			p.content = &pagerender.PageContent{Marks: []pagerender.Mark{
				{Kind: pagerender.MarkPath},
			}}
		}
		doc.pages = append(doc.pages, p)
	}
	return doc
}

func (d *demoDocument) PageCount() int { return len(d.pages) }

func (d *demoDocument) LoadPage(index int) (pagerender.Page, error) {
	return d.pages[index], nil
}

type demoPage struct {
	box     pagerender.Rect
	content *pagerender.PageContent
}

func (p *demoPage) MediaBox() pagerender.Rect           { return p.box }
func (p *demoPage) Content() *pagerender.PageContent    { return p.content }
func (p *demoPage) Resources() []pagerender.ResourceRef { return nil }

// fullBleedImage builds a one-mark page whose single PNG image covers the
// whole media box at identity placement.
func fullBleedImage(w, h int, tint uint8) *pagerender.PageContent {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: tint, A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}

	ctm := pagerender.Scale(float64(w), float64(h))
	return &pagerender.PageContent{Marks: []pagerender.Mark{{
		Kind: pagerender.MarkImage,
		CTM:  ctm,
		Image: &pagerender.ImageStream{
			Width: w, Height: h, Codec: "png", Data: buf.Bytes(),
		},
	}}}
}

// gradientRenderer is a deterministic toy rasterizer: each page gets a
// diagonal gradient shifted by its index.
type gradientRenderer struct{}

func (r *gradientRenderer) RenderPage(ctx context.Context, h *pagerender.PageHandle, params pagerender.RenderParams) (*pagerender.Pixmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pix := pagerender.NewPixmap(params.Width, params.Height)
	shift := uint8(h.Index() * 24)
	for y := 0; y < params.Height; y++ {
		for x := 0; x < params.Width; x++ {
			pix.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/params.Width) + shift,
				G: uint8(y * 255 / params.Height),
				B: 200 - shift,
				A: 255,
			})
		}
	}
	return pix, nil
}
