package pagerender

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestNewPixmap(t *testing.T) {
	p := NewPixmap(10, 5)
	if p.Width() != 10 || p.Height() != 5 {
		t.Errorf("dimensions = %dx%d, want 10x5", p.Width(), p.Height())
	}
	if len(p.Data()) != 10*5*4 {
		t.Errorf("len(Data()) = %d, want %d", len(p.Data()), 10*5*4)
	}
}

func TestPixmapSetGet(t *testing.T) {
	p := NewPixmap(4, 4)
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	p.SetRGBA(2, 1, c)
	if got := p.RGBAAt(2, 1); got != c {
		t.Errorf("RGBAAt(2, 1) = %v, want %v", got, c)
	}
	if got := p.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("untouched pixel = %v, want zero", got)
	}

	// Out of bounds is a silent no-op on write and zero on read.
	p.SetRGBA(-1, 0, c)
	p.SetRGBA(4, 4, c)
	if got := p.RGBAAt(99, 99); got != (color.RGBA{}) {
		t.Errorf("out-of-bounds read = %v, want zero", got)
	}
}

func TestPixmapFill(t *testing.T) {
	p := NewPixmap(3, 3)
	c := color.RGBA{R: 1, G: 2, B: 3, A: 4}
	p.Fill(c)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if got := p.RGBAAt(x, y); got != c {
				t.Fatalf("pixel (%d, %d) = %v after Fill", x, y, got)
			}
		}
	}
}

func TestPixmapHash(t *testing.T) {
	a := NewPixmap(8, 8)
	b := NewPixmap(8, 8)
	if a.Hash() != b.Hash() {
		t.Error("identical pixmaps hash differently")
	}
	b.SetRGBA(3, 3, color.RGBA{R: 1})
	if a.Hash() == b.Hash() {
		t.Error("one-pixel difference not reflected in hash")
	}
}

func TestPixmapImageRoundTrip(t *testing.T) {
	p := NewPixmap(5, 3)
	p.SetRGBA(1, 2, color.RGBA{R: 100, G: 150, B: 200, A: 255})

	img := p.ToImage()
	if img.Bounds() != image.Rect(0, 0, 5, 3) {
		t.Fatalf("ToImage bounds = %v", img.Bounds())
	}

	back := FromImage(img)
	if back.Hash() != p.Hash() {
		t.Error("ToImage/FromImage round trip changed pixels")
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	// A sub-image whose bounds don't start at the origin must still map
	// its top-left pixel to (0, 0).
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	src.SetNRGBA(10, 10, color.NRGBA{R: 42, A: 255})

	p := FromImage(src)
	if p.Width() != 4 || p.Height() != 2 {
		t.Fatalf("dimensions = %dx%d, want 4x2", p.Width(), p.Height())
	}
	if got := p.RGBAAt(0, 0); got.R != 42 {
		t.Errorf("pixel (0, 0) = %v, want R=42", got)
	}
}

func TestPixmapSavePNG(t *testing.T) {
	p := NewPixmap(4, 4)
	p.Fill(color.RGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "out.png")
	if err := p.SavePNG(path); err != nil {
		t.Fatalf("SavePNG() = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("saved file missing or empty: %v", err)
	}
}
