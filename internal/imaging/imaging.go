// Package imaging decodes embedded raster streams and transcodes them to
// output-sized pixel buffers. It backs the fast-path extractor: the goal is
// pixel output equivalent to full rasterization of the same image, without
// going through the general content interpreter.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Decode decodes an embedded raster stream. Codec names follow the
// document-level stream dictionary: "jpeg", "png", "gif", "bmp", "tiff",
// or "raw" for unencoded 8-bit RGBA samples of the declared dimensions.
//
// Unsupported or corrupt streams return an error; the caller is expected to
// fall back to full rasterization rather than fail the page.
func Decode(codec string, data []byte, width, height int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("imaging: empty stream")
	}

	switch codec {
	case "jpeg":
		return jpeg.Decode(bytes.NewReader(data))
	case "png":
		return png.Decode(bytes.NewReader(data))
	case "gif":
		return gif.Decode(bytes.NewReader(data))
	case "bmp":
		return bmp.Decode(bytes.NewReader(data))
	case "tiff":
		return tiff.Decode(bytes.NewReader(data))
	case "raw":
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("imaging: raw stream with invalid dimensions %dx%d", width, height)
		}
		if want := width * height * 4; len(data) != want {
			return nil, fmt.Errorf("imaging: raw stream length %d, want %d", len(data), want)
		}
		return &image.NRGBA{
			Pix:    data,
			Stride: width * 4,
			Rect:   image.Rect(0, 0, width, height),
		}, nil
	default:
		return nil, fmt.Errorf("imaging: unsupported codec %q", codec)
	}
}

// Transcode produces a dstW x dstH NRGBA buffer from src, applying the
// given number of counter-clockwise quarter turns before scaling.
//
// Scaling uses the x/image approximate bilinear kernel, which is
// deterministic: the same source and dimensions always produce the same
// bytes, on every platform and at every worker count.
func Transcode(src image.Image, dstW, dstH, quarterTurns int) (*image.NRGBA, error) {
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("imaging: invalid target size %dx%d", dstW, dstH)
	}

	rotated := rotateQuarter(src, quarterTurns)
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	if rotated.Bounds().Dx() == dstW && rotated.Bounds().Dy() == dstH {
		draw.Draw(dst, dst.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return dst, nil
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), rotated, rotated.Bounds(), draw.Src, nil)
	return dst, nil
}

// rotateQuarter rotates an image by quarterTurns * 90 degrees counter-
// clockwise. Zero turns returns the source untouched.
func rotateQuarter(src image.Image, quarterTurns int) image.Image {
	turns := ((quarterTurns % 4) + 4) % 4
	if turns == 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.NRGBA
	if turns == 2 {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch turns {
			case 1: // 90 degrees CCW: (x, y) -> (y, w-1-x)
				dst.Set(y, w-1-x, c)
			case 2: // 180 degrees: (x, y) -> (w-1-x, h-1-y)
				dst.Set(w-1-x, h-1-y, c)
			case 3: // 270 degrees CCW: (x, y) -> (h-1-y, x)
				dst.Set(h-1-y, x, c)
			}
		}
	}
	return dst
}
