package pagerender

import (
	"fmt"

	"github.com/gogpu/pagerender/internal/imaging"
)

// extractFastPath produces a page's pixels by decoding and transcoding its
// single full-bleed embedded image, bypassing the general rasterizer.
//
// The buffer is produced at the same (possibly supersampled) dimensions the
// rasterizer would have used, so downstream compositing treats both sources
// identically. Any failure here is not a page failure: the caller demotes
// the page to rasterization and the only cost is the wasted attempt.
//
// This path is exempt from the worker count K. It is codec- rather than
// CPU-bound and runs inline with the sequential phase, before partitioning,
// so that demoted pages land in the partitioner's input like any other.
func extractFastPath(h *PageHandle, scale float64, supersample int) (*Pixmap, error) {
	mark := h.content.Marks[0]
	stream := mark.Image

	turns, ok := mark.CTM.QuarterTurns()
	if !ok {
		return nil, fmt.Errorf("pagerender: transform not a quarter-turn rotation/scale")
	}

	img, err := imaging.Decode(stream.Codec, stream.Data, stream.Width, stream.Height)
	if err != nil {
		return nil, fmt.Errorf("pagerender: embedded stream decode: %w", err)
	}

	targetW, targetH := h.pixelSize(scale)
	nr, err := imaging.Transcode(img, targetW*supersample, targetH*supersample, turns)
	if err != nil {
		return nil, fmt.Errorf("pagerender: transcode: %w", err)
	}
	return FromImage(nr), nil
}
