// Package compositor resolves batches of rendered page buffers.
//
// A compositor takes already-decoded RGBA buffers — produced by either the
// fast-path extractor or CPU rasterization — and resolves them to their
// final size, applying the supersample antialiasing filter when requested.
// Two implementations exist: the always-available software resolver, and a
// wgpu compute backend (package compositor/wgpu) enabled by blank import.
//
// Both implementations use the same integer filter arithmetic, so resolved
// output is bit-identical regardless of which backend ran. Backends differ
// only in speed.
package compositor

import "errors"

// Errors shared by compositor implementations.
var (
	// ErrUnavailable means the backend cannot initialize on this machine
	// (no GPU, no driver). Callers fall back to software transparently.
	ErrUnavailable = errors.New("compositor: backend unavailable")

	// ErrBadFrame means a frame's buffer dimensions are inconsistent.
	ErrBadFrame = errors.New("compositor: inconsistent frame dimensions")
)

// Frame is one page buffer in a resolve batch. Src holds the rendered
// pixels (possibly supersampled), Dst receives the resolved output. Both
// are tightly packed RGBA, 4 bytes per pixel. The compositor writes Dst in
// place; buffer ownership stays with the caller throughout.
type Frame struct {
	Src                 []uint8
	SrcWidth, SrcHeight int

	Dst                 []uint8
	DstWidth, DstHeight int
}

// valid checks the frame's dimension and length invariants. Supersampled
// frames must be exactly 2x in each dimension; equal dimensions mean a
// plain copy.
func (f *Frame) valid() bool {
	if f.SrcWidth <= 0 || f.SrcHeight <= 0 || f.DstWidth <= 0 || f.DstHeight <= 0 {
		return false
	}
	if len(f.Src) != f.SrcWidth*f.SrcHeight*4 || len(f.Dst) != f.DstWidth*f.DstHeight*4 {
		return false
	}
	same := f.SrcWidth == f.DstWidth && f.SrcHeight == f.DstHeight
	doubled := f.SrcWidth == f.DstWidth*2 && f.SrcHeight == f.DstHeight*2
	return same || doubled
}

// BatchCompositor resolves batches of page buffers.
//
// The lifecycle is Init, any number of ResolveBatch calls, Close. Init may
// fail with ErrUnavailable (wrapped); the scheduler then swaps in the
// software implementation with identical output. Implementations need not
// be safe for concurrent ResolveBatch calls — the scheduler resolves one
// batch per render operation.
type BatchCompositor interface {
	// Name returns the backend identifier (e.g. "software", "wgpu").
	Name() string

	// Init acquires backend resources. Called once before the first batch.
	Init() error

	// ResolveBatch resolves every frame, preserving order. The whole batch
	// is processed in one submission on hardware backends; a failure
	// anywhere fails the batch (callers re-run it on software).
	ResolveBatch(frames []*Frame, antialias bool) error

	// Close releases backend resources.
	Close()
}
