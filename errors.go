package pagerender

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for whole-operation failures.
var (
	// ErrSessionClosed is returned when a render is attempted on a closed
	// session.
	ErrSessionClosed = errors.New("pagerender: session is closed")

	// ErrInvalidRange is returned when the requested page range is empty in
	// the wrong way: negative indices or last < first. A range that simply
	// selects zero pages is not an error.
	ErrInvalidRange = errors.New("pagerender: invalid page range")

	// ErrNilSource is returned by NewDocumentSession for a nil source.
	ErrNilSource = errors.New("pagerender: document source is nil")

	// ErrNilRenderer is returned by NewDocumentSession for a nil renderer.
	ErrNilRenderer = errors.New("pagerender: page renderer is nil")
)

// LoadError records a page that failed structural load during pre-load.
// It is attached to that page's outcome; sibling pages are unaffected.
type LoadError struct {
	Page int
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pagerender: page %d failed structural load: %v", e.Page, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RasterizationError records a page the render capability could not
// interpret. It is attached to that page's outcome; sibling pages are
// unaffected.
type RasterizationError struct {
	Page int
	Err  error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("pagerender: page %d failed rasterization: %v", e.Page, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// HangTimeoutError is fatal for the whole document: a page exceeded its
// rasterization time budget, which indicates the known class of malformed
// input that drives the content interpreter into unbounded work. The stuck
// unit is abandoned, never retried, and RenderPages surfaces this error to
// the caller instead of a result set.
type HangTimeoutError struct {
	Page    int
	Timeout time.Duration
}

func (e *HangTimeoutError) Error() string {
	return fmt.Sprintf("pagerender: page %d exceeded the %v rasterization budget", e.Page, e.Timeout)
}
