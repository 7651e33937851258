package pagerender

import (
	"context"
	"errors"
	"time"
)

// renderWithWatchdog invokes the render capability for one page under a
// wall-clock budget.
//
// The render runs on its own goroutine while the watchdog waits. If the
// budget expires the unit is abandoned — the goroutine keeps running until
// the renderer notices the context cancellation, but nothing waits for it —
// and a HangTimeoutError is returned. This is the external bound on the
// known class of malformed input that drives content interpreters into
// unbounded work; such pages are never retried.
//
// A timeout of zero or less disables the watchdog.
func renderWithWatchdog(ctx context.Context, renderer PageRenderer, h *PageHandle, params RenderParams, timeout time.Duration) (*Pixmap, error) {
	if timeout <= 0 {
		return renderer.RenderPage(ctx, h, params)
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		pix *Pixmap
		err error
	}
	// Buffered so an abandoned unit can still deliver and be collected.
	done := make(chan result, 1)
	go func() {
		pix, err := renderer.RenderPage(rctx, h, params)
		done <- result{pix: pix, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			// The renderer noticed the budget expiring itself.
			return nil, &HangTimeoutError{Page: h.index, Timeout: timeout}
		}
		return r.pix, r.err
	case <-rctx.Done():
		if err := ctx.Err(); err != nil {
			// Whole-operation cancellation, not a stuck page.
			return nil, err
		}
		Logger().Warn("page exceeded rasterization budget, abandoning",
			"page", h.index, "timeout", timeout)
		return nil, &HangTimeoutError{Page: h.index, Timeout: timeout}
	}
}
