package pagerender

import "time"

// Option configures a render operation.
// Options passed to [NewDocumentSession] become the session defaults;
// options passed to [DocumentSession.RenderPages] override them for that
// call only.
//
// Example:
//
//	// Session default: 4 workers.
//	s, _ := pagerender.NewDocumentSession(src, rnd, pagerender.WithWorkers(4))
//
//	// One high-quality call overriding the default.
//	rs, _ := s.RenderPages(ctx, 0, 10, pagerender.WithAntialiasing(true))
type Option func(*renderConfig)

// renderConfig holds the resolved settings of one render operation.
type renderConfig struct {
	workers     int
	scale       float64
	antialias   bool
	fastPath    bool
	pageTimeout time.Duration
	compositor  string
}

// defaultConfig returns the built-in defaults.
// Worker count 0 means "decide at render time" (GOMAXPROCS).
func defaultConfig() renderConfig {
	return renderConfig{
		workers:     0,
		scale:       1.0,
		antialias:   false,
		fastPath:    true,
		pageTimeout: 30 * time.Second,
		compositor:  "",
	}
}

// WithWorkers sets the worker count K for the parallel rasterization phase.
// K is fixed for the whole operation and never resized mid-run. Values <= 0
// select GOMAXPROCS. The fast-path extractor is exempt from K.
func WithWorkers(k int) Option {
	return func(c *renderConfig) {
		c.workers = k
	}
}

// WithScale sets the page-unit to pixel scale factor. Default 1.0.
func WithScale(scale float64) Option {
	return func(c *renderConfig) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithAntialiasing enables supersampled antialiasing: pages are rendered at
// twice the target scale and the compositor resolves them back down. Output
// is bit-identical whether the resolve runs in software or on the GPU.
func WithAntialiasing(enabled bool) Option {
	return func(c *renderConfig) {
		c.antialias = enabled
	}
}

// WithFastPath controls the extraction shortcut for full-bleed single-image
// pages. Enabled by default; disabling it forces every page through the
// rasterizer, which is mainly useful for verifying fast-path equivalence.
func WithFastPath(enabled bool) Option {
	return func(c *renderConfig) {
		c.fastPath = enabled
	}
}

// WithPageTimeout bounds the wall-clock time one page may spend in the
// render capability. A page exceeding the budget is abandoned and the whole
// operation fails with [HangTimeoutError]. Zero or negative disables the
// watchdog.
func WithPageTimeout(d time.Duration) Option {
	return func(c *renderConfig) {
		c.pageTimeout = d
	}
}

// WithCompositor selects a registered compositor backend by name
// (e.g. "software", "wgpu"). The default picks the best available backend
// and falls back to software when GPU initialization fails.
func WithCompositor(name string) Option {
	return func(c *renderConfig) {
		c.compositor = name
	}
}
