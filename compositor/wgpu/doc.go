//go:build !nogpu

// Package wgpu provides the hardware batch compositor using gogpu/wgpu
// compute shaders.
//
// Import this package to register the "wgpu" backend with the compositor
// registry:
//
//	import _ "github.com/gogpu/pagerender/compositor/wgpu"
//
// Registration is cheap and touches no GPU state; device discovery happens
// in Init, at the start of a render operation. If no Vulkan device is
// available Init fails and the scheduler silently resolves on the software
// backend instead, with bit-identical output.
package wgpu

import "github.com/gogpu/pagerender/compositor"

func init() {
	compositor.Register(compositor.BackendWGPU, func() compositor.BatchCompositor {
		return New()
	})
}
