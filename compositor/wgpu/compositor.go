//go:build !nogpu

package wgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/pagerender/compositor"
)

//go:embed shaders/resolve.wgsl
var resolveShaderWGSL string

// DeviceHandle is the host-application GPU handle the compositor can share
// a device with, in place of creating its own instance. It is an alias for
// gpucontext.DeviceProvider so hosts in the gogpu ecosystem plug in
// directly; the provider must additionally expose HAL types via
// HalDevice() any and HalQueue() any.
type DeviceHandle = gpucontext.DeviceProvider

// resolveParams is the per-frame uniform block.
// Must match Params in resolve.wgsl.
type resolveParams struct {
	SrcWidth  uint32
	SrcHeight uint32
	DstWidth  uint32
	DstHeight uint32
}

// Compositor is the hardware batch resolver. It encodes one compute pass
// per frame into a single command sequence, submits once, waits on one
// fence, and reads every result back — amortizing submission overhead over
// the batch instead of paying it per page.
type Compositor struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	gpuReady       bool
	externalDevice bool // true when sharing a host device (don't destroy on Close)
}

var _ compositor.BatchCompositor = (*Compositor)(nil)

// New creates an uninitialized wgpu compositor.
func New() *Compositor { return &Compositor{} }

// Name returns the backend identifier.
func (c *Compositor) Name() string { return compositor.BackendWGPU }

// Init discovers a GPU and builds the resolve pipeline. It returns an error
// wrapping compositor.ErrUnavailable when no usable device exists; callers
// fall back to the software backend.
func (c *Compositor) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gpuReady {
		return nil
	}
	if err := c.initGPU(); err != nil {
		return fmt.Errorf("%w: %w", compositor.ErrUnavailable, err)
	}
	return nil
}

// Close releases GPU resources. Shared devices are not destroyed.
func (c *Compositor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyPipeline()
	if !c.externalDevice {
		if c.device != nil {
			c.device.Destroy()
			c.device = nil
		}
		if c.instance != nil {
			c.instance.Destroy()
			c.instance = nil
		}
	} else {
		c.device = nil
		c.instance = nil
	}
	c.queue = nil
	c.gpuReady = false
	c.externalDevice = false
}

// SetDeviceProvider switches the compositor to a shared GPU device from a
// host application instead of creating its own instance.
func (c *Compositor) SetDeviceProvider(provider DeviceHandle) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.destroyPipeline()
	if !c.externalDevice && c.device != nil {
		c.device.Destroy()
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}

	c.device = device
	c.queue = queue
	c.externalDevice = true

	if err := c.createPipeline(); err != nil {
		c.gpuReady = false
		return fmt.Errorf("wgpu: create pipeline with shared device: %w", err)
	}
	c.gpuReady = true
	return nil
}

// ResolveBatch resolves every frame, preserving order. Passthrough frames
// (no antialiasing, or already at target size) are copied on the CPU; the
// supersampled frames are dispatched to the GPU as one batch.
func (c *Compositor) ResolveBatch(frames []*compositor.Frame, antialias bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gpuReady {
		return compositor.ErrUnavailable
	}

	var gpuFrames []*compositor.Frame
	for _, f := range frames {
		if !frameValid(f) {
			return compositor.ErrBadFrame
		}
		if !antialias || f.SrcWidth == f.DstWidth {
			copy(f.Dst, f.Src)
			continue
		}
		gpuFrames = append(gpuFrames, f)
	}
	if len(gpuFrames) == 0 {
		return nil
	}
	return c.dispatchBatch(gpuFrames)
}

// frameValid mirrors the dimension invariants of compositor.Frame.
func frameValid(f *compositor.Frame) bool {
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

// frameBuffers holds the per-frame GPU objects for one batch.
type frameBuffers struct {
	uniform hal.Buffer
	src     hal.Buffer
	dst     hal.Buffer
	staging hal.Buffer
	bind    hal.BindGroup
	dstSize uint64
}

// dispatchBatch uploads all frames, encodes one compute pass per frame in a
// single command encoder, submits once, waits on one fence, and reads all
// results back.
func (c *Compositor) dispatchBatch(frames []*compositor.Frame) error {
	bufs := make([]*frameBuffers, 0, len(frames))
	defer func() {
		for _, fb := range bufs {
			c.destroyFrameBuffers(fb)
		}
	}()

	for i, f := range frames {
		fb, err := c.createFrameBuffers(f)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		bufs = append(bufs, fb)
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "resolve_batch_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("resolve_batch"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	// One compute pass per frame; the storage barriers between passes cost
	// nothing here because the frames are independent.
	for i, fb := range bufs {
		f := frames[i]
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "resolve_pass"})
		pass.SetPipeline(c.pipeline)
		pass.SetBindGroup(0, fb.bind, nil)
		pass.Dispatch((uint32(f.DstWidth)+7)/8, (uint32(f.DstHeight)+7)/8, 1)
		pass.End()

		encoder.CopyBufferToBuffer(fb.dst, fb.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: fb.dstSize},
		})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := c.device.Wait(fence, 1, 10*time.Second)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	for i, fb := range bufs {
		readback := make([]byte, fb.dstSize)
		if err := c.queue.ReadBuffer(fb.staging, 0, readback); err != nil {
			return fmt.Errorf("readback frame %d: %w", i, err)
		}
		unpackPixels(readback, frames[i].Dst)
	}
	return nil
}

// createFrameBuffers allocates and uploads the GPU buffers for one frame.
func (c *Compositor) createFrameBuffers(f *compositor.Frame) (*frameBuffers, error) {
	fb := &frameBuffers{dstSize: uint64(len(f.Dst))}
	ok := false
	defer func() {
		if !ok {
			c.destroyFrameBuffers(fb)
		}
	}()

	params := resolveParams{
		SrcWidth:  uint32(f.SrcWidth),
		SrcHeight: uint32(f.SrcHeight),
		DstWidth:  uint32(f.DstWidth),
		DstHeight: uint32(f.DstHeight),
	}
	paramSize := uint64(unsafe.Sizeof(params))

	uniform, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "resolve_params", Size: paramSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	fb.uniform = uniform
	c.queue.WriteBuffer(uniform, 0, structToBytes(unsafe.Pointer(&params), unsafe.Sizeof(params))) //nolint:gosec // safe struct access

	src, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "resolve_src", Size: uint64(len(f.Src)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create src buffer: %w", err)
	}
	fb.src = src
	c.queue.WriteBuffer(src, 0, packPixels(f.Src))

	dst, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "resolve_dst", Size: fb.dstSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create dst buffer: %w", err)
	}
	fb.dst = dst

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "resolve_staging", Size: fb.dstSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	fb.staging = staging

	bind, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "resolve_bind", Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: paramSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.NativeHandle(), Offset: 0, Size: uint64(len(f.Src))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.NativeHandle(), Offset: 0, Size: fb.dstSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	fb.bind = bind

	ok = true
	return fb, nil
}

// destroyFrameBuffers releases one frame's GPU objects.
func (c *Compositor) destroyFrameBuffers(fb *frameBuffers) {
	if fb == nil {
		return
	}
	if fb.bind != nil {
		c.device.DestroyBindGroup(fb.bind)
	}
	if fb.staging != nil {
		c.device.DestroyBuffer(fb.staging)
	}
	if fb.dst != nil {
		c.device.DestroyBuffer(fb.dst)
	}
	if fb.src != nil {
		c.device.DestroyBuffer(fb.src)
	}
	if fb.uniform != nil {
		c.device.DestroyBuffer(fb.uniform)
	}
}

// initGPU creates the instance, picks an adapter, opens a device, and
// builds the resolve pipeline.
func (c *Compositor) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	c.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue

	if err := c.createPipeline(); err != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
		return fmt.Errorf("create pipeline: %w", err)
	}
	c.gpuReady = true
	return nil
}

// createPipeline compiles the resolve shader and builds the compute
// pipeline. WGSL is compiled to SPIR-V through naga up front so shader
// errors surface at Init rather than at first dispatch.
func (c *Compositor) createPipeline() error {
	spirvBytes, err := naga.Compile(resolveShaderWGSL)
	if err != nil {
		return fmt.Errorf("compile resolve shader: %w", err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}

	shader, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "resolve",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	c.shader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "resolve_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "resolve_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "resolve_pipeline", Layout: c.pipeLayout,
		Compute: hal.ComputeState{Module: c.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	c.pipeline = pipeline
	return nil
}

// destroyPipeline releases the pipeline objects.
func (c *Compositor) destroyPipeline() {
	if c.device == nil {
		return
	}
	if c.pipeline != nil {
		c.device.DestroyComputePipeline(c.pipeline)
		c.pipeline = nil
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		c.device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
	if c.shader != nil {
		c.device.DestroyShaderModule(c.shader)
		c.shader = nil
	}
}

func structToBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // safe struct serialization
}

// packPixels converts RGBA bytes to little-endian packed u32 samples for
// the storage buffer.
func packPixels(data []uint8) []byte {
	out := make([]byte, len(data))
	for i := 0; i+3 < len(data); i += 4 {
		packed := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
		binary.LittleEndian.PutUint32(out[i:], packed)
	}
	return out
}

// unpackPixels converts packed u32 samples back to RGBA bytes.
func unpackPixels(packed []byte, dst []uint8) {
	for i := 0; i+3 < len(dst) && i+3 < len(packed); i += 4 {
		val := binary.LittleEndian.Uint32(packed[i:])
		dst[i+0] = uint8(val & 0xFF)         //nolint:gosec // masked to 8 bits
		dst[i+1] = uint8((val >> 8) & 0xFF)  //nolint:gosec // masked to 8 bits
		dst[i+2] = uint8((val >> 16) & 0xFF) //nolint:gosec // masked to 8 bits
		dst[i+3] = uint8((val >> 24) & 0xFF) //nolint:gosec // masked to 8 bits
	}
}
