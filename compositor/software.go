package compositor

// BackendSoftware is the identifier for the software backend.
const BackendSoftware = "software"

// Software is the CPU resolve implementation. It is always available and
// defines the reference output: hardware backends must match it byte for
// byte, which is why the filter below sticks to integer arithmetic.
type Software struct{}

// NewSoftware creates a software compositor.
func NewSoftware() *Software { return &Software{} }

// Name returns the backend identifier.
func (s *Software) Name() string { return BackendSoftware }

// Init is a no-op; the software backend has no resources to acquire.
func (s *Software) Init() error { return nil }

// Close is a no-op.
func (s *Software) Close() {}

// ResolveBatch resolves every frame in order on the CPU.
func (s *Software) ResolveBatch(frames []*Frame, antialias bool) error {
	for _, f := range frames {
		if !f.valid() {
			return ErrBadFrame
		}
		if !antialias || f.SrcWidth == f.DstWidth {
			copy(f.Dst, f.Src)
			continue
		}
		resolveBox2x(f)
	}
	return nil
}

// resolveBox2x downsamples a 2x supersampled buffer with a 2x2 box filter.
// Each output channel is the rounded average of the four source samples:
// (a+b+c+d+2)/4. The GPU resolve shader computes exactly this in u32
// arithmetic; change one and you must change the other.
func resolveBox2x(f *Frame) {
	srcStride := f.SrcWidth * 4
	for y := 0; y < f.DstHeight; y++ {
		row0 := (2 * y) * srcStride
		row1 := row0 + srcStride
		out := y * f.DstWidth * 4
		for x := 0; x < f.DstWidth; x++ {
			p00 := row0 + 8*x
			p01 := p00 + 4
			p10 := row1 + 8*x
			p11 := p10 + 4
			o := out + 4*x
			for c := 0; c < 4; c++ {
				sum := uint32(f.Src[p00+c]) + uint32(f.Src[p01+c]) +
					uint32(f.Src[p10+c]) + uint32(f.Src[p11+c])
				f.Dst[o+c] = uint8((sum + 2) / 4)
			}
		}
	}
}

func init() {
	Register(BackendSoftware, func() BatchCompositor { return NewSoftware() })
}
