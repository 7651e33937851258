package pagerender

import (
	"math"
	"testing"
)

func TestMatrixIdentity(t *testing.T) {
	m := Identity()
	x, y := m.TransformPoint(3, 4)
	if x != 3 || y != 4 {
		t.Errorf("Identity().TransformPoint(3, 4) = (%v, %v)", x, y)
	}
}

func TestMatrixMultiply(t *testing.T) {
	// Translate then scale: point (1, 1) -> (1+2, 1+3) -> (6, 12).
	m := Scale(2, 3).Multiply(Translate(2, 3))
	x, y := m.TransformPoint(1, 1)
	if x != 6 || y != 12 {
		t.Errorf("TransformPoint(1, 1) = (%v, %v), want (6, 12)", x, y)
	}
}

func TestQuarterTurns(t *testing.T) {
	tests := []struct {
		name      string
		m         Matrix
		wantTurns int
		wantOK    bool
	}{
		{"identity", Identity(), 0, true},
		{"pure scale", Scale(100, 50), 0, true},
		{"scale with translate", Translate(10, 20).Multiply(Scale(5, 5)), 0, true},
		{"90 degrees", Rotate(math.Pi / 2), 1, true},
		{"180 degrees", Rotate(math.Pi), 2, true},
		{"270 degrees", Rotate(3 * math.Pi / 2), 3, true},
		{"90 degrees scaled", Rotate(math.Pi / 2).Multiply(Scale(8, 8)), 1, true},
		{"45 degrees", Rotate(math.Pi / 4), 0, false},
		{"small skew", Matrix{A: 1, B: 0.01, D: 0, E: 1}, 0, false},
		{"mirror x", Scale(-1, 1), 0, false},
		{"mirror y", Scale(1, -1), 0, false},
		{"zero", Matrix{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns, ok := tt.m.QuarterTurns()
			if ok != tt.wantOK || (ok && turns != tt.wantTurns) {
				t.Errorf("QuarterTurns() = (%d, %v), want (%d, %v)",
					turns, ok, tt.wantTurns, tt.wantOK)
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 100, H: 100}

	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"identical", Rect{0, 0, 100, 100}, true},
		{"strictly inside", Rect{10, 10, 50, 50}, true},
		{"covers with float slack", Rect{-0.3, -0.3, 100.5, 100.5}, true},
		{"sticks out right", Rect{50, 0, 100, 100}, false},
		{"fully outside", Rect{200, 200, 10, 10}, false},
		{"larger than r", Rect{-10, -10, 120, 120}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.other); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
}

func TestTransformBounds(t *testing.T) {
	// Unit square scaled to 200x100: bounds are the full footprint.
	b := Scale(200, 100).TransformBounds()
	if b.X != 0 || b.Y != 0 || b.W != 200 || b.H != 100 {
		t.Errorf("Scale bounds = %+v", b)
	}

	// Quarter turn swings the square into negative x; width and height swap
	// roles but the area is preserved.
	b = Rotate(math.Pi / 2).Multiply(Scale(200, 100)).TransformBounds()
	if math.Abs(b.X-(-100)) > 1e-9 || math.Abs(b.W-100) > 1e-9 || math.Abs(b.H-200) > 1e-9 {
		t.Errorf("rotated bounds = %+v", b)
	}
}

func TestRectEmpty(t *testing.T) {
	if (Rect{W: 10, H: 10}).Empty() {
		t.Error("10x10 rect reported empty")
	}
	if !(Rect{W: 0, H: 10}).Empty() {
		t.Error("zero-width rect not reported empty")
	}
	if !(Rect{W: 10, H: -1}).Empty() {
		t.Error("negative-height rect not reported empty")
	}
}
