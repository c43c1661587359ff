package transform

import (
	"testing"

	"github.com/thesyncim/tscalib/coeff"
)

// Scenario 1 (spec.md §8): identity affine.
func TestAffineIdentity(t *testing.T) {
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{0, 65536, 0, 0, 0, 65536}, Shift: -16}
	x, y := Affine(r, Bounds{XMax: 640, YMax: 480}, 100, 200)
	if x != 100 || y != 200 {
		t.Errorf("Affine(identity, 100,200) = (%d,%d), want (100,200)", x, y)
	}
}

// Scenario 3: clamp low.
func TestAffineClampLow(t *testing.T) {
	// a = [0, 65536, 0, 0, 0, 65536], input i=-5 -> x would be negative.
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{0, 65536, 0, 0, 0, 65536}, Shift: -16}
	x, y := Affine(r, Bounds{XMax: 640, YMax: 480}, -5, 10)
	if x != 0 || y != 10 {
		t.Errorf("Affine clamp-low = (%d,%d), want (0,10)", x, y)
	}
}

// Scenario 4: clamp high.
func TestAffineClampHigh(t *testing.T) {
	// Coefficients that yield (1000,1000) before clamping on a 640x480 screen.
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{0, 65536, 0, 0, 0, 65536}, Shift: -16}
	x, y := Affine(r, Bounds{XMax: 640, YMax: 480}, 1000, 1000)
	if x != 639 || y != 479 {
		t.Errorf("Affine clamp-high = (%d,%d), want (639,479)", x, y)
	}
}

func TestAffineLegacyUnclamped(t *testing.T) {
	// xmax/ymax both zero: legacy mode only clamps at 0, never at an
	// upper bound (spec.md §9 open question, kept as a selectable mode
	// even though §9 recommends always clamping when bounds are known).
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{0, 65536, 0, 0, 0, 65536}, Shift: -16}
	x, y := Affine(r, Bounds{}, 1000, 2000)
	if x != 1000 || y != 2000 {
		t.Errorf("Affine unclamped = (%d,%d), want (1000,2000)", x, y)
	}
	x, y = Affine(r, Bounds{}, -5, -9)
	if x != 0 || y != 0 {
		t.Errorf("Affine unclamped low = (%d,%d), want (0,0)", x, y)
	}
}

func TestPolynomialIdentityRoundTrip(t *testing.T) {
	r := coeff.IdentityPolynomial
	b := Bounds{XMax: 640, YMax: 480, IMax: 4096, JMax: 4096}
	for _, in := range []int{0, 100, 2048, 4095} {
		x, _ := Polynomial(r, b, in, in)
		want := in * b.XMax / b.IMax
		if abs(x-want) > 1 {
			t.Errorf("Polynomial identity i=%d -> x=%d, want ~%d", in, x, want)
		}
	}
}

func TestQuadrantSelectLeft(t *testing.T) {
	b := Bounds{XMax: 640, YMax: 480}
	if slot := selectQuadrant(0, 100, b); slot != coeff.Left {
		t.Errorf("selectQuadrant(cx=0) = %v, want Left", slot)
	}
}

func TestQuadrantSelectQuadrants(t *testing.T) {
	b := Bounds{XMax: 640, YMax: 480}
	tests := []struct {
		name     string
		cx, cy   int64
		wantSlot coeff.Slot
	}{
		// Each case is derived directly from spec.md §4.4's a/b/c
		// tie-break rule, not from geometric intuition about screen
		// quadrants (the rule's own TL-BR "diagonal" framing does not
		// correspond to a naive top/bottom split of the screen).
		{"b>=a, c>=a", 100, 400, coeff.Left},
		{"b>=a, c<a", 500, 400, coeff.Top},
		{"b<a, c>=a", 100, 50, coeff.Bottom},
		{"b<a, c<a", 600, 400, coeff.Right},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if slot := selectQuadrant(tt.cx, tt.cy, b); slot != tt.wantSlot {
				t.Errorf("selectQuadrant(%d,%d) = %v, want %v", tt.cx, tt.cy, slot, tt.wantSlot)
			}
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
