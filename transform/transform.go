// Package transform is the apply-path hot loop: given a raw sample and a
// fitted coeff.Record, compute clamped screen coordinates using pure
// integer arithmetic with 64-bit intermediates, matching the budget the
// embedded apply-path is written against. Affine, polynomial, and
// quadrant-piecewise variants are all supported.
package transform

import (
	"github.com/thesyncim/tscalib/coeff"
	"github.com/thesyncim/tscalib/util"
)

// Bounds gives the screen clamp extents and the raw sensor extents the
// polynomial model normalizes against.
type Bounds struct {
	XMax, YMax int
	IMax, JMax int
}

// Point is one raw touch sample, before or after transformation.
type Point struct {
	I, J     int
	Pressure int
}

// shiftSum applies a coeff.Record's signed shift to a 64-bit
// multiply-accumulate sum: negative right-shifts, positive left-shifts,
// zero is a no-op (spec.md §4.4).
func shiftSum(sum int64, shift int8) int64 {
	switch {
	case shift < 0:
		return sum >> uint(-shift)
	case shift > 0:
		return sum << uint(shift)
	default:
		return sum
	}
}

func clamp(v, max int, doClamp bool) int {
	hi := v // no upper bound unless doClamp (legacy upper-unclamped mode)
	if doClamp {
		hi = max - 1
	}
	if hi < 0 {
		hi = 0
	}
	return util.Clamp(v, 0, hi)
}

// applyAffineRaw computes the unclamped (cx, cy) for one affine Record,
// using 64-bit multiply-accumulate. Coefficient order is [const, i-coeff,
// j-coeff] per axis, matching the fit's basis order (spec.md §4.2); this
// is the convention the identity-affine scenario (spec.md §8 #1) pins
// down unambiguously, taking precedence over §4.4's loosely worded
// "a[0]*i + a[1]*j + a[2]" restatement.
func applyAffineRaw(r coeff.Record, i, j int64) (int64, int64) {
	sumX := r.A[0] + r.A[1]*i + r.A[2]*j
	sumY := r.A[3] + r.A[4]*i + r.A[5]*j
	return shiftSum(sumX, r.Shift), shiftSum(sumY, r.Shift)
}

// Affine applies a single (non-quadrant) affine coeff.Record to one
// sample. Each axis is clamped on its own: x to [0, xmax-1] when xmax is
// non-zero and y to [0, ymax-1] when ymax is non-zero; an axis whose max
// is zero is only clamped at 0 (legacy upper-unclamped mode).
func Affine(r coeff.Record, b Bounds, i, j int) (x, y int) {
	cx, cy := applyAffineRaw(r, int64(i), int64(j))
	return clampOut(cx, cy, b)
}

func clampOut(cx, cy int64, b Bounds) (int, int) {
	x := int(cx)
	y := int(cy)
	x = clamp(x, b.XMax, b.XMax != 0)
	y = clamp(y, b.YMax, b.YMax != 0)
	return x, y
}

// Quadrant applies the quadrant-piecewise model: the MAIN transform is
// evaluated first, the tie-broken selector of spec.md §4.4 picks one of
// TOP/LEFT/BOTTOM/RIGHT from that result, and the sample is evaluated
// once more against the picked Record. The refinement pass does not
// re-enter the selector.
func Quadrant(q coeff.Quadrant, b Bounds, i, j int) (x, y int) {
	cx, cy := applyAffineRaw(q.Main, int64(i), int64(j))
	slot := selectQuadrant(cx, cy, b)
	rec := q.Get(slot)
	cx, cy = applyAffineRaw(rec, int64(i), int64(j))
	return clampOut(cx, cy, b)
}

// selectQuadrant implements the tie-broken rule of spec.md §4.4 using the
// unclamped MAIN result (cx, cy). The half-open `<` boundary convention is
// used throughout, per spec.md §9's resolution of the original's
// inconsistent `<=`/`<` variants.
func selectQuadrant(cx, cy int64, b Bounds) coeff.Slot {
	if cx == 0 {
		return coeff.Left
	}
	ymax := int64(b.YMax)
	xmax := int64(b.XMax)
	a := ymax * cx
	bb := xmax * cy
	c := xmax * (ymax - cy)
	if bb >= a {
		if c >= a {
			return coeff.Left
		}
		return coeff.Top
	}
	if c >= a {
		return coeff.Bottom
	}
	return coeff.Right
}

// Polynomial applies the second-order model of spec.md §4.4: normalises
// (i, j) to 16.16 fixed point against (imax, jmax), builds the six-term
// basis vector, and accumulates in a 64-bit product before a final >>32.
func Polynomial(r coeff.Record, b Bounds, i, j int) (x, y int) {
	const q16 = 1 << 16
	cxp := int64(i) * q16 / int64(b.IMax)
	cyp := int64(j) * q16 / int64(b.JMax)
	s := [6]int64{
		q16,
		cxp,
		cyp,
		(cxp * cyp) >> 16,
		(cxp * cxp) >> 16,
		(cyp * cyp) >> 16,
	}
	var sumX, sumY int64
	for k := 0; k < 6; k++ {
		sumX += r.A[k] * s[k]
		sumY += r.A[k+6] * s[k]
	}
	cx := (sumX * int64(b.XMax)) >> 32
	cy := (sumY * int64(b.YMax)) >> 32
	return clampOut(cx, cy, b)
}
