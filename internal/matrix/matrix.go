// Package matrix builds the symmetric normal-equations matrix for a
// least-squares calibration fit and solves it by cofactor expansion over
// an arbitrary row/column index mask. The same recursive code handles
// both the 3-unknown affine fit and the 6-unknown polynomial fit: only
// the active mask differs.
package matrix

import (
	"errors"
	"math"
	"math/bits"

	"github.com/thesyncim/tscalib/bignum"
	"github.com/thesyncim/tscalib/coeff"
	"github.com/thesyncim/tscalib/util"
)

// ErrSingular is returned when the accumulated normal-equations matrix
// has a determinant too close to zero to invert reliably.
var ErrSingular = errors.New("matrix: singular system")

// ErrTooFewPoints is returned when fewer calibration points are supplied
// than the active mask has unknowns.
var ErrTooFewPoints = errors.New("matrix: too few points for active mask")

const epsilon = 1e-9

// Active mask bit positions, matching the basis order of spec.md:
// 1, i, j, ij, i^2, j^2.
const (
	bitConst = 0
	bitI     = 1
	bitJ     = 2
	bitIJ    = 3
	bitI2    = 4
	bitJ2    = 5

	maskAffine     uint8 = 1<<bitConst | 1<<bitI | 1<<bitJ
	maskPolynomial uint8 = 0b111111
)

// Sample is one normalized calibration correspondence: raw (i, j) and
// target (x, y), both already scaled to O(1) magnitude by the caller
// when fitting the polynomial model.
type Sample struct {
	I, J, X, Y float64
}

// sMatrix is the 6x6 symmetric normal-equations matrix, stored upper
// triangular; Get/Add normalize the (row, col) pair so callers never
// need to track which half is populated.
type sMatrix struct {
	v [6][6]float64
}

func (m *sMatrix) at(r, c int) (int, int) {
	if r > c {
		return c, r
	}
	return r, c
}

func (m *sMatrix) Get(r, c int) float64 {
	r, c = m.at(r, c)
	return m.v[r][c]
}

func (m *sMatrix) Add(r, c int, delta float64) {
	r, c = m.at(r, c)
	m.v[r][c] += delta
}

func basis(i, j float64) [6]float64 {
	return [6]float64{1, i, j, i * j, i * i, j * j}
}

func bitsOf(mask uint8) []int {
	out := make([]int, 0, bits.OnesCount8(mask))
	for b := 0; b < 6; b++ {
		if mask&(1<<uint(b)) != 0 {
			out = append(out, b)
		}
	}
	return out
}

func posInMask(mask uint8, bit int) int {
	pos := 0
	for b := 0; b < bit; b++ {
		if mask&(1<<uint(b)) != 0 {
			pos++
		}
	}
	return pos
}

// determinant computes det(S) restricted to rowMask x colMask by cofactor
// expansion along the lowest set row, recursing on the minor masks.
// rowMask and colMask must have equal popcount.
func determinant(s *sMatrix, rowMask, colMask uint8) float64 {
	rows := bitsOf(rowMask)
	if len(rows) == 1 {
		cols := bitsOf(colMask)
		return s.Get(rows[0], cols[0])
	}
	r0 := rows[0]
	var sum float64
	for pos, c := range bitsOf(colMask) {
		sign := 1.0
		if pos%2 == 1 {
			sign = -1.0
		}
		minor := determinant(s, rowMask&^(1<<uint(r0)), colMask&^(1<<uint(c)))
		sum += sign * s.Get(r0, c) * minor
	}
	return sum
}

// adjugate computes, for every (r, c) both in mask, the (r,c) cofactor of
// S restricted to mask: det(S) over mask with row r and column c removed,
// signed by the position of r and c within mask. Result is stored upper
// triangular like sMatrix since S (and hence its adjugate) is symmetric.
func adjugate(s *sMatrix, mask uint8) *sMatrix {
	d := &sMatrix{}
	active := bitsOf(mask)
	for _, r := range active {
		for _, c := range active {
			if c < r {
				continue
			}
			sign := 1.0
			if (posInMask(mask, r)+posInMask(mask, c))%2 == 1 {
				sign = -1.0
			}
			minor := determinant(s, mask&^(1<<uint(r)), mask&^(1<<uint(c)))
			d.v[r][c] = sign * minor
		}
	}
	return d
}

// accumulate builds S and the two right-hand-side vectors from pts, using
// only the basis entries selected by mask.
func accumulate(pts []Sample, mask uint8) (s *sMatrix, rx, ry [6]float64) {
	s = &sMatrix{}
	active := bitsOf(mask)
	for _, p := range pts {
		phi := basis(p.I, p.J)
		for _, r := range active {
			for _, c := range active {
				if c >= r {
					s.Add(r, c, phi[r]*phi[c])
				}
			}
			rx[r] += p.X * phi[r]
			ry[r] += p.Y * phi[r]
		}
	}
	return s, rx, ry
}

// solve runs the shared determinant/adjugate algorithm over mask and
// returns the fractional (un-fixed-point) coefficients for both axes.
func solve(pts []Sample, mask uint8) (ax, ay [6]float64, err error) {
	if len(pts) < bits.OnesCount8(mask) {
		return ax, ay, ErrTooFewPoints
	}
	s, rx, ry := accumulate(pts, mask)
	det := determinant(s, mask, mask)
	if util.Abs(det) < epsilon {
		return ax, ay, ErrSingular
	}
	d := adjugate(s, mask)
	active := bitsOf(mask)
	invDet := 1.0 / det
	for _, c := range active {
		var sx, sy float64
		for _, w := range active {
			sx += d.Get(w, c) * rx[w]
			sy += d.Get(w, c) * ry[w]
		}
		ax[c] = sx * invDet
		ay[c] = sy * invDet
	}
	return ax, ay, nil
}

// FitAffine fits x = a0 + a1*i + a2*j and y = a3 + a4*i + a5*j from pts
// (spec.md active mask 0b000111) and packs the result at the common
// shift-normalized fixed-point exponent (spec.md §9).
func FitAffine(pts []Sample) (coeff.Record, error) {
	ax, ay, err := solve(pts, maskAffine)
	if err != nil {
		return coeff.Record{}, err
	}
	return packAffine(ax, ay), nil
}

// FitPolynomial fits the second-order model x = sum ak*phi_k(i,j),
// y = sum bk*phi_k(i,j) with basis {1, i, j, ij, i^2, j^2}
// (spec.md active mask 0b111111). Inputs must already be normalized by
// the caller: i,j divided by (imax, jmax) and x,y by (xmax, ymax).
//
// If fewer than 6 points are supplied the active mask automatically
// shrinks to the affine mask, equivalent to calling FitAffine on the
// same points (spec.md §4.2 edge case).
func FitPolynomial(pts []Sample) (coeff.Record, error) {
	if len(pts) < bits.OnesCount8(maskPolynomial) {
		return FitAffine(pts)
	}
	ax, ay, err := solve(pts, maskPolynomial)
	if err != nil {
		return coeff.Record{}, err
	}
	return packPolynomial(ax, ay), nil
}

func packPolynomial(ax, ay [6]float64) coeff.Record {
	var r coeff.Record
	r.Kind = coeff.KPolynomial
	r.Shift = 16
	for i := 0; i < 6; i++ {
		r.A[i] = int64(math.Round(ax[i] * 65536))
		r.A[i+6] = int64(math.Round(ay[i] * 65536))
	}
	return r
}

// packAffine converts the three fractional coefficients per axis to a
// single common fixed-point exponent, per spec.md §9: find each
// coefficient's natural shift via bignum.Normalize, then adopt the
// smallest of the six as the shared exponent — the shift the
// largest-magnitude coefficient (the binding overflow constraint) needs
// to reach its own 31-bit window. Smaller coefficients ride along at
// this coarser scale and lose some of their own precision, which is the
// tradeoff spec.md §9 describes; the alternative (the largest shift,
// i.e. the smallest coefficient's own scale) would overflow the large
// coefficients instead.
func packAffine(ax, ay [6]float64) coeff.Record {
	vals := [6]float64{ax[0], ax[1], ax[2], ay[0], ay[1], ay[2]}
	const noShift = 1 << 30
	common := noShift
	for _, v := range vals {
		if v == 0 {
			continue
		}
		if s := nativeShift(v); s < common {
			common = s
		}
	}
	if common == noShift {
		common = 16
	}
	var r coeff.Record
	r.Kind = coeff.KAffine
	r.Shift = int8(-common)
	for i, v := range vals {
		r.A[i] = int64(math.Round(math.Ldexp(v, common)))
	}
	return r
}

// nativeShift returns the smallest shift s such that v*2^s has a mantissa
// in [2^30, 2^31), using bignum.Normalize to do the word-level shifting
// (spec.md §4.1's "normalize and extract" routine, reused here for its
// documented purpose of §9's shift-normalisation step).
func nativeShift(v float64) int {
	if v == 0 {
		return -1 << 30
	}
	const prescale = 40
	scaled := math.Round(math.Ldexp(util.Abs(v), prescale))
	if scaled == 0 {
		// Too small to register at this prescale: its natural shift is
		// larger than any coefficient that does register, so it never
		// becomes packAffine's common (smallest) shift.
		return 1 << 30
	}
	n := bignum.Int{
		uint32(uint64(scaled) >> 32),
		uint32(uint64(scaled)),
	}
	_, exp := bignum.Normalize(n)
	if exp == bignum.NoExponent {
		return -1 << 30
	}
	return prescale - exp
}
