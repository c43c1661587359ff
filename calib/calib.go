// Package calib orchestrates the matrix solver for the two calibration
// modes: a nine-point second-order polynomial fit, and a five-point
// quadrant-piecewise affine fit (a main transform plus four corner
// refinements).
package calib

import (
	"fmt"

	"github.com/thesyncim/tscalib/coeff"
	"github.com/thesyncim/tscalib/internal/matrix"
)

// Role names a calibration point's position on the target screen.
type Role string

const (
	LT Role = "LT" // left-top corner
	RT Role = "RT" // right-top corner
	RB Role = "RB" // right-bottom corner
	LB Role = "LB" // left-bottom corner
	MM Role = "MM" // center
	MT Role = "MT" // mid-top
	MB Role = "MB" // mid-bottom
	LM Role = "LM" // mid-left
	RM Role = "RM" // mid-right
)

// Point is one touched-point/screen-point correspondence sampled during an
// interactive calibration pass. ScreenX/ScreenY and RawI/RawJ are
// immutable once sampled.
type Point struct {
	Role             Role
	ScreenX, ScreenY int
	RawI, RawJ       int
}

// Bounds describes the screen and raw sensor extents used both to
// normalize the polynomial fit and to clamp at apply time.
type Bounds struct {
	XMax, YMax int // screen pixel extents
	IMax, JMax int // raw sensor extents
}

func toSample(p Point, b Bounds, normalize bool) matrix.Sample {
	if !normalize {
		return matrix.Sample{I: float64(p.RawI), J: float64(p.RawJ), X: float64(p.ScreenX), Y: float64(p.ScreenY)}
	}
	return matrix.Sample{
		I: float64(p.RawI) / float64(b.IMax),
		J: float64(p.RawJ) / float64(b.JMax),
		X: float64(p.ScreenX) / float64(b.XMax),
		Y: float64(p.ScreenY) / float64(b.YMax),
	}
}

func byRole(pts []Point, roles ...Role) ([]Point, error) {
	index := make(map[Role]Point, len(pts))
	for _, p := range pts {
		index[p.Role] = p
	}
	out := make([]Point, 0, len(roles))
	for _, r := range roles {
		p, ok := index[r]
		if !ok {
			return nil, fmt.Errorf("calib: missing required point role %s", r)
		}
		out = append(out, p)
	}
	return out, nil
}

// FitNinePoint fits a single second-order polynomial CoeffRecord (K=12)
// from all nine supplied points, normalizing raw/screen coordinates by
// bounds as spec.md §4.2 requires.
func FitNinePoint(pts []Point, b Bounds) (coeff.Record, error) {
	required := []Role{LT, RT, RB, LB, MM, MT, MB, LM, RM}
	ordered, err := byRole(pts, required...)
	if err != nil {
		return coeff.Record{}, err
	}
	samples := make([]matrix.Sample, len(ordered))
	for i, p := range ordered {
		samples[i] = toSample(p, b, true)
	}
	return matrix.FitPolynomial(samples)
}

// FitQuadrant drives the quadrant-piecewise fit: a main affine transform
// from the five points {MM, LT, RT, RB, LB}, plus four corner affine
// transforms from the triangular subsets spec.md §4.3 names. If any
// sub-fit fails, the failure is propagated and no partial Quadrant is
// produced.
func FitQuadrant(pts []Point) (coeff.Quadrant, error) {
	fit := func(roles ...Role) (coeff.Record, error) {
		ordered, err := byRole(pts, roles...)
		if err != nil {
			return coeff.Record{}, err
		}
		samples := make([]matrix.Sample, len(ordered))
		for i, p := range ordered {
			samples[i] = toSample(p, Bounds{}, false)
		}
		return matrix.FitAffine(samples)
	}

	main, err := fit(MM, LT, RT, RB, LB)
	if err != nil {
		return coeff.Quadrant{}, fmt.Errorf("calib: main fit: %w", err)
	}
	top, err := fit(MM, LT, RT)
	if err != nil {
		return coeff.Quadrant{}, fmt.Errorf("calib: top fit: %w", err)
	}
	left, err := fit(MM, LT, LB)
	if err != nil {
		return coeff.Quadrant{}, fmt.Errorf("calib: left fit: %w", err)
	}
	bottom, err := fit(MM, LB, RB)
	if err != nil {
		return coeff.Quadrant{}, fmt.Errorf("calib: bottom fit: %w", err)
	}
	right, err := fit(MM, RT, RB)
	if err != nil {
		return coeff.Quadrant{}, fmt.Errorf("calib: right fit: %w", err)
	}

	return coeff.Quadrant{Main: main, Top: top, Left: left, Bottom: bottom, Right: right}, nil
}
