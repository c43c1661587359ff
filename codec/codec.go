// Package codec serializes and deserializes coeff.Record values to and
// from the two on-disk coefficient formats used by the external
// persistence collaborator, distinguished by the first byte of the file:
// Format A (a single line of decimal integers) and Format B (parenthesized
// raw calibration points, re-fit on load).
package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/thesyncim/tscalib/calib"
	"github.com/thesyncim/tscalib/coeff"
)

// ErrMalformed is returned when a coefficient file cannot be parsed as
// either format.
var ErrMalformed = errors.New("codec: malformed coefficient file")

// ReadFormatA parses the legacy line-of-integers format (spec.md §4.5/§6).
// It reads up to 12 whitespace-separated signed decimal integers and
// stops silently at the first one that fails to parse or at EOF —
// missing trailing values are filled from the applicable identity
// default rather than treated as an error (spec.md §7's
// ShortRead/MalformedCoeffs policy).
//
// Seven or fewer parsed integers produce a K=6 affine Record at
// shift=-16 (the seventh, if present, is the historical unused field).
// Eight or more produce a K=12 polynomial Record at shift=16, padded
// from coeff.IdentityPolynomial.
func ReadFormatA(r io.Reader) (coeff.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var vals []int64
	for len(vals) < 12 && sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 64)
		if err != nil {
			break
		}
		vals = append(vals, v)
	}

	if len(vals) <= 7 {
		rec := coeff.IdentityAffine
		for i := 0; i < 6 && i < len(vals); i++ {
			rec.A[i] = vals[i]
		}
		return rec, nil
	}

	rec := coeff.IdentityPolynomial
	for i := 0; i < 12 && i < len(vals); i++ {
		rec.A[i] = vals[i]
	}
	return rec, nil
}

// WriteFormatA emits a coeff.Record in the legacy line format. K=6
// records are written as seven fields (trailing unused field is 0); K=12
// records are written in full.
func WriteFormatA(w io.Writer, r coeff.Record) error {
	n := 7
	if r.Kind == coeff.KPolynomial {
		n = 12
	}
	fields := make([]string, n)
	for i := 0; i < n; i++ {
		fields[i] = strconv.FormatInt(r.A[i], 10)
	}
	_, err := fmt.Fprintln(w, strings.Join(fields, " "))
	return err
}

// quadrantOrder is the positional role assignment for Format B records:
// five for the quadrant-fit mode, extended to nine for the 9-point mode.
// The format carries no role tags of its own (spec.md §4.5), so this
// fixed order is this implementation's resolution of that ambiguity.
var quadrantOrder = []calib.Role{calib.LT, calib.RT, calib.RB, calib.LB, calib.MM}
var ninePointOrder = []calib.Role{calib.LT, calib.RT, calib.RB, calib.LB, calib.MM, calib.MT, calib.MB, calib.LM, calib.RM}

// ReadFormatB parses the quadrant persistence format: five or nine
// "(sx,sy)(ri,rj)\n" point records. It returns the raw points with roles
// assigned positionally; the caller re-runs calib.FitQuadrant or
// calib.FitNinePoint, since this format stores points, not coefficients.
func ReadFormatB(r io.Reader) ([]calib.Point, error) {
	sc := bufio.NewScanner(r)
	var pts []calib.Point
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p, err := parsePointLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	var order []calib.Role
	switch len(pts) {
	case 5:
		order = quadrantOrder
	case 9:
		order = ninePointOrder
	default:
		return nil, fmt.Errorf("%w: expected 5 or 9 point records, got %d", ErrMalformed, len(pts))
	}
	for i := range pts {
		pts[i].Role = order[i]
	}
	return pts, nil
}

func parsePointLine(line string) (calib.Point, error) {
	var sx, sy, ri, rj int
	n, err := fmt.Sscanf(line, "(%d,%d)(%d,%d)", &sx, &sy, &ri, &rj)
	if err != nil || n != 4 {
		return calib.Point{}, fmt.Errorf("bad point record %q", line)
	}
	return calib.Point{ScreenX: sx, ScreenY: sy, RawI: ri, RawJ: rj}, nil
}

// WriteFormatB emits pts (5 or 9 of them) in the "(sx,sy)(ri,rj)\n"
// record format, in the order given.
func WriteFormatB(w io.Writer, pts []calib.Point) error {
	if len(pts) != 5 && len(pts) != 9 {
		return fmt.Errorf("codec: WriteFormatB expects 5 or 9 points, got %d", len(pts))
	}
	for _, p := range pts {
		if _, err := fmt.Fprintf(w, "(%d,%d)(%d,%d)\n", p.ScreenX, p.ScreenY, p.RawI, p.RawJ); err != nil {
			return err
		}
	}
	return nil
}

// Detect inspects the first non-whitespace byte to decide which format a
// coefficient file uses: '(' means Format B, anything else Format A.
func Detect(data []byte) (isFormatB bool) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '('
}

// WriteDecimalSidecar emits the teacher-facing "_e" sidecar: the same
// coefficients as decimal fractions (divided by 65536), one per line,
// human-readable.
func WriteDecimalSidecar(w io.Writer, r coeff.Record) error {
	n := int(r.Kind)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "%.6f\n", float64(r.A[i])/65536); err != nil {
			return err
		}
	}
	return nil
}

// WriteCTM emits the "_x" sidecar: a 3x3 Coordinate Transformation Matrix
// row plus the device name, in the form display servers (e.g. an X
// server's XInput CTM property) expect. Only the affine (K=6) case maps
// cleanly onto a 3x3 row; polynomial records are projected onto their
// linear (non-cross, non-square) terms.
func WriteCTM(w io.Writer, deviceName string, r coeff.Record) error {
	var a0, a1, a2, b0, b1, b2 float64
	switch r.Kind {
	case coeff.KAffine:
		// r.Shift is always negative for an affine Record (a right-shift);
		// math.Ldexp(v, shift) applies it directly without a sign flip.
		scale := math.Ldexp(1, int(r.Shift))
		a0, a1, a2 = float64(r.A[1])*scale, float64(r.A[2])*scale, float64(r.A[0])*scale
		b0, b1, b2 = float64(r.A[4])*scale, float64(r.A[5])*scale, float64(r.A[3])*scale
	case coeff.KPolynomial:
		a0, a1, a2 = float64(r.A[1])/65536, float64(r.A[2])/65536, float64(r.A[0])/65536
		b0, b1, b2 = float64(r.A[7])/65536, float64(r.A[8])/65536, float64(r.A[6])/65536
	}
	_, err := fmt.Fprintf(w, "Coordinate Transformation Matrix %s: %.6f %.6f %.6f %.6f %.6f %.6f 0.000000 0.000000 1.000000\n",
		deviceName, a0, a1, a2, b0, b1, b2)
	return err
}
