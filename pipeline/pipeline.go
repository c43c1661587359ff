// Package pipeline is the pull-based sample path: an upstream Source of
// raw touch events feeds a Pipeline that rescales pressure, optionally
// swaps axes, and hands off transformed samples to the caller. It
// generalizes the teacher's frame-pull Decoder API (a caller-driven
// Read loop rather than a callback or channel) from audio frames to
// touch samples.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thesyncim/tscalib/coeff"
	"github.com/thesyncim/tscalib/transform"
)

// ErrOutOfRange is returned by ParseConfig when a key's value exceeds
// the native range its field is stored in.
var ErrOutOfRange = errors.New("pipeline: config value out of range")

// ErrUnsupported is returned by ReadMT when the upstream Source does not
// implement MultiSource.
var ErrUnsupported = errors.New("pipeline: multi-touch not supported by source")

// Sample is one raw touch event as delivered by a Source, before
// pressure rescale or axis swap.
type Sample struct {
	I, J     int
	Pressure int
	Valid    bool // for multi-touch slots: false means the slot is unused
}

// Source is the upstream collaborator a Pipeline pulls raw samples from.
// It mirrors the teacher's io.Reader-driven packet sources: the caller
// owns the buffer and the read loop, not the Source.
type Source interface {
	Read(buf []Sample) (int, error)
}

// MultiSource is a Source that additionally supports multi-touch slot
// reads. Sources that only track a single contact point need not
// implement it; Pipeline.ReadMT reports ErrUnsupported in that case.
type MultiSource interface {
	Source
	ReadMT(buf []Sample) (int, error)
}

// Config holds the per-device tuning values read from the persisted
// configuration blob (spec.md §4.6/§6).
type Config struct {
	XYSwap         bool
	PressureOffset int64
	PressureMul    int64
	PressureDiv    int64
}

// DefaultConfig is the identity configuration: no swap, no pressure
// rescale.
var DefaultConfig = Config{PressureMul: 1, PressureDiv: 1}

// ParseConfig reads line-oriented "key = value" pairs. Recognized keys
// are xyswap, pressure_offset, pressure_mul, pressure_div. Integer
// values are parsed base-0 (a "0x" or "0" prefix selects hex/octal,
// matching the native device config file convention); a value that
// overflows int64 yields ErrOutOfRange. Unknown keys and blank lines are
// ignored, matching the short-read/forward-compatible policy spec.md §7
// applies to the coefficient file formats.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "xyswap":
			n, err := strconv.ParseUint(val, 0, 64)
			if err != nil {
				return Config{}, fmt.Errorf("%w: xyswap: %v", ErrOutOfRange, err)
			}
			cfg.XYSwap = n != 0
		case "pressure_offset":
			v, err := parseSigned(val)
			if err != nil {
				return Config{}, err
			}
			cfg.PressureOffset = v
		case "pressure_mul":
			v, err := parseSigned(val)
			if err != nil {
				return Config{}, err
			}
			cfg.PressureMul = v
		case "pressure_div":
			v, err := parseSigned(val)
			if err != nil {
				return Config{}, err
			}
			cfg.PressureDiv = v
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseSigned(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	if n > 1<<63-1 {
		return 0, fmt.Errorf("%w: %s exceeds int64", ErrOutOfRange, s)
	}
	v := int64(n)
	if neg {
		v = -v
	}
	return v, nil
}

// Pipeline rescales and transforms samples pulled from a Source.
type Pipeline struct {
	src    Source
	cfg    Config
	bounds transform.Bounds
	rec    coeff.Record
	quad   *coeff.Quadrant
}

// New builds a Pipeline that applies a single (non-quadrant) coeff.Record.
func New(src Source, cfg Config, bounds transform.Bounds, rec coeff.Record) *Pipeline {
	return &Pipeline{src: src, cfg: cfg, bounds: bounds, rec: rec}
}

// NewQuadrant builds a Pipeline that applies a quadrant-piecewise model.
func NewQuadrant(src Source, cfg Config, bounds transform.Bounds, quad coeff.Quadrant) *Pipeline {
	return &Pipeline{src: src, cfg: cfg, bounds: bounds, quad: &quad}
}

// rescale applies pressure rescale only; axis swap happens after the
// coordinate transform (spec.md §4.6), not here, since it exchanges the
// transform's *output* x/y, not the raw sensor's i/j input.
func (p *Pipeline) rescale(s Sample) Sample {
	pr := s.Pressure
	if p.cfg.PressureDiv != 0 {
		pr = int((int64(pr) + p.cfg.PressureOffset) * p.cfg.PressureMul / p.cfg.PressureDiv)
	}
	return Sample{I: s.I, J: s.J, Pressure: pr, Valid: s.Valid}
}

func (p *Pipeline) apply(s Sample) (x, y int) {
	if p.quad != nil {
		return transform.Quadrant(*p.quad, p.bounds, s.I, s.J)
	}
	if p.rec.Kind == coeff.KPolynomial {
		return transform.Polynomial(p.rec, p.bounds, s.I, s.J)
	}
	return transform.Affine(p.rec, p.bounds, s.I, s.J)
}

// Transformed is one sample after rescale and coordinate transform.
type Transformed struct {
	X, Y     int
	Pressure int
	Valid    bool // multi-touch only: false for a skipped/unused slot
}

// Read pulls up to len(buf) raw samples from the source, rescales and
// transforms each in place, and returns the count filled. It mirrors the
// teacher's Decode contract: the caller owns buf, a short count is not
// an error, and io.EOF propagates from the source unchanged.
func (p *Pipeline) Read(buf []Transformed) (int, error) {
	raw := make([]Sample, len(buf))
	n, err := p.src.Read(raw)
	for k := 0; k < n; k++ {
		s := p.rescale(raw[k])
		x, y := p.apply(s)
		if p.cfg.XYSwap {
			x, y = y, x
		}
		buf[k] = Transformed{X: x, Y: y, Pressure: s.Pressure, Valid: true}
	}
	return n, err
}

// ReadMT pulls a batch of multi-touch samples, rescaling and
// transforming each valid slot. Slots with Valid == false are left as
// the zero Transformed value (Valid: false) so callers can distinguish
// a skipped slot from a legitimate (0,0,0) sample (spec.md §4.4/§7). It
// returns ErrUnsupported if the underlying Source does not implement
// MultiSource.
func (p *Pipeline) ReadMT(buf []Transformed) (int, error) {
	mt, ok := p.src.(MultiSource)
	if !ok {
		return 0, ErrUnsupported
	}
	raw := make([]Sample, len(buf))
	n, err := mt.ReadMT(raw)
	for k := 0; k < n; k++ {
		if !raw[k].Valid {
			buf[k] = Transformed{}
			continue
		}
		s := p.rescale(raw[k])
		x, y := p.apply(s)
		if p.cfg.XYSwap {
			x, y = y, x
		}
		buf[k] = Transformed{X: x, Y: y, Pressure: s.Pressure, Valid: true}
	}
	return n, err
}
