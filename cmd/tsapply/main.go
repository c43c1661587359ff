// Command tsapply batch-applies a persisted coefficient file to a
// stream of raw touch samples read from stdin, writing transformed
// screen coordinates to stdout.
//
// Usage:
//
//	go run . -coeffs pointercal -xmax 640 -ymax 480 -imax 4096 -jmax 4096 < raw.txt
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/thesyncim/tscalib/calib"
	"github.com/thesyncim/tscalib/codec"
	"github.com/thesyncim/tscalib/coeff"
	"github.com/thesyncim/tscalib/pipeline"
	"github.com/thesyncim/tscalib/transform"
)

func main() {
	coeffPath := flag.String("coeffs", "pointercal", "Coefficient file (Format A or Format B)")
	configPath := flag.String("config", "", "Optional pipeline config file (xyswap, pressure_*)")
	xmax := flag.Int("xmax", 640, "Screen X extent")
	ymax := flag.Int("ymax", 480, "Screen Y extent")
	imax := flag.Int("imax", 4096, "Raw sensor I extent (polynomial/nine-point mode only)")
	jmax := flag.Int("jmax", 4096, "Raw sensor J extent (polynomial/nine-point mode only)")
	flag.Parse()

	rec, quad, err := loadCoefficients(*coeffPath, transform.Bounds{XMax: *xmax, YMax: *ymax, IMax: *imax, JMax: *jmax})
	if err != nil {
		log.Fatalf("Load coefficients failed: %v", err)
	}

	cfg := pipeline.DefaultConfig
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("Open config failed: %v", err)
		}
		cfg, err = pipeline.ParseConfig(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Parse config failed: %v", err)
		}
	}

	src := &stdinSource{r: bufio.NewReader(os.Stdin)}
	bounds := transform.Bounds{XMax: *xmax, YMax: *ymax, IMax: *imax, JMax: *jmax}

	var p *pipeline.Pipeline
	if quad != nil {
		p = pipeline.NewQuadrant(src, cfg, bounds, *quad)
	} else {
		p = pipeline.New(src, cfg, bounds, rec)
	}

	buf := make([]pipeline.Transformed, 64)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for {
		n, err := p.Read(buf)
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "%d %d %d\n", buf[i].X, buf[i].Y, buf[i].Pressure)
		}
		if err != nil {
			if err != io.EOF {
				log.Fatalf("Read failed: %v", err)
			}
			return
		}
	}
}

// loadCoefficients detects the on-disk format and either returns a
// single Record or, for Format B's re-fit-on-load contract, a Quadrant
// fitted from the stored points (five points only; a nine-point file
// is fit directly to a polynomial Record instead).
func loadCoefficients(path string, bounds transform.Bounds) (coeff.Record, *coeff.Quadrant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return coeff.Record{}, nil, fmt.Errorf("read %s: %w", path, err)
	}

	if !codec.Detect(data) {
		rec, err := codec.ReadFormatA(bytes.NewReader(data))
		return rec, nil, err
	}

	pts, err := codec.ReadFormatB(bytes.NewReader(data))
	if err != nil {
		return coeff.Record{}, nil, err
	}
	if len(pts) == 9 {
		rec, err := calib.FitNinePoint(pts, calib.Bounds(bounds))
		return rec, nil, err
	}
	quad, err := calib.FitQuadrant(pts)
	return coeff.Record{}, &quad, err
}

type stdinSource struct {
	r *bufio.Reader
}

func (s *stdinSource) Read(buf []pipeline.Sample) (int, error) {
	n := 0
	for n < len(buf) {
		var i, j, p int
		cnt, err := fmt.Fscan(s.r, &i, &j, &p)
		if cnt == 3 {
			buf[n] = pipeline.Sample{I: i, J: j, Pressure: p, Valid: true}
			n++
			continue
		}
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
	}
	return n, nil
}
