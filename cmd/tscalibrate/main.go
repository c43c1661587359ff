// Command tscalibrate runs an interactive five- or nine-point
// calibration session against a raw touch device node, writing the
// resulting coefficients to a Format A or Format B file.
//
// Usage:
//
//	go run . -dev /dev/input/event0 -points 9 -out pointercal -xmax 640 -ymax 480
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/thesyncim/tscalib/calib"
	"github.com/thesyncim/tscalib/codec"
)

func main() {
	dev := flag.String("dev", "/dev/input/event0", "Raw touch device node")
	points := flag.Int("points", 5, "Calibration points to collect: 5 (quadrant) or 9 (polynomial)")
	out := flag.String("out", "pointercal", "Output coefficient file")
	xmax := flag.Int("xmax", 640, "Screen X extent")
	ymax := flag.Int("ymax", 480, "Screen Y extent")
	imax := flag.Int("imax", 4096, "Raw sensor I extent")
	jmax := flag.Int("jmax", 4096, "Raw sensor J extent")
	flag.Parse()

	if *points != 5 && *points != 9 {
		log.Fatalf("-points must be 5 or 9, got %d", *points)
	}

	bounds := calib.Bounds{XMax: *xmax, YMax: *ymax, IMax: *imax, JMax: *jmax}
	targets := crosshairTargets(*points, bounds)

	term, err := openRawTerminal()
	if err != nil {
		log.Fatalf("Open terminal failed: %v", err)
	}
	defer term.restore()

	src, err := openDeviceSource(*dev)
	if err != nil {
		log.Fatalf("Open device failed: %v", err)
	}
	defer src.Close()

	pts := make([]calib.Point, 0, len(targets))
	for _, target := range targets {
		fmt.Fprintf(term.out, "\r\nTap the crosshair at screen (%d,%d) for role %s...\r\n", target.ScreenX, target.ScreenY, target.Role)
		raw, err := src.waitForTap()
		if err != nil {
			log.Fatalf("Read tap failed: %v", err)
		}
		target.RawI, target.RawJ = raw.I, raw.J
		pts = append(pts, target)
		fmt.Fprintf(term.out, "captured raw=(%d,%d)\r\n", raw.I, raw.J)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Create output failed: %v", err)
	}
	defer f.Close()

	if *points == 9 {
		rec, err := calib.FitNinePoint(pts, bounds)
		if err != nil {
			log.Fatalf("FitNinePoint failed: %v", err)
		}
		if err := codec.WriteFormatA(f, rec); err != nil {
			log.Fatalf("Write coefficients failed: %v", err)
		}
		return
	}

	if err := codec.WriteFormatB(f, pts); err != nil {
		log.Fatalf("Write coefficients failed: %v", err)
	}
}

// crosshairTargets lays out the standard five- or nine-point pattern:
// four corners, center, and for the nine-point pattern the four edge
// midpoints, in the fixed role order codec.ReadFormatB expects.
func crosshairTargets(n int, b calib.Bounds) []calib.Point {
	margin := func(max int) int { return max / 10 }
	mx, my := margin(b.XMax), margin(b.YMax)
	pts := []calib.Point{
		{Role: calib.LT, ScreenX: mx, ScreenY: my},
		{Role: calib.RT, ScreenX: b.XMax - mx, ScreenY: my},
		{Role: calib.RB, ScreenX: b.XMax - mx, ScreenY: b.YMax - my},
		{Role: calib.LB, ScreenX: mx, ScreenY: b.YMax - my},
		{Role: calib.MM, ScreenX: b.XMax / 2, ScreenY: b.YMax / 2},
	}
	if n == 5 {
		return pts
	}
	return append(pts,
		calib.Point{Role: calib.MT, ScreenX: b.XMax / 2, ScreenY: my},
		calib.Point{Role: calib.MB, ScreenX: b.XMax / 2, ScreenY: b.YMax - my},
		calib.Point{Role: calib.LM, ScreenX: mx, ScreenY: b.YMax / 2},
		calib.Point{Role: calib.RM, ScreenX: b.XMax - mx, ScreenY: b.YMax / 2},
	)
}

type rawTap struct {
	I, J int
}

type deviceSource struct {
	f *os.File
	r *bufio.Reader
}

func openDeviceSource(path string) (*deviceSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &deviceSource{f: f, r: bufio.NewReader(f)}, nil
}

func (d *deviceSource) Close() error { return d.f.Close() }

// waitForTap reads input events until a complete (ABS_X, ABS_Y) pair
// followed by a SYN_REPORT has been observed, per readEvent's framing
// in evdev.go.
func (d *deviceSource) waitForTap() (rawTap, error) {
	var i, j int
	haveI, haveJ := false, false
	for {
		ev, err := readEvent(d.r)
		if err != nil {
			return rawTap{}, err
		}
		switch {
		case ev.evType == evAbs && ev.code == absX:
			i, haveI = ev.value, true
		case ev.evType == evAbs && ev.code == absY:
			j, haveJ = ev.value, true
		case ev.evType == evSyn && ev.code == synReport:
			if haveI && haveJ {
				return rawTap{I: i, J: j}, nil
			}
		}
	}
}
