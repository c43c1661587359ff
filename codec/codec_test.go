package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/thesyncim/tscalib/coeff"
)

func first6Equal(a, b [12]int64) bool {
	for i := 0; i < 6; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadFormatAFull12(t *testing.T) {
	in := "0 65536 0 0 0 0 0 0 65536 0 0 0"
	rec, err := ReadFormatA(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadFormatA: %v", err)
	}
	if rec.Kind != coeff.KPolynomial {
		t.Fatalf("Kind = %v, want KPolynomial", rec.Kind)
	}
	if rec.Shift != 16 {
		t.Fatalf("Shift = %d, want 16", rec.Shift)
	}
	if rec.A != coeff.IdentityPolynomial.A {
		t.Fatalf("A = %v, want identity", rec.A)
	}
}

func TestReadFormatAShortLegacy(t *testing.T) {
	in := "0 65536 0 0 0 65536 0" // 7 fields, matches legacy affine + unused
	rec, err := ReadFormatA(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadFormatA: %v", err)
	}
	if rec.Kind != coeff.KAffine {
		t.Fatalf("Kind = %v, want KAffine", rec.Kind)
	}
	if rec.Shift != -16 {
		t.Fatalf("Shift = %d, want -16", rec.Shift)
	}
	if !first6Equal(rec.A, coeff.IdentityAffine.A) {
		t.Fatalf("A[:6] = %v, want identity", rec.A[:6])
	}
}

func TestReadFormatAEmptyUsesDefaults(t *testing.T) {
	rec, err := ReadFormatA(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadFormatA: %v", err)
	}
	if rec != coeff.IdentityAffine {
		t.Fatalf("empty input = %+v, want IdentityAffine", rec)
	}
}

func TestReadFormatAStopsAtMalformedToken(t *testing.T) {
	rec, err := ReadFormatA(strings.NewReader("10 20 garbage 40 50 60"))
	if err != nil {
		t.Fatalf("ReadFormatA: %v", err)
	}
	if rec.Kind != coeff.KAffine {
		t.Fatalf("Kind = %v, want KAffine (2 parsed values)", rec.Kind)
	}
	if rec.A[0] != 10 || rec.A[1] != 20 {
		t.Fatalf("A[0:2] = %v, want [10,20]", rec.A[:2])
	}
	if rec.A[2] != 0 {
		t.Fatalf("A[2] = %d, want identity default 0", rec.A[2])
	}
}

func TestWriteReadFormatARoundTrip(t *testing.T) {
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{1, 2, 3, 4, 5, 6}, Shift: -16}
	var buf bytes.Buffer
	if err := WriteFormatA(&buf, r); err != nil {
		t.Fatalf("WriteFormatA: %v", err)
	}
	got, err := ReadFormatA(&buf)
	if err != nil {
		t.Fatalf("ReadFormatA: %v", err)
	}
	if !first6Equal(got.A, r.A) {
		t.Fatalf("round trip A[:6] = %v, want %v", got.A[:6], r.A[:6])
	}
}

func TestReadFormatBFivePoints(t *testing.T) {
	in := "(10,10)(100,100)\n(630,10)(3900,100)\n(630,470)(3900,3900)\n(10,470)(100,3900)\n(320,240)(2000,2000)\n"
	pts, err := ReadFormatB(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadFormatB: %v", err)
	}
	if len(pts) != 5 {
		t.Fatalf("len(pts) = %d, want 5", len(pts))
	}
	if pts[0].Role != "LT" || pts[4].Role != "MM" {
		t.Fatalf("roles not assigned positionally: %+v", pts)
	}
	if pts[1].ScreenX != 630 || pts[1].RawJ != 100 {
		t.Fatalf("pts[1] = %+v, want ScreenX=630 RawJ=100", pts[1])
	}
}

func TestReadFormatBWrongCount(t *testing.T) {
	in := "(10,10)(100,100)\n(630,10)(3900,100)\n"
	if _, err := ReadFormatB(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for wrong point count")
	}
}

func TestWriteReadFormatBRoundTrip(t *testing.T) {
	in := "(10,10)(100,100)\n(630,10)(3900,100)\n(630,470)(3900,3900)\n(10,470)(100,3900)\n(320,240)(2000,2000)\n"
	pts, err := ReadFormatB(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadFormatB: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteFormatB(&buf, pts); err != nil {
		t.Fatalf("WriteFormatB: %v", err)
	}
	got, err := ReadFormatB(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(got) != len(pts) {
		t.Fatalf("round trip len = %d, want %d", len(got), len(pts))
	}
}

func TestDetect(t *testing.T) {
	if !Detect([]byte("  (10,10)(1,1)\n")) {
		t.Error("Detect should report Format B for leading '('")
	}
	if Detect([]byte("0 65536 0 0 0 65536")) {
		t.Error("Detect should report Format A for a decimal line")
	}
}

func TestWriteDecimalSidecar(t *testing.T) {
	r := coeff.Record{Kind: coeff.KAffine, A: [12]int64{0, 65536, 0, 0, 0, 65536}, Shift: -16}
	var buf bytes.Buffer
	if err := WriteDecimalSidecar(&buf, r); err != nil {
		t.Fatalf("WriteDecimalSidecar: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}
	if lines[1] != "1.000000" {
		t.Errorf("lines[1] = %q, want 1.000000", lines[1])
	}
}

func TestWriteCTM(t *testing.T) {
	r := coeff.IdentityAffine
	var buf bytes.Buffer
	if err := WriteCTM(&buf, "dev0", r); err != nil {
		t.Fatalf("WriteCTM: %v", err)
	}
	if !strings.Contains(buf.String(), "dev0") {
		t.Errorf("output missing device name: %q", buf.String())
	}
}
