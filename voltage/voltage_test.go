package voltage

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Two time steps of three pixels each. The ';' in the second time cell marks
// where the first step ends.
const texture = "0,1,2,3,;1,4,5,6\n"

func TestParseTexture(t *testing.T) {
	tests := []struct {
		input    string
		delim    rune
		expected Matrix
	}{
		{texture, ',', Matrix{{1, 4}, {2, 5}, {3, 6}}},
		{"0\t1\t2\t3\t;1\t4\t5\t6\n", '\t', Matrix{{1, 4}, {2, 5}, {3, 6}}},

		// Steps may wrap across lines and leave empty cells behind.
		{"0,1,2,3,;1,4,\n,5,6,;2,7,8,9,\n", ',', Matrix{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}},

		// Six pixels per step: the marker sits at column 8.
		{"0,1,2,3,0,4,5,6,;1,7,8,9,0,10,11,12\n", ',', Matrix{{1, 7}, {2, 8}, {3, 9}, {4, 10}, {5, 11}, {6, 12}}},
	}

	for i, v := range tests {
		got, err := ParseTexture(strings.NewReader(v.input), v.delim)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}

		if diff := cmp.Diff(v.expected, got); diff != "" {
			t.Fatalf("case %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestParseTextureShapeErrors(t *testing.T) {
	for _, input := range []string{
		// No marker at all.
		"0,1,2,3\n",
		// Marker at column 3 would mean 2.25 pixels.
		"0,1,2,;1,4,5\n",
		// Four values cannot fill whole steps of three pixels.
		"0,1,2,3,;1,4\n",
		// Marker in the first column leaves no pixels.
		";0,1,2,3\n",
	} {
		if _, err := ParseTexture(strings.NewReader(input), ','); !errors.Is(err, ErrShape) {
			t.Fatalf("%q: expected ErrShape, got %v", input, err)
		}
	}

	if _, err := ParseTexture(strings.NewReader("0,1,x,3,;1,4,5,6\n"), ','); err == nil || errors.Is(err, ErrShape) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "texture.csv")
	if err := os.WriteFile(plain, []byte(texture), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(texture))
	gz.Close()

	zipped := filepath.Join(dir, "texture.csv.gz")
	if err := os.WriteFile(zipped, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	tabbed := filepath.Join(dir, "texture.tsv")
	if err := os.WriteFile(tabbed, []byte(strings.ReplaceAll(texture, ",", "\t")), 0644); err != nil {
		t.Fatal(err)
	}

	for path, delim := range map[string]rune{plain: 0, zipped: 0, tabbed: '\t'} {
		m, err := Load(context.Background(), path, nil, delim)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}

		if diff := cmp.Diff(Matrix{{1, 4}, {2, 5}, {3, 6}}, m); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", path, diff)
		}
	}

	if _, err := Load(context.Background(), filepath.Join(dir, "missing.csv"), nil, ','); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestMatrix(t *testing.T) {
	m := Matrix{{1, math.NaN(), 3}, {4, 5, math.Inf(1)}}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if m.Pixels() != 2 || m.Samples() != 3 || m.NonFinite(0) != 1 || m.NonFinite(1) != 1 {
		t.Fatalf("unexpected shape or counts")
	}

	c := m.Clone()
	c[0][0] = 100
	if m[0][0] != 1 {
		t.Fatalf("Clone shares storage with the original")
	}

	if err := (Matrix{{1, 2}, {3}}).Validate(); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape for ragged traces, got %v", err)
	}
}

func TestNormalizeMinMax(t *testing.T) {
	nan := math.NaN()
	in := Matrix{{2, 4, 6, nan}, {7, 7, 7}}

	out, err := Normalize(in, NormalizeOptions{Method: MethodMinMax})
	if err != nil {
		t.Fatal(err)
	}

	expected := Matrix{{0, 0.5, 1, nan}, {0, 0, 0}}
	if diff := cmp.Diff(expected, out, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if in[0][0] != 2 {
		t.Fatalf("Normalize modified its input")
	}
}

func TestNormalizeZScore(t *testing.T) {
	spike := make([]float64, 100)
	spike[99] = 1000

	out, err := Normalize(Matrix{{1, 3}, {5, 5, 5}, spike}, NormalizeOptions{Method: MethodZScore})
	if err != nil {
		t.Fatal(err)
	}

	// Symmetric about the mean.
	if a, b := out[0][0], out[0][1]; a >= 0.5 || math.Abs(a+b-1) > 1e-12 {
		t.Fatalf("unexpected scores %v, %v", a, b)
	}

	for _, v := range out[1] {
		if v != 0.5 {
			t.Fatalf("flat pixel scored %v, expected 0.5", v)
		}
	}

	// The outlier is clipped at 3 SD.
	if out[2][99] != 1 {
		t.Fatalf("spike scored %v, expected 1", out[2][99])
	}
	for _, v := range out[2] {
		if v < 0 || v > 1 {
			t.Fatalf("score %v outside [0, 1]", v)
		}
	}
}

func TestNormalizeNone(t *testing.T) {
	in := Matrix{{-2, 0.5, 9}}
	out, err := Normalize(in, NormalizeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if _, err := Normalize(in, NormalizeOptions{Method: "rank"}); err == nil {
		t.Fatalf("expected an error for an unknown method")
	}
}

func TestParseMethod(t *testing.T) {
	for input, expected := range map[string]Method{"": MethodNone, "none": MethodNone, "minmax": MethodMinMax, "zscore": MethodZScore} {
		got, err := ParseMethod(input)
		if err != nil || got != expected {
			t.Fatalf("ParseMethod(%q) = %v, %v; expected %v", input, got, err, expected)
		}
	}

	if _, err := ParseMethod("rank"); err == nil {
		t.Fatalf("expected an error for an unknown method")
	}
}

func TestLowPass(t *testing.T) {
	trace := make([]float64, 2000)
	for i := range trace {
		trace[i] = 1
	}
	trace[10] = math.NaN()

	out, err := LowPass(trace, 500, 20)
	if err != nil {
		t.Fatal(err)
	}

	if !math.IsNaN(out[10]) {
		t.Fatalf("NaN sample was not passed through: %v", out[10])
	}
	if math.Abs(out[len(out)-1]-1) > 1e-6 {
		t.Fatalf("filter did not settle on the constant input: %v", out[len(out)-1])
	}

	if _, err := LowPass(trace, 0, 20); err == nil {
		t.Fatalf("expected an error for a zero sample rate")
	}
	if _, err := LowPass(trace, 500, 500); err == nil {
		t.Fatalf("expected an error for a cutoff above Nyquist")
	}
}

func TestGridAndMask(t *testing.T) {
	g, err := GridFor(16, 0)
	if err != nil {
		t.Fatal(err)
	}
	if g != (Grid{Width: 4, Height: 4}) {
		t.Fatalf("unexpected grid %+v", g)
	}

	if g, err := GridFor(12, 3); err != nil || g != (Grid{Width: 3, Height: 4}) {
		t.Fatalf("unexpected grid %+v (%v)", g, err)
	}

	if _, err := GridFor(10, 0); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}

	plus := Grid{Width: 3, Height: 3}.CircularMask(Circle{CenterRow: 1, CenterCol: 1, Radius: 1})
	if diff := cmp.Diff([]int{1, 3, 4, 5, 7}, plus); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	c := Grid{Width: 6, Height: 4}.Inscribed()
	if c != (Circle{CenterRow: 2, CenterCol: 3, Radius: 2}) {
		t.Fatalf("unexpected inscribed circle %+v", c)
	}
}

func TestWriteFlat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlat(&buf, []float64{1, 0.5, -2e-7, math.NaN()}); err != nil {
		t.Fatal(err)
	}

	if got := buf.String(); got != "1\n0.5\n-2e-07\nNaN\n" {
		t.Fatalf("unexpected output %q", got)
	}

	path := filepath.Join(t.TempDir(), "trace.dat")
	if err := WriteFlatFile(path, []float64{3}); err != nil {
		t.Fatal(err)
	}
	if b, err := os.ReadFile(path); err != nil || string(b) != "3\n" {
		t.Fatalf("unexpected file %q (%v)", b, err)
	}
}
