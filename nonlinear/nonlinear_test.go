package nonlinear

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDelayEmbed(t *testing.T) {
	got, err := DelayEmbed([]float64{0, 1, 2, 3, 4, 5}, 3, 2)
	if err != nil {
		t.Fatal(err)
	}

	expected := [][]float64{{0, 2, 4}, {1, 3, 5}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	for _, v := range []struct{ m, tau int }{{0, 1}, {1, 0}, {4, 2}} {
		if _, err := DelayEmbed([]float64{0, 1, 2, 3, 4, 5}, v.m, v.tau); err == nil {
			t.Fatalf("m=%d tau=%d: expected an error", v.m, v.tau)
		}
	}
}

const d2Output = `#center= 1
#dim= 1
0.001 0.9
0.01 1.1
bogus line
#dim= 3
0.001 2.0
0.01 2.2
1 9
#dim= 4
0.001 3.0
0.01 3.4
`

func TestParseD2(t *testing.T) {
	curves, err := ParseD2(strings.NewReader(d2Output))
	if err != nil {
		t.Fatal(err)
	}

	expected := map[int]Curve{
		1: {X: []float64{0.001, 0.01}, Y: []float64{0.9, 1.1}},
		3: {X: []float64{0.001, 0.01, 1}, Y: []float64{2.0, 2.2, 9}},
		4: {X: []float64{0.001, 0.01}, Y: []float64{3.0, 3.4}},
	}
	if diff := cmp.Diff(expected, curves); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if _, err := ParseD2(strings.NewReader("#center= 1\n")); !errors.Is(err, ErrNoBlocks) {
		t.Fatalf("expected ErrNoBlocks, got %v", err)
	}
}

func TestD2Plateau(t *testing.T) {
	curves, err := ParseD2(strings.NewReader(d2Output))
	if err != nil {
		t.Fatal(err)
	}

	// log(0.001) = -6.9 and log(1) = 0 fall outside [-6, -2]; log(0.01) = -4.6
	// is the only point inside.
	p, err := D2Plateau(curves, 3, -6, -2)
	if err != nil {
		t.Fatal(err)
	}

	if p.PerDim[3] != 2.2 || p.PerDim[4] != 3.4 || len(p.PerDim) != 2 {
		t.Fatalf("unexpected per-dimension plateaus %v", p.PerDim)
	}
	if math.Abs(p.Average-2.8) > 1e-12 {
		t.Fatalf("Average = %v, expected 2.8", p.Average)
	}

	if _, err := D2Plateau(curves, 5, -6, -2); !errors.Is(err, ErrNoBlocks) {
		t.Fatalf("expected ErrNoBlocks, got %v", err)
	}
}

const lyapOutput = `# some preamble
#epsilon= 0.001 dim= 3
0 -4.0
5 -3.0
10 -2.0
20 -1.9
#epsilon= 0.002 dim= 3
0 -3.0
5 -2.5
10 -2.0
20 0
#epsilon= 0.004 dim= 4
0 1
10 2
`

func TestParseLyap(t *testing.T) {
	curves, err := ParseLyap(strings.NewReader(lyapOutput))
	if err != nil {
		t.Fatal(err)
	}

	if len(curves) != 3 {
		t.Fatalf("got %d curves, expected 3", len(curves))
	}

	c, ok := curves[LyapKey{Epsilon: 0.002, Dim: 3}]
	if !ok {
		t.Fatalf("missing curve for epsilon 0.002, dim 3")
	}
	if diff := cmp.Diff([]float64{0, 5, 10, 20}, c.X); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if _, err := ParseLyap(strings.NewReader("0 1\n")); err == nil {
		t.Fatalf("expected an error for data before a header")
	}
	if _, err := ParseLyap(strings.NewReader("#epsilon= 1 dim= 3\nnot numbers\n")); err == nil {
		t.Fatalf("expected an error for a malformed data line")
	}
}

func TestLyapunovSlope(t *testing.T) {
	curves, err := ParseLyap(strings.NewReader(lyapOutput))
	if err != nil {
		t.Fatal(err)
	}

	// The dim 4 block has a larger epsilon but the wrong dimension.
	s, err := LyapunovSlope(curves, 3, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	if s.Epsilon != 0.002 || s.N != 3 || math.Abs(s.Slope-0.1) > 1e-12 || math.Abs(s.Intercept+3) > 1e-12 {
		t.Fatalf("unexpected slope %+v", s)
	}

	if _, err := LyapunovSlope(curves, 7, 0, 10); !errors.Is(err, ErrNoBlocks) {
		t.Fatalf("expected ErrNoBlocks, got %v", err)
	}
	if _, err := LyapunovSlope(curves, 3, 100, 200); !errors.Is(err, ErrNoBlocks) {
		t.Fatalf("expected ErrNoBlocks for an empty window, got %v", err)
	}
}

// fakeEstimator checks the data file it is handed and writes canned output
// beside it, recording the scratch directory it ran in.
func fakeEstimator(t *testing.T, suffix, canned string, dirs *[]string) ExecFunc {
	return func(ctx context.Context, dir, program string, args ...string) ([]byte, error) {
		*dirs = append(*dirs, dir)

		if len(args) == 0 || args[0] != "output.dat" {
			t.Fatalf("%s: unexpected args %v", program, args)
		}

		data, err := os.ReadFile(filepath.Join(dir, args[0]))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "0\n0.5\n1\n" {
			t.Fatalf("unexpected data file %q", data)
		}

		if err := os.WriteFile(filepath.Join(dir, args[0]+suffix), []byte(canned), 0o644); err != nil {
			t.Fatal(err)
		}

		return []byte(program + " ok"), nil
	}
}

func TestRunnerCorrelationDimension(t *testing.T) {
	var dirs []string
	r := Runner{Exec: fakeEstimator(t, ".d2", d2Output, &dirs), TempDir: t.TempDir()}

	resp, err := r.CorrelationDimension(context.Background(), NewD2Request([]float64{0, 0.5, 1}))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(resp.Plateau.Average-2.8) > 1e-12 || string(resp.Output) != "d2 ok" {
		t.Fatalf("unexpected response %+v", resp)
	}

	assertRemoved(t, dirs)
}

func TestRunnerLyapunov(t *testing.T) {
	var dirs []string
	r := Runner{Exec: fakeEstimator(t, ".lyap", lyapOutput, &dirs), TempDir: t.TempDir()}

	resp, err := r.Lyapunov(context.Background(), NewLyapRequest([]float64{0, 0.5, 1}))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(resp.Slope.Slope-0.1) > 1e-12 {
		t.Fatalf("unexpected slope %+v", resp.Slope)
	}

	assertRemoved(t, dirs)
}

func TestRunnerFailures(t *testing.T) {
	var dirs []string
	failing := func(ctx context.Context, dir, program string, args ...string) ([]byte, error) {
		dirs = append(dirs, dir)
		return []byte("boom"), errors.New("exit status 1")
	}

	r := Runner{Exec: failing, TempDir: t.TempDir()}
	resp, err := r.CorrelationDimension(context.Background(), NewD2Request([]float64{1, 2}))
	if err == nil || string(resp.Output) != "boom" {
		t.Fatalf("expected the estimator failure to surface, got %v / %q", err, resp.Output)
	}
	assertRemoved(t, dirs)

	// The program exits cleanly but never writes its output file.
	silent := func(ctx context.Context, dir, program string, args ...string) ([]byte, error) {
		return nil, nil
	}
	r = Runner{Exec: silent, TempDir: t.TempDir()}
	if _, err := r.Lyapunov(context.Background(), NewLyapRequest([]float64{1, 2})); err == nil {
		t.Fatalf("expected an error for missing output")
	}

	if _, err := r.Lyapunov(context.Background(), NewLyapRequest(nil)); err == nil {
		t.Fatalf("expected an error for an empty trace")
	}

	req := NewD2Request([]float64{1})
	req.Name = "../escape"
	if _, err := r.CorrelationDimension(context.Background(), req); err == nil {
		t.Fatalf("expected an error for a name with a path")
	}
}

func assertRemoved(t *testing.T, dirs []string) {
	t.Helper()

	if len(dirs) == 0 {
		t.Fatalf("the estimator never ran")
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("scratch directory %s still exists (err=%v)", dir, err)
		}
	}
}
