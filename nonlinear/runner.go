package nonlinear

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/carbocation/optmap/voltage"
)

// ExecFunc runs program with args in dir and returns its combined output.
type ExecFunc func(ctx context.Context, dir, program string, args ...string) ([]byte, error)

// Runner invokes the estimators. Each call works in its own temporary
// directory, which is removed before the call returns.
type Runner struct {
	// Exec defaults to running the program with os/exec.
	Exec ExecFunc

	// TempDir is the parent for scratch directories. Empty means os.TempDir.
	TempDir string
}

// D2Request asks for the correlation dimension of a single trace.
type D2Request struct {
	Name  string
	Trace []float64

	// Args follow the data file name on the d2 command line.
	Args []string

	MinDim int
	LogLo  float64
	LogHi  float64
}

// NewD2Request fills in the defaults: embedding dimensions 1..6, a Theiler
// window of 50 and no noise-level output, averaging dimensions >= 3 over
// log(epsilon) in [-6, -2].
func NewD2Request(trace []float64) D2Request {
	return D2Request{
		Name:   "output",
		Trace:  trace,
		Args:   []string{"-M1,6", "-t50", "-N0"},
		MinDim: 3,
		LogLo:  -6,
		LogHi:  -2,
	}
}

// D2Response carries the parsed curves and their plateau.
type D2Response struct {
	Curves  map[int]Curve
	Plateau Plateau
	Output  []byte
}

// LyapRequest asks for the maximal Lyapunov exponent of a single trace.
type LyapRequest struct {
	Name  string
	Trace []float64

	// Args follow the data file name on the lyap_k command line.
	Args []string

	Dim    int
	IterLo float64
	IterHi float64
}

// NewLyapRequest fills in the defaults: embedding dimension 3 and a fit over
// iterations 0..10.
func NewLyapRequest(trace []float64) LyapRequest {
	return LyapRequest{
		Name:   "output",
		Trace:  trace,
		Args:   []string{"-M3", "-m3"},
		Dim:    3,
		IterLo: 0,
		IterHi: 10,
	}
}

// LyapResponse carries the parsed curves and the fitted slope.
type LyapResponse struct {
	Curves map[LyapKey]Curve
	Slope  Slope
	Output []byte
}

// CorrelationDimension runs d2 over the trace.
func (r Runner) CorrelationDimension(ctx context.Context, req D2Request) (D2Response, error) {
	raw, out, err := r.run(ctx, "d2", req.Name, ".d2", req.Trace, req.Args)
	if err != nil {
		return D2Response{Output: out}, err
	}

	curves, err := ParseD2(bytes.NewReader(raw))
	if err != nil {
		return D2Response{Output: out}, fmt.Errorf("d2: %w", err)
	}

	plateau, err := D2Plateau(curves, req.MinDim, req.LogLo, req.LogHi)
	if err != nil {
		return D2Response{Curves: curves, Output: out}, fmt.Errorf("d2: %w", err)
	}

	return D2Response{Curves: curves, Plateau: plateau, Output: out}, nil
}

// Lyapunov runs lyap_k over the trace.
func (r Runner) Lyapunov(ctx context.Context, req LyapRequest) (LyapResponse, error) {
	raw, out, err := r.run(ctx, "lyap_k", req.Name, ".lyap", req.Trace, req.Args)
	if err != nil {
		return LyapResponse{Output: out}, err
	}

	curves, err := ParseLyap(bytes.NewReader(raw))
	if err != nil {
		return LyapResponse{Output: out}, fmt.Errorf("lyap_k: %w", err)
	}

	slope, err := LyapunovSlope(curves, req.Dim, req.IterLo, req.IterHi)
	if err != nil {
		return LyapResponse{Curves: curves, Output: out}, fmt.Errorf("lyap_k: %w", err)
	}

	return LyapResponse{Curves: curves, Slope: slope, Output: out}, nil
}

// run writes <name>.dat to a fresh scratch directory, runs the program on it,
// and returns the contents of <name>.dat<suffix> along with the program's own
// output.
func (r Runner) run(ctx context.Context, program, name, suffix string, trace []float64, args []string) ([]byte, []byte, error) {
	if len(trace) == 0 {
		return nil, nil, fmt.Errorf("%s: empty trace", program)
	}
	if name == "" {
		name = "output"
	}
	if filepath.Base(name) != name {
		return nil, nil, fmt.Errorf("%s: name %q must not contain a path", program, name)
	}

	dir, err := os.MkdirTemp(r.TempDir, "optmap-"+program+"-")
	if err != nil {
		return nil, nil, err
	}
	defer os.RemoveAll(dir)

	dat := name + ".dat"
	if err := voltage.WriteFlatFile(filepath.Join(dir, dat), trace); err != nil {
		return nil, nil, err
	}

	execFn := r.Exec
	if execFn == nil {
		execFn = runCommand
	}

	out, err := execFn(ctx, dir, program, append([]string{dat}, args...)...)
	if err != nil {
		return nil, out, fmt.Errorf("%s: %w\n%s", program, err, out)
	}

	raw, err := os.ReadFile(filepath.Join(dir, dat+suffix))
	if err != nil {
		return nil, out, fmt.Errorf("%s produced no output: %w", program, err)
	}

	return raw, out, nil
}

func runCommand(ctx context.Context, dir, program string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}
