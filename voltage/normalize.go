package voltage

import (
	"fmt"
	"math"

	"github.com/carbocation/runningvariance"
	"gonum.org/v1/gonum/floats"
)

// Method selects how each pixel's trace is scaled before thresholding.
type Method string

const (
	// MethodNone leaves values untouched. Simulation textures are already
	// dimensionless.
	MethodNone Method = "none"

	// MethodMinMax rescales each pixel to [0, 1] using its finite extrema.
	MethodMinMax Method = "minmax"

	// MethodZScore standardizes each pixel, clips to +/- zClip standard
	// deviations, and maps the result onto [0, 1].
	MethodZScore Method = "zscore"
)

const zClip = 3.0

// ParseMethod maps a flag value onto a Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case "", MethodNone:
		return MethodNone, nil
	case MethodMinMax, MethodZScore:
		return m, nil
	}

	return MethodNone, fmt.Errorf("unknown normalization method %q (want none, minmax or zscore)", s)
}

// NormalizeOptions configure Normalize. LowPassHz of 0 disables filtering;
// otherwise SampleHz must be set.
type NormalizeOptions struct {
	Method    Method
	LowPassHz float64
	SampleHz  float64
}

// Normalize returns a new matrix with every trace filtered and scaled. The
// input is not modified. Non-finite samples are carried through unchanged and
// are ignored when estimating scale.
func Normalize(m Matrix, opts NormalizeOptions) (Matrix, error) {
	if opts.Method == "" {
		opts.Method = MethodNone
	}

	out := make(Matrix, len(m))
	for p, row := range m {
		trace := append([]float64(nil), row...)

		if opts.LowPassHz > 0 {
			var err error
			if trace, err = LowPass(trace, opts.SampleHz, opts.LowPassHz); err != nil {
				return nil, fmt.Errorf("pixel %d: %w", p, err)
			}
		}

		switch opts.Method {
		case MethodNone:
		case MethodMinMax:
			minMax(trace)
		case MethodZScore:
			zScore(trace)
		default:
			return nil, fmt.Errorf("unknown normalization method %q", opts.Method)
		}

		out[p] = trace
	}

	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteValues(trace []float64) []float64 {
	out := make([]float64, 0, len(trace))
	for _, v := range trace {
		if finite(v) {
			out = append(out, v)
		}
	}

	return out
}

// minMax scales in place. A flat pixel maps to 0.
func minMax(trace []float64) {
	vals := finiteValues(trace)
	if len(vals) == 0 {
		return
	}

	lo, hi := floats.Min(vals), floats.Max(vals)
	span := hi - lo

	for i, v := range trace {
		if !finite(v) {
			continue
		}
		if span == 0 {
			trace[i] = 0
			continue
		}
		trace[i] = (v - lo) / span
	}
}

// zScore scales in place. A flat pixel maps to 0.5.
func zScore(trace []float64) {
	rs := runningvariance.NewRunningStat()
	for _, v := range trace {
		if finite(v) {
			rs.Push(v)
		}
	}

	mean, sd := rs.Mean(), rs.StandardDeviation()

	for i, v := range trace {
		if !finite(v) {
			continue
		}
		if sd == 0 || math.IsNaN(sd) {
			trace[i] = 0.5
			continue
		}

		z := (v - mean) / sd
		z = math.Max(-zClip, math.Min(zClip, z))
		trace[i] = (z + zClip) / (2 * zClip)
	}
}
