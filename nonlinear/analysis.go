package nonlinear

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Plateau summarizes d2 output: the mean local slope inside a log-scale window,
// per embedding dimension and averaged across dimensions.
type Plateau struct {
	Average float64
	PerDim  map[int]float64
}

// D2Plateau averages each curve's y values whose log(x) falls in [lo, hi],
// for dimensions >= minDim. Non-positive x are discarded. Dimensions with no
// points in the window are left out.
func D2Plateau(curves map[int]Curve, minDim int, lo, hi float64) (Plateau, error) {
	if lo > hi {
		return Plateau{}, fmt.Errorf("empty log window [%v, %v]", lo, hi)
	}

	dims := make([]int, 0, len(curves))
	for d := range curves {
		if d >= minDim {
			dims = append(dims, d)
		}
	}
	sort.Ints(dims)

	out := Plateau{PerDim: make(map[int]float64)}
	var means []float64
	for _, d := range dims {
		c := curves[d]

		var ys []float64
		for i, x := range c.X {
			if x <= 0 {
				continue
			}
			if lx := math.Log(x); lx >= lo && lx <= hi {
				ys = append(ys, c.Y[i])
			}
		}
		if len(ys) == 0 {
			continue
		}

		m := stat.Mean(ys, nil)
		out.PerDim[d] = m
		means = append(means, m)
	}

	if len(means) == 0 {
		return Plateau{}, fmt.Errorf("%w: no dimension >= %d has points in [%v, %v]", ErrNoBlocks, minDim, lo, hi)
	}

	out.Average = stat.Mean(means, nil)

	return out, nil
}

// Slope is a least-squares line through one lyap_k curve.
type Slope struct {
	Epsilon   float64
	Dim       int
	Slope     float64
	Intercept float64
	N         int
}

// LyapunovSlope fits a line to the curve with the largest epsilon among those
// computed at dim, using iterations in [lo, hi]. The slope estimates the
// maximal Lyapunov exponent.
func LyapunovSlope(curves map[LyapKey]Curve, dim int, lo, hi float64) (Slope, error) {
	found := false
	var key LyapKey
	for k := range curves {
		if k.Dim != dim {
			continue
		}
		if !found || k.Epsilon > key.Epsilon {
			key = k
			found = true
		}
	}
	if !found {
		return Slope{}, fmt.Errorf("%w: no curve at dim %d", ErrNoBlocks, dim)
	}

	c := curves[key]
	var xs, ys []float64
	for i, x := range c.X {
		if x >= lo && x <= hi {
			xs = append(xs, x)
			ys = append(ys, c.Y[i])
		}
	}
	if len(xs) < 2 {
		return Slope{}, fmt.Errorf("%w: %d points in [%v, %v] at epsilon %v", ErrNoBlocks, len(xs), lo, hi, key.Epsilon)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	return Slope{
		Epsilon:   key.Epsilon,
		Dim:       dim,
		Slope:     beta,
		Intercept: alpha,
		N:         len(xs),
	}, nil
}
