package restitution

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned when a fit has fewer than two usable points or
// no spread in x.
var ErrTooFewPoints = errors.New("restitution: not enough points to fit")

// Fit is a least-squares line y = Intercept + Slope*x.
type Fit struct {
	Intercept float64
	Slope     float64
	RSquared  float64
	N         int
}

func (f Fit) String() string {
	return fmt.Sprintf("y = %.4g + %.4g*x (R^2=%.3f, n=%d)", f.Intercept, f.Slope, f.RSquared, f.N)
}

// LinearFit fits y against x by ordinary least squares.
func LinearFit(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("restitution: %d x values but %d y values", len(x), len(y))
	}

	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		return Fit{}, fmt.Errorf("%w: n=%d", ErrTooFewPoints, len(x))
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)

	return Fit{
		Intercept: alpha,
		Slope:     beta,
		RSquared:  stat.RSquared(x, y, nil, alpha, beta),
		N:         len(x),
	}, nil
}

// Restitution fits APD against the preceding DI. The slope is the restitution
// slope; values above 1 are associated with alternans and wave break.
func (p Pool) Restitution() (Fit, error) {
	return LinearFit(p.DI(), p.APD())
}

// LogRestitution fits APD against ln(DI), over triples with DI > 0.
func (p Pool) LogRestitution() (Fit, error) {
	x := make([]float64, 0, len(p.Triples))
	y := make([]float64, 0, len(p.Triples))
	for _, t := range p.Triples {
		if t.DI <= 0 {
			continue
		}
		x = append(x, math.Log(t.DI))
		y = append(y, t.APD)
	}

	return LinearFit(x, y)
}

// Dynamic fits APD against BCL.
func (p Pool) Dynamic() (Fit, error) {
	return LinearFit(p.BCL(), p.APD())
}
