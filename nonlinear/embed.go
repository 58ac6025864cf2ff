// Package nonlinear drives external nonlinear-dynamics estimators (correlation
// dimension and maximal Lyapunov exponent) over single-pixel voltage traces and
// reduces their output curves to scalar estimates.
package nonlinear

import "fmt"

// DelayEmbed returns the time-delay embedding of x in m dimensions with delay
// tau: row t is [x(t), x(t+tau), ..., x(t+(m-1)tau)].
func DelayEmbed(x []float64, m, tau int) ([][]float64, error) {
	if m < 1 || tau < 1 {
		return nil, fmt.Errorf("embedding needs m >= 1 and tau >= 1, got m=%d tau=%d", m, tau)
	}

	n := len(x) - (m-1)*tau
	if n <= 0 {
		return nil, fmt.Errorf("series of length %d is too short for m=%d tau=%d", len(x), m, tau)
	}

	out := make([][]float64, n)
	for t := range out {
		row := make([]float64, m)
		for k := range row {
			row[k] = x[t+k*tau]
		}
		out[t] = row
	}

	return out, nil
}
