package cardiaccycle

// level is the side of the threshold a trace is on.
type level uint8

const (
	belowThreshold level = iota // resting
	aboveThreshold              // depolarized
)

// pass measures the intervals a trace spends at one level. The APD pass
// measures aboveThreshold intervals and the DI pass measures belowThreshold
// intervals; the interpolation is identical for both.
//
// A pass is built fresh for every trace and is never shared.
type pass struct {
	level     level
	threshold float64
	dt        float64

	open       bool
	steps      int     // samples counted since the interval opened
	correction float64 // opening correction, in samples
	durations  []float64
}

func newPass(l level, threshold, dt float64, capacity int) *pass {
	return &pass{
		level:     l,
		threshold: threshold,
		dt:        dt,
		durations: make([]float64, 0, capacity),
	}
}

// enters and leaves are single-sided comparisons. A sample equal to the
// threshold counts as resting, and a NaN sample satisfies neither test so it
// never opens or closes an interval.
func (p *pass) enters(v float64) bool {
	if p.level == aboveThreshold {
		return v > p.threshold
	}

	return v <= p.threshold
}

func (p *pass) leaves(v float64) bool {
	if p.level == aboveThreshold {
		return v <= p.threshold
	}

	return v > p.threshold
}

func (p *pass) run(trace []float64) []float64 {
	for j := range trace {
		p.step(trace, j)
	}

	// An interval still open at the end of the trace is incomplete and is
	// never reported.
	return p.durations
}

func (p *pass) step(trace []float64, j int) {
	v := trace[j]

	switch {
	case !p.open && p.enters(v):
		p.open = true
		p.steps = 0
		p.correction = 0
		if j > 0 {
			p.correction = openingCorrection(trace[j-1], v, p.threshold)
		}

	case p.open && p.leaves(v):
		// j > 0 here: an interval cannot open and close on the same sample.
		p.open = false
		p.close(closingCorrection(trace[j-1], v, p.threshold))
	}

	if p.open {
		p.steps++
	}
}

func (p *pass) close(closing float64) {
	d := float64(p.steps)*p.dt + p.correction*p.dt + closing*p.dt

	// Finite input cannot drive a duration below zero, but rounding must not
	// either. NaN fails the comparison and is kept.
	if d < 0 {
		d = 0
	}

	p.durations = append(p.durations, d)
	p.steps = 0
	p.correction = 0
}

// interpolate evaluates the line through (x0, y0) and (x1, y1) at x.
func interpolate(y0, y1, x0, x1, x float64) float64 {
	return (y0*(x1-x) + y1*(x-x0)) / (x1 - x0)
}

// openingCorrection is the share of the sample step ending at cur that lies
// after the crossing. The opening sample is counted as a whole step, so the
// correction is 1 minus the share before the crossing.
func openingCorrection(prev, cur, threshold float64) float64 {
	return 1 - interpolate(1, 0, cur, prev, threshold)
}

// closingCorrection is minus the share of the sample step ending at cur that
// lies after the crossing, removing the overshoot past the crossing instant.
func closingCorrection(prev, cur, threshold float64) float64 {
	return interpolate(0, -1, cur, prev, threshold)
}
