// Package cardiaccycle segments normalized optical-mapping voltage traces into
// successive action potentials (APD) and diastolic intervals (DI), one pixel at
// a time or over a whole recording in parallel.
package cardiaccycle

import (
	"fmt"
	"math"
)

const (
	// DefaultThreshold is the fraction of the normalized voltage range that
	// separates depolarized from resting tissue.
	DefaultThreshold = 0.3

	// MinSamples is the shortest trace that can contain a crossing.
	MinSamples = 2
)

// Beats is the segmentation of one trace. Durations are in the units of dt.
type Beats struct {
	// APD holds completed depolarized intervals in order of occurrence.
	APD []float64

	// DI holds completed resting intervals in order of occurrence. If the
	// trace ends above threshold, the last completed DI is dropped because the
	// beat it leads into is incomplete.
	DI []float64

	// StartsAbove is true when the first classifiable sample is above
	// threshold, i.e. the first reported APD precedes the first reported DI.
	StartsAbove bool

	// EndsAbove is true when the last sample is above threshold.
	EndsAbove bool

	// NonFinite counts NaN and infinite samples. They are not rejected here:
	// a NaN adjacent to a crossing yields a NaN duration.
	NonFinite int
}

// Segment splits one trace into APD and DI durations. dt is the sampling
// interval and threshold the crossing level, in (0, 1).
//
// Crossings are located by linear interpolation between the two samples that
// straddle the threshold. A sample equal to the threshold is resting. The first
// interval of a trace starts at t=0 without correction, and intervals still
// open when the trace ends are not reported.
func Segment(trace []float64, dt, threshold float64) (Beats, error) {
	if len(trace) < MinSamples {
		return Beats{}, &InsufficientDataError{Pixel: -1, Samples: len(trace)}
	}

	if !(dt > 0) || math.IsInf(dt, 1) {
		return Beats{}, fmt.Errorf("%w: dt must be positive and finite, got %v", ErrBadParameter, dt)
	}

	if !(threshold > 0 && threshold < 1) {
		return Beats{}, fmt.Errorf("%w: threshold must be in (0, 1), got %v", ErrBadParameter, threshold)
	}

	// Rough capacity guess: a beat needs at least one sample on each side.
	capacity := len(trace)/8 + 1

	out := Beats{
		APD: newPass(aboveThreshold, threshold, dt, capacity).run(trace),
		DI:  newPass(belowThreshold, threshold, dt, capacity).run(trace),
	}

	for _, v := range trace {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.NonFinite++
		}
	}

	for _, v := range trace {
		if math.IsNaN(v) {
			continue
		}
		out.StartsAbove = v > threshold
		break
	}

	out.EndsAbove = trace[len(trace)-1] > threshold
	if out.EndsAbove && len(out.DI) > 0 {
		out.DI = out.DI[:len(out.DI)-1]
	}

	return out, nil
}
