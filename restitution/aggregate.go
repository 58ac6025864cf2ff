// Package restitution pools per-pixel APD and DI sequences into (DI, APD, BCL)
// triples and fits restitution curves to them.
package restitution

import (
	"errors"
	"fmt"
	"math"

	"github.com/carbocation/optmap/cardiaccycle"
)

var (
	// ErrEmptyPool is returned when aggregation leaves no usable triple.
	ErrEmptyPool = errors.New("restitution: no usable triples")

	// ErrMisaligned is returned when a pixel's DI sequence is too short to
	// supply the DI preceding one of its APDs.
	ErrMisaligned = errors.New("restitution: DI sequence does not cover APD sequence")
)

// DefaultLead is the number of leading beats per pixel discarded as biased by
// the arbitrary recording start.
const DefaultLead = 2

// Triple is one beat: the DI immediately preceding it, its APD, and their sum.
type Triple struct {
	Pixel int     `csv:"pixel"`
	Beat  int     `csv:"beat"` // index into the pixel's APD sequence
	DI    float64 `csv:"di"`
	APD   float64 `csv:"apd"`
	BCL   float64 `csv:"bcl"`
}

// Series is the segmentation of one pixel as consumed by Aggregate.
type Series struct {
	Pixel       int
	APD         []float64
	DI          []float64
	StartsAbove bool
	NonFinite   int
}

// FromResults converts successful batch results into series, preserving order.
// Failed pixels are left out.
func FromResults(results []cardiaccycle.PixelResult) []Series {
	out := make([]Series, 0, len(results))
	for _, v := range results {
		if !v.OK() {
			continue
		}
		out = append(out, Series{
			Pixel:       v.Pixel,
			APD:         v.APD,
			DI:          v.DI,
			StartsAbove: v.StartsAbove,
			NonFinite:   v.NonFinite,
		})
	}

	return out
}

// Options control pairing and filtering.
type Options struct {
	// Lead is the number of leading APDs per pixel that are not paired.
	Lead int

	// KeepNonFinite retains triples with a NaN or infinite component. By
	// default they are dropped and counted in Pool.Dropped.
	KeepNonFinite bool

	// SkipTaintedPixels leaves out every pixel whose trace held any non-finite
	// sample, even if its durations happen to be finite.
	SkipTaintedPixels bool
}

// DefaultOptions discards the first DefaultLead beats and drops non-finite
// triples.
func DefaultOptions() Options {
	return Options{Lead: DefaultLead}
}

// Pool is the pooled restitution dataset in pixel order.
type Pool struct {
	Triples []Triple

	Pixels        int // pixels contributing at least one triple
	Dropped       int // triples removed for a non-finite component
	SkippedPixels int // pixels left out by SkipTaintedPixels
}

// Aggregate pairs every APD (after the first opts.Lead) with the DI that
// immediately precedes it. When a trace starts above threshold its first APD
// comes before its first DI, so APD[j] pairs with DI[j-1]; otherwise with
// DI[j]. BCL is DI + APD.
//
// Output order follows the input order and is deterministic. A pool with no
// triple is an error.
func Aggregate(series []Series, opts Options) (Pool, error) {
	if opts.Lead < 0 {
		return Pool{}, fmt.Errorf("restitution: negative lead %d", opts.Lead)
	}

	out := Pool{}

	for _, s := range series {
		if opts.SkipTaintedPixels && s.NonFinite > 0 {
			out.SkippedPixels++
			continue
		}

		contributed := false
		for j := opts.Lead; j < len(s.APD); j++ {
			k := j
			if s.StartsAbove {
				k = j - 1
			}

			// Only reachable with Lead 0: the first APD has no preceding DI.
			if k < 0 {
				continue
			}

			if k >= len(s.DI) {
				return Pool{}, fmt.Errorf("%w: pixel %d needs DI[%d] for APD[%d] but has %d DIs", ErrMisaligned, s.Pixel, k, j, len(s.DI))
			}

			t := Triple{
				Pixel: s.Pixel,
				Beat:  j,
				DI:    s.DI[k],
				APD:   s.APD[j],
			}
			t.BCL = t.DI + t.APD

			if !opts.KeepNonFinite && !(finite(t.DI) && finite(t.APD) && finite(t.BCL)) {
				out.Dropped++
				continue
			}

			out.Triples = append(out.Triples, t)
			contributed = true
		}

		if contributed {
			out.Pixels++
		}
	}

	if len(out.Triples) == 0 {
		return out, fmt.Errorf("%w: %d pixels, %d dropped as non-finite, %d skipped", ErrEmptyPool, len(series), out.Dropped, out.SkippedPixels)
	}

	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DI returns the pooled diastolic intervals.
func (p Pool) DI() []float64 {
	out := make([]float64, len(p.Triples))
	for i, t := range p.Triples {
		out[i] = t.DI
	}
	return out
}

// APD returns the pooled action potential durations.
func (p Pool) APD() []float64 {
	out := make([]float64, len(p.Triples))
	for i, t := range p.Triples {
		out[i] = t.APD
	}
	return out
}

// BCL returns the pooled basic cycle lengths.
func (p Pool) BCL() []float64 {
	out := make([]float64, len(p.Triples))
	for i, t := range p.Triples {
		out[i] = t.BCL
	}
	return out
}
