package voltage

import (
	"fmt"
	"math"

	"github.com/jfcg/butter"
)

// LowPass runs a first-order Butterworth low-pass filter over the trace and
// returns the filtered copy. Non-finite samples are passed through and do not
// enter the filter state.
func LowPass(trace []float64, sampleHz, cutoffHz float64) ([]float64, error) {
	if sampleHz <= 0 {
		return nil, fmt.Errorf("low-pass filtering needs a positive sample rate, got %v", sampleHz)
	}

	wc := 2.0 * math.Pi * cutoffHz / sampleHz

	filt := butter.NewLowPass1(wc)
	if filt == nil {
		return nil, fmt.Errorf("Invalid low-pass filter (attempted wc=%f, but expect .0001 < wc && wc < 3.1415)", wc)
	}

	out := make([]float64, len(trace))
	for i, v := range trace {
		if !finite(v) {
			out[i] = v
			continue
		}
		out[i] = filt.Next(v)
	}

	return out, nil
}
