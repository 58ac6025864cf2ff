// Package voltage loads optical-mapping voltage recordings and prepares them
// for beat segmentation: one normalized, uniformly sampled trace per pixel.
package voltage

import (
	"errors"
	"fmt"
	"math"
)

// ErrShape is returned when the recording cannot be reshaped into a whole
// number of pixels and time samples.
var ErrShape = errors.New("voltage: inconsistent recording shape")

// Matrix holds one trace per pixel: Matrix[pixel][sample].
type Matrix [][]float64

// Pixels is the number of traces.
func (m Matrix) Pixels() int {
	return len(m)
}

// Samples is the number of time samples per trace.
func (m Matrix) Samples() int {
	if len(m) == 0 {
		return 0
	}

	return len(m[0])
}

// Validate checks that every trace has the same length.
func (m Matrix) Validate() error {
	n := m.Samples()
	for p, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: pixel %d has %d samples, expected %d", ErrShape, p, len(row), n)
		}
	}

	return nil
}

// NonFinite counts NaN and infinite samples in the trace for one pixel.
func (m Matrix) NonFinite(pixel int) int {
	n := 0
	for _, v := range m[pixel] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}

	return n
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for p, row := range m {
		out[p] = append([]float64(nil), row...)
	}

	return out
}
