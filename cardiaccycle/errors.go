package cardiaccycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned for traces too short to hold a crossing.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrBadParameter is returned for a non-positive dt or a threshold outside
	// (0, 1).
	ErrBadParameter = errors.New("bad segmentation parameter")

	// ErrAllPixelsFailed is returned by the batch runners when not a single
	// pixel could be segmented.
	ErrAllPixelsFailed = errors.New("every pixel failed segmentation")
)

// InsufficientDataError reports a trace shorter than MinSamples. It matches
// ErrInsufficientData under errors.Is.
type InsufficientDataError struct {
	Pixel   int // -1 when segmenting a lone trace
	Samples int
}

func (e *InsufficientDataError) Error() string {
	if e.Pixel < 0 {
		return fmt.Sprintf("%v: trace has %d samples, need at least %d", ErrInsufficientData, e.Samples, MinSamples)
	}

	return fmt.Sprintf("%v: pixel %d has %d samples, need at least %d", ErrInsufficientData, e.Pixel, e.Samples, MinSamples)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}
