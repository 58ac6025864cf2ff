package cardiaccycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// Logger receives progress and per-pixel failure messages. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Config controls a batch segmentation run.
type Config struct {
	DT        float64 // sampling interval, > 0
	Threshold float64 // crossing level in (0, 1); 0 means DefaultThreshold

	// Workers is the number of pixels segmented concurrently. 0 means
	// 4 * runtime.NumCPU().
	Workers int

	// ProgressEvery logs a progress line after every N dispatched pixels. 0
	// disables progress logging.
	ProgressEvery int

	// Logger may be nil.
	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Workers <= 0 {
		c.Workers = 4 * runtime.NumCPU()
	}

	return c
}

func (c Config) validate() error {
	if !(c.DT > 0) || math.IsInf(c.DT, 1) {
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrBadParameter, c.DT)
	}
	if !(c.Threshold > 0 && c.Threshold < 1) {
		return fmt.Errorf("%w: threshold must be in (0, 1), got %v", ErrBadParameter, c.Threshold)
	}

	return nil
}

func (c Config) logf(format string, v ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// RunFromSlices segments traces[p] for every p in pixels (every row when pixels
// is nil). Pixels are independent and are processed concurrently; results are
// returned in the order of pixels regardless of completion order.
//
// A pixel that cannot be segmented has its PixelResult.Err set and does not
// stop the run. Cancellation of ctx is checked between pixels; on cancellation
// the run stops dispatching, waits for in-flight pixels and returns ctx.Err().
// If every pixel fails, the results are returned with ErrAllPixelsFailed.
func RunFromSlices(ctx context.Context, traces [][]float64, pixels []int, cfg Config) ([]PixelResult, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if pixels == nil {
		pixels = make([]int, len(traces))
		for i := range pixels {
			pixels[i] = i
		}
	}

	if len(pixels) == 0 {
		return nil, fmt.Errorf("%w: no pixels to segment", ErrAllPixelsFailed)
	}

	for _, p := range pixels {
		if p < 0 || p >= len(traces) {
			return nil, fmt.Errorf("pixel %d is out of range (%d traces)", p, len(traces))
		}
	}

	results := make([]PixelResult, len(pixels))

	// Manage concurrency
	sem := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup

	var runErr error
Dispatch:
	for i, p := range pixels {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break Dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i, p int) {
			defer func() {
				<-sem
				wg.Done()
			}()

			results[i] = segmentPixel(traces[p], p, cfg)
		}(i, p)

		if cfg.ProgressEvery > 0 && (i+1)%cfg.ProgressEvery == 0 {
			cfg.logf("Dispatched %d of %d pixels\n", i+1, len(pixels))
		}
	}

	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			cfg.logf("Skipping pixel %d: %v\n", res.Pixel, res.Err)
		}
	}

	if failed == len(results) {
		return results, fmt.Errorf("%w: %d pixels", ErrAllPixelsFailed, failed)
	}

	return results, nil
}

func segmentPixel(trace []float64, pixel int, cfg Config) PixelResult {
	res := PixelResult{Pixel: pixel}

	res.Beats, res.Err = Segment(trace, cfg.DT, cfg.Threshold)

	var short *InsufficientDataError
	if errors.As(res.Err, &short) {
		short.Pixel = pixel
	}

	return res
}
