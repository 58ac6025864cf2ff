package restitution

import (
	"github.com/montanaflynn/stats"
)

// Summary describes the distribution of one pooled quantity.
type Summary struct {
	N      int
	Mean   float64
	SD     float64
	Median float64
	P5     float64
	P95    float64
	Min    float64
	Max    float64
}

// PoolSummary summarizes each pooled sequence.
type PoolSummary struct {
	DI  Summary
	APD Summary
	BCL Summary
}

// Summarize computes descriptive statistics. An empty input is an error.
func Summarize(vals []float64) (Summary, error) {
	data := stats.Float64Data(vals)

	out := Summary{N: data.Len()}
	var err error

	if out.Mean, err = stats.Mean(data); err != nil {
		return out, err
	}
	if out.SD, err = stats.StandardDeviation(data); err != nil {
		return out, err
	}
	if out.Median, err = stats.Median(data); err != nil {
		return out, err
	}
	if out.P5, err = stats.Percentile(data, 5); err != nil {
		return out, err
	}
	if out.P95, err = stats.Percentile(data, 95); err != nil {
		return out, err
	}
	if out.Min, err = stats.Min(data); err != nil {
		return out, err
	}
	if out.Max, err = stats.Max(data); err != nil {
		return out, err
	}

	return out, nil
}

// Summarize describes the pooled DI, APD and BCL sequences.
func (p Pool) Summarize() (PoolSummary, error) {
	var (
		out PoolSummary
		err error
	)

	if out.DI, err = Summarize(p.DI()); err != nil {
		return out, err
	}
	if out.APD, err = Summarize(p.APD()); err != nil {
		return out, err
	}
	if out.BCL, err = Summarize(p.BCL()); err != nil {
		return out, err
	}

	return out, nil
}
