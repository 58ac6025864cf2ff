package cardiaccycle

import (
	"io"

	"github.com/gocarina/gocsv"
)

// Duration kinds in a BeatRow.
const (
	KindAPD = "apd"
	KindDI  = "di"
)

// BeatRow is one duration of one pixel, in long format.
type BeatRow struct {
	Pixel    int     `csv:"pixel"`
	Kind     string  `csv:"kind"`
	Index    int     `csv:"index"`
	Duration float64 `csv:"duration"`
}

// BeatRows flattens the successful results into rows, APDs before DIs within
// each pixel.
func BeatRows(results []PixelResult) []BeatRow {
	out := make([]BeatRow, 0)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for i, v := range r.APD {
			out = append(out, BeatRow{Pixel: r.Pixel, Kind: KindAPD, Index: i, Duration: v})
		}
		for i, v := range r.DI {
			out = append(out, BeatRow{Pixel: r.Pixel, Kind: KindDI, Index: i, Duration: v})
		}
	}

	return out
}

// WriteBeatsCSV writes BeatRows(results) with a header.
func WriteBeatsCSV(w io.Writer, results []PixelResult) error {
	rows := BeatRows(results)
	return gocsv.Marshal(&rows, w)
}
