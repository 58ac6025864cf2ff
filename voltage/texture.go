package voltage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/optmap"
	"github.com/carbocation/pfx"
)

// Texture exports carry four cells per recorded group. The first cell of each
// group is a time column and never holds a voltage.
const (
	groupWidth     = 4
	valuesPerGroup = 3
	stepMarker     = ";"
)

// Load opens a texture export, locally or from Google Storage, and parses it.
// If delim is 0 the delimiter is sniffed from the head of the file.
func Load(ctx context.Context, path string, client *storage.Client, delim rune) (Matrix, error) {
	src, err := optmap.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	br := bufio.NewReaderSize(src, 256*1024)

	if delim == 0 {
		if delim, err = optmap.SniffDelimiter(br); err != nil {
			return nil, pfx.Err(err)
		}
	}

	m, err := ParseTexture(br, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// ParseTexture reads a delimited texture export. A cell containing ';' marks
// the end of the first time step; its column index fixes how many pixels each
// time step holds. Values are stored time-major and are reshaped here to one
// trace per pixel.
func ParseTexture(r io.Reader, delim rune) (Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	values := make([]float64, 0, 4096)
	marker := -1

	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		for i, cell := range record {
			if strings.Contains(cell, stepMarker) {
				cell = strings.ReplaceAll(cell, stepMarker, "")
				if marker < 0 {
					marker = i
				}
			}

			cell = strings.TrimSpace(cell)
			if cell == "" || i%groupWidth == 0 {
				continue
			}

			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", row, i+1, err)
			}
			values = append(values, v)
		}
	}

	return reshape(values, marker)
}

func reshape(values []float64, marker int) (Matrix, error) {
	if marker < 0 {
		return nil, fmt.Errorf("%w: no %q time-step marker found", ErrShape, stepMarker)
	}

	if (marker*valuesPerGroup)%groupWidth != 0 {
		return nil, fmt.Errorf("%w: non-integer number of points (marker at column %d)", ErrShape, marker)
	}

	pixels := marker * valuesPerGroup / groupWidth
	if pixels == 0 {
		return nil, fmt.Errorf("%w: time-step marker at column %d leaves no pixels", ErrShape, marker)
	}

	if len(values)%pixels != 0 {
		return nil, fmt.Errorf("%w: non-integer time steps (%d values, %d pixels)", ErrShape, len(values), pixels)
	}

	samples := len(values) / pixels

	out := make(Matrix, pixels)
	for p := range out {
		out[p] = make([]float64, samples)
		for t := 0; t < samples; t++ {
			out[p][t] = values[t*pixels+p]
		}
	}

	return out, nil
}
