package restitution

import (
	"io"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes triples with a pixel,beat,di,apd,bcl header.
func WriteCSV(w io.Writer, triples []Triple) error {
	return gocsv.Marshal(&triples, w)
}

// ReadCSV reads triples written by WriteCSV.
func ReadCSV(r io.Reader) ([]Triple, error) {
	var out []Triple
	if err := gocsv.Unmarshal(r, &out); err != nil {
		return nil, err
	}

	return out, nil
}
