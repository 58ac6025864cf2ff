package optmap

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// sniffBytes is how much of a texture file is inspected when guessing its
// delimiter. Texture rows are very wide, so a few lines fit comfortably.
const sniffBytes = 64 * 1024

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Comma is the fallback.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	// Decimal points and the ';' time-step marker also repeat on every line,
	// so only conventional delimiters are accepted.
	for _, v := range delimiters {
		if len(v) > 0 && strings.ContainsRune(knownDelimiters, rune(v[0])) {
			return rune(v[0])
		}
	}

	return ','
}

const knownDelimiters = ",\t| "

// SniffDelimiter guesses the delimiter from the head of br without consuming
// any of it.
func SniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(sniffBytes)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return ',', err
	}

	if len(head) == 0 {
		return ',', nil
	}

	return DetermineDelimiter(bytes.NewReader(head)), nil
}
