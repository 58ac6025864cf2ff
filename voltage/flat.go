package voltage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteFlat writes one value per line, the input convention of the TISEAN-style
// estimators (d2, lyap_k).
func WriteFlat(w io.Writer, trace []float64) error {
	bw := bufio.NewWriter(w)
	for _, v := range trace {
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFlatFile writes the trace to path, replacing any existing file.
func WriteFlatFile(path string, trace []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteFlat(f, trace); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	return f.Close()
}
