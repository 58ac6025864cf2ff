package nonlinear

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoBlocks is returned when estimator output holds no usable curve.
var ErrNoBlocks = errors.New("nonlinear: no usable curves")

// Curve is one block of estimator output.
type Curve struct {
	X []float64
	Y []float64
}

// LyapKey identifies a lyap_k output block.
type LyapKey struct {
	Epsilon float64
	Dim     int
}

// ParseD2 reads d2 output: blocks introduced by "#dim= k" holding "x y" lines.
// "#center=" lines and malformed data lines are ignored, as are lines before
// the first block header.
func ParseD2(r io.Reader) (map[int]Curve, error) {
	out := make(map[int]Curve)

	dim := -1
	var cur Curve

	flush := func() {
		if dim >= 0 && len(cur.X) > 0 {
			out[dim] = cur
		}
		cur = Curve{}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#dim=") {
			flush()
			d, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "#dim=")))
			if err != nil {
				return nil, fmt.Errorf("bad d2 block header %q: %w", line, err)
			}
			dim = d
			continue
		}

		if strings.HasPrefix(line, "#") || dim < 0 {
			continue
		}

		x, y, ok := parsePair(line)
		if !ok {
			continue
		}
		cur.X = append(cur.X, x)
		cur.Y = append(cur.Y, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	flush()

	if len(out) == 0 {
		return nil, ErrNoBlocks
	}

	return out, nil
}

var lyapHeader = regexp.MustCompile(`epsilon=\s*([0-9.eE+-]+)\s*dim=\s*(\d+)`)

// ParseLyap reads lyap_k output: blocks introduced by a comment line carrying
// "epsilon= e dim= d", holding "iteration value" lines. Comment lines that are
// not block headers are ignored.
func ParseLyap(r io.Reader) (map[LyapKey]Curve, error) {
	out := make(map[LyapKey]Curve)

	var key LyapKey
	inBlock := false

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			match := lyapHeader.FindStringSubmatch(line)
			if match == nil {
				continue
			}

			eps, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad epsilon %q: %w", lineNo, match[1], err)
			}
			dim, err := strconv.Atoi(match[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad dim %q: %w", lineNo, match[2], err)
			}

			key = LyapKey{Epsilon: eps, Dim: dim}
			out[key] = Curve{}
			inBlock = true
			continue
		}

		if !inBlock {
			return nil, fmt.Errorf("line %d: data before the first block header", lineNo)
		}

		x, y, ok := parsePair(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'iteration value', got %q", lineNo, line)
		}

		c := out[key]
		c.X = append(c.X, x)
		c.Y = append(c.Y, y)
		out[key] = c
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for k, c := range out {
		if len(c.X) == 0 {
			delete(out, k)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoBlocks
	}

	return out, nil
}

func parsePair(line string) (x, y float64, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return 0, 0, false
	}

	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}

	return x, y, true
}
