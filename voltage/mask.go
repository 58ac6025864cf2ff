package voltage

import "fmt"

// Grid describes how pixel indices map onto the recorded image: pixel p sits
// at row p / Width and column p % Width.
type Grid struct {
	Width  int
	Height int
}

// GridFor infers the grid for a pixel count. Width 0 means the image is
// square.
func GridFor(pixels, width int) (Grid, error) {
	if width <= 0 {
		for width = 1; width*width < pixels; width++ {
		}
	}

	if pixels%width != 0 {
		return Grid{}, fmt.Errorf("%w: %d pixels do not fill rows of width %d", ErrShape, pixels, width)
	}

	return Grid{Width: width, Height: pixels / width}, nil
}

// Circle selects the pixels of a circular tissue region.
type Circle struct {
	CenterRow float64
	CenterCol float64
	Radius    float64
}

// Inscribed returns the largest circle centered in the grid, matching the
// circular preparations the recordings come from.
func (g Grid) Inscribed() Circle {
	r := float64(g.Width) / 2
	if h := float64(g.Height) / 2; h < r {
		r = h
	}

	return Circle{
		CenterRow: float64(g.Height) / 2,
		CenterCol: float64(g.Width) / 2,
		Radius:    r,
	}
}

// CircularMask returns, in ascending order, the pixel indices that lie inside
// or on the circle.
func (g Grid) CircularMask(c Circle) []int {
	out := make([]int, 0, g.Width*g.Height)
	r2 := c.Radius * c.Radius

	for p := 0; p < g.Width*g.Height; p++ {
		dr := float64(p/g.Width) - c.CenterRow
		dc := float64(p%g.Width) - c.CenterCol
		if dr*dr+dc*dc <= r2 {
			out = append(out, p)
		}
	}

	return out
}
