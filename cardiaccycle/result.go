package cardiaccycle

// PixelResult is the segmentation of one pixel of a recording. Err is set when
// that pixel alone could not be segmented; Beats is then empty.
type PixelResult struct {
	Pixel int
	Beats
	Err error
}

// OK reports whether the pixel was segmented.
func (r PixelResult) OK() bool {
	return r.Err == nil
}

// Succeeded returns the results that carry beats, in their original order.
func Succeeded(results []PixelResult) []PixelResult {
	out := make([]PixelResult, 0, len(results))
	for _, v := range results {
		if v.OK() {
			out = append(out, v)
		}
	}

	return out
}
