package sift

import (
	"fmt"
	"math"
)

// FirstOctave builds the scale space for the first octave from the input
// pixel buffer (width*height samples, row-major).
//
// The boolean result reports whether an octave was produced: (false, nil)
// means the image is too small for even one octave, which is normal
// termination rather than an error.
func (d *Detector) FirstOctave(pix []float64) (bool, error) {
	if len(pix) != d.width*d.height {
		return false, fmt.Errorf("sift: pixel buffer is %d samples, want %d",
			len(pix), d.width*d.height)
	}

	ow, oh := d.width>>uint(d.firstOctave), d.height>>uint(d.firstOctave)
	if ow < minOctaveSize || oh < minOctaveSize {
		return false, nil
	}

	base := pix
	w, h := d.width, d.height
	for o := 0; o < d.firstOctave; o++ {
		base = decimate(base, w, h)
		w, h = w/2, h/2
	}

	d.cur = d.firstOctave
	d.ow, d.oh = ow, oh
	d.started = true

	// The input carries sigmaN of smoothing at full resolution, which
	// shrinks by 2^firstOctave in octave pixel units.
	sa := d.levelSigma(smin)
	sb := sigmaN / math.Pow(2, float64(d.firstOctave))

	first := make([]float64, ow*oh)
	if sa > sb {
		smooth(first, base, ow, oh, math.Sqrt(sa*sa-sb*sb))
	} else {
		copy(first, base)
	}

	d.buildLevels(first)
	return true, nil
}

// NextOctave advances to the next octave, decimating the level whose
// smoothing is exactly double the octave base.
//
// Returns (false, nil) when no further octave exists.
func (d *Detector) NextOctave() (bool, error) {
	if !d.started {
		return false, fmt.Errorf("sift: first octave not processed")
	}
	if d.cur+1 >= d.firstOctave+d.octaves {
		return false, nil
	}
	if d.ow/2 < minOctaveSize || d.oh/2 < minOctaveSize {
		return false, nil
	}

	// Level s=smin+S of the old octave has sigma 2*levelSigma(smin);
	// halving the resolution makes it the new octave's base exactly.
	base := decimate(d.gss[d.levels], d.ow, d.oh)

	d.cur++
	d.ow, d.oh = d.ow/2, d.oh/2
	d.buildLevels(base)
	return true, nil
}

// buildLevels fills d.gss from the octave base (scale smin), smoothing
// incrementally so each level reaches its nominal sigma.
func (d *Detector) buildLevels(base []float64) {
	n := d.levels + 3
	d.gss = make([][]float64, n)
	d.gss[0] = base

	for i := 1; i < n; i++ {
		prev := d.levelSigma(float64(smin + i - 1))
		next := d.levelSigma(float64(smin + i))
		d.gss[i] = make([]float64, d.ow*d.oh)
		smooth(d.gss[i], d.gss[i-1], d.ow, d.oh, math.Sqrt(next*next-prev*prev))
	}

	d.dog = nil
	d.grad = make([][]float64, n)
}

// decimate halves an image by keeping every second sample in each
// dimension.
func decimate(src []float64, w, h int) []float64 {
	dw, dh := w/2, h/2
	dst := make([]float64, dw*dh)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			dst[y*dw+x] = src[(2*y)*w+2*x]
		}
	}
	return dst
}

// smooth convolves src with a Gaussian of the given sigma into dst,
// using a separable kernel and replicated borders.
func smooth(dst, src []float64, w, h int, sigma float64) {
	if sigma < 1e-8 {
		copy(dst, src)
		return
	}

	radius := int(math.Ceil(4 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	// Horizontal pass into a scratch buffer, then vertical into dst.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, k := range kernel {
				acc += k * row[clampInt(x+i-radius, 0, w-1)]
			}
			tmp[y*w+x] = acc
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, k := range kernel {
				acc += k * tmp[clampInt(y+i-radius, 0, h-1)*w+x]
			}
			dst[y*w+x] = acc
		}
	}
}

// clampInt constrains an integer value to the range [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
