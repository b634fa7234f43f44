package sift

import "math"

// Keypoint is a detected stable image location with its characteristic
// scale. X, Y and Sigma are in input-image pixels; the unexported fields
// locate the keypoint within the octave that produced it and are only
// valid until that octave is advanced.
type Keypoint struct {
	X     float64
	Y     float64
	Sigma float64

	octave     int
	xo, yo, so float64 // octave-local continuous position
}

// Detect localizes keypoints in the current octave.
//
// Candidates are 26-neighborhood extrema of the difference-of-Gaussians
// stack, refined by iterative quadratic interpolation and filtered by the
// peak and edge thresholds. The returned slice is in scan order and is
// invalidated by the next octave transition.
func (d *Detector) Detect() []Keypoint {
	if !d.started {
		return nil
	}
	d.buildDoG()

	var keys []Keypoint
	w, h := d.ow, d.oh
	// A candidate must beat 80% of the final threshold before the more
	// expensive refinement runs.
	preThresh := 0.8 * d.peakThresh

	for i := 1; i <= d.levels; i++ {
		plane := d.dog[i]
		below, above := d.dog[i-1], d.dog[i+1]
		for y := 1; y < h-1; y++ {
			for x := 1; x < w-1; x++ {
				v := plane[y*w+x]
				if math.Abs(v) < preThresh {
					continue
				}
				if !isExtremum(v, x, y, w, plane, below, above) {
					continue
				}
				if k, ok := d.refine(x, y, i); ok {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

func (d *Detector) buildDoG() {
	if d.dog != nil {
		return
	}
	n := d.levels + 2
	d.dog = make([][]float64, n)
	for i := 0; i < n; i++ {
		a, b := d.gss[i], d.gss[i+1]
		plane := make([]float64, d.ow*d.oh)
		for j := range plane {
			plane[j] = b[j] - a[j]
		}
		d.dog[i] = plane
	}
}

// isExtremum reports whether v is a strict maximum or minimum over the
// 26 neighbors spanning the adjacent scales.
func isExtremum(v float64, x, y, w int, plane, below, above []float64) bool {
	maximum, minimum := true, true
	planes := [3][]float64{below, plane, above}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			i := (y+dy)*w + x + dx
			for pi, p := range planes {
				if pi == 1 && dx == 0 && dy == 0 {
					continue
				}
				n := p[i]
				if n >= v {
					maximum = false
				}
				if n <= v {
					minimum = false
				}
			}
			if !maximum && !minimum {
				return false
			}
		}
	}
	return maximum || minimum
}

// refine localizes a candidate to sub-pixel and sub-scale accuracy by
// fitting a 3D quadratic to the difference-of-Gaussians neighborhood,
// then applies the peak and edge tests.
func (d *Detector) refine(x, y, s int) (Keypoint, bool) {
	w, h := d.ow, d.oh
	var dx, dy, ds float64

	for iter := 0; iter < 5; iter++ {
		at := func(di, dj, dk int) float64 {
			return d.dog[s+dk][(y+dj)*w+x+di]
		}

		// Gradient and Hessian of the DoG stack at (x, y, s).
		gx := 0.5 * (at(1, 0, 0) - at(-1, 0, 0))
		gy := 0.5 * (at(0, 1, 0) - at(0, -1, 0))
		gs := 0.5 * (at(0, 0, 1) - at(0, 0, -1))

		hxx := at(1, 0, 0) + at(-1, 0, 0) - 2*at(0, 0, 0)
		hyy := at(0, 1, 0) + at(0, -1, 0) - 2*at(0, 0, 0)
		hss := at(0, 0, 1) + at(0, 0, -1) - 2*at(0, 0, 0)
		hxy := 0.25 * (at(1, 1, 0) - at(-1, 1, 0) - at(1, -1, 0) + at(-1, -1, 0))
		hxs := 0.25 * (at(1, 0, 1) - at(-1, 0, 1) - at(1, 0, -1) + at(-1, 0, -1))
		hys := 0.25 * (at(0, 1, 1) - at(0, -1, 1) - at(0, 1, -1) + at(0, -1, -1))

		var ok bool
		dx, dy, ds, ok = solve3(hxx, hxy, hxs, hxy, hyy, hys, hxs, hys, hss, -gx, -gy, -gs)
		if !ok {
			return Keypoint{}, false
		}

		// Shift the candidate when the fit lands closer to a neighbor.
		moved := false
		if dx > 0.6 && x < w-2 {
			x++
			moved = true
		} else if dx < -0.6 && x > 1 {
			x--
			moved = true
		}
		if dy > 0.6 && y < h-2 {
			y++
			moved = true
		} else if dy < -0.6 && y > 1 {
			y--
			moved = true
		}
		if !moved {
			break
		}
	}

	if math.Abs(dx) > 1.5 || math.Abs(dy) > 1.5 || math.Abs(ds) > 1.5 {
		return Keypoint{}, false
	}

	at := func(di, dj, dk int) float64 {
		return d.dog[s+dk][(y+dj)*w+x+di]
	}
	gx := 0.5 * (at(1, 0, 0) - at(-1, 0, 0))
	gy := 0.5 * (at(0, 1, 0) - at(0, -1, 0))
	gs := 0.5 * (at(0, 0, 1) - at(0, 0, -1))
	val := at(0, 0, 0) + 0.5*(gx*dx+gy*dy+gs*ds)

	if math.Abs(val) < d.peakThresh {
		return Keypoint{}, false
	}

	// Edge rejection via the ratio of principal curvatures.
	hxx := at(1, 0, 0) + at(-1, 0, 0) - 2*at(0, 0, 0)
	hyy := at(0, 1, 0) + at(0, -1, 0) - 2*at(0, 0, 0)
	hxy := 0.25 * (at(1, 1, 0) - at(-1, 1, 0) - at(1, -1, 0) + at(-1, -1, 0))
	tr := hxx + hyy
	det := hxx*hyy - hxy*hxy
	r := d.edgeThresh
	if det <= 0 || tr*tr*r >= (r+1)*(r+1)*det {
		return Keypoint{}, false
	}

	xo := float64(x) + dx
	yo := float64(y) + dy
	so := float64(smin+s) + ds
	scale := math.Pow(2, float64(d.cur))

	return Keypoint{
		X:      xo * scale,
		Y:      yo * scale,
		Sigma:  d.levelSigma(so) * scale,
		octave: d.cur,
		xo:     xo,
		yo:     yo,
		so:     so,
	}, true
}

// solve3 solves the 3x3 linear system A*x = b by Gaussian elimination
// with partial pivoting. Returns false for a singular system.
func solve3(a11, a12, a13, a21, a22, a23, a31, a32, a33, b1, b2, b3 float64) (x, y, z float64, ok bool) {
	a := [3][4]float64{
		{a11, a12, a13, b1},
		{a21, a22, a23, b2},
		{a31, a32, a33, b3},
	}
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return 0, 0, 0, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		for row := col + 1; row < 3; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 4; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}
	z = a[2][3] / a[2][2]
	y = (a[1][3] - a[1][2]*z) / a[1][1]
	x = (a[0][3] - a[0][2]*z - a[0][1]*y) / a[0][0]
	return x, y, z, true
}
