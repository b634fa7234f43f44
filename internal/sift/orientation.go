package sift

import "math"

const (
	numOriBins = 36
	winFactor  = 1.5
)

// Orientations returns the dominant gradient orientations of a keypoint,
// in radians, strongest first, at most MaxOrientations entries.
//
// An empty result is valid: keypoints too close to the octave border, or
// belonging to an octave that has since been advanced past, contribute no
// oriented instances.
func (d *Detector) Orientations(k Keypoint) []float64 {
	if !d.started || k.octave != d.cur {
		return nil
	}

	w, h := d.ow, d.oh
	xi := int(math.Round(k.xo))
	yi := int(math.Round(k.yo))
	if xi < 1 || xi > w-2 || yi < 1 || yi > h-2 {
		return nil
	}

	grad := d.gradient(k.so)
	sigma := winFactor * d.levelSigma(k.so)
	radius := int(math.Floor(3 * sigma))
	if radius < 1 {
		radius = 1
	}

	var hist [numOriBins]float64
	for dy := -radius; dy <= radius; dy++ {
		y := yi + dy
		if y < 1 || y > h-2 {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			x := xi + dx
			if x < 1 || x > w-2 {
				continue
			}
			r2 := float64(dx*dx + dy*dy)
			if r2 > float64(radius*radius)+0.5 {
				continue
			}
			mod := grad[2*(y*w+x)]
			ang := grad[2*(y*w+x)+1]
			wgt := math.Exp(-r2 / (2 * sigma * sigma))
			bin := int(math.Floor(numOriBins * ang / (2 * math.Pi)))
			if bin == numOriBins {
				bin = 0
			}
			hist[bin] += mod * wgt
		}
	}

	// Circular box smoothing stabilizes the peaks.
	for pass := 0; pass < 6; pass++ {
		var smoothed [numOriBins]float64
		for i := range hist {
			prev := hist[(i+numOriBins-1)%numOriBins]
			next := hist[(i+1)%numOriBins]
			smoothed[i] = (prev + hist[i] + next) / 3
		}
		hist = smoothed
	}

	maxVal := 0.0
	for _, v := range hist {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return nil
	}

	type peak struct {
		angle, val float64
	}
	var peaks []peak
	for i := 0; i < numOriBins; i++ {
		prev := hist[(i+numOriBins-1)%numOriBins]
		next := hist[(i+1)%numOriBins]
		v := hist[i]
		if v <= prev || v <= next || v < 0.8*maxVal {
			continue
		}
		// Parabolic interpolation of the peak position.
		di := -0.5 * (next - prev) / (next + prev - 2*v)
		angle := 2 * math.Pi * (float64(i) + di + 0.5) / numOriBins
		peaks = append(peaks, peak{angle: angle, val: v})
	}

	// Strongest first, capped.
	for i := 1; i < len(peaks); i++ {
		for j := i; j > 0 && peaks[j].val > peaks[j-1].val; j-- {
			peaks[j], peaks[j-1] = peaks[j-1], peaks[j]
		}
	}
	if len(peaks) > MaxOrientations {
		peaks = peaks[:MaxOrientations]
	}

	angles := make([]float64, len(peaks))
	for i, p := range peaks {
		angles[i] = p.angle
	}
	return angles
}

// gradient returns the cached (magnitude, angle) planes for the scale
// level nearest so, computing them on first use. Entries are interleaved:
// grad[2*i] is the magnitude at pixel i, grad[2*i+1] the angle in
// [0, 2*pi).
func (d *Detector) gradient(so float64) []float64 {
	i := clampInt(int(math.Round(so))-smin, 1, d.levels)
	if d.grad[i] != nil {
		return d.grad[i]
	}

	w, h := d.ow, d.oh
	level := d.gss[i]
	g := make([]float64, 2*w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := 0.5 * (level[y*w+x+1] - level[y*w+x-1])
			gy := 0.5 * (level[(y+1)*w+x] - level[(y-1)*w+x])
			g[2*(y*w+x)] = math.Hypot(gx, gy)
			ang := math.Atan2(gy, gx)
			if ang < 0 {
				ang += 2 * math.Pi
			}
			g[2*(y*w+x)+1] = ang
		}
	}
	d.grad[i] = g
	return g
}
