package sift

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	nbp    = 4   // spatial bins per side
	nbo    = 8   // orientation bins
	magnif = 3.0 // spatial bin size in units of keypoint sigma
)

// Descriptor computes the 128-component descriptor of a keypoint at one
// of its orientations.
//
// The vector is a 4x4 spatial grid of 8-bin gradient orientation
// histograms, sampled in a frame rotated by angle, L2-normalized with the
// usual 0.2 clamp to suppress gross illumination effects. A keypoint from
// a stale octave yields the zero vector.
func (d *Detector) Descriptor(k Keypoint, angle float64) []float64 {
	desc := make([]float64, DescriptorSize)
	if !d.started || k.octave != d.cur {
		return desc
	}

	w, h := d.ow, d.oh
	grad := d.gradient(k.so)
	sigma := d.levelSigma(k.so)
	sbp := magnif * sigma
	sinA, cosA := math.Sin(angle), math.Cos(angle)

	// Sampling window radius: the descriptor grid plus the half-bin of
	// bilinear support, rotated worst-case by sqrt(2).
	radius := int(math.Ceil(math.Sqrt2 * sbp * (nbp + 1) / 2))

	xi := int(math.Round(k.xo))
	yi := int(math.Round(k.yo))
	// Gaussian weighting over the descriptor grid.
	wsigma := float64(nbp) / 2

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

			// Offset from the refined keypoint center, rotated into the
			// keypoint frame and scaled to spatial bin units.
			ox := float64(x) - k.xo
			oy := float64(y) - k.yo
			nx := (cosA*ox + sinA*oy) / sbp
			ny := (-sinA*ox + cosA*oy) / sbp
			if math.Abs(nx) >= nbp/2+0.5 || math.Abs(ny) >= nbp/2+0.5 {
				continue
			}

			mod := grad[2*(y*w+x)]
			theta := grad[2*(y*w+x)+1] - angle
			for theta < 0 {
				theta += 2 * math.Pi
			}
			for theta >= 2*math.Pi {
				theta -= 2 * math.Pi
			}
			no := theta * nbo / (2 * math.Pi)

			wgt := math.Exp(-(nx*nx + ny*ny) / (2 * wsigma * wsigma))
			accumulate(desc, mod*wgt, nx, ny, no)
		}
	}

	norm := floats.Norm(desc, 2)
	if norm < 1e-12 {
		return desc
	}
	floats.Scale(1/norm, desc)

	clamped := false
	for i, v := range desc {
		if v > 0.2 {
			desc[i] = 0.2
			clamped = true
		}
	}
	if clamped {
		norm = floats.Norm(desc, 2)
		if norm > 1e-12 {
			floats.Scale(1/norm, desc)
		}
	}
	return desc
}

// accumulate distributes one weighted gradient sample over the eight
// neighboring (x, y, orientation) bins by trilinear interpolation.
//
// Spatial bin centers sit at {-1.5, -0.5, 0.5, 1.5} in bin units; sample
// coordinates are shifted so bin index 0 corresponds to the first center.
func accumulate(desc []float64, val, nx, ny, no float64) {
	bx := int(math.Floor(nx - 0.5 + nbp/2))
	by := int(math.Floor(ny - 0.5 + nbp/2))
	bo := int(math.Floor(no))

	rx := nx - 0.5 + nbp/2 - float64(bx)
	ry := ny - 0.5 + nbp/2 - float64(by)
	ro := no - float64(bo)

	for dy := 0; dy <= 1; dy++ {
		yb := by + dy
		if yb < 0 || yb >= nbp {
			continue
		}
		wy := 1 - ry
		if dy == 1 {
			wy = ry
		}
		for dx := 0; dx <= 1; dx++ {
			xb := bx + dx
			if xb < 0 || xb >= nbp {
				continue
			}
			wx := 1 - rx
			if dx == 1 {
				wx = rx
			}
			for do := 0; do <= 1; do++ {
				ob := (bo + do) % nbo
				wo := 1 - ro
				if do == 1 {
					wo = ro
				}
				desc[(yb*nbp+xb)*nbo+ob] += val * wy * wx * wo
			}
		}
	}
}
