package sift

import (
	"fmt"
	"math"
)

const (
	// DescriptorSize is the number of components in a descriptor vector.
	DescriptorSize = 128

	// MaxOrientations bounds the dominant orientations per keypoint.
	MaxOrientations = 4

	// smin is the scale index of the first level kept per octave. One
	// level below s=0 is needed so difference-of-Gaussians extrema can
	// be localized at the octave's lowest usable scale.
	smin = -1

	// sigma0 is the nominal smoothing of scale level s=0.
	sigma0 = 1.6

	// sigmaN is the smoothing assumed already present in the input.
	sigmaN = 0.5

	// minOctaveSize is the smallest octave side still processed.
	minOctaveSize = 8
)

// Params configures a Detector.
type Params struct {
	// Octaves is the number of octaves to process. Zero or negative
	// derives the count from the image size and FirstOctave.
	Octaves int

	// Levels is the number of scales per octave (S). Defaults to 3.
	Levels int

	// FirstOctave is the index of the first octave. Index o processes
	// the image downsampled by 2^o.
	FirstOctave int

	// PeakThresh discards keypoints whose difference-of-Gaussians
	// response magnitude falls below it.
	PeakThresh float64

	// EdgeThresh discards keypoints whose principal curvature ratio
	// exceeds it, removing responses that sit on an edge rather than
	// a corner-like structure.
	EdgeThresh float64
}

// Detector holds the scale-space state for one image.
type Detector struct {
	width, height int

	octaves     int
	levels      int
	firstOctave int
	peakThresh  float64
	edgeThresh  float64

	started bool
	cur     int // current octave index
	ow, oh  int // current octave dimensions

	gss  [][]float64 // levels smin..levels+1, each ow*oh
	dog  [][]float64 // difference of adjacent gss levels, built by Detect
	grad [][]float64 // per-level interleaved (magnitude, angle), lazy
}

// New creates a detector for an image of the given dimensions.
func New(width, height int, p Params) (*Detector, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("sift: bad image dimensions %dx%d", width, height)
	}
	if p.FirstOctave < 0 {
		return nil, fmt.Errorf("sift: first octave must be non-negative, got %d", p.FirstOctave)
	}

	levels := p.Levels
	if levels <= 0 {
		levels = 3
	}

	peakThresh := p.PeakThresh
	if peakThresh < 0 {
		peakThresh = 0
	}
	edgeThresh := p.EdgeThresh
	if edgeThresh <= 0 {
		edgeThresh = 10
	}

	octaves := p.Octaves
	if octaves <= 0 {
		minSide := width
		if height < minSide {
			minSide = height
		}
		octaves = int(math.Floor(math.Log2(float64(minSide)))) - p.FirstOctave - 3
		if octaves < 1 {
			octaves = 1
		}
	}

	d := &Detector{
		width:       width,
		height:      height,
		octaves:     octaves,
		levels:      levels,
		firstOctave: p.FirstOctave,
		peakThresh:  peakThresh,
		edgeThresh:  edgeThresh,
	}
	return d, nil
}

// Octaves returns the configured octave count.
func (d *Detector) Octaves() int { return d.octaves }

// Levels returns the number of scales per octave (S).
func (d *Detector) Levels() int { return d.levels }

// OctaveIndex returns the index of the current octave.
func (d *Detector) OctaveIndex() int { return d.cur }

// OctaveWidth returns the pixel width of the current octave's levels.
func (d *Detector) OctaveWidth() int { return d.ow }

// OctaveHeight returns the pixel height of the current octave's levels.
func (d *Detector) OctaveHeight() int { return d.oh }

// Octave returns the current octave's level at scale index s, valid for
// s in [smin, Levels()+1]. The exported levels 0..Levels()-1 are the ones
// a caller normally inspects.
func (d *Detector) Octave(s int) ([]float64, error) {
	if !d.started {
		return nil, fmt.Errorf("sift: no octave processed yet")
	}
	i := s - smin
	if i < 0 || i >= len(d.gss) {
		return nil, fmt.Errorf("sift: scale index %d out of range", s)
	}
	return d.gss[i], nil
}

// levelSigma is the nominal smoothing of scale s, in octave pixels.
func (d *Detector) levelSigma(s float64) float64 {
	return sigma0 * math.Pow(2, s/float64(d.levels))
}
