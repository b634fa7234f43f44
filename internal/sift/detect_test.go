package sift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/floats"
)

// blobImage renders a Gaussian blob of the given sigma and amplitude
// over a flat background, with an optional horizontal intensity ramp to
// break rotational symmetry.
func blobImage(w, h int, cx, cy, sigma, amplitude, rampSlope float64) []float64 {
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			v := 20 + amplitude*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			v += rampSlope * float64(x)
			pix[y*w+x] = v
		}
	}
	return pix
}

func testParams() Params {
	return Params{PeakThresh: 2.0, EdgeThresh: 10.0}
}

func TestDetect_UniformImageHasNoKeypoints(t *testing.T) {
	d, err := New(32, 32, testParams())
	require.NoError(t, err)

	more, err := d.FirstOctave(uniformImage(32, 32, 128))
	require.NoError(t, err)
	require.True(t, more)

	assert.Empty(t, d.Detect())
}

func TestDetect_LocalizesBlob(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)

	more, err := d.FirstOctave(blobImage(64, 64, 32, 32, 2.2, 200, 0))
	require.NoError(t, err)
	require.True(t, more)

	keys := d.Detect()
	require.NotEmpty(t, keys, "a strong blob must be detected")

	found := false
	for _, k := range keys {
		if math.Abs(k.X-32) < 3 && math.Abs(k.Y-32) < 3 {
			found = true
			assert.Greater(t, k.Sigma, 1.0)
			assert.Less(t, k.Sigma, 6.0)
		}
	}
	assert.True(t, found, "no keypoint near the blob center, got %+v", keys)
}

func TestDetect_BeforeFirstOctave(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)
	assert.Nil(t, d.Detect())
}

// centerKeypoint detects the blob keypoint nearest the image center.
func centerKeypoint(t *testing.T, d *Detector, pix []float64) Keypoint {
	t.Helper()
	more, err := d.FirstOctave(pix)
	require.NoError(t, err)
	require.True(t, more)

	keys := d.Detect()
	require.NotEmpty(t, keys)

	best, bestDist := keys[0], math.Inf(1)
	for _, k := range keys {
		dist := math.Hypot(k.X-32, k.Y-32)
		if dist < bestDist {
			best, bestDist = k, dist
		}
	}
	require.Less(t, bestDist, 3.0, "expected a keypoint near the center")
	return best
}

func TestOrientations_FollowDominantGradient(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)

	// The ramp biases gradients toward +x (angle 0).
	pix := blobImage(64, 64, 32, 32, 2.2, 200, 2.0)
	k := centerKeypoint(t, d, pix)

	angles := d.Orientations(k)
	require.NotEmpty(t, angles)
	assert.LessOrEqual(t, len(angles), MaxOrientations)

	for _, a := range angles {
		assert.GreaterOrEqual(t, a, 0.0)
		assert.Less(t, a, 2*math.Pi+1e-9)
	}
	assert.Greater(t, math.Cos(angles[0]), 0.5,
		"strongest orientation should follow the ramp direction, got %v", angles[0])
}

func TestOrientations_StaleOctave(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)

	k := centerKeypoint(t, d, blobImage(64, 64, 32, 32, 2.2, 200, 2.0))

	more, err := d.NextOctave()
	require.NoError(t, err)
	require.True(t, more)

	assert.Nil(t, d.Orientations(k), "keypoints do not survive octave transitions")
}

func TestDescriptor_Properties(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)

	k := centerKeypoint(t, d, blobImage(64, 64, 32, 32, 2.2, 200, 2.0))
	angles := d.Orientations(k)
	require.NotEmpty(t, angles)

	desc := d.Descriptor(k, angles[0])
	require.Len(t, desc, DescriptorSize)

	for i, v := range desc {
		assert.GreaterOrEqual(t, v, 0.0, "component %d", i)
		assert.LessOrEqual(t, v, 0.5, "component %d", i)
	}
	assert.InDelta(t, 1.0, floats.Norm(desc, 2), 1e-6, "descriptor is L2-normalized")
}

func TestDescriptor_StaleOctaveIsZero(t *testing.T) {
	d, err := New(64, 64, testParams())
	require.NoError(t, err)

	k := centerKeypoint(t, d, blobImage(64, 64, 32, 32, 2.2, 200, 2.0))

	more, err := d.NextOctave()
	require.NoError(t, err)
	require.True(t, more)

	desc := d.Descriptor(k, 0)
	require.Len(t, desc, DescriptorSize)
	assert.Zero(t, floats.Norm(desc, 2))
}

func TestSolve3(t *testing.T) {
	// x=1, y=2, z=3 against an invertible matrix.
	x, y, z, ok := solve3(
		2, 1, 0,
		1, 3, 1,
		0, 1, 2,
		4, 10, 8,
	)
	require.True(t, ok)
	assert.InDelta(t, 1, x, 1e-9)
	assert.InDelta(t, 2, y, 1e-9)
	assert.InDelta(t, 3, z, 1e-9)

	_, _, _, ok = solve3(
		1, 1, 1,
		2, 2, 2,
		0, 0, 1,
		1, 2, 3,
	)
	assert.False(t, ok, "singular system")
}
