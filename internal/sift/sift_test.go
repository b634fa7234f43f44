package sift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 64, Params{})
	assert.Error(t, err)

	_, err = New(64, -1, Params{})
	assert.Error(t, err)

	_, err = New(64, 64, Params{FirstOctave: -1})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	d, err := New(64, 64, Params{})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Levels())
}

func TestNew_AutoOctaves(t *testing.T) {
	tests := []struct {
		side        int
		firstOctave int
		want        int
	}{
		{64, 0, 3},
		{512, 0, 6},
		{8, 0, 1},  // too small for the formula, floor of one octave
		{512, 2, 4},
	}

	for _, tt := range tests {
		d, err := New(tt.side, tt.side, Params{FirstOctave: tt.firstOctave})
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Octaves(), "side %d firstOctave %d", tt.side, tt.firstOctave)
	}
}

func TestNew_ExplicitOctaves(t *testing.T) {
	d, err := New(64, 64, Params{Octaves: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Octaves())
}
