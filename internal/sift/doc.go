// Package sift implements the SIFT detector and descriptor engine.
//
// A Detector is created per input image and walks a Gaussian scale space
// one octave at a time. The caller drives the walk explicitly:
//
//	d, err := sift.New(width, height, params)
//	more, err := d.FirstOctave(pixels)
//	for more {
//	    for _, k := range d.Detect() {
//	        for _, angle := range d.Orientations(k) {
//	            desc := d.Descriptor(k, angle)
//	            // ...
//	        }
//	    }
//	    more, err = d.NextOctave()
//	}
//
// # Octave Lifecycle
//
// Only one octave is resident at a time. Keypoints returned by Detect are
// positioned in input-image coordinates but their internal state refers to
// the octave that produced them: consume them (orientations, descriptors)
// before calling NextOctave.
//
// # Termination
//
// FirstOctave and NextOctave return (false, nil) when no further octave
// exists, which is the normal end of processing and distinct from an
// error. A degenerate image can exhaust before the first octave is built.
//
// # Coordinate System
//
// (0,0) is the top-left pixel, X increases rightward, Y downward. Sigma is
// expressed in input-image pixels regardless of the octave that detected
// the keypoint.
package sift
