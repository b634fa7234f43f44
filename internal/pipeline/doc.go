// Package pipeline orchestrates feature extraction over a batch of
// images.
//
// For each input image the Runner derives a basename, opens the active
// output sinks, walks the detector octave by octave, fans each keypoint
// out into its oriented descriptor instances, writes the run-metadata
// record, and unconditionally closes every sink before moving on.
//
// # Batch Semantics
//
// A failure while processing one image is terminal for that image only:
// its sinks are closed, the failure is logged and counted, and the batch
// continues with fresh per-image state. Sink configuration (active flag,
// pattern, protocol) is read-only across the batch; only the open file
// handles and resolved names are per-image.
//
// # Octave Termination
//
// The detector reports "no more octaves" as a (false, nil) result, never
// as an error. The octave loop treats it as the sole normal-termination
// signal, distinct from engine or I/O failures.
package pipeline
