// Package sink manages the output destinations of an extraction run.
//
// Each category of result data (frames, descriptors, run metadata,
// scale-space imagery, keypoint plots) is one Meta: an active flag, a
// naming pattern, a protocol, and the file handle currently open for it.
// The configuration half (flag, pattern, protocol) is parsed once before
// a batch and never mutated; only the handle and resolved name change as
// the batch moves between input images.
//
// # Naming Patterns
//
// A pattern may carry an "ascii://" or "binary://" protocol prefix. In
// the remainder, '%' expands to the per-image basename; a pattern without
// '%' is used verbatim as the output path. The default patterns
// ("%.frame", "%.descr", ...) therefore place outputs next to nothing in
// particular: they derive purely from the input's basename.
//
// # Lifecycle
//
// Open on an inactive sink is a no-op, as is Close on a sink that is
// inactive or already closed, so a cleanup path can close every role
// unconditionally without tracking which opens succeeded.
package sink
