// Package pgm reads and writes portable graymap (PGM) images.
//
// Both the raw (P5) and plain (P2) variants are supported for reading;
// writing always produces the raw variant, which is what downstream
// tooling expects for scale-space dumps.
//
// # Supported Range
//
// Only 8-bit graymaps (max value <= 255) are handled. Headers declaring a
// larger max value are rejected with a FormatError rather than silently
// rescaled.
//
// # Error Handling
//
// Malformed headers and short pixel data are reported as FormatError so
// callers can distinguish a corrupt input image from an I/O failure on
// the underlying stream.
package pgm
