// Package spectrum defines the canonical in-memory and on-disk representation
// of a single spectral trace: a wavelength axis in nanometres, a flux axis of
// the same length, unit labels, and free-form metadata.
//
// Validate is the single gate for the package invariants (equal lengths,
// finite values, strictly ascending wavelength). Parsers produce raw spectra
// in their source units; the normalization stage converts to nanometres and
// calls Validate before anything downstream consumes the trace.
package spectrum
