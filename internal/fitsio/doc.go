// Package fitsio reads the subset of FITS used by spectral products: a
// primary 1-D image with linear WCS keywords, or a BINTABLE extension with
// named wavelength and flux columns. It is a reader, not a general FITS
// library; writing and compressed extensions are out of scope.
package fitsio
