// Package units converts spectral axis values between wavelength, wavenumber,
// frequency, and photon-energy units. The canonical internal unit is the
// nanometre; every conversion routes through it.
//
// Wavenumber, frequency, and energy scale inversely with wavelength, so
// converting an ascending wavelength grid to those units produces a
// descending sequence; callers that require monotonic ascending axes reverse
// afterwards (see spectrum.Validate).
package units
