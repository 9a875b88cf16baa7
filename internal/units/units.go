package units

import (
	"fmt"
	"strings"
)

// Unit identifies a spectral axis unit.
type Unit string

const (
	Nanometer        Unit = "nm"
	Angstrom         Unit = "angstrom"
	Micrometer       Unit = "um"
	Millimeter       Unit = "mm"
	Meter            Unit = "m"
	Wavenumber       Unit = "cm-1"
	Hertz            Unit = "hz"
	Gigahertz        Unit = "ghz"
	Terahertz        Unit = "thz"
	Electronvolt     Unit = "ev"
	Kiloelectronvolt Unit = "kev"
)

// Physical constants in nanometre-based units.
const (
	speedOfLightNmPerS = 2.99792458e17   // c in nm/s
	planckEVNm         = 1239.8419843320 // h*c in eV·nm
)

var aliases = map[string]Unit{
	"nm":           Nanometer,
	"nanometer":    Nanometer,
	"nanometers":   Nanometer,
	"nanometre":    Nanometer,
	"nanometres":   Nanometer,
	"a":            Angstrom,
	"aa":           Angstrom,
	"ang":          Angstrom,
	"angstrom":     Angstrom,
	"angstroms":    Angstrom,
	"å":            Angstrom,
	"um":           Micrometer,
	"micron":       Micrometer,
	"microns":      Micrometer,
	"micrometer":   Micrometer,
	"micrometers":  Micrometer,
	"µm":           Micrometer,
	"μm":           Micrometer,
	"mm":           Millimeter,
	"millimeter":   Millimeter,
	"millimeters":  Millimeter,
	"m":            Meter,
	"meter":        Meter,
	"meters":       Meter,
	"metre":        Meter,
	"metres":       Meter,
	"cm-1":         Wavenumber,
	"cm^-1":        Wavenumber,
	"1/cm":         Wavenumber,
	"wavenumber":   Wavenumber,
	"wavenumbers":  Wavenumber,
	"kayser":       Wavenumber,
	"hz":           Hertz,
	"hertz":        Hertz,
	"ghz":          Gigahertz,
	"thz":          Terahertz,
	"ev":           Electronvolt,
	"electronvolt": Electronvolt,
	"kev":          Kiloelectronvolt,
}

// wavelength units expressed in nanometres per unit.
var nmPerUnit = map[Unit]float64{
	Nanometer:  1,
	Angstrom:   0.1,
	Micrometer: 1e3,
	Millimeter: 1e6,
	Meter:      1e9,
}

// Parse maps a unit label (as emitted by FITS CUNIT cards, JCAMP XUNITS, or
// ASCII column headers) onto a known Unit.
func Parse(label string) (Unit, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.Trim(normalized, "()[]")
	if normalized == "" {
		return "", fmt.Errorf("unit label is empty")
	}
	if unit, ok := aliases[normalized]; ok {
		return unit, nil
	}
	return "", fmt.Errorf("unknown spectral unit %q", label)
}

// Known reports whether a label parses to a supported unit.
func Known(label string) bool {
	_, err := Parse(label)
	return err == nil
}

// Inverted reports whether the unit scales inversely with wavelength, which
// flips axis ordering on conversion.
func (u Unit) Inverted() bool {
	switch u {
	case Wavenumber, Hertz, Gigahertz, Terahertz, Electronvolt, Kiloelectronvolt:
		return true
	default:
		return false
	}
}

// ToNanometers converts a single value from the given unit to nanometres.
func ToNanometers(value float64, from Unit) (float64, error) {
	if factor, ok := nmPerUnit[from]; ok {
		return value * factor, nil
	}
	if value == 0 {
		return 0, fmt.Errorf("cannot convert zero %s to wavelength", from)
	}
	switch from {
	case Wavenumber:
		// value in cm^-1; wavelength nm = 1e7 / wavenumber
		return 1e7 / value, nil
	case Hertz:
		return speedOfLightNmPerS / value, nil
	case Gigahertz:
		return speedOfLightNmPerS / (value * 1e9), nil
	case Terahertz:
		return speedOfLightNmPerS / (value * 1e12), nil
	case Electronvolt:
		return planckEVNm / value, nil
	case Kiloelectronvolt:
		return planckEVNm / (value * 1e3), nil
	default:
		return 0, fmt.Errorf("unsupported source unit %q", from)
	}
}

// FromNanometers converts a single wavelength in nanometres to the given unit.
func FromNanometers(value float64, to Unit) (float64, error) {
	if factor, ok := nmPerUnit[to]; ok {
		return value / factor, nil
	}
	if value == 0 {
		return 0, fmt.Errorf("cannot convert zero wavelength to %s", to)
	}
	switch to {
	case Wavenumber:
		return 1e7 / value, nil
	case Hertz:
		return speedOfLightNmPerS / value, nil
	case Gigahertz:
		return speedOfLightNmPerS / value / 1e9, nil
	case Terahertz:
		return speedOfLightNmPerS / value / 1e12, nil
	case Electronvolt:
		return planckEVNm / value, nil
	case Kiloelectronvolt:
		return planckEVNm / value / 1e3, nil
	default:
		return 0, fmt.Errorf("unsupported target unit %q", to)
	}
}

// ConvertSlice converts values between two units, allocating a new slice.
// Ordering is preserved as-is; callers handle reversal for inverted units.
func ConvertSlice(values []float64, from, to Unit) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		nm, err := ToNanometers(v, from)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		converted, err := FromNanometers(nm, to)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = converted
	}
	return out, nil
}

// SliceToNanometers converts a whole axis to nanometres.
func SliceToNanometers(values []float64, from Unit) ([]float64, error) {
	return ConvertSlice(values, from, Nanometer)
}
