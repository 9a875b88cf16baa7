package units

import (
	"math"
	"testing"
)

func TestParseAliases(t *testing.T) {
	cases := []struct {
		label string
		want  Unit
	}{
		{"nm", Nanometer},
		{"Nanometers", Nanometer},
		{"ANGSTROMS", Angstrom},
		{"Å", Angstrom},
		{"(angstrom)", Angstrom},
		{"micron", Micrometer},
		{"µm", Micrometer},
		{"1/CM", Wavenumber},
		{"cm^-1", Wavenumber},
		{"THz", Terahertz},
		{"eV", Electronvolt},
	}
	for _, tc := range cases {
		got, err := Parse(tc.label)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.label, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %s, want %s", tc.label, got, tc.want)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("parsec"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty label")
	}
}

// The round trip mirrors the conversion chain the app exposes:
// nm → Å → µm → cm⁻¹ → nm must hold within float64 tolerance.
func TestRoundTripChain(t *testing.T) {
	chain := []Unit{Angstrom, Micrometer, Wavenumber, Nanometer}
	for _, start := range []float64{121.567, 486.1, 656.281, 1083.0, 2166.12} {
		value := start
		from := Nanometer
		for _, next := range chain {
			nm, err := ToNanometers(value, from)
			if err != nil {
				t.Fatalf("ToNanometers(%v, %s): %v", value, from, err)
			}
			converted, err := FromNanometers(nm, next)
			if err != nil {
				t.Fatalf("FromNanometers(%v, %s): %v", nm, next, err)
			}
			value, from = converted, next
		}
		if math.Abs(value-start) > 1e-9*start {
			t.Fatalf("round trip drifted: start %v end %v", start, value)
		}
	}
}

func TestInvertedUnits(t *testing.T) {
	for _, u := range []Unit{Wavenumber, Hertz, Terahertz, Electronvolt} {
		if !u.Inverted() {
			t.Fatalf("%s should be inverted", u)
		}
	}
	for _, u := range []Unit{Nanometer, Angstrom, Meter} {
		if u.Inverted() {
			t.Fatalf("%s should not be inverted", u)
		}
	}
}

func TestKnownPhysicalValues(t *testing.T) {
	// H-alpha: 656.28 nm ≈ 15236.6 cm⁻¹
	wn, err := FromNanometers(656.28, Wavenumber)
	if err != nil {
		t.Fatalf("FromNanometers: %v", err)
	}
	if math.Abs(wn-15237.4) > 1.0 {
		t.Fatalf("H-alpha wavenumber = %v, want ≈15237", wn)
	}

	// 1 eV photon ≈ 1239.84 nm
	nm, err := ToNanometers(1.0, Electronvolt)
	if err != nil {
		t.Fatalf("ToNanometers: %v", err)
	}
	if math.Abs(nm-1239.84) > 0.01 {
		t.Fatalf("1 eV = %v nm, want ≈1239.84", nm)
	}
}

func TestZeroInverseValueRejected(t *testing.T) {
	if _, err := ToNanometers(0, Wavenumber); err == nil {
		t.Fatal("expected error converting zero wavenumber")
	}
	if _, err := FromNanometers(0, Electronvolt); err == nil {
		t.Fatal("expected error converting zero wavelength to energy")
	}
}

func TestConvertSlice(t *testing.T) {
	angstroms := []float64{4000, 5000, 6000}
	nm, err := SliceToNanometers(angstroms, Angstrom)
	if err != nil {
		t.Fatalf("SliceToNanometers: %v", err)
	}
	want := []float64{400, 500, 600}
	for i := range want {
		if math.Abs(nm[i]-want[i]) > 1e-12 {
			t.Fatalf("nm[%d] = %v, want %v", i, nm[i], want[i])
		}
	}
}
