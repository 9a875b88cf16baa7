package asciitab

import (
	"strings"
	"testing"
)

func TestReadVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantWave []float64
		wantFlux []float64
		waveUnit string
		fluxUnit string
	}{
		{
			name:     "whitespace with comment units",
			input:    "# wavelength (nm)  flux (Jy)\n400.0 1.0\n401.0 1.5\n402.0 1.2\n",
			wantWave: []float64{400, 401, 402},
			wantFlux: []float64{1, 1.5, 1.2},
			waveUnit: "nm",
			fluxUnit: "Jy",
		},
		{
			name:     "csv with header row",
			input:    "wavelength [Angstrom],flux [erg/s/cm2/A]\n4000,0.5\n4001,0.6\n",
			wantWave: []float64{4000, 4001},
			wantFlux: []float64{0.5, 0.6},
			waveUnit: "Angstrom",
			fluxUnit: "erg/s/cm2/A",
		},
		{
			name:     "tabs and fortran exponents",
			input:    "1.0D3\t2.5\n1.1D3\t2.6\n",
			wantWave: []float64{1000, 1100},
			wantFlux: []float64{2.5, 2.6},
		},
		{
			name:     "semicolons and blank lines",
			input:    "\n500;9\n\n501;8\n",
			wantWave: []float64{500, 501},
			wantFlux: []float64{9, 8},
		},
		{
			name:     "single semicolon comment",
			input:    "; reference spectrum\n4000.0 1.0\n4001.0 1.1\n",
			wantWave: []float64{4000, 4001},
			wantFlux: []float64{1.0, 1.1},
		},
		{
			name:     "doubled semicolon comment with units",
			input:    ";; wavelength (angstrom)\n4000 1\n4001 2\n",
			wantWave: []float64{4000, 4001},
			wantFlux: []float64{1, 2},
			waveUnit: "angstrom",
		},
		{
			name:     "extra columns ignored",
			input:    "400 1.0 0.01\n401 1.1 0.02\n",
			wantWave: []float64{400, 401},
			wantFlux: []float64{1.0, 1.1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got.Wavelength) != len(tt.wantWave) {
				t.Fatalf("rows = %d, want %d", len(got.Wavelength), len(tt.wantWave))
			}
			for i := range tt.wantWave {
				if got.Wavelength[i] != tt.wantWave[i] || got.Flux[i] != tt.wantFlux[i] {
					t.Fatalf("row %d = (%g, %g), want (%g, %g)",
						i, got.Wavelength[i], got.Flux[i], tt.wantWave[i], tt.wantFlux[i])
				}
			}
			if got.WavelengthUnit != tt.waveUnit || got.FluxUnit != tt.fluxUnit {
				t.Fatalf("units = (%q, %q), want (%q, %q)",
					got.WavelengthUnit, got.FluxUnit, tt.waveUnit, tt.fluxUnit)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single row", "400 1\n"},
		{"single column", "400\n401\n"},
		{"non-numeric mid-file", "400 1\nbroken row\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
