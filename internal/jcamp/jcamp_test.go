package jcamp

import (
	"math"
	"strings"
	"testing"
)

const affnFile = `##TITLE= Hydrogen lamp
##JCAMP-DX= 4.24
##XUNITS= NANOMETERS
##YUNITS= ARBITRARY UNITS
##FIRSTX= 400
##LASTX= 405
##NPOINTS= 6
##XYDATA= (X++(Y..Y))
400 1 2 3
403 4 5 6
##END=
`

func TestReadAFFN(t *testing.T) {
	series, err := Read(strings.NewReader(affnFile))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if series.Title != "Hydrogen lamp" {
		t.Fatalf("title = %q", series.Title)
	}
	if series.WavelengthUnit != "NANOMETERS" || series.FluxUnit != "ARBITRARY UNITS" {
		t.Fatalf("units = %q, %q", series.WavelengthUnit, series.FluxUnit)
	}
	wantX := []float64{400, 401, 402, 403, 404, 405}
	wantY := []float64{1, 2, 3, 4, 5, 6}
	checkSeries(t, series, wantX, wantY)
}

const asdfFile = `##TITLE= Compressed
##XUNITS= NANOMETERS
##YUNITS= ARBITRARY UNITS
##XYDATA= (X++(Y..Y))
400 A JJ T
403 D JJ
##END=
`

func TestReadSQZDIFDUP(t *testing.T) {
	series, err := Read(strings.NewReader(asdfFile))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// A=1; J adds 1 twice; T duplicates the DIF once; the second line's
	// leading D (=4) is the check point and must be dropped.
	wantX := []float64{400, 401, 402, 403, 404, 405}
	wantY := []float64{1, 2, 3, 4, 5, 6}
	checkSeries(t, series, wantX, wantY)
}

const factorFile = `##TITLE= Scaled
##XFACTOR= 2.0
##YFACTOR= 0.5
##XYDATA= (X++(Y..Y))
200 2 4 6
203 8 10 12
##END=
`

func TestReadFactors(t *testing.T) {
	series, err := Read(strings.NewReader(factorFile))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantX := []float64{400, 402, 404, 406, 408, 410}
	wantY := []float64{1, 2, 3, 4, 5, 6}
	checkSeries(t, series, wantX, wantY)
}

const pointsFile = `##TITLE= Pairs
##XUNITS= MICROMETERS
##XYPOINTS= (XY..XY)
1.0, 10.0; 1.1, 11.0
1.2, 12.0
##END=
`

func TestReadXYPoints(t *testing.T) {
	series, err := Read(strings.NewReader(pointsFile))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkSeries(t, series, []float64{1.0, 1.1, 1.2}, []float64{10, 11, 12})
}

func TestReadSingleLineUsesDeclaredRange(t *testing.T) {
	input := `##TITLE= One line
##FIRSTX= 100
##LASTX= 103
##XYDATA= (X++(Y..Y))
100 5 6 7 8
##END=
`
	series, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkSeries(t, series, []float64{100, 101, 102, 103}, []float64{5, 6, 7, 8})
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no data block", "##TITLE= x\n##END=\n"},
		{"garbage in data", "##XYDATA= (X++(Y..Y))\n400 1 # 2\n##END=\n"},
		{"dif before y", "##XYDATA= (X++(Y..Y))\n400 J\n##END=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSplitRecord(t *testing.T) {
	label, value := splitRecord("##JCAMP-DX= 4.24  $$ comment")
	if label != "JCAMPDX" || value != "4.24" {
		t.Fatalf("got %q, %q", label, value)
	}
}

func checkSeries(t *testing.T, s *Series, wantX, wantY []float64) {
	t.Helper()
	if len(s.Wavelength) != len(wantX) {
		t.Fatalf("points = %d, want %d", len(s.Wavelength), len(wantX))
	}
	for i := range wantX {
		if math.Abs(s.Wavelength[i]-wantX[i]) > 1e-9 || math.Abs(s.Flux[i]-wantY[i]) > 1e-9 {
			t.Fatalf("point %d = (%g, %g), want (%g, %g)",
				i, s.Wavelength[i], s.Flux[i], wantX[i], wantY[i])
		}
	}
}
