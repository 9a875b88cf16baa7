package fitsio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// column describes one BINTABLE field parsed from TTYPEn/TFORMn/TUNITn.
type column struct {
	name   string
	unit   string
	repeat int
	code   byte
	offset int
	width  int
}

var wavelengthColumns = []string{"WAVELENGTH", "WAVE", "LAMBDA", "LOGLAM", "WAVELENGTH_VACUUM"}
var fluxColumns = []string{"FLUX", "FLUX_DENSITY", "SPECFLUX", "INTENSITY", "COUNTS"}

// tableSeries extracts a spectrum from a BINTABLE HDU. Returns (nil, nil)
// when the table has no recognizable wavelength and flux columns so the
// caller can keep scanning extensions.
func tableSeries(h *Header, data []byte) (*Series, error) {
	rowWidth := h.IntOr("NAXIS1", 0)
	rows := h.IntOr("NAXIS2", 0)
	fields := h.IntOr("TFIELDS", 0)
	if rowWidth <= 0 || rows < 2 || fields <= 0 {
		return nil, nil
	}

	cols, err := parseColumns(h, fields)
	if err != nil {
		return nil, err
	}

	waveCol := findColumn(cols, wavelengthColumns)
	fluxCol := findColumn(cols, fluxColumns)
	if waveCol == nil || fluxCol == nil {
		return nil, nil
	}
	if len(data) < rows*rowWidth {
		return nil, fmt.Errorf("table data truncated: have %d bytes, need %d", len(data), rows*rowWidth)
	}

	wavelength, err := readScalarColumn(data, rowWidth, rows, waveCol)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", waveCol.name, err)
	}
	flux, err := readScalarColumn(data, rowWidth, rows, fluxCol)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", fluxCol.name, err)
	}

	unit := waveCol.unit
	if strings.EqualFold(waveCol.name, "LOGLAM") {
		// SDSS stores log10 of vacuum wavelength in Angstroms.
		for i := range wavelength {
			wavelength[i] = math.Pow(10, wavelength[i])
		}
		unit = "Angstrom"
	}

	return &Series{
		Wavelength:     wavelength,
		Flux:           flux,
		WavelengthUnit: unit,
		FluxUnit:       fluxCol.unit,
	}, nil
}

func parseColumns(h *Header, fields int) ([]column, error) {
	cols := make([]column, 0, fields)
	offset := 0
	for i := 1; i <= fields; i++ {
		form := h.String(fmt.Sprintf("TFORM%d", i))
		repeat, code, err := parseTForm(form)
		if err != nil {
			return nil, fmt.Errorf("TFORM%d: %w", i, err)
		}
		width, err := typeWidth(code)
		if err != nil {
			return nil, fmt.Errorf("TFORM%d: %w", i, err)
		}
		cols = append(cols, column{
			name:   strings.ToUpper(strings.TrimSpace(h.String(fmt.Sprintf("TTYPE%d", i)))),
			unit:   h.String(fmt.Sprintf("TUNIT%d", i)),
			repeat: repeat,
			code:   code,
			offset: offset,
			width:  width,
		})
		offset += repeat * width
	}
	return cols, nil
}

// parseTForm splits a TFORMn value like "1E" or "D" into repeat count and
// type code.
func parseTForm(form string) (int, byte, error) {
	form = strings.TrimSpace(form)
	if form == "" {
		return 0, 0, fmt.Errorf("empty TFORM")
	}
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		v, err := strconv.Atoi(form[:i])
		if err != nil {
			return 0, 0, err
		}
		repeat = v
	}
	if i >= len(form) {
		return 0, 0, fmt.Errorf("missing type code in %q", form)
	}
	return repeat, form[i], nil
}

func typeWidth(code byte) (int, error) {
	switch code {
	case 'L', 'B', 'A':
		return 1, nil
	case 'I':
		return 2, nil
	case 'J', 'E':
		return 4, nil
	case 'K', 'D':
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported type code %q", string(code))
	}
}

func findColumn(cols []column, names []string) *column {
	for _, want := range names {
		for i := range cols {
			if cols[i].name == want && cols[i].repeat == 1 {
				return &cols[i]
			}
		}
	}
	return nil
}

// readScalarColumn pulls one scalar numeric column out of row-major table
// data. All FITS table values are big-endian.
func readScalarColumn(data []byte, rowWidth, rows int, col *column) ([]float64, error) {
	out := make([]float64, rows)
	for row := 0; row < rows; row++ {
		base := row*rowWidth + col.offset
		chunk := data[base : base+col.width]
		switch col.code {
		case 'B':
			out[row] = float64(chunk[0])
		case 'I':
			out[row] = float64(int16(binary.BigEndian.Uint16(chunk)))
		case 'J':
			out[row] = float64(int32(binary.BigEndian.Uint32(chunk)))
		case 'K':
			out[row] = float64(int64(binary.BigEndian.Uint64(chunk)))
		case 'E':
			out[row] = float64(math.Float32frombits(binary.BigEndian.Uint32(chunk)))
		case 'D':
			out[row] = math.Float64frombits(binary.BigEndian.Uint64(chunk))
		default:
			return nil, fmt.Errorf("non-numeric type code %q", string(col.code))
		}
	}
	return out, nil
}
