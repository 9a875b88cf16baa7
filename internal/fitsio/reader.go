package fitsio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Series is the raw spectral series read from a FITS file before unit
// normalization. WavelengthUnit carries the CUNIT1/TUNITn text verbatim.
type Series struct {
	Wavelength     []float64
	Flux           []float64
	WavelengthUnit string
	FluxUnit       string
	Target         string
	Telescope      string
	Instrument     string
}

// ReadFile parses a FITS file and extracts the first spectral series it can
// find: the primary HDU if it is a 1-D image with WCS dispersion keywords,
// otherwise the first BINTABLE extension with recognizable columns.
func ReadFile(path string) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}

// Read parses FITS content from a stream.
func Read(r io.Reader) (*Series, error) {
	primary, primaryData, err := readHDU(r)
	if err != nil {
		return nil, fmt.Errorf("primary hdu: %w", err)
	}

	meta := seriesMeta(primary)

	if series, ok := imageSeries(primary, primaryData); ok {
		applyMeta(series, meta)
		return series, nil
	}

	// Walk extensions looking for a spectral binary table.
	for {
		ext, data, err := readHDU(r)
		if err == io.EOF {
			return nil, fmt.Errorf("no spectral data found in any hdu")
		}
		if err != nil {
			return nil, fmt.Errorf("extension hdu: %w", err)
		}
		if !strings.EqualFold(ext.String("XTENSION"), "BINTABLE") {
			continue
		}
		series, err := tableSeries(ext, data)
		if err != nil {
			return nil, err
		}
		if series != nil {
			applyMeta(series, meta)
			if ext.Has("OBJECT") {
				series.Target = ext.String("OBJECT")
			}
			return series, nil
		}
	}
}

func seriesMeta(h *Header) map[string]string {
	return map[string]string{
		"target":     h.String("OBJECT"),
		"telescope":  h.String("TELESCOP"),
		"instrument": h.String("INSTRUME"),
	}
}

func applyMeta(s *Series, meta map[string]string) {
	if s.Target == "" {
		s.Target = meta["target"]
	}
	s.Telescope = meta["telescope"]
	s.Instrument = meta["instrument"]
}

// readHDU reads one header plus its (possibly empty) data area, leaving the
// reader positioned at the next HDU boundary.
func readHDU(r io.Reader) (*Header, []byte, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}
	size := dataSize(header)
	padded := ((size + blockSize - 1) / blockSize) * blockSize
	data := make([]byte, padded)
	if padded > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, nil, fmt.Errorf("read data area: %w", err)
		}
	}
	return header, data[:size], nil
}

func readHeader(r io.Reader) (*Header, error) {
	header := newHeader()
	block := make([]byte, blockSize)
	for {
		if _, err := io.ReadFull(r, block); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header block: %w", err)
		}
		for i := 0; i < blockSize; i += cardSize {
			card := block[i : i+cardSize]
			key, value, ok := parseCard(card)
			if !ok {
				continue
			}
			if key == "END" {
				return header, nil
			}
			header.set(key, value)
		}
	}
}

// dataSize computes the byte length of an HDU's data area from BITPIX and
// the NAXISn keywords.
func dataSize(h *Header) int {
	naxis := h.IntOr("NAXIS", 0)
	if naxis == 0 {
		return 0
	}
	bitpix := h.IntOr("BITPIX", 8)
	elems := 1
	for i := 1; i <= naxis; i++ {
		elems *= h.IntOr(fmt.Sprintf("NAXIS%d", i), 0)
	}
	size := elems * abs(bitpix) / 8
	// Binary tables may carry a heap after the main table.
	size += h.IntOr("PCOUNT", 0)
	return size
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// imageSeries interprets a primary HDU as a 1-D spectrum when it has exactly
// one axis and the linear dispersion keywords CRVAL1/CDELT1.
func imageSeries(h *Header, data []byte) (*Series, bool) {
	if h.IntOr("NAXIS", 0) != 1 {
		return nil, false
	}
	n := h.IntOr("NAXIS1", 0)
	if n < 2 {
		return nil, false
	}
	crval, err := h.Float("CRVAL1")
	if err != nil {
		return nil, false
	}
	cdelt := h.FloatOr("CDELT1", h.FloatOr("CD1_1", 0))
	if cdelt == 0 {
		return nil, false
	}
	crpix := h.FloatOr("CRPIX1", 1)

	flux, err := decodeImage(data, h.IntOr("BITPIX", 8), n)
	if err != nil {
		return nil, false
	}
	bzero := h.FloatOr("BZERO", 0)
	bscale := h.FloatOr("BSCALE", 1)
	if bzero != 0 || bscale != 1 {
		for i := range flux {
			flux[i] = flux[i]*bscale + bzero
		}
	}

	wavelength := make([]float64, n)
	for i := range wavelength {
		wavelength[i] = crval + (float64(i)+1-crpix)*cdelt
	}

	ctype := strings.ToUpper(h.String("CTYPE1"))
	if strings.Contains(ctype, "LOG") {
		// SDSS-style log10 dispersion axis, in Angstroms.
		for i := range wavelength {
			wavelength[i] = math.Pow(10, wavelength[i])
		}
	}

	unit := h.String("CUNIT1")
	if unit == "" && strings.Contains(ctype, "LOG") {
		unit = "Angstrom"
	}

	return &Series{
		Wavelength:     wavelength,
		Flux:           flux,
		WavelengthUnit: unit,
		FluxUnit:       h.String("BUNIT"),
	}, true
}

func decodeImage(data []byte, bitpix, n int) ([]float64, error) {
	width := abs(bitpix) / 8
	if len(data) < n*width {
		return nil, fmt.Errorf("image data truncated: have %d bytes, need %d", len(data), n*width)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := data[i*width : (i+1)*width]
		switch bitpix {
		case 8:
			out[i] = float64(chunk[0])
		case 16:
			out[i] = float64(int16(binary.BigEndian.Uint16(chunk)))
		case 32:
			out[i] = float64(int32(binary.BigEndian.Uint32(chunk)))
		case 64:
			out[i] = float64(int64(binary.BigEndian.Uint64(chunk)))
		case -32:
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(chunk)))
		case -64:
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(chunk))
		default:
			return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
		}
	}
	return out, nil
}
