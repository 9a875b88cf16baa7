package spectrum

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// Spectrum is a single spectral trace. Wavelength is canonical nanometres
// once the trace has passed through normalization; parsers may populate it in
// the source unit with WavelengthUnit recording which.
type Spectrum struct {
	Target         string            `json:"target,omitempty"`
	TraceID        string            `json:"trace_id,omitempty"`
	Wavelength     []float64         `json:"wavelength"`
	Flux           []float64         `json:"flux"`
	WavelengthUnit string            `json:"wavelength_unit"`
	FluxUnit       string            `json:"flux_unit,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// ErrEmpty indicates a spectrum without enough samples to be useful.
var ErrEmpty = errors.New("spectrum needs at least two samples")

// Validate enforces the package invariants: equal-length axes, at least two
// samples, finite values, and strictly ascending wavelength.
func (s *Spectrum) Validate() error {
	if s == nil {
		return errors.New("spectrum is nil")
	}
	if len(s.Wavelength) != len(s.Flux) {
		return fmt.Errorf("wavelength and flux differ in length: %d vs %d", len(s.Wavelength), len(s.Flux))
	}
	if len(s.Wavelength) < 2 {
		return ErrEmpty
	}
	for i, w := range s.Wavelength {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("wavelength[%d] is not finite", i)
		}
		if math.IsNaN(s.Flux[i]) || math.IsInf(s.Flux[i], 0) {
			return fmt.Errorf("flux[%d] is not finite", i)
		}
		if i > 0 && w <= s.Wavelength[i-1] {
			return fmt.Errorf("wavelength not strictly ascending at index %d (%g after %g)", i, w, s.Wavelength[i-1])
		}
	}
	return nil
}

// SortAscending reorders both axes so wavelength ascends, dropping exact
// duplicate wavelengths (first occurrence wins). Descending archive products
// and wavenumber-converted axes arrive reversed; this makes them canonical.
func (s *Spectrum) SortAscending() {
	n := len(s.Wavelength)
	if n < 2 || n != len(s.Flux) {
		return
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Wavelength[idx[a]] < s.Wavelength[idx[b]]
	})

	wl := make([]float64, 0, n)
	fx := make([]float64, 0, n)
	for _, i := range idx {
		if len(wl) > 0 && s.Wavelength[i] == wl[len(wl)-1] {
			continue
		}
		wl = append(wl, s.Wavelength[i])
		fx = append(fx, s.Flux[i])
	}
	s.Wavelength = wl
	s.Flux = fx
}

// Range returns the wavelength span. Valid only after SortAscending/Validate.
func (s *Spectrum) Range() (min, max float64) {
	if len(s.Wavelength) == 0 {
		return 0, 0
	}
	return s.Wavelength[0], s.Wavelength[len(s.Wavelength)-1]
}

// PeakFlux returns the maximum flux value and its wavelength.
func (s *Spectrum) PeakFlux() (wavelength, flux float64) {
	if len(s.Flux) == 0 {
		return 0, 0
	}
	maxIdx := 0
	for i, f := range s.Flux {
		if f > s.Flux[maxIdx] {
			maxIdx = i
		}
	}
	return s.Wavelength[maxIdx], s.Flux[maxIdx]
}

// Len returns the sample count.
func (s *Spectrum) Len() int {
	return len(s.Wavelength)
}

// WriteFile persists the spectrum as JSON, creating parent directories.
func (s *Spectrum) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create spectrum dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal spectrum: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write spectrum %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a spectrum previously written with WriteFile.
func ReadFile(path string) (*Spectrum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spectrum %s: %w", path, err)
	}
	var s Spectrum
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse spectrum %s: %w", path, err)
	}
	return &s, nil
}
