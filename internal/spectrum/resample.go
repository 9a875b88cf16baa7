package spectrum

import (
	"errors"
	"fmt"
	"math"
)

// Resample linearly interpolates the spectrum onto a uniform grid of n points
// spanning the existing wavelength range. The receiver must already be
// ascending and valid.
func (s *Spectrum) Resample(n int) error {
	if n < 2 {
		return errors.New("resample needs at least two points")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("resample source: %w", err)
	}

	lo, hi := s.Range()
	step := (hi - lo) / float64(n-1)
	wl := make([]float64, n)
	fx := make([]float64, n)

	src := 0
	for i := 0; i < n; i++ {
		w := lo + float64(i)*step
		if i == n-1 {
			w = hi
		}
		for src < len(s.Wavelength)-2 && s.Wavelength[src+1] < w {
			src++
		}
		w0, w1 := s.Wavelength[src], s.Wavelength[src+1]
		f0, f1 := s.Flux[src], s.Flux[src+1]
		t := (w - w0) / (w1 - w0)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		wl[i] = w
		fx[i] = f0 + t*(f1-f0)
	}

	s.Wavelength = wl
	s.Flux = fx
	return nil
}

// Smooth applies a centered moving average of the given odd window width to
// the flux axis. Even widths are widened by one. Window <= 1 is a no-op.
func (s *Spectrum) Smooth(window int) {
	if window <= 1 || len(s.Flux) == 0 {
		return
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2
	out := make([]float64, len(s.Flux))
	for i := range s.Flux {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(s.Flux)-1 {
			hi = len(s.Flux) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += s.Flux[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	s.Flux = out
}

// NormalizeFlux rescales flux per the display mode: "peak" divides by the
// maximum absolute flux, "area" by the trapezoidal integral over wavelength.
// "none" and "" leave flux untouched.
func (s *Spectrum) NormalizeFlux(mode string) error {
	switch mode {
	case "", "none":
		return nil
	case "peak":
		peak := 0.0
		for _, f := range s.Flux {
			if a := math.Abs(f); a > peak {
				peak = a
			}
		}
		if peak == 0 {
			return errors.New("cannot peak-normalize all-zero flux")
		}
		for i := range s.Flux {
			s.Flux[i] /= peak
		}
		return nil
	case "area":
		if len(s.Wavelength) < 2 {
			return ErrEmpty
		}
		area := 0.0
		for i := 1; i < len(s.Wavelength); i++ {
			dw := s.Wavelength[i] - s.Wavelength[i-1]
			area += 0.5 * (s.Flux[i] + s.Flux[i-1]) * dw
		}
		if area == 0 {
			return errors.New("cannot area-normalize zero-integral flux")
		}
		for i := range s.Flux {
			s.Flux[i] /= area
		}
		return nil
	default:
		return fmt.Errorf("unknown flux normalization mode %q", mode)
	}
}
