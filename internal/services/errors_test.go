package services

import (
	"errors"
	"testing"

	"spectra/internal/queue"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("column mismatch")
	err := Wrap(ErrValidation, "parse", "read table", "wavelength and flux differ in length", base)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected wrapped error to match ErrValidation: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to retain cause: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "normalize", "convert units", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient: %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want queue.Status
	}{
		{"validation", Wrap(ErrValidation, "parse", "", "", nil), queue.StatusReview},
		{"configuration", Wrap(ErrConfiguration, "identify", "", "", nil), queue.StatusReview},
		{"not found", Wrap(ErrNotFound, "identify", "resolve target", "", nil), queue.StatusReview},
		{"external", Wrap(ErrExternalService, "identify", "query archive", "", nil), queue.StatusFailed},
		{"plain", errors.New("boom"), queue.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FailureStatus(tc.err); got != tc.want {
				t.Fatalf("FailureStatus(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}
