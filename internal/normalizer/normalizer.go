// Package normalizer implements the third workflow stage: converting a
// parsed spectrum to canonical nanometres and applying the configured
// resampling, smoothing, and flux scaling.
package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"spectra/internal/config"
	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/spectrum"
	"spectra/internal/stage"
	"spectra/internal/units"
)

// Normalizer rewrites staged spectra onto the canonical wavelength scale.
type Normalizer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs the normalizer stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Normalizer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "normalizer"))
	}
	return &Normalizer{store: store, cfg: cfg, logger: stageLogger}
}

func (n *Normalizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, n.logger)
	item.InitProgress("Normalizing", "Preparing normalization")
	logger.Info("starting normalization",
		logging.String(logging.FieldTarget, item.TargetName),
		logging.String("parsed_file", item.ParsedFile))
	return nil
}

func (n *Normalizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, n.logger)

	if strings.TrimSpace(item.ParsedFile) == "" {
		return services.Wrap(services.ErrValidation, "normalizing", "validate inputs",
			"No parsed file present; run parsing first", nil)
	}
	spec, err := spectrum.ReadFile(item.ParsedFile)
	if err != nil {
		return services.Wrap(services.ErrTransient, "normalizing", "read staged spectrum",
			fmt.Sprintf("Could not read %s", item.ParsedFile), err)
	}

	sourceUnit := strings.TrimSpace(spec.WavelengthUnit)
	if sourceUnit == "" {
		// Unit-less text files default to nanometres rather than guessing.
		sourceUnit = string(units.Nanometer)
	}
	unit, err := units.Parse(sourceUnit)
	if err != nil {
		return services.Wrap(services.ErrValidation, "normalizing", "parse unit",
			fmt.Sprintf("Wavelength unit %q is not supported", sourceUnit), err)
	}

	item.SetProgress("Normalizing", fmt.Sprintf("Converting %s to nm", unit), 30)
	converted, err := units.SliceToNanometers(spec.Wavelength, unit)
	if err != nil {
		return services.Wrap(services.ErrValidation, "normalizing", "convert wavelengths",
			fmt.Sprintf("Conversion from %s failed", unit), err)
	}
	spec.Wavelength = converted
	spec.WavelengthUnit = string(units.Nanometer)

	// Inverse units (wavenumber, frequency, energy) arrive reversed after
	// conversion.
	spec.SortAscending()
	if err := spec.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "normalizing", "validate spectrum",
			"Converted spectrum failed validation", err)
	}

	if points := n.cfg.Normalize.ResamplePoints; points > 0 {
		item.SetProgress("Normalizing", fmt.Sprintf("Resampling to %d points", points), 55)
		if err := spec.Resample(points); err != nil {
			return services.Wrap(services.ErrValidation, "normalizing", "resample",
				fmt.Sprintf("Resampling to %d points failed", points), err)
		}
	}
	if window := n.cfg.Normalize.SmoothWindow; window > 1 {
		item.SetProgress("Normalizing", fmt.Sprintf("Smoothing with window %d", window), 70)
		spec.Smooth(window)
	}
	if mode := n.cfg.Normalize.FluxMode; mode != "" && mode != "none" {
		item.SetProgress("Normalizing", fmt.Sprintf("Scaling flux (%s)", mode), 85)
		if err := spec.NormalizeFlux(mode); err != nil {
			return services.Wrap(services.ErrValidation, "normalizing", "scale flux",
				fmt.Sprintf("Flux normalization mode %q failed", mode), err)
		}
	}

	normalizedPath := filepath.Join(filepath.Dir(item.ParsedFile), "normalized.json")
	if err := spec.WriteFile(normalizedPath); err != nil {
		return services.Wrap(services.ErrTransient, "normalizing", "write normalized spectrum",
			fmt.Sprintf("Could not write %s", normalizedPath), err)
	}

	low, high := spec.Range()
	item.NormalizedFile = normalizedPath
	item.Status = queue.StatusNormalized
	item.SetProgressComplete("Normalized", fmt.Sprintf("%.1f-%.1f nm, %d samples", low, high, spec.Len()))
	logger.Info("normalization complete",
		logging.Float64("min_nm", low),
		logging.Float64("max_nm", high),
		logging.Int("samples", spec.Len()))
	return nil
}

func (n *Normalizer) HealthCheck(ctx context.Context) stage.Health {
	if n.cfg == nil {
		return stage.Unhealthy("normalizer", "configuration unavailable")
	}
	return stage.Healthy("normalizer")
}
