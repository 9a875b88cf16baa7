// Package exporter implements the final workflow stage: publishing a
// normalized spectrum into the target's library directory as an overlay and
// folding its provenance trace into the target manifest.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spectra/internal/config"
	"spectra/internal/identification"
	"spectra/internal/logging"
	"spectra/internal/notifications"
	"spectra/internal/provenance"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/spectrum"
	"spectra/internal/stage"
)

// Exporter moves normalized spectra from staging into the overlay library.
type Exporter struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// New constructs the exporter stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Exporter {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "exporter"))
	}
	return &Exporter{store: store, cfg: cfg, logger: stageLogger, notifier: notifier}
}

func (e *Exporter) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	item.InitProgress("Exporting", "Preparing export")
	logger.Info("starting export",
		logging.String(logging.FieldTarget, item.TargetName),
		logging.String("normalized_file", item.NormalizedFile))
	return nil
}

// traceRecord mirrors the provenance fragment the parser stores on the item.
type traceRecord struct {
	TraceID     string            `json:"trace_id"`
	Source      string            `json:"source"`
	SourcePath  string            `json:"source_path,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	SourceUnit  string            `json:"source_unit,omitempty"`
	FluxUnit    string            `json:"flux_unit,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func (e *Exporter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	if strings.TrimSpace(item.NormalizedFile) == "" {
		return services.Wrap(services.ErrValidation, "exporting", "validate inputs",
			"No normalized file present; run normalization first", nil)
	}
	var record traceRecord
	if err := json.Unmarshal([]byte(item.ProvenanceJSON), &record); err != nil || strings.TrimSpace(record.TraceID) == "" {
		return services.Wrap(services.ErrValidation, "exporting", "decode trace",
			"Queue item carries no provenance trace", err)
	}

	spec, err := spectrum.ReadFile(item.NormalizedFile)
	if err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "read normalized spectrum",
			fmt.Sprintf("Could not read %s", item.NormalizedFile), err)
	}

	libDir := filepath.Join(e.cfg.Paths.LibraryDir, identification.LibraryKey(item.TargetName))
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "create library dir",
			fmt.Sprintf("Could not create %s", libDir), err)
	}

	item.SetProgress("Exporting", "Checking provenance manifest", 20)
	manifest, err := provenance.Load(libDir, item.TargetName)
	if err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "load manifest",
			fmt.Sprintf("Could not load manifest for %s", item.TargetName), err)
	}
	if existing, ok := manifest.FindByFingerprint(record.Fingerprint); ok {
		item.OverlayFile = filepath.Join(libDir, existing.OverlayFile)
		item.Status = queue.StatusCompleted
		item.SetProgressComplete("Completed",
			fmt.Sprintf("Content already published as trace %s", existing.TraceID))
		logger.Info("skipping duplicate export",
			logging.String(logging.FieldTarget, item.TargetName),
			logging.String("fingerprint", record.Fingerprint),
			logging.String("existing_trace", existing.TraceID))
		return nil
	}

	overlayName := fmt.Sprintf("overlay-%s.json", record.TraceID)
	overlayPath := filepath.Join(libDir, overlayName)
	item.SetProgress("Exporting", fmt.Sprintf("Writing %s", overlayName), 40)
	if err := spec.WriteFile(overlayPath); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "write overlay",
			fmt.Sprintf("Could not write %s", overlayPath), err)
	}

	item.SetProgress("Exporting", "Updating provenance manifest", 70)
	trace := provenance.Trace{
		TraceID:        record.TraceID,
		Source:         record.Source,
		SourcePath:     record.SourcePath,
		Query:          record.Query,
		Fingerprint:    record.Fingerprint,
		SourceUnit:     record.SourceUnit,
		WavelengthUnit: spec.WavelengthUnit,
		FluxUnit:       record.FluxUnit,
		FluxMode:       e.cfg.Normalize.FluxMode,
		Points:         spec.Len(),
		OverlayFile:    overlayName,
		RecordedAt:     time.Now().UTC(),
		Extra:          record.Extra,
	}
	incoming := provenance.NewManifest(item.TargetName)
	if err := incoming.Put(trace); err != nil {
		return services.Wrap(services.ErrValidation, "exporting", "record trace",
			"Provenance trace is invalid", err)
	}
	manifest = provenance.Merge(manifest, incoming)
	if err := manifest.Save(libDir); err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "save manifest",
			fmt.Sprintf("Could not save manifest for %s", item.TargetName), err)
	}

	item.OverlayFile = overlayPath
	item.Status = queue.StatusCompleted
	item.SetProgressComplete("Completed", fmt.Sprintf("Overlay published to %s", libDir))
	logger.Info("export complete",
		logging.String(logging.FieldTarget, item.TargetName),
		logging.String("overlay", overlayPath),
		logging.Int("manifest_traces", len(manifest.Traces)))

	if e.notifier != nil {
		if err := e.notifier.NotifyIngestComplete(ctx, item.TargetName, overlayName); err != nil {
			logger.Warn("ingest notification failed", logging.Error(err))
		}
	}
	return nil
}

func (e *Exporter) HealthCheck(ctx context.Context) stage.Health {
	if e.cfg == nil {
		return stage.Unhealthy("exporter", "configuration unavailable")
	}
	if err := os.MkdirAll(e.cfg.Paths.LibraryDir, 0o755); err != nil {
		return stage.Unhealthy("exporter", fmt.Sprintf("library dir: %v", err))
	}
	return stage.Healthy("exporter")
}
