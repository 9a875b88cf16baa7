package exporter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spectra/internal/exporter"
	"spectra/internal/logging"
	"spectra/internal/provenance"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/spectrum"
	"spectra/internal/testsupport"
)

type fakeNotifier struct {
	target  string
	overlay string
	calls   int
}

func (f *fakeNotifier) NotifyIngestComplete(ctx context.Context, target, overlayFile string) error {
	f.calls++
	f.target = target
	f.overlay = overlayFile
	return nil
}

func (f *fakeNotifier) NotifyFetchQueued(context.Context, string, string) error    { return nil }
func (f *fakeNotifier) NotifyReviewRequired(context.Context, string, string) error { return nil }
func (f *fakeNotifier) NotifyError(context.Context, error, string) error           { return nil }
func (f *fakeNotifier) NotifyQueueStarted(context.Context, int) error              { return nil }
func (f *fakeNotifier) NotifyQueueCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func normalizedItem(t *testing.T, store *queue.Store, traceID string) *queue.Item {
	t.Helper()
	ctx := context.Background()

	item, err := store.NewFetch(ctx, "mast", "vega", nil)
	if err != nil {
		t.Fatalf("new fetch: %v", err)
	}
	spec := &spectrum.Spectrum{
		Target:         "vega",
		TraceID:        traceID,
		Wavelength:     []float64{400, 450, 500},
		Flux:           []float64{1, 2, 1},
		WavelengthUnit: "nm",
	}
	path := filepath.Join(t.TempDir(), "normalized.json")
	if err := spec.WriteFile(path); err != nil {
		t.Fatalf("write normalized spectrum: %v", err)
	}
	item.Status = queue.StatusNormalized
	item.NormalizedFile = path
	item.ProvenanceJSON = `{"trace_id":"` + traceID + `","source":"mast","source_unit":"angstrom","flux_unit":"erg/s/cm2/A"}`
	return item
}

func TestExporterPublishesOverlayAndManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	notifier := &fakeNotifier{}
	item := normalizedItem(t, store, "trace-1")
	stage := exporter.New(cfg, store, logging.NewNop(), notifier)
	if err := stage.Prepare(ctx, item); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := stage.Execute(ctx, item); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed status, got %s", item.Status)
	}
	libDir := filepath.Join(cfg.Paths.LibraryDir, "vega")
	if item.OverlayFile != filepath.Join(libDir, "overlay-trace-1.json") {
		t.Fatalf("unexpected overlay path %q", item.OverlayFile)
	}
	if _, err := os.Stat(item.OverlayFile); err != nil {
		t.Fatalf("overlay file missing: %v", err)
	}

	manifest, err := provenance.Load(libDir, "vega")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	trace, ok := manifest.Traces["trace-1"]
	if !ok {
		t.Fatalf("manifest missing trace, have %v", manifest.Traces)
	}
	if trace.Points != 3 {
		t.Fatalf("expected 3 points recorded, got %d", trace.Points)
	}
	if trace.OverlayFile != "overlay-trace-1.json" {
		t.Fatalf("expected relative overlay name, got %q", trace.OverlayFile)
	}
	if trace.SourceUnit != "angstrom" {
		t.Fatalf("expected source unit carried over, got %q", trace.SourceUnit)
	}
	if trace.WavelengthUnit != "nm" {
		t.Fatalf("expected nm wavelength unit, got %q", trace.WavelengthUnit)
	}

	if notifier.calls != 1 || notifier.target != "vega" || notifier.overlay != "overlay-trace-1.json" {
		t.Fatalf("unexpected notification: %+v", notifier)
	}
}

func TestExporterMergesWithExistingManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	libDir := filepath.Join(cfg.Paths.LibraryDir, "vega")
	existing := provenance.NewManifest("vega")
	if err := existing.Put(provenance.Trace{
		TraceID:     "older-trace",
		Source:      "file",
		OverlayFile: "overlay-older-trace.json",
		RecordedAt:  time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}
	if err := existing.Save(libDir); err != nil {
		t.Fatalf("save manifest: %v", err)
	}

	item := normalizedItem(t, store, "trace-2")
	stage := exporter.New(cfg, store, logging.NewNop(), nil)
	if err := stage.Execute(ctx, item); err != nil {
		t.Fatalf("execute: %v", err)
	}

	manifest, err := provenance.Load(libDir, "vega")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(manifest.Traces) != 2 {
		t.Fatalf("expected both traces in manifest, have %d", len(manifest.Traces))
	}
	traces := manifest.List()
	if traces[0].TraceID != "trace-2" {
		t.Fatalf("expected newest trace first, got %q", traces[0].TraceID)
	}
}

func TestExporterSkipsDuplicateFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	notifier := &fakeNotifier{}
	stage := exporter.New(cfg, store, logging.NewNop(), notifier)

	first := normalizedItem(t, store, "trace-a")
	first.ProvenanceJSON = `{"trace_id":"trace-a","source":"mast","fingerprint":"fp-dup"}`
	if err := stage.Execute(ctx, first); err != nil {
		t.Fatalf("execute first: %v", err)
	}

	second := normalizedItem(t, store, "trace-b")
	second.ProvenanceJSON = `{"trace_id":"trace-b","source":"mast","fingerprint":"fp-dup"}`
	if err := stage.Execute(ctx, second); err != nil {
		t.Fatalf("execute second: %v", err)
	}

	if second.Status != queue.StatusCompleted {
		t.Fatalf("expected completed status, got %s", second.Status)
	}
	if second.OverlayFile != first.OverlayFile {
		t.Fatalf("duplicate overlay %q, want reuse of %q", second.OverlayFile, first.OverlayFile)
	}

	libDir := filepath.Join(cfg.Paths.LibraryDir, "vega")
	if _, err := os.Stat(filepath.Join(libDir, "overlay-trace-b.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no second overlay file, stat err = %v", err)
	}
	manifest, err := provenance.Load(libDir, "vega")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(manifest.Traces) != 1 {
		t.Fatalf("expected single trace after duplicate export, have %d", len(manifest.Traces))
	}
	if _, ok := manifest.Traces["trace-a"]; !ok {
		t.Fatalf("expected original trace kept, have %v", manifest.Traces)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
}

func TestExporterRequiresNormalizedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item, err := store.NewFetch(ctx, "mast", "vega", nil)
	if err != nil {
		t.Fatalf("new fetch: %v", err)
	}
	stage := exporter.New(cfg, store, logging.NewNop(), nil)
	if err := stage.Execute(ctx, item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExporterRequiresProvenanceTrace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := normalizedItem(t, store, "trace-3")
	item.ProvenanceJSON = ""
	stage := exporter.New(cfg, store, logging.NewNop(), nil)
	if err := stage.Execute(ctx, item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
