package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spectra/internal/archives"
	"spectra/internal/exporter"
	"spectra/internal/fetchcache"
	"spectra/internal/identifier"
	"spectra/internal/logging"
	"spectra/internal/normalizer"
	"spectra/internal/parser"
	"spectra/internal/provenance"
	"spectra/internal/queue"
	"spectra/internal/testsupport"
	"spectra/internal/workflow"
)

// TestWorkflowIngestsASCIIFileEndToEnd drives a dropped text spectrum through
// every real stage handler and verifies the overlay and manifest land in the
// library.
func TestWorkflowIngestsASCIIFileEndToEnd(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	logger := logging.NewNop()
	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logger)
	registry := archives.NewRegistry()
	notifier := &managerNotifier{}

	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Identifier: identifier.New(cfg, store, logger, nil),
		Parser:     parser.New(cfg, store, logger, registry, cache),
		Normalizer: normalizer.New(cfg, store, logger),
		Exporter:   exporter.New(cfg, store, logger, notifier),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := mgr.Start(runCtx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	path := filepath.Join(cfg.Paths.IncomingDir, "vega_demo.txt")
	testsupport.WriteFile(t, path, testsupport.ASCIISpectrum())
	item, err := store.NewFile(ctx, path, "")
	if err != nil {
		t.Fatalf("new file: %v", err)
	}

	final := waitForStatus(t, store, item.ID, queue.StatusCompleted)

	if final.TargetName != "vega demo" {
		t.Fatalf("unexpected target %q", final.TargetName)
	}
	if final.OverlayFile == "" {
		t.Fatal("expected overlay file on completed item")
	}
	if _, err := os.Stat(final.OverlayFile); err != nil {
		t.Fatalf("overlay missing: %v", err)
	}

	libDir := filepath.Join(cfg.Paths.LibraryDir, "vega-demo")
	manifest, err := provenance.Load(libDir, final.TargetName)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(manifest.Traces) != 1 {
		t.Fatalf("expected one trace in manifest, got %d", len(manifest.Traces))
	}
	for _, trace := range manifest.Traces {
		if trace.Points != 5 {
			t.Fatalf("expected 5 points recorded, got %d", trace.Points)
		}
		if trace.WavelengthUnit != "nm" {
			t.Fatalf("expected nm unit, got %q", trace.WavelengthUnit)
		}
		if trace.Source != "file" {
			t.Fatalf("expected file source, got %q", trace.Source)
		}
	}
}
