package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/testsupport"
)

func TestWatcherEnqueuesSettledFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchSettleSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)

	w := newWatcher(cfg, store, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(w.stop)

	path := filepath.Join(cfg.Paths.IncomingDir, "vega_demo.txt")
	if err := os.WriteFile(path, testsupport.ASCIISpectrum(), 0o644); err != nil {
		t.Fatalf("write incoming file: %v", err)
	}

	item := waitForQueuedPath(t, store, path)
	if item.Status != queue.StatusPending {
		t.Fatalf("Status = %q, want %q", item.Status, queue.StatusPending)
	}
	if item.SourceKind != queue.SourceFile {
		t.Fatalf("SourceKind = %q, want %q", item.SourceKind, queue.SourceFile)
	}
}

func TestWatcherIgnoresUnsupportedExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchSettleSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)

	w := newWatcher(cfg, store, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(w.stop)

	ignored := filepath.Join(cfg.Paths.IncomingDir, "spectrum.tmp")
	if err := os.WriteFile(ignored, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write ignored file: %v", err)
	}
	accepted := filepath.Join(cfg.Paths.IncomingDir, "spectrum.csv")
	if err := os.WriteFile(accepted, testsupport.ASCIISpectrum(), 0o644); err != nil {
		t.Fatalf("write accepted file: %v", err)
	}

	waitForQueuedPath(t, store, accepted)

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, item := range items {
		if item.SourcePath == ignored {
			t.Fatalf("unsupported file %s was queued", ignored)
		}
	}
}

func TestWatcherDoesNotRequeuePendingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchSettleSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)

	w := newWatcher(cfg, store, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(w.stop)

	path := filepath.Join(cfg.Paths.IncomingDir, "vega_demo.txt")
	if err := os.WriteFile(path, testsupport.ASCIISpectrum(), 0o644); err != nil {
		t.Fatalf("write incoming file: %v", err)
	}
	waitForQueuedPath(t, store, path)

	// A second write to an already-pending path must not create a new item.
	if err := os.WriteFile(path, testsupport.ASCIISpectrum(), 0o644); err != nil {
		t.Fatalf("rewrite incoming file: %v", err)
	}
	time.Sleep(2 * time.Second)

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	count := 0
	for _, item := range items {
		if item.SourcePath == path {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("found %d queue items for %s, want 1", count, path)
	}
}

func waitForQueuedPath(t *testing.T, store *queue.Store, path string) *queue.Item {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		items, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for _, item := range items {
			if item.SourcePath == path {
				return item
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("file %s was never queued", path)
	return nil
}
