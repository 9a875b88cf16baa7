package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"spectra/internal/config"
	"spectra/internal/logging"
	"spectra/internal/queue"
)

// watcher enqueues spectrum files dropped into the incoming directory. Writes
// are debounced with a settle timer so partially copied files are not picked
// up mid-transfer.
type watcher struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	settle time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

func newWatcher(cfg *config.Config, store *queue.Store, logger *slog.Logger) *watcher {
	settle := time.Duration(cfg.Workflow.WatchSettleSeconds) * time.Second
	if settle <= 0 {
		settle = time.Second
	}
	watchLogger := logger
	if watchLogger != nil {
		watchLogger = watchLogger.With(logging.String(logging.FieldComponent, "incoming-watcher"))
	}
	return &watcher{
		cfg:    cfg,
		store:  store,
		logger: watchLogger,
		settle: settle,
		timers: make(map[string]*time.Timer),
	}
}

func (w *watcher) start(ctx context.Context) error {
	dir := w.cfg.Paths.IncomingDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create incoming dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("watching incoming directory", logging.String("dir", dir))
	return nil
}

func (w *watcher) stop() {
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.cfg.AcceptsExtension(filepath.Ext(event.Name)) {
				continue
			}
			w.scheduleEnqueue(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("incoming watch error", logging.Error(err))
		}
	}
}

// scheduleEnqueue (re)arms the settle timer for a path. Every write resets
// the timer, so the file is only enqueued once it has been quiet for the
// settle window.
func (w *watcher) scheduleEnqueue(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(ctx, path)
	})
}

func (w *watcher) enqueue(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if w.alreadyQueued(ctx, path) {
		return
	}
	item, err := w.store.NewFile(ctx, path, "")
	if err != nil {
		w.logger.Error("failed to enqueue incoming file",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	w.logger.Info("incoming file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("path", path))
}

// alreadyQueued suppresses re-enqueueing a path that is still working its way
// through the workflow. Content-level duplicates are caught later by the
// identifier's fingerprint check.
func (w *watcher) alreadyQueued(ctx context.Context, path string) bool {
	items, err := w.store.List(ctx)
	if err != nil {
		return false
	}
	for _, item := range items {
		if item == nil || item.SourcePath != path {
			continue
		}
		if item.Status == queue.StatusPending || item.IsInWorkflow() {
			return true
		}
	}
	return false
}
