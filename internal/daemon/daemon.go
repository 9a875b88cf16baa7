package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"spectra/internal/config"
	"spectra/internal/logging"
	"spectra/internal/notifications"
	"spectra/internal/queue"
	"spectra/internal/staging"
	"spectra/internal/workflow"
)

// staleStagingAge is how long an untouched staging directory survives before
// the startup sweep removes it.
const staleStagingAge = 7 * 24 * time.Hour

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	watcher *watcher

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "spectrad.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	d.watcher = newWatcher(cfg, store, logger)
	return d, nil
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spectra daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cleanStaging(d.ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.watcher != nil {
		if err := d.watcher.start(d.ctx); err != nil {
			d.logger.Warn("incoming watcher unavailable; files must be added manually",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_start_failed"))
		}
	}
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.logger.Warn("api server unavailable", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("spectra daemon started", logging.String("lock", d.lockPath))
	return nil
}

// cleanStaging sweeps staging directories left behind by removed queue items
// and anything untouched past the stale cutoff.
func (d *Daemon) cleanStaging(ctx context.Context) {
	items, err := d.store.List(ctx)
	if err != nil {
		d.logger.Warn("staging cleanup skipped", logging.Error(err))
		return
	}
	active := make(map[int64]struct{}, len(items))
	for _, item := range items {
		active[item.ID] = struct{}{}
	}
	staging.CleanOrphaned(ctx, d.cfg.Paths.StagingDir, active, d.logger)
	staging.CleanStale(ctx, d.cfg.Paths.StagingDir, staleStagingAge, d.logger)
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.watcher != nil {
		d.watcher.stop()
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("spectra daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueItem fetches one queue item, nil when missing.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight items back to their stage start status.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed and review items (optionally a subset) for
// another pass through the workflow.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// RemoveItem deletes a single queue item.
func (d *Daemon) RemoveItem(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// AddFile enqueues a spectrum file for processing.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %q is a directory", absPath)
	}
	if ext := filepath.Ext(info.Name()); !d.cfg.AcceptsExtension(ext) {
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}
	item, err := d.store.NewFile(ctx, absPath, "")
	if err != nil {
		return nil, fmt.Errorf("enqueue file: %w", err)
	}
	d.logger.Info("file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("source", absPath))
	return item, nil
}

// AddFetch enqueues an archive fetch request for a target.
func (d *Daemon) AddFetch(ctx context.Context, archive, target string, query map[string]string) (*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	archive = strings.ToLower(strings.TrimSpace(archive))
	if !d.archiveEnabled(archive) {
		return nil, fmt.Errorf("archive %q is not configured or disabled", archive)
	}
	item, err := d.store.NewFetch(ctx, archive, target, query)
	if err != nil {
		return nil, fmt.Errorf("enqueue fetch: %w", err)
	}
	d.logger.Info("fetch queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldArchive, archive),
		logging.String(logging.FieldTarget, item.TargetName))
	return item, nil
}

func (d *Daemon) archiveEnabled(name string) bool {
	switch name {
	case "mast":
		return d.cfg.Archives.MAST.Enabled
	case "simbad":
		return d.cfg.Archives.SIMBAD.Enabled
	case "sdss":
		return d.cfg.Archives.SDSS.Enabled
	case "eso":
		return d.cfg.Archives.ESO.Enabled
	default:
		return false
	}
}

// LogPath returns the daemon log file path.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, logging.LogFileName)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		LockFilePath: d.lockPath,
	}
}
