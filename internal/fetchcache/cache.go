package fetchcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"spectra/internal/logging"
)

const indexFileName = "index.json"

// minFreeBytes is the disk headroom below which new blobs are refused.
const minFreeBytes = 64 << 20

// Entry describes one cached archive response.
type Entry struct {
	Key       string    `json:"key"`
	Archive   string    `json:"archive"`
	Target    string    `json:"target"`
	Query     string    `json:"query"`
	BlobFile  string    `json:"blob_file"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Cache provides thread-safe access to the on-disk fetch cache. If dir is
// empty the cache is non-functional and all operations become no-ops.
type Cache struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
	mu       sync.Mutex
	entries  map[string]Entry
	now      func() time.Time
}

// New creates a cache rooted at dir with a size ceiling in bytes (0 means
// unlimited). The index is loaded eagerly; a corrupt index starts empty.
func New(dir string, maxBytes int64, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "fetchcache")

	c := &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger,
		entries:  make(map[string]Entry),
		now:      time.Now,
	}
	if dir == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("failed to load fetch cache index",
			logging.String(logging.FieldEventType, "fetchcache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously fetched archive data will be re-downloaded"))
	}
	return c
}

// Key builds the cache key for an archive request.
func Key(archive, target, query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(archive)) + "\x00" +
		strings.ToLower(strings.TrimSpace(target)) + "\x00" + query))
	return hex.EncodeToString(sum[:16])
}

// Lookup returns the cached blob for a key, updating its recency.
func (c *Cache) Lookup(key string) ([]byte, Entry, bool) {
	if key == "" || c.dir == "" {
		return nil, Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return nil, Entry{}, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, entry.BlobFile))
	if err != nil {
		// Blob vanished out from under the index; drop the entry.
		delete(c.entries, key)
		_ = c.save()
		return nil, Entry{}, false
	}
	entry.LastUsed = c.now()
	c.entries[key] = entry
	_ = c.save()
	return data, entry, true
}

// Store writes a blob and records it in the index, evicting least recently
// used entries when the size ceiling is exceeded.
func (c *Cache) Store(key, archive, target, query string, data []byte) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := c.checkFreeSpace(int64(len(data))); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blobFile := key + ".blob"
	if err := os.WriteFile(filepath.Join(c.dir, blobFile), data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	now := c.now()
	c.entries[key] = Entry{
		Key:       key,
		Archive:   archive,
		Target:    target,
		Query:     query,
		BlobFile:  blobFile,
		Size:      int64(len(data)),
		FetchedAt: now,
		LastUsed:  now,
	}
	c.evictLocked()

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache index: %w", err)
	}
	c.logger.Debug("cached archive response",
		logging.String(logging.FieldArchive, archive),
		logging.String(logging.FieldTarget, target),
		logging.String("cache_key", key),
		logging.Int64("bytes", int64(len(data))))
	return nil
}

// Remove deletes one entry and its blob.
func (c *Cache) Remove(key string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return nil
	}
	delete(c.entries, key)
	if err := os.Remove(filepath.Join(c.dir, entry.BlobFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return c.save()
}

// Clear removes every entry and blob.
func (c *Cache) Clear() (int, error) {
	if c.dir == "" {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if err := os.Remove(filepath.Join(c.dir, entry.BlobFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove blob %s: %w", entry.BlobFile, err)
		}
		delete(c.entries, key)
		removed++
	}
	return removed, c.save()
}

// Stats summarizes cache occupancy.
type Stats struct {
	Entries    int
	TotalBytes int64
	MaxBytes   int64
}

// Stats reports the current entry count and byte usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Entries: len(c.entries), MaxBytes: c.maxBytes}
	for _, entry := range c.entries {
		s.TotalBytes += entry.Size
	}
	return s
}

// List returns entries ordered most recently used first.
func (c *Cache) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	return out
}

// evictLocked drops least recently used entries until usage fits under the
// ceiling. Caller holds the lock.
func (c *Cache) evictLocked() {
	if c.maxBytes <= 0 {
		return
	}
	var total int64
	for _, entry := range c.entries {
		total += entry.Size
	}
	if total <= c.maxBytes {
		return
	}

	ordered := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].LastUsed.Before(ordered[j].LastUsed) })

	for _, entry := range ordered {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(filepath.Join(c.dir, entry.BlobFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to evict cache blob",
				logging.String("blob", entry.BlobFile),
				logging.Error(err))
			continue
		}
		delete(c.entries, entry.Key)
		total -= entry.Size
		c.logger.Debug("evicted cache entry",
			logging.String(logging.FieldArchive, entry.Archive),
			logging.String("cache_key", entry.Key))
	}
}

// checkFreeSpace refuses writes that would leave the filesystem with less
// than the configured headroom.
func (c *Cache) checkFreeSpace(incoming int64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(c.dir, &st); err != nil {
		// Cannot measure; let the write attempt decide.
		return nil
	}
	free := int64(st.Bavail) * st.Bsize
	if free-incoming < minFreeBytes {
		return fmt.Errorf("insufficient disk space for cache write: %d bytes free", free)
	}
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read index: %w", err)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	c.entries = entries
	if c.entries == nil {
		c.entries = make(map[string]Entry)
	}
	return nil
}

// save persists the index atomically. Caller holds the lock.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	path := filepath.Join(c.dir, indexFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
