package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	IncomingDir string `toml:"incoming_dir"`
	StagingDir  string `toml:"staging_dir"`
	LibraryDir  string `toml:"library_dir"`
	LogDir      string `toml:"log_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Workflow contains daemon timing and interval configuration (seconds).
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	WatchSettleSeconds int `toml:"watch_settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Ingest controls which dropped files are accepted for processing.
type Ingest struct {
	Extensions []string `toml:"extensions"`
	MaxFileMiB int      `toml:"max_file_mib"`
}

// Normalize controls the unit-normalization stage.
type Normalize struct {
	// ResamplePoints > 0 resamples spectra onto a uniform grid of that size.
	ResamplePoints int `toml:"resample_points"`
	// SmoothWindow > 1 applies a moving-average smooth of that width.
	SmoothWindow int `toml:"smooth_window"`
	// FluxMode is one of "none", "peak" (max=1), or "area" (integral=1).
	FluxMode string `toml:"flux_mode"`
}

// ArchiveEndpoint is the shared shape for a single archive service.
type ArchiveEndpoint struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

// Archives contains per-service endpoints for reference data fetching.
type Archives struct {
	RequestTimeout int             `toml:"request_timeout"`
	MAST           ArchiveEndpoint `toml:"mast"`
	SIMBAD         ArchiveEndpoint `toml:"simbad"`
	SDSS           ArchiveEndpoint `toml:"sdss"`
	ESO            ArchiveEndpoint `toml:"eso"`
	NIST           ArchiveEndpoint `toml:"nist"`
}

// FetchCache contains configuration for the archive download cache.
type FetchCache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	MaxMiB  int    `toml:"max_mib"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Ingest             bool   `toml:"ingest"`
	Review             bool   `toml:"review"`
	Errors             bool   `toml:"errors"`
	Queue              bool   `toml:"queue"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Config encapsulates all configuration values for the spectra daemon and CLI.
//
// Sections by subsystem:
//   - Paths: directories, API bind address, and API token
//   - Workflow: queue polling intervals and heartbeat timing
//   - Logging: log format, level, and retention
//   - Ingest: accepted file extensions and size cap
//   - Normalize: resampling, smoothing, and flux display mode
//   - Archives: MAST/SIMBAD/SDSS/ESO/NIST endpoints
//   - FetchCache: archive download cache location and size cap
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Ingest        Ingest        `toml:"ingest"`
	Normalize     Normalize     `toml:"normalize"`
	Archives      Archives      `toml:"archives"`
	FetchCache    FetchCache    `toml:"fetch_cache"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spectra/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.IncomingDir,
		c.Paths.StagingDir,
		c.Paths.LibraryDir,
		c.Paths.LogDir,
	}
	if c.FetchCache.Enabled {
		dirs = append(dirs, c.FetchCache.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon IPC socket location under the log dir.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "spectrad.sock")
}

// QueueDatabasePath returns the SQLite queue database location.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "queue.db")
}

// AcceptsExtension reports whether the ingest config allows a file extension.
func (c *Config) AcceptsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, allowed := range c.Ingest.Extensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = def
	}

	expanded, err := expandPath(candidate)
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}
