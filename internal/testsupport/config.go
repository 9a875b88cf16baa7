package testsupport

import (
	"path/filepath"
	"testing"

	"spectra/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IncomingDir = filepath.Join(base, "incoming")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.FetchCache.Dir = filepath.Join(base, "fetchcache")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithArchiveBaseURL points one archive at a test server.
func WithArchiveBaseURL(archive, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		switch archive {
		case "mast":
			b.cfg.Archives.MAST.BaseURL = baseURL
		case "simbad":
			b.cfg.Archives.SIMBAD.BaseURL = baseURL
		case "sdss":
			b.cfg.Archives.SDSS.BaseURL = baseURL
		case "eso":
			b.cfg.Archives.ESO.BaseURL = baseURL
			b.cfg.Archives.ESO.Enabled = true
		case "nist":
			b.cfg.Archives.NIST.BaseURL = baseURL
		default:
			b.t.Fatalf("unknown archive %q", archive)
		}
	}
}

// WithFetchCacheDisabled turns the fetch cache off.
func WithFetchCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FetchCache.Enabled = false
		b.cfg.FetchCache.Dir = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
