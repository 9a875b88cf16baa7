package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.IncomingDir,
		&c.Paths.StagingDir,
		&c.Paths.LibraryDir,
		&c.Paths.LogDir,
		&c.FetchCache.Dir,
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Normalize.FluxMode = strings.ToLower(strings.TrimSpace(c.Normalize.FluxMode))

	for i, ext := range c.Ingest.Extensions {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed != "" && !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		c.Ingest.Extensions[i] = trimmed
	}

	for _, endpoint := range []*ArchiveEndpoint{&c.Archives.MAST, &c.Archives.SIMBAD, &c.Archives.SDSS, &c.Archives.ESO, &c.Archives.NIST} {
		endpoint.BaseURL = strings.TrimRight(strings.TrimSpace(endpoint.BaseURL), "/")
	}

	return nil
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
