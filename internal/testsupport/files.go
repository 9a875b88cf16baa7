package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ASCIISpectrum returns a small two-column text spectrum usable as ingest
// input in tests.
func ASCIISpectrum() []byte {
	return []byte("# wavelength (nm) flux (arbitrary)\n400.0 1.0\n450.0 1.4\n500.0 1.8\n550.0 1.5\n600.0 1.1\n")
}
