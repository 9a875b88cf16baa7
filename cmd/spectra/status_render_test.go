package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Spectra", statusOK, "Running (pid 42)", false)
	if !strings.Contains(line, "Spectra:") {
		t.Fatalf("line = %q, want label", line)
	}
	if !strings.Contains(line, "[OK] Running (pid 42)") {
		t.Fatalf("line = %q, want status text", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("line = %q, want no color codes", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Archives", statusError, "down", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("line = %q, want red wrapping", line)
	}
}

func TestRenderStatusLineNoMessage(t *testing.T) {
	line := renderStatusLine("Notifications", statusInfo, "", false)
	if !strings.Contains(line, "[INFO]") {
		t.Fatalf("line = %q, want bare status tag", line)
	}
	if strings.Contains(line, "[INFO] ") && strings.TrimSpace(strings.SplitAfter(line, "[INFO]")[1]) != "" {
		t.Fatalf("line = %q, want no trailing message", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Queue Status", false)
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0] != "== Queue Status ==" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d != header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffer writer should not colorize")
	}
}
