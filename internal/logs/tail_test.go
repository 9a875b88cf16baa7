package logs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// safeBuffer guards a bytes.Buffer against the follow goroutine writing while
// the test reads.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailBacklog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrad.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	var out bytes.Buffer
	if err := Tail(context.Background(), path, Options{Lines: 2}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Fatalf("lines = %v, want [three four]", got)
	}
}

func TestTailBacklogShorterThanLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrad.log")
	writeLog(t, path, "only\n")

	var out bytes.Buffer
	if err := Tail(context.Background(), path, Options{Lines: 10}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if strings.TrimSpace(out.String()) != "only" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	var out bytes.Buffer
	if err := Tail(context.Background(), path, Options{Lines: 5}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output = %q, want empty", out.String())
	}
}

func TestTailFollowPicksUpAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrad.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out safeBuffer
	done := make(chan error, 1)
	go func() {
		done <- Tail(ctx, path, Options{Lines: 1, Follow: true, Poll: 20 * time.Millisecond}, &out)
	}()

	// Let the backlog print, then append.
	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("appended\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "appended") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("tail: %v", err)
	}
	if !strings.Contains(out.String(), "start") || !strings.Contains(out.String(), "appended") {
		t.Fatalf("output = %q, want backlog and appended line", out.String())
	}
}

func TestReadAppendedHandlesRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrad.log")
	writeLog(t, path, "long line before rotation\n")

	_, offset, err := readBacklog(path, 1)
	if err != nil {
		t.Fatalf("backlog: %v", err)
	}

	// Replace with a shorter file, as rotation would.
	writeLog(t, path, "fresh\n")
	lines, _, err := readAppended(path, offset)
	if err != nil {
		t.Fatalf("readAppended: %v", err)
	}
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("lines = %v, want [fresh]", lines)
	}
}
