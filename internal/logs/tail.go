// Package logs reads the daemon log file for the CLI, with optional
// follow-mode polling for newly appended lines.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Options controls a log read.
type Options struct {
	// Lines bounds the initial backlog. Zero prints no backlog.
	Lines int
	// Follow keeps polling for appended lines until the context ends.
	Follow bool
	// Poll is the follow-mode polling interval. Defaults to 250ms.
	Poll time.Duration
}

// Tail writes the last Options.Lines lines of the log at path to out, then,
// when Follow is set, streams appended lines until ctx is cancelled. A
// missing log file is not an error; follow mode waits for it to appear.
func Tail(ctx context.Context, path string, opts Options, out io.Writer) error {
	if opts.Lines < 0 {
		opts.Lines = 0
	}
	if opts.Poll <= 0 {
		opts.Poll = 250 * time.Millisecond
	}

	lines, offset, err := readBacklog(path, opts.Lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		lines, newOffset, err := readAppended(path, offset)
		if err != nil {
			return err
		}
		offset = newOffset
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}
}

// Read serves RPC-style consumers. A negative offset returns the last limit
// lines with the end-of-file offset; a non-negative offset returns complete
// lines appended after it.
func Read(path string, offset int64, limit int) ([]string, int64, error) {
	if offset < 0 {
		return readBacklog(path, limit)
	}
	return readAppended(path, offset)
}

// readBacklog returns up to limit trailing lines and the end-of-file offset.
func readBacklog(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := newLineScanner(file)
	var (
		ring  []string
		count int
		idx   int
	)
	if limit > 0 {
		ring = make([]string, limit)
	}
	for scanner.Scan() {
		if limit == 0 {
			continue
		}
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readAppended returns complete lines written after offset. A shrunken file
// means rotation; reading restarts from the beginning.
func readAppended(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, offset, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
