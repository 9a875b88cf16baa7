package identification

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Format names a supported spectrum file format.
type Format string

const (
	FormatFITS  Format = "fits"
	FormatASCII Format = "ascii"
	FormatJCAMP Format = "jcamp"
)

// fitsMagic is the mandatory first card of a FITS primary header.
var fitsMagic = []byte("SIMPLE  =")

// Sniff detects the spectrum format of a file, preferring content magic and
// falling back to the extension for ambiguous text.
func Sniff(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return SniffBytes(head[:n], filepath.Ext(path))
}

// SniffBytes detects the format from leading file content and an optional
// extension hint.
func SniffBytes(head []byte, ext string) (Format, error) {
	if bytes.HasPrefix(head, fitsMagic) {
		return FormatFITS, nil
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("##")) {
		return FormatJCAMP, nil
	}

	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".fits", ".fit", ".fts":
		return FormatFITS, nil
	case ".jdx", ".dx", ".jcm":
		return FormatJCAMP, nil
	}

	if looksLikeText(head) {
		return FormatASCII, nil
	}
	return "", fmt.Errorf("unrecognized spectrum format (ext %q)", ext)
}

// ParseFormat converts a stored format hint back to a Format.
func ParseFormat(value string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatFITS:
		return FormatFITS, true
	case FormatASCII:
		return FormatASCII, true
	case FormatJCAMP:
		return FormatJCAMP, true
	default:
		return "", false
	}
}

func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	digits := 0
	for _, b := range data {
		r := rune(b)
		if b == 0 {
			return false
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return false
		}
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits > 0
}
