package asciitab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Series is a raw two-column spectrum read from a text file. Units are
// whatever hints the file carried, possibly empty.
type Series struct {
	Wavelength     []float64
	Flux           []float64
	WavelengthUnit string
	FluxUnit       string
}

var commentPrefixes = []string{"#", "%", "//", ";"}

// unitHint matches annotations like "wavelength (nm)" or "flux [Jy]" in
// comments and header rows.
var unitHint = regexp.MustCompile(`(?i)(wavelength|wave|lambda|flux|intensity)\s*[\(\[]([^\)\]]+)[\)\]]`)

// ReadFile parses a delimited text spectrum from disk.
func ReadFile(path string) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	series, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return series, nil
}

// Read parses a delimited text spectrum from a stream.
func Read(r io.Reader) (*Series, error) {
	series := &Series{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if prefix := commentPrefix(line); prefix != "" {
			collectUnitHints(series, strings.TrimPrefix(line, prefix))
			continue
		}

		fields := splitRow(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: need at least 2 columns, got %d", lineNo, len(fields))
		}

		x, errX := parseNumber(fields[0])
		y, errY := parseNumber(fields[1])
		if errX != nil || errY != nil {
			// A single non-numeric row before any data is a header row.
			if len(series.Wavelength) == 0 {
				collectUnitHints(series, line)
				continue
			}
			return nil, fmt.Errorf("line %d: non-numeric value in %q", lineNo, line)
		}
		series.Wavelength = append(series.Wavelength, x)
		series.Flux = append(series.Flux, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(series.Wavelength) < 2 {
		return nil, fmt.Errorf("only %d data rows found, need at least 2", len(series.Wavelength))
	}
	return series, nil
}

func commentPrefix(line string) string {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return p
		}
	}
	return ""
}

// splitRow sniffs the delimiter per row: explicit separators win over
// whitespace so "4000.0, 1.2" and "4000.0 1.2" both parse.
func splitRow(line string) []string {
	for _, sep := range []string{",", ";", "\t"} {
		if strings.Contains(line, sep) {
			parts := strings.Split(line, sep)
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			return out
		}
	}
	return strings.Fields(line)
}

func parseNumber(s string) (float64, error) {
	// Fortran-style exponents appear in older archive dumps.
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, 64)
}

func collectUnitHints(series *Series, text string) {
	for _, m := range unitHint.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(m[1])
		unit := strings.TrimSpace(m[2])
		switch label {
		case "wavelength", "wave", "lambda":
			if series.WavelengthUnit == "" {
				series.WavelengthUnit = unit
			}
		case "flux", "intensity":
			if series.FluxUnit == "" {
				series.FluxUnit = unit
			}
		}
	}
}
