package jcamp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Series is a raw spectrum read from a JCAMP-DX file, plus the labelled
// records kept for provenance.
type Series struct {
	Wavelength     []float64
	Flux           []float64
	WavelengthUnit string
	FluxUnit       string
	Title          string
	Records        map[string]string
}

// ReadFile parses a JCAMP-DX file from disk.
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

// Read parses JCAMP-DX content from a stream.
func Read(r io.Reader) (*Series, error) {
	series := &Series{Records: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var dataLines []string
	var dataLabel string
	inData := false

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			inData = false
			label, value := splitRecord(line)
			series.Records[label] = value
			switch label {
			case "TITLE":
				series.Title = value
			case "XUNITS":
				series.WavelengthUnit = value
			case "YUNITS":
				series.FluxUnit = value
			case "XYDATA", "XYPOINTS":
				// First data block wins; later ones are recorded only.
				if dataLabel == "" {
					dataLabel = label
					inData = true
				}
			}
			continue
		}
		if inData {
			dataLines = append(dataLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if dataLabel == "" || len(dataLines) == 0 {
		return nil, fmt.Errorf("no XYDATA or XYPOINTS block found")
	}

	var err error
	switch dataLabel {
	case "XYPOINTS":
		series.Wavelength, series.Flux, err = parsePoints(dataLines)
	default:
		series.Wavelength, series.Flux, err = parseXYData(dataLines, series.Records)
	}
	if err != nil {
		return nil, err
	}
	if len(series.Wavelength) < 2 {
		return nil, fmt.Errorf("only %d data points found, need at least 2", len(series.Wavelength))
	}
	return series, nil
}

// splitRecord parses "##LABEL= value", normalizing the label the JCAMP way:
// uppercase with spaces, dashes, underscores, and slashes removed.
func splitRecord(line string) (string, string) {
	body := strings.TrimPrefix(line, "##")
	label := body
	value := ""
	if eq := strings.Index(body, "="); eq >= 0 {
		label = body[:eq]
		value = strings.TrimSpace(body[eq+1:])
	}
	if c := strings.Index(value, "$$"); c >= 0 {
		value = strings.TrimSpace(value[:c])
	}
	label = strings.ToUpper(label)
	label = strings.NewReplacer(" ", "", "-", "", "_", "", "/", "").Replace(label)
	return label, value
}

// parsePoints handles ##XYPOINTS=(XY..XY): explicit pairs separated by
// semicolons or line breaks, with comma or space between X and Y.
func parsePoints(lines []string) ([]float64, []float64, error) {
	var xs, ys []float64
	for _, line := range lines {
		line = stripInlineComment(line)
		for _, pair := range strings.Split(line, ";") {
			fields := strings.FieldsFunc(pair, func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t'
			})
			if len(fields) == 0 {
				continue
			}
			if len(fields) != 2 {
				return nil, nil, fmt.Errorf("malformed XY pair %q", pair)
			}
			x, errX := strconv.ParseFloat(fields[0], 64)
			y, errY := strconv.ParseFloat(fields[1], 64)
			if errX != nil || errY != nil {
				return nil, nil, fmt.Errorf("malformed XY pair %q", pair)
			}
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys, nil
}

type tokenKind int

const (
	tokAFFN tokenKind = iota
	tokSQZ
	tokDIF
	tokDUP
)

type token struct {
	kind  tokenKind
	value float64
}

// parseXYData handles ##XYDATA=(X++(Y..Y)): each line opens with an AFFN X
// checkpoint followed by Y values in AFFN or ASDF (SQZ/DIF/DUP) form. When a
// line ends in DIF mode, the next line's first Y is a checkpoint duplicating
// the previous point and is dropped.
func parseXYData(lines []string, records map[string]string) ([]float64, []float64, error) {
	xFactor := recordFloat(records, "XFACTOR", 1)
	yFactor := recordFloat(records, "YFACTOR", 1)

	type decodedLine struct {
		checkpoint float64
		values     []float64
		// dropped marks a line whose first Y was a DIF check point
		// duplicating the previous line's last value.
		dropped bool
	}
	var decoded []decodedLine
	prevEndedInDIF := false

	for _, line := range lines {
		line = stripInlineComment(line)
		if line == "" {
			continue
		}
		tokens, err := tokenize(line)
		if err != nil {
			return nil, nil, err
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0].kind != tokAFFN {
			return nil, nil, fmt.Errorf("line must start with an AFFN X value: %q", line)
		}

		var values []float64
		var y float64
		var lastDelta float64
		lastWasDIF := false
		haveY := false

		for _, tok := range tokens[1:] {
			switch tok.kind {
			case tokAFFN, tokSQZ:
				y = tok.value
				lastWasDIF = false
				haveY = true
				values = append(values, y)
			case tokDIF:
				if !haveY {
					return nil, nil, fmt.Errorf("DIF token before any Y value: %q", line)
				}
				y += tok.value
				lastDelta = tok.value
				lastWasDIF = true
				values = append(values, y)
			case tokDUP:
				if len(values) == 0 {
					return nil, nil, fmt.Errorf("DUP token before any Y value: %q", line)
				}
				// DUP count includes the original occurrence.
				for i := 1; i < int(tok.value); i++ {
					if lastWasDIF {
						y += lastDelta
					}
					values = append(values, y)
				}
			}
		}

		dropped := false
		if prevEndedInDIF && len(values) > 0 {
			// Y-value check point: repeats the last emitted value.
			values = values[1:]
			dropped = true
		}
		prevEndedInDIF = lastWasDIF

		decoded = append(decoded, decodedLine{
			checkpoint: tokens[0].value * xFactor,
			values:     values,
			dropped:    dropped,
		})
	}

	// The step between samples comes from consecutive checkpoints. When the
	// next line dropped a check point, its checkpoint equals the X of this
	// line's last value rather than one step past it.
	step := 0.0
	for i := 0; i+1 < len(decoded); i++ {
		span := decoded[i+1].checkpoint - decoded[i].checkpoint
		intervals := len(decoded[i].values)
		if decoded[i+1].dropped {
			intervals--
		}
		if intervals > 0 && span != 0 {
			step = span / float64(intervals)
			break
		}
	}
	total := 0
	for _, d := range decoded {
		total += len(d.values)
	}
	if step == 0 && total > 1 {
		// Single-line block: fall back to the declared X range.
		lastX := recordFloat(records, "LASTX", 0)
		firstX := recordFloat(records, "FIRSTX", 0)
		if lastX != firstX {
			step = (lastX - firstX) / float64(total-1)
		}
	}
	if step == 0 {
		return nil, nil, fmt.Errorf("cannot determine X spacing")
	}

	xs := make([]float64, 0, total)
	ys := make([]float64, 0, total)
	for _, d := range decoded {
		x := d.checkpoint
		if d.dropped {
			x += step
		}
		for _, v := range d.values {
			xs = append(xs, x)
			ys = append(ys, v*yFactor)
			x += step
		}
	}
	return xs, ys, nil
}

// tokenize splits an ASDF data line into numeric tokens. SQZ digits (@, A-I,
// a-i) carry absolute values, DIF digits (%, J-R, j-r) carry deltas, DUP
// digits (S-Z, s) carry repeat counts.
func tokenize(line string) ([]token, error) {
	var tokens []token
	var cur strings.Builder
	var curKind tokenKind
	active := false

	flush := func() error {
		if !active {
			return nil
		}
		v, err := strconv.ParseFloat(cur.String(), 64)
		if err != nil {
			return fmt.Errorf("bad numeric token %q", cur.String())
		}
		tokens = append(tokens, token{kind: curKind, value: v})
		cur.Reset()
		active = false
		return nil
	}
	start := func(kind tokenKind, lead string) {
		curKind = kind
		cur.Reset()
		cur.WriteString(lead)
		active = true
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		case c == '+' || c == '-':
			// Sign inside an exponent stays in the current token.
			if active && cur.Len() > 0 {
				last := cur.String()[cur.Len()-1]
				if last == 'E' || last == 'e' {
					cur.WriteByte(c)
					continue
				}
			}
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokAFFN, string(c))
		case (c >= '0' && c <= '9') || c == '.':
			if !active {
				start(tokAFFN, "")
			}
			cur.WriteByte(c)
		case c == 'E' || c == 'e':
			if active && curKind == tokAFFN && cur.Len() > 0 {
				cur.WriteByte(c)
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
			if c == 'E' {
				start(tokSQZ, "5")
			} else {
				start(tokSQZ, "-5")
			}
		case c == '@':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokSQZ, "0")
		case c >= 'A' && c <= 'I':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokSQZ, string('1'+c-'A'))
		case c >= 'a' && c <= 'i':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokSQZ, "-"+string('1'+c-'a'))
		case c == '%':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokDIF, "0")
		case c >= 'J' && c <= 'R':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokDIF, string('1'+c-'J'))
		case c >= 'j' && c <= 'r':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokDIF, "-"+string('1'+c-'j'))
		case c >= 'S' && c <= 'Z':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokDUP, string('1'+c-'S'))
		case c == 's':
			if err := flush(); err != nil {
				return nil, err
			}
			start(tokDUP, "9")
		case c == '?':
			// Missing value marker.
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected character %q in data line", string(c))
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func recordFloat(records map[string]string, label string, fallback float64) float64 {
	raw, ok := records[label]
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return v
}

func stripInlineComment(line string) string {
	if c := strings.Index(line, "$$"); c >= 0 {
		return strings.TrimSpace(line[:c])
	}
	return strings.TrimSpace(line)
}
