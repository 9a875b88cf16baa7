package fitsio

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// Header holds the keyword cards of one FITS header-data unit, in file
// order. Lookup is by keyword; repeated keywords keep the first value.
type Header struct {
	cards map[string]string
	order []string
}

func newHeader() *Header {
	return &Header{cards: make(map[string]string)}
}

func (h *Header) set(key, value string) {
	if _, exists := h.cards[key]; !exists {
		h.order = append(h.order, key)
	}
	h.cards[key] = value
}

// Has reports whether the keyword appears in the header.
func (h *Header) Has(key string) bool {
	_, ok := h.cards[strings.ToUpper(key)]
	return ok
}

// String returns the keyword's value with FITS string quoting removed, or ""
// when absent.
func (h *Header) String(key string) string {
	raw, ok := h.cards[strings.ToUpper(key)]
	if !ok {
		return ""
	}
	return unquote(raw)
}

// Int returns the keyword's value as an integer.
func (h *Header) Int(key string) (int, error) {
	raw, ok := h.cards[strings.ToUpper(key)]
	if !ok {
		return 0, fmt.Errorf("keyword %s not present", strings.ToUpper(key))
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("keyword %s: %w", strings.ToUpper(key), err)
	}
	return v, nil
}

// IntOr returns the keyword's integer value, or fallback when absent or
// malformed.
func (h *Header) IntOr(key string, fallback int) int {
	v, err := h.Int(key)
	if err != nil {
		return fallback
	}
	return v
}

// Float returns the keyword's value as a float. FITS allows 'D' exponents,
// which are mapped to 'E' before parsing.
func (h *Header) Float(key string) (float64, error) {
	raw, ok := h.cards[strings.ToUpper(key)]
	if !ok {
		return 0, fmt.Errorf("keyword %s not present", strings.ToUpper(key))
	}
	cleaned := strings.NewReplacer("D", "E", "d", "e").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: %w", strings.ToUpper(key), err)
	}
	return v, nil
}

// FloatOr returns the keyword's float value, or fallback when absent or
// malformed.
func (h *Header) FloatOr(key string, fallback float64) float64 {
	v, err := h.Float(key)
	if err != nil {
		return fallback
	}
	return v
}

// parseCard splits one 80-character card into keyword and raw value text.
// Comment-only and blank cards return ok=false.
func parseCard(card []byte) (key, value string, ok bool) {
	text := string(card)
	key = strings.TrimRight(text[:8], " ")
	if key == "" || key == "COMMENT" || key == "HISTORY" {
		return "", "", false
	}
	if len(text) < 10 || text[8] != '=' {
		// Keyword without value indicator (e.g. END handled by caller).
		return key, "", true
	}
	value = text[10:]
	// Strip inline comment, but not inside a quoted string.
	if strings.HasPrefix(strings.TrimSpace(value), "'") {
		start := strings.Index(value, "'")
		rest := value[start+1:]
		end := closingQuote(rest)
		if end >= 0 {
			value = value[:start+1+end+1]
		}
	} else if slash := strings.Index(value, "/"); slash >= 0 {
		value = value[:slash]
	}
	return key, strings.TrimSpace(value), true
}

// closingQuote finds the terminating quote of a FITS string, where a doubled
// quote is an escaped quote.
func closingQuote(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' {
		if end := closingQuote(raw[1:]); end >= 0 {
			inner := raw[1 : 1+end]
			return strings.TrimRight(strings.ReplaceAll(inner, "''", "'"), " ")
		}
	}
	return raw
}
