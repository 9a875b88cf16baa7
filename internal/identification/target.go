package identification

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritical marks after NFD decomposition, so
// "Groombridge 1830" and its accented variants collapse to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var foldCaser = cases.Fold()

// greekNames spells out greek letters used in Bayer designations, matching
// how archives index them ("α Lyr" → "alpha lyr").
var greekNames = map[rune]string{
	'α': "alpha", 'β': "beta", 'γ': "gamma", 'δ': "delta",
	'ε': "epsilon", 'ζ': "zeta", 'η': "eta", 'θ': "theta",
	'ι': "iota", 'κ': "kappa", 'λ': "lambda", 'μ': "mu",
	'ν': "nu", 'ξ': "xi", 'ο': "omicron", 'π': "pi",
	'ρ': "rho", 'σ': "sigma", 'τ': "tau", 'υ': "upsilon",
	'φ': "phi", 'χ': "chi", 'ψ': "psi", 'ω': "omega",
}

// CanonicalTarget normalizes a target name for use as a lookup and library
// key: case-folded, diacritics stripped, greek letters spelled out, interior
// whitespace collapsed.
func CanonicalTarget(name string) string {
	folded := foldCaser.String(strings.TrimSpace(name))

	var sb strings.Builder
	sb.Grow(len(folded) + 8)
	for _, r := range folded {
		if expanded, ok := greekNames[r]; ok {
			sb.WriteString(expanded)
			continue
		}
		sb.WriteRune(r)
	}

	plain, _, err := transform.String(stripMarks, sb.String())
	if err != nil {
		plain = sb.String()
	}

	return strings.Join(strings.Fields(plain), " ")
}

// TargetFromPath derives a display target name from a file path when nothing
// better is known: base name without extension, separators replaced.
func TargetFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	if base == "" {
		return "unknown target"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	cleaned := strings.Join(strings.Fields(base), " ")
	if cleaned == "" {
		return "unknown target"
	}
	return cleaned
}

// LibraryKey converts a canonical target into a filesystem-safe directory
// name under the library root.
func LibraryKey(target string) string {
	canonical := CanonicalTarget(target)
	if canonical == "" {
		return "unknown-target"
	}
	var sb strings.Builder
	sb.Grow(len(canonical))
	for _, r := range canonical {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '/', r == '+':
			sb.WriteByte('-')
		}
	}
	key := strings.Trim(sb.String(), "-")
	if key == "" {
		return "unknown-target"
	}
	return key
}
