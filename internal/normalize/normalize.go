// Package normalize canonicalizes raw address field values. The same
// canonical forms feed both geocoding queries and cache keys, so every
// function here must be deterministic and idempotent.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	cepRe    = regexp.MustCompile(`\b(\d{5})-?(\d{3})\b`)
	numberRe = regexp.MustCompile(`[0-9][0-9A-Za-z.,/-]*`)

	abbrevNumeroRe = regexp.MustCompile(`(?i)\bn[º°]`)
	dotNumeroRe    = regexp.MustCompile(`(?i)\bn\.`)
	unitRe         = regexp.MustCompile(`(?i)\b(?:loja|andar|sala|conj(?:unto)?|cj|bloco)\b\s*[\w/-]+`)
	spaceRe        = regexp.MustCompile(`\s{2,}`)
)

// CEP extracts the first 5+3 digit run from raw and returns it as
// "NNNNN-NNN". Returns "" when no run exists. Idempotent.
func CEP(raw string) string {
	m := cepRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2]
}

// CEPDigits returns the canonical CEP without the hyphen (8 digits),
// or "" when raw holds no valid CEP.
func CEPDigits(raw string) string {
	c := CEP(raw)
	if c == "" {
		return ""
	}
	return strings.Replace(c, "-", "", 1)
}

// IsCEP reports whether raw contains a CEP-shaped digit run.
func IsCEP(raw string) bool {
	return cepRe.MatchString(raw)
}

// StreetNumber extracts the first digit-led token from raw (covering forms
// like "123", "123A", "123-B") with commas folded to dots. Returns "" when
// no such token exists.
func StreetNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	m := numberRe.FindString(s)
	if m == "" {
		return ""
	}
	return strings.ReplaceAll(m, ",", ".")
}

// StreetLine strips unit qualifiers (loja, sala, andar, conjunto, bloco and
// their trailing token) from a free-text street line and collapses runs of
// whitespace. Suite-level detail makes Nominatim miss otherwise-resolvable
// streets.
func StreetLine(raw string) string {
	s := strings.TrimSpace(raw)
	s = abbrevNumeroRe.ReplaceAllString(s, "numero")
	s = dotNumeroRe.ReplaceAllString(s, "numero")
	s = unitRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DecimalBR parses a pt-BR formatted number ("." thousands, "," decimal).
// Any parse failure yields 0, never an error.
func DecimalBR(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
