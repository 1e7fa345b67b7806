// Package specparse extracts numbers from the string-encoded values found in
// product specs and prices ("CC300mm", "1.234,50 kr.", "REI 60", "Under 15 meter").
//
// Every function is total: malformed input yields ok=false (or 0), never an error.
package specparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	digitRun   = regexp.MustCompile(`\d+`)
	decimalRun = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	underBand  = regexp.MustCompile(`(?i)under\s*(\d+(?:[.,]\d+)?)`)
)

// Number parses a currency- or data-table-like value. All characters other
// than digits and commas are dropped and the first comma becomes the decimal
// point. The longest numeric prefix of the result is parsed, so
// "1,234,50" reads as 1.234. Unparsable input returns 0.
func Number(s string) float64 {
	n, _ := NumberOK(s)
	return n
}

// NumberOK is Number with an explicit success flag.
func NumberOK(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Replace(b.String(), ",", ".", 1)
	if i := strings.IndexByte(cleaned, ','); i >= 0 {
		cleaned = cleaned[:i]
	}
	if strings.Trim(cleaned, ".") == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Decimal parses a number typed into a form field: an optional sign and
// either "." or "," as the decimal separator ("60.5", "600,5", "-700").
// Surrounding whitespace is ignored; anything else fails.
func Decimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// LeadingInt returns the first run of digits in s ("REI 60" -> 60).
func LeadingInt(s string) (int, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Digits concatenates every digit in s ("7.200 mm" -> 7200).
func Digits(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Measure returns the first decimal number embedded in s, tolerating a unit
// prefix or suffix ("CC300mm" -> 300, "3,6 m" -> 3.6).
func Measure(s string) (float64, bool) {
	m := decimalRun.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses a whole number, accepting integral floats ("8", " 8 ", "8.0").
func Int(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// UnderMeters reads a height band written as "under N meter" and returns N.
func UnderMeters(s string) (float64, bool) {
	m := underBand.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
