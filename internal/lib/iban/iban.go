// Package iban validates and formats International Bank Account Numbers.
//
// All functions are pure. Validation never returns an error: anything that
// cannot be checked is simply reported as invalid.
package iban

import "strings"

const (
	// MinLength is the shortest normalized IBAN accepted.
	MinLength = 15
	// MaxLength is the longest normalized IBAN accepted.
	MaxLength = 34

	groupSize = 4
)

// Result is the outcome of Check.
type Result struct {
	IsValid    bool   `json:"is_valid"`
	Normalized string `json:"normalized"`

	// Formatted is only set for valid input.
	Formatted *string `json:"formatted_iban"`
}

// Normalize strips every space and uppercases the input.
func Normalize(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

// IsValid reports whether s is a structurally valid IBAN with a correct
// ISO 7064 mod-97-10 checksum. Spaces and lowercase letters are accepted.
func IsValid(s string) bool {
	n := Normalize(s)

	if len(n) < MinLength || len(n) > MaxLength {
		return false
	}

	if !isUpper(n[0]) || !isUpper(n[1]) || !isDigit(n[2]) || !isDigit(n[3]) {
		return false
	}

	rem, ok := mod97(n[4:] + n[:4])
	return ok && rem == 1
}

// mod97 reads the letter-expanded string as a decimal number and returns it
// modulo 97, folding one digit at a time (Horner's method) so the value never
// leaves int range. ok is false on any character outside [0-9A-Z].
func mod97(s string) (rem int, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			rem = (rem*10 + int(c-'0')) % 97
		case isUpper(c):
			// A=10 .. Z=35, always two decimal digits.
			rem = (rem*100 + int(c-'A') + 10) % 97
		default:
			return 0, false
		}
	}
	return rem, true
}

// Format groups the normalized form of s in blocks of four characters,
// left to right. The last block may be shorter. It does not validate.
func Format(s string) string {
	n := Normalize(s)
	if n == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(n) + len(n)/groupSize)
	for i := 0; i < len(n); i += groupSize {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + groupSize
		if end > len(n) {
			end = len(n)
		}
		b.WriteString(n[i:end])
	}
	return b.String()
}

// Check validates s and, when valid, also returns its display form.
func Check(s string) Result {
	res := Result{Normalized: Normalize(s)}
	if IsValid(s) {
		formatted := Format(s)
		res.IsValid = true
		res.Formatted = &formatted
	}
	return res
}

// CountryCode returns the two-letter country prefix of s, or "" when s is
// too short to carry one.
func CountryCode(s string) string {
	n := Normalize(s)
	if len(n) < 2 {
		return ""
	}
	return n[:2]
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
