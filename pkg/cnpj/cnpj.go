// Package cnpj handles the Brazilian 14-digit company registration number used
// as the primary external identifier for a supplier.
//
// Canonical storage form is 14 ASCII digits; canonical display form is
// 99.999.999/9999-99. All inputs are normalized before storage or lookup.
package cnpj

import "strings"

// Length is the number of digits in a normalized tax ID.
const Length = 14

// Normalize strips every non-digit character from raw. It does not validate
// length; pair with Valid at trust boundaries.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(Length)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether normalized is exactly 14 ASCII digits.
func Valid(normalized string) bool {
	if len(normalized) != Length {
		return false
	}
	for i := 0; i < len(normalized); i++ {
		if normalized[i] < '0' || normalized[i] > '9' {
			return false
		}
	}
	return true
}

// Format renders a normalized tax ID in the canonical punctuated form
// 99.999.999/9999-99. Inputs that are not 14 digits are returned unchanged.
func Format(normalized string) string {
	if !Valid(normalized) {
		return normalized
	}
	var b strings.Builder
	b.Grow(Length + 4)
	b.WriteString(normalized[0:2])
	b.WriteByte('.')
	b.WriteString(normalized[2:5])
	b.WriteByte('.')
	b.WriteString(normalized[5:8])
	b.WriteByte('/')
	b.WriteString(normalized[8:12])
	b.WriteByte('-')
	b.WriteString(normalized[12:14])
	return b.String()
}
