// Package phone normalizes phone numbers to the digits-only form used as
// the lead matching key across services.
package phone

import "strings"

// Normalize strips every non-digit character from a phone number. A bare
// 10-digit US/Canada number gains the leading country code "1" so that
// "(555) 123-4567" and "+1 555 123 4567" normalize to the same key.
// Numbers of 11 or more digits pass through unchanged beyond the
// punctuation strip. Empty input stays empty.
func Normalize(number string) string {
	if number == "" {
		return number
	}

	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}
