package downstream

import "unicode/utf8"

// DefaultMaxLength is the default `max_length` spec.md §4.5 names ("≈ 40 000
// characters").
const DefaultMaxLength = 40000

const elisionMarker = "...[truncated]"

// Truncate measures s's UTF-8 byte length against maxLength (the Open
// Question in spec.md §9 is resolved as byte-length measurement) and, if
// it exceeds the limit, cuts at the nearest rune boundary at or before
// maxLength - len(elisionMarker) and appends the elision marker. The result
// is therefore at most maxLength bytes (or just the marker when maxLength is
// shorter than it), within the maxLength + len(elisionMarker) bound spec.md
// §8 names.
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if len(s) <= maxLength {
		return s
	}

	limit := maxLength - len(elisionMarker)
	if limit < 0 {
		limit = 0
	}
	if limit > len(s) {
		limit = len(s)
	}

	b := []byte(s)
	for limit > 0 && !utf8.RuneStart(b[limit]) {
		limit--
	}

	return string(b[:limit]) + elisionMarker
}
