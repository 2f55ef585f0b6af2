package locations

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	postalCodeLength = 5
	postalCodeSpace  = 100000
)

// militaryPrefixes covers APO/FPO/DPO ranges (AE 090-098, AA 340, AP 962-966).
var militaryPrefixes = []string{"09", "340", "962", "963", "964", "965", "966"}

// NormalizePostalCode trims a ZIP or ZIP+4 code down to a zero-padded
// five digit string.
func NormalizePostalCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if i := strings.IndexAny(code, "- "); i >= 0 {
		code = code[:i]
	}
	if len(code) > postalCodeLength {
		code = code[:postalCodeLength]
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid postal code %q", raw)
	}
	return formatPostalCode(n), nil
}

// OffsetPostalCode adds offset to code, wrapping around the five digit
// space so the result is always a padded five character string.
func OffsetPostalCode(code string, offset int) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return code
	}
	return formatPostalCode(n + offset)
}

// nextJump alternates the search direction while growing the step, giving
// the offsets -1, +2, -3, +4, ... relative to the previous candidate.
func nextJump(jump int) int {
	if jump < 0 {
		return -jump + 1
	}
	return -jump - 1
}

func IsMilitaryPostalCode(raw string) bool {
	code, err := NormalizePostalCode(raw)
	if err != nil {
		return false
	}
	for _, prefix := range militaryPrefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

func formatPostalCode(n int) string {
	n = ((n % postalCodeSpace) + postalCodeSpace) % postalCodeSpace
	return fmt.Sprintf("%0*d", postalCodeLength, n)
}
