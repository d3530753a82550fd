package letter

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultInstitutionPrefix is the fixed institutional segment of every letter number
const DefaultInstitutionPrefix = "UN6.B.1"

// FormatNumber builds the official number "{seq:03d}/{prefix}/{typeCode}/{year}".
// Sequences above 999 keep all their digits.
func FormatNumber(prefix string, seq int64, letterType LetterType, year int) string {
	if prefix == "" {
		prefix = DefaultInstitutionPrefix
	}
	return fmt.Sprintf("%03d/%s/%s/%d", seq, prefix, letterType.TypeCode(), year)
}

// PendingNumber is shown in a preview when the next sequence could not be read
func PendingNumber(prefix string, letterType LetterType, year int) string {
	if prefix == "" {
		prefix = DefaultInstitutionPrefix
	}
	return fmt.Sprintf("---/%s/%s/%d", prefix, letterType.TypeCode(), year)
}

// ParseSequence extracts the sequence value from a formatted letter number
func ParseSequence(number string) (int64, bool) {
	head, _, found := strings.Cut(strings.TrimSpace(number), "/")
	if !found || head == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(head, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// MaxSequence returns the highest sequence found in numbers; malformed entries are skipped
func MaxSequence(numbers []string) int64 {
	var max int64
	for _, n := range numbers {
		if seq, ok := ParseSequence(n); ok && seq > max {
			max = seq
		}
	}
	return max
}
