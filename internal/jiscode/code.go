// Package jiscode validates the fixed-width numeric administrative codes
// used in Japanese area statistics: 2-digit prefecture codes, 3-digit city
// codes and 6-digit sub-area codes.
package jiscode

import (
	"fmt"
	"strings"
)

// Digit widths of the administrative codes.
const (
	PrefectureWidth = 2
	CityWidth       = 3
	SubAreaWidth    = 6
)

// ValidationError reports a code field that is not exactly Width decimal digits.
type ValidationError struct {
	Value string // raw value as read, before trimming
	Width int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("expected %d-digit numeric code, got %q", e.Width, e.Value)
}

// Parse trims surrounding whitespace from value and parses it as a
// non-negative integer of exactly width ASCII digits.
func Parse(value string, width int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if width <= 0 || len(trimmed) != width {
		return 0, &ValidationError{Value: value, Width: width}
	}

	n := 0
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c < '0' || c > '9' {
			return 0, &ValidationError{Value: value, Width: width}
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// Compose builds the composite jis code exposed by codes_view:
// (prefecture*1000 + city) * 1_000_000 + subArea.
func Compose(prefecture, city, subArea int) int64 {
	return (int64(prefecture)*1000+int64(city))*1_000_000 + int64(subArea)
}

// SectionDigits returns the low two digits of a sub-area code. Zero marks a
// sub-area without a section.
func SectionDigits(subArea int) int {
	return subArea % 100
}

// Bucket returns the sub-area code with its section digits dropped.
func Bucket(subArea int) int {
	return subArea / 100
}
