package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidInput is returned when latitude or longitude is missing or not a finite number.
// Its message is the exact body the HTTP layer returns with 400.
var ErrInvalidInput = errors.New("lat/lon required")

// AutoTimezone is the timezone used when the caller supplies none.
const AutoTimezone = "auto"

// ParseCoordinate parses a raw query value into a finite float.
func ParseCoordinate(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidInput
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidInput, raw)
	}
	return v, nil
}

// ParseCoordinates parses the lat and lon query values.
func ParseCoordinates(lat, lon string) (float64, float64, error) {
	la, err := ParseCoordinate(lat)
	if err != nil {
		return 0, 0, err
	}
	lo, err := ParseCoordinate(lon)
	if err != nil {
		return 0, 0, err
	}
	return la, lo, nil
}

// CheckCoordinates rejects NaN and infinite coordinates.
func CheckCoordinates(lat, lon float64) error {
	for _, v := range []float64{lat, lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidInput
		}
	}
	return nil
}

// NormalizeTimezone trims tz and substitutes AutoTimezone when it is empty.
// Any other value is passed through to the upstream untouched.
func NormalizeTimezone(tz string) string {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return AutoTimezone
	}
	return tz
}

// ErrQueryEmpty is returned when a geocoding query is empty or whitespace-only.
var ErrQueryEmpty = errors.New("q required")

// ErrQueryTooShort is returned when a geocoding query is below the minimum length.
var ErrQueryTooShort = errors.New("q too short")

// ErrQueryTooLong is returned when a geocoding query exceeds the maximum length.
var ErrQueryTooLong = errors.New("q too long")

// ErrQueryInvalidChars is returned when a geocoding query contains disallowed characters.
var ErrQueryInvalidChars = errors.New("q contains invalid characters")

// ValidatePlaceQuery trims a geocoding query, enforces length bounds (in runes;
// zero disables a bound) and restricts it to letters, digits, space and , - . '
func ValidatePlaceQuery(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrQueryEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrQueryTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrQueryTooLong
	}
	for _, c := range r {
		if !isAllowedPlaceRune(c) {
			return "", ErrQueryInvalidChars
		}
	}
	return s, nil
}

func isAllowedPlaceRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}
