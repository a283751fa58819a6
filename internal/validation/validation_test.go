package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"plain", "43.651", 43.651, false},
		{"negative", "-79.347", -79.347, false},
		{"padded", "  12.5 ", 12.5, false},
		{"integer", "0", 0, false},
		{"empty", "", 0, true},
		{"whitespace", "   ", 0, true},
		{"letters", "abc", 0, true},
		{"trailing junk", "43.6abc", 0, true},
		{"nan", "NaN", 0, true},
		{"inf", "Inf", 0, true},
		{"negative infinity", "-Infinity", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCoordinate(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseCoordinate(%q) error = %v, want ErrInvalidInput", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinate(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseCoordinate(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestParseCoordinates_InvalidLat covers lat="abc", lon="-79.3".
func TestParseCoordinates_InvalidLat(t *testing.T) {
	_, _, err := ParseCoordinates("abc", "-79.3")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ParseCoordinates() error = %v, want ErrInvalidInput", err)
	}
}

func TestParseCoordinates_MissingLon(t *testing.T) {
	_, _, err := ParseCoordinates("43.65", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ParseCoordinates() error = %v, want ErrInvalidInput", err)
	}
}

func TestParseCoordinates_Valid(t *testing.T) {
	lat, lon, err := ParseCoordinates("43.651", "-79.347")
	if err != nil {
		t.Fatalf("ParseCoordinates() error = %v", err)
	}
	if lat != 43.651 || lon != -79.347 {
		t.Errorf("ParseCoordinates() = (%v, %v), want (43.651, -79.347)", lat, lon)
	}
}

func TestCheckCoordinates(t *testing.T) {
	if err := CheckCoordinates(1, 2); err != nil {
		t.Errorf("CheckCoordinates(1, 2) error = %v", err)
	}
	if err := CheckCoordinates(math.NaN(), 2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("CheckCoordinates(NaN, 2) error = %v, want ErrInvalidInput", err)
	}
	if err := CheckCoordinates(1, math.Inf(-1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("CheckCoordinates(1, -Inf) error = %v, want ErrInvalidInput", err)
	}
}

func TestErrInvalidInput_Message(t *testing.T) {
	if ErrInvalidInput.Error() != "lat/lon required" {
		t.Errorf("ErrInvalidInput = %q, want %q", ErrInvalidInput.Error(), "lat/lon required")
	}
}

func TestNormalizeTimezone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "auto"},
		{"   ", "auto"},
		{"America/Toronto", "America/Toronto"},
		{" Europe/Paris ", "Europe/Paris"},
		{"auto", "auto"},
	}
	for _, tc := range tests {
		if got := NormalizeTimezone(tc.in); got != tc.want {
			t.Errorf("NormalizeTimezone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidatePlaceQuery_Empty(t *testing.T) {
	for _, in := range []string{"", "  ", "\t"} {
		if _, err := ValidatePlaceQuery(in, 1, 100); !errors.Is(err, ErrQueryEmpty) {
			t.Errorf("ValidatePlaceQuery(%q) error = %v, want ErrQueryEmpty", in, err)
		}
	}
}

func TestValidatePlaceQuery_Bounds(t *testing.T) {
	if _, err := ValidatePlaceQuery("x", 2, 100); !errors.Is(err, ErrQueryTooShort) {
		t.Errorf("error = %v, want ErrQueryTooShort", err)
	}
	if _, err := ValidatePlaceQuery(strings.Repeat("a", 101), 1, 100); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("error = %v, want ErrQueryTooLong", err)
	}
}

func TestValidatePlaceQuery_InvalidChars(t *testing.T) {
	for _, in := range []string{"sea/ttle", "sea?ttle", "sea#ttle", "sea\x00ttle", "a&b", "50%"} {
		if _, err := ValidatePlaceQuery(in, 1, 100); !errors.Is(err, ErrQueryInvalidChars) {
			t.Errorf("ValidatePlaceQuery(%q) error = %v, want ErrQueryInvalidChars", in, err)
		}
	}
}

func TestValidatePlaceQuery_Valid(t *testing.T) {
	tests := []struct{ in, want string }{
		{" Toronto ", "Toronto"},
		{"Montréal", "Montréal"},
		{"St. John's", "St. John's"},
		{"Winston-Salem, NC", "Winston-Salem, NC"},
		{"東京", "東京"},
	}
	for _, tc := range tests {
		got, err := ValidatePlaceQuery(tc.in, 1, 100)
		if err != nil {
			t.Errorf("ValidatePlaceQuery(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidatePlaceQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
