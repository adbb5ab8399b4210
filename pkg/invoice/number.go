package invoice

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numericPrefix matches the longest leading decimal literal, the same prefix
// a browser's parseFloat would consume.
var numericPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?)`)

// ParseNumber converts free-form user input to a number. Leading whitespace
// is skipped and trailing garbage ignored ("12kg" is 12). Input without a
// numeric prefix, NaN and values that overflow to ±Inf yield 0.
func ParseNumber(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	lit := numericPrefix.FindString(s)
	if lit == "" {
		return 0
	}

	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// finite maps NaN and ±Inf to 0. JSON has no encoding for them.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0
	}
	return f
}

// Number is a float64 that decodes leniently from JSON: numbers are taken
// as-is, strings go through ParseNumber, true is 1 and anything else is 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*n = 0
	case bytes.Equal(data, []byte("true")):
		*n = 1
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ParseNumber(s))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(finite(f))
	}
	return nil
}

// Float64 returns n as a float64.
func (n Number) Float64() float64 {
	return float64(n)
}
