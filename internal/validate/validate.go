package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxBarcode bounds scanner input; the longest layout is 30 digits, the
// rest is slack for scanners that append suffixes.
const MaxBarcode = 64

var (
	reOperator = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
	rePIN      = regexp.MustCompile(`^[0-9]{4,12}$`)
	reUnit     = regexp.MustCompile(`^[A-Za-z]{0,8}$`)
	rePLU      = regexp.MustCompile(`^[0-9]{1,18}$`)
)

// Barcode trims scanner input. An empty result is still valid; the decoder
// reports it as empty input.
func Barcode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) > MaxBarcode {
		return "", false
	}
	return s, true
}

// PLU accepts a non-negative lookup code of up to 18 digits. Scale labels
// print five; plain codes may carry any length that fits an int64.
func PLU(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !rePLU.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// Price parses a non-negative unit price with at most two decimals.
func Price(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 12 {
		return 0, false
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > 2 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Name validates a displayable product name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len([]rune(s)) > 64 {
		return "", false
	}
	return s, true
}

func Unit(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, reUnit.MatchString(s)
}

func OperatorID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reOperator.MatchString(s)
}

// PIN enforces a numeric PIN of 4-12 digits.
func PIN(s string) bool {
	return rePIN.MatchString(s)
}
