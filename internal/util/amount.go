package util

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
)

var (
	reISODate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	reIntegerFloat = regexp.MustCompile(`^(-?\d+)\.0$`)
)

const slipDateLayout = "02/01/2006"

// ParseAmount parses a monetary cell after removing thousands separators and
// whitespace.
func ParseAmount(input string) (float64, bool) {
	compact := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	if compact == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(compact, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatCurrency renders a number with thousands grouping and two decimals.
// Blank input stays blank and non-numeric input passes through trimmed, so a
// missing figure never turns into "0.00".
func FormatCurrency(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	v, ok := ParseAmount(trimmed)
	if !ok {
		return trimmed
	}
	return groupTwoDecimals(v)
}

// groupTwoDecimals rounds the exact binary value the way %.2f does and
// groups the integer part without passing through int64.
func groupTwoDecimals(v float64) string {
	fixed := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return fixed
	}
	out := humanize.BigComma(n) + "." + frac
	if v < 0 && fixed != "0.00" {
		out = "-" + out
	}
	return out
}

// FormatDate renders calendar values as DD/MM/YYYY. ISO-shaped strings are
// re-sliced, anything else collapses to its first whitespace-delimited token.
func FormatDate(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(slipDateLayout)
	case string:
		s := strings.TrimSpace(v)
		if reISODate.MatchString(s) {
			return s[8:10] + "/" + s[5:7] + "/" + s[0:4]
		}
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	default:
		return ""
	}
}

// StripIntegerSuffix turns the "30.0" artifact of integer cells into "30".
// Other values, formatted amounts included, are returned trimmed.
func StripIntegerSuffix(input string) string {
	s := strings.TrimSpace(input)
	if m := reIntegerFloat.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// PositiveInt reports whether the stripped input is a positive integer.
func PositiveInt(input string) (int, bool) {
	n, err := strconv.Atoi(StripIntegerSuffix(input))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ResolveRemittance prefers the foreign remittance when it is a positive
// number, otherwise it falls back to the Singapore value as-is.
func ResolveRemittance(foreign, singapore string) string {
	if v, ok := ParseAmount(foreign); ok && v > 0 {
		return strings.TrimSpace(foreign)
	}
	return strings.TrimSpace(singapore)
}
