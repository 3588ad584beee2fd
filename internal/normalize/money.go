package normalize

import (
	"strconv"
	"strings"
)

// Rescale bounds for the thousands-of-reais upstream encoding workaround.
// Values below rescaleCeiling may have been truncated to thousands; the
// correction is applied only when the rescaled amount clears rescaleFloor,
// the minimum plausible amendment size. Legacy constants inherited from the
// SIOP feed; do not tune without fixing the feed first.
const (
	rescaleCeiling = 100_000
	rescaleFloor   = 10_000
)

// ParseMoney converts a raw SIOP monetary field into whole reais. It accepts
// numbers or Brazilian-notation strings ("1.234,56") and never fails: any
// unparseable input yields 0.
func ParseMoney(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return rescaleThousands(n)
	case float32:
		return rescaleThousands(float64(n))
	case int:
		return rescaleThousands(float64(n))
	case int64:
		return rescaleThousands(float64(n))
	case string:
		return parseMoneyString(n)
	default:
		return 0
	}
}

func parseMoneyString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	var cleaned string
	switch {
	case hasComma && hasDot:
		// Brazilian layout: dots group thousands, comma is the decimal mark.
		cleaned = strings.ReplaceAll(s, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case hasComma:
		cleaned = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// Multiple dots can only be thousands separators.
		cleaned = strings.ReplaceAll(s, ".", "")
	case hasDot && len(s)-strings.Index(s, ".")-1 > 3:
		// A single dot followed by more than three digits separates
		// thousands, not decimals.
		cleaned = strings.ReplaceAll(s, ".", "")
	default:
		cleaned = s
	}

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return rescaleThousands(parsed)
}

// rescaleThousands corrects records that report allocation in thousands of
// reais. Amounts in (0, 100000) are multiplied by 1000 unless the result
// would still fall under the 10000 floor.
func rescaleThousands(v float64) float64 {
	if v > 0 && v < rescaleCeiling {
		if scaled := v * 1000; scaled >= rescaleFloor {
			return scaled
		}
	}
	return v
}
