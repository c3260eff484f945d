// Package brnum handles Brazilian-locale numeric text (comma decimal point,
// dot thousands separator) and the exact decimal arithmetic the ledger
// depends on.
package brnum

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrParse indicates the text did not contain a valid number.
	ErrParse = errors.New("brnum: invalid numeric text")

	nonNumeric = regexp.MustCompile(`[^\d,.\-]`)

	cdiAnnualSpread = decimal.RequireFromString("0.10")
	cdiBusinessDays = decimal.NewFromInt(252)
	hundred         = decimal.NewFromInt(100)
)

// ParseDecimal parses locale-formatted numeric text into an exact decimal.
// Accepts "5,2849", "5.284,90" and currency-prefixed text like "R$ 5,2849".
// When the cleaned text contains a comma, dots are treated as thousands
// separators and the comma as the decimal point; otherwise the text is
// parsed directly.
func ParseDecimal(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(nonNumeric.ReplaceAllString(text, ""))
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrParse, text)
	}
	return value, nil
}

// Format renders a decimal as locale text with a fixed number of fractional
// digits, rounding half up.
func Format(value decimal.Decimal, places int32) string {
	return strings.Replace(value.StringFixed(places), ".", ",", 1)
}

// Quantize4 rounds to four fractional digits, half up. Every quote column in
// the ledger stores values at this precision.
func Quantize4(value decimal.Decimal) decimal.Decimal {
	return value.Round(4)
}

// Quantize10 rounds to ten fractional digits, half up (the CDI column
// precision).
func Quantize10(value decimal.Decimal) decimal.Decimal {
	return value.Round(10)
}

// CDIDailyPercent converts an annual SELIC rate in whole percent into the
// daily compounded CDI rate, also in percent, over a 252 business-day year.
//
// Mirrors the operational HP12C calculation:
// FV = 100 + SELIC - 0.10; PV = 100; N = 252; solve for I.
func CDIDailyPercent(selicAnnualPercent decimal.Decimal) (decimal.Decimal, error) {
	futureValue := hundred.Add(selicAnnualPercent).Sub(cdiAnnualSpread)
	if futureValue.Sign() <= 0 {
		return decimal.Decimal{}, errors.New("brnum: final value too low to derive CDI")
	}

	base := futureValue.Div(hundred)
	exponent := decimal.NewFromInt(1).Div(cdiBusinessDays)
	root, err := base.PowWithPrecision(exponent, 34)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("brnum: derive CDI: %w", err)
	}

	daily := root.Sub(decimal.NewFromInt(1)).Mul(hundred)
	return Quantize10(daily), nil
}
