package pricing

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	apperrors "sjsage522/pricecompare/pkg/errors"
)

var (
	errNoDigits          = errors.New("no digits")
	errMultipleDecimals  = errors.New("more than one decimal separator")
	errMultipleNumbers   = errors.New("more than one number")
	errNegativeAmount    = errors.New("negative amount")
	errInvalidAmountText = errors.New("invalid amount")
)

// ParseOptions carries the per-source parsing conventions
type ParseOptions struct {
	// MinorUnits marks sources that publish prices as pence with no separator.
	MinorUnits bool
	Currency   string
}

// ParsePrice converts text such as "£1,234.56" or "£849.99 RRP" into Money.
// The amount is the first number in text: digits with optional ","
// thousands separators and one "." decimal point, each sitting between two
// digits. Currency symbols and qualifier words around it are ignored, but a
// second number anywhere after it makes the text ambiguous ("£10 was £12").
// Failures are UnparseablePrice errors.
func ParsePrice(text string, opts ParseOptions) (Money, error) {
	runes := []rune(text)

	start := -1
	for i, r := range runes {
		if isASCIIDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return Money{}, apperrors.NewUnparseablePrice("", text, errNoDigits)
	}
	if negativeBefore(runes[:start]) {
		return Money{}, apperrors.NewUnparseablePrice("", text, errNegativeAmount)
	}

	var b strings.Builder
	separators := 0
	end := start
	for ; end < len(runes); end++ {
		r := runes[end]
		if isASCIIDigit(r) {
			b.WriteRune(r)
			continue
		}
		if (r == '.' || r == ',') && end+1 < len(runes) && isASCIIDigit(runes[end+1]) {
			if r == '.' {
				separators++
				b.WriteRune(r)
			}
			continue
		}
		break
	}

	if separators > 1 {
		return Money{}, apperrors.NewUnparseablePrice("", text, errMultipleDecimals)
	}
	for _, r := range runes[end:] {
		if isASCIIDigit(r) {
			return Money{}, apperrors.NewUnparseablePrice("", text, errMultipleNumbers)
		}
	}

	amount, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || amount < 0 {
		return Money{}, apperrors.NewUnparseablePrice("", text, errInvalidAmountText)
	}

	if opts.MinorUnits && separators == 0 {
		amount /= 100
	}

	return Money{Amount: amount, Currency: opts.Currency}, nil
}

// negativeBefore reports a minus sign directly ahead of the first digit,
// skipping whitespace and currency symbols ("-£5", "£ -5").
func negativeBefore(prefix []rune) bool {
	for i := len(prefix) - 1; i >= 0; i-- {
		r := prefix[i]
		switch {
		case r == '-' || r == '−':
			return true
		case unicode.IsSpace(r) || unicode.Is(unicode.Sc, r):
			continue
		default:
			return false
		}
	}
	return false
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
