package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrInvalidMoney is returned when a price string holds no parseable amount.
var ErrInvalidMoney = errors.New("invalid money amount")

// Money is an amount in minor currency units (cents).
type Money int64

// Cents builds a Money value from whole dollars and cents.
func Cents(dollars, cents int64) Money {
	return Money(dollars*100 + cents)
}

var printer = message.NewPrinter(language.English)

// String formats the amount for display, e.g. "$1,234.56".
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + printer.Sprintf("%d", v/100) + fmt.Sprintf(".%02d", v%100)
}

// Plain formats the amount without symbol or grouping, e.g. "1234.56".
// This is the form servers expect in posted values.
func (m Money) Plain() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(q int) Money {
	return m * Money(q)
}

// ParseMoney reads a rendered price such as "$1,234.56", "£12" or " 3.5 ".
// Everything other than digits, '.' and '-' is ignored. A third decimal
// digit rounds half-up to the nearest cent.
func ParseMoney(s string) (Money, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	if cleaned == "" || strings.Contains(cleaned, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	whole, frac, _ := strings.Cut(cleaned, ".")
	if strings.Contains(frac, ".") || (whole == "" && frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	var dollars int64
	if whole != "" {
		d, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
		}
		dollars = d
	}

	// pad/truncate to three digits so the third can round
	frac = (frac + "000")[:3]
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	cents := f / 10
	if f%10 >= 5 {
		cents++
	}

	total := Money(dollars*100 + cents)
	if negative {
		total = -total
	}
	return total, nil
}
