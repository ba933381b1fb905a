package util

import (
	"fmt"
	"math/big"
	"strings"

	"dashboard/domain"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with thousands separators, floored to
// precision fraction digits, e.g. "1,234.5678 hTON".
func FormatAmount(amount domain.FixedPoint, precision uint8, symbol string) string {
	plain := amount.DisplayString(precision)
	negative := strings.HasPrefix(plain, "-")
	plain = strings.TrimPrefix(plain, "-")

	whole, frac, _ := strings.Cut(plain, ".")
	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		wholeInt = new(big.Int)
	}

	result := humanize.BigComma(wholeInt)
	if frac != "" {
		result += "." + frac
	}
	if negative {
		result = "-" + result
	}
	if symbol != "" {
		result = fmt.Sprintf("%v %v", result, symbol)
	}
	return result
}

// FormatPercent renders a percentage value such as 4.25 as "4.25%".
func FormatPercent(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

// FormatUnavailable returns the display marker for a value that failed to load.
func FormatUnavailable(err error) string {
	if err == nil {
		return "unavailable"
	}
	return fmt.Sprintf("unavailable (%v)", err.Error())
}
