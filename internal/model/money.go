package model

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]+`)
	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ParseAmount extracts a positive amount from free text such as "$12.50" or
// "SGD 7". Everything except digits, '.' and '-' is dropped, then the longest
// leading number is taken. The result is rounded to cents and must be
// strictly positive.
//
//	ParseAmount("12.50")    -> 12.50
//	ParseAmount("$1,200.5") -> 1200.50
//	ParseAmount("5-3")      -> 5.00
//	ParseAmount("-4")       -> ErrInvalidAmount
//	ParseAmount("0.001")    -> ErrInvalidAmount
func ParseAmount(text string) (decimal.Decimal, error) {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(text), "")
	match := leadingNumber.FindString(cleaned)
	if match == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// FormatMoney renders an amount as dollars with two decimals, e.g. "$12.50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
