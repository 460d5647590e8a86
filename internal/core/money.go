// Package core provides the domain model shared by storage, import and the
// HTTP layer.
//
// This file contains helpers for parsing statement amounts and rounding
// aggregated totals.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a statement amount to a decimal.
//
// Statements carry signed values (refunds and payments are negative), so the
// sign is preserved. A leading currency symbol and thousands separators are
// tolerated; anything else that is not a plain decimal number is rejected.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("-$1,250.00") -> -1250.00
//	ParseAmount("abc")       -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s[0] == '-' || s[0] == '+' {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// Round2 rounds half away from zero to cents, matching toFixed(2) on the dashboard.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
