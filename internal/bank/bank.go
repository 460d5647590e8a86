// Package bank knows the statement layouts of the supported banks and turns
// raw CSV rows into normalized records.
package bank

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

// Bank identifies a supported statement layout.
type Bank string

const (
	Amex   Bank = "Amex"
	RBC    Bank = "RBC"
	Scotia Bank = "Scotia"
)

var ErrUnknownBank = errors.New("unsupported bank type")

// All returns the supported banks in display order.
func All() []Bank {
	return []Bank{Amex, RBC, Scotia}
}

// Parse resolves a bank tag. Matching is case-insensitive and the returned
// value is always the canonical tag.
func Parse(tag string) (Bank, error) {
	t := strings.TrimSpace(tag)
	for _, b := range All() {
		if strings.EqualFold(t, string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownBank, tag)
}

func (b Bank) String() string { return string(b) }

// Record is one usable statement line. An empty Cardholder means the
// statement does not name one and the importing user should be used.
type Record struct {
	Cardholder  string
	Date        core.Date
	ExpenseName string
	Amount      decimal.Decimal
	Bank        Bank
}

// Row is a CSV data row keyed by header name.
type Row map[string]string

const (
	amexDateLayout   = "2-Jan-06"
	rbcDateLayout    = "1/2/2006"
	scotiaDateLayout = "2006/1/2"
)

// Normalize maps a row of this bank's export to a Record. ok is false when
// the row has no usable date or amount and must be skipped.
func (b Bank) Normalize(row Row) (Record, bool) {
	switch b {
	case Amex:
		return normalize(b, row, "Date", amexDateLayout, "Description", "Amount", row["Card Member"])
	case RBC:
		return normalize(b, row, "Transaction Date", rbcDateLayout, "Description 1", "CAD$", "")
	case Scotia:
		return normalize(b, row, "Date", scotiaDateLayout, "Description", "Amount", "")
	default:
		return Record{}, false
	}
}

func normalize(b Bank, row Row, dateCol, layout, descCol, amountCol, cardholder string) (Record, bool) {
	t, err := time.Parse(layout, strings.TrimSpace(row[dateCol]))
	if err != nil {
		return Record{}, false
	}
	amount, err := core.ParseAmount(row[amountCol])
	if err != nil {
		return Record{}, false
	}
	// Amounts are stored with two decimals; rounding here keeps a bill's
	// total equal to the sum of its stored expenses.
	amount = core.Round2(amount)
	return Record{
		Cardholder:  strings.TrimSpace(cardholder),
		Date:        core.DateOf(t),
		ExpenseName: strings.TrimSpace(row[descCol]),
		Amount:      amount,
		Bank:        b,
	}, true
}
