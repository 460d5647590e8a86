// Package dashboard derives the filtered, sorted transaction table and the
// per-cardholder chart shown on the spending dashboard.
package dashboard

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

// Column is a sortable transaction attribute.
type Column string

const (
	ColumnExpenseName Column = "expense_name"
	ColumnAmount      Column = "amount"
	ColumnDate        Column = "expense_date"
	ColumnCardholder  Column = "cardholder_name"
	ColumnBank        Column = "bank"
	ColumnBill        Column = "credit_card_bill_id"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// State is the user-controlled input of the dashboard. Zero values disable
// the corresponding filter; a nil Sort keeps the fetched order.
type State struct {
	Cardholder   string `json:"cardholder,omitempty"`
	Bank         string `json:"bank,omitempty"`
	ExpenseQuery string `json:"q,omitempty"`
	BillQuery    string `json:"bill,omitempty"`
	Sort         *Sort  `json:"sort,omitempty"`
}

// Slice is one chart segment.
type Slice struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

type View struct {
	Transactions []core.Transaction `json:"transactions"`
	Chart        []Slice            `json:"chart"`
	Total        decimal.Decimal    `json:"total"`
	// Cardholders and Banks list the distinct values of the unfiltered
	// input, for populating filter choices.
	Cardholders []string `json:"cardholders"`
	Banks       []string `json:"banks"`
}

// Derive applies the filters in order (cardholder, bank, expense name, bill
// id), then the optional stable sort, and aggregates the result into chart
// slices. txns is not modified.
func Derive(txns []core.Transaction, s State) View {
	expenseQ := strings.ToLower(s.ExpenseQuery)
	billQ := strings.ToLower(s.BillQuery)

	rows := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if s.Cardholder != "" && t.CardholderName != s.Cardholder {
			continue
		}
		if s.Bank != "" && t.Bank != s.Bank {
			continue
		}
		if expenseQ != "" && !strings.Contains(strings.ToLower(t.ExpenseName), expenseQ) {
			continue
		}
		if billQ != "" && !strings.Contains(strings.ToLower(t.BillID), billQ) {
			continue
		}
		rows = append(rows, t)
	}

	if s.Sort != nil {
		compare := comparator(s.Sort.Column)
		if s.Sort.Direction == Desc {
			asc := compare
			compare = func(a, b core.Transaction) int { return -asc(a, b) }
		}
		slices.SortStableFunc(rows, compare)
	}

	total := decimal.Zero
	for _, t := range rows {
		total = total.Add(t.Amount)
	}

	return View{
		Transactions: rows,
		Chart:        Chart(rows),
		Total:        core.Round2(total),
		Cardholders:  distinct(txns, func(t core.Transaction) string { return t.CardholderName }),
		Banks:        distinct(txns, func(t core.Transaction) string { return t.Bank }),
	}
}

// Chart sums amounts per cardholder name in order of first appearance,
// rounding each total to cents.
func Chart(txns []core.Transaction) []Slice {
	chart := []Slice{}
	index := make(map[string]int)
	for _, t := range txns {
		i, ok := index[t.CardholderName]
		if !ok {
			i = len(chart)
			index[t.CardholderName] = i
			chart = append(chart, Slice{Label: t.CardholderName, Total: decimal.Zero})
		}
		chart[i].Total = chart[i].Total.Add(t.Amount)
	}
	for i := range chart {
		chart[i].Total = core.Round2(chart[i].Total)
	}
	return chart
}

func comparator(c Column) func(a, b core.Transaction) int {
	switch c {
	case ColumnAmount:
		return func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case ColumnDate:
		return func(a, b core.Transaction) int { return a.ExpenseDate.Compare(b.ExpenseDate.Time) }
	case ColumnCardholder:
		return func(a, b core.Transaction) int { return cmp.Compare(a.CardholderName, b.CardholderName) }
	case ColumnBank:
		return func(a, b core.Transaction) int { return cmp.Compare(a.Bank, b.Bank) }
	case ColumnBill:
		return func(a, b core.Transaction) int { return cmp.Compare(a.BillID, b.BillID) }
	default:
		return func(a, b core.Transaction) int { return cmp.Compare(a.ExpenseName, b.ExpenseName) }
	}
}

func distinct(txns []core.Transaction, key func(core.Transaction) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, t := range txns {
		k := key(t)
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ParseState reads dashboard state from query parameters: cardholder, bank,
// q (expense name), bill, sort (column) and order (asc|desc, default asc).
func ParseState(q url.Values) (State, error) {
	s := State{
		Cardholder:   q.Get("cardholder"),
		Bank:         q.Get("bank"),
		ExpenseQuery: strings.TrimSpace(q.Get("q")),
		BillQuery:    strings.TrimSpace(q.Get("bill")),
	}

	col := Column(q.Get("sort"))
	order := Direction(strings.ToLower(q.Get("order")))
	if col == "" {
		if order != "" {
			return State{}, fmt.Errorf("order %q given without sort column", order)
		}
		return s, nil
	}

	switch col {
	case ColumnExpenseName, ColumnAmount, ColumnDate, ColumnCardholder, ColumnBank, ColumnBill:
	default:
		return State{}, fmt.Errorf("unknown sort column %q", col)
	}
	switch order {
	case "":
		order = Asc
	case Asc, Desc:
	default:
		return State{}, fmt.Errorf("unknown sort order %q", order)
	}

	s.Sort = &Sort{Column: col, Direction: order}
	return s, nil
}
