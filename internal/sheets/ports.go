package sheets

import (
	"context"

	"spendtrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends the transactions of an imported bill to an
	// external ledger and returns a reference to the written range.
	TransactionExporter interface {
		ExportBill(ctx context.Context, bill core.Bill, txs []core.Transaction) (ref string, err error)
	}
)

// Columns is the header of every exported row, in order.
var Columns = []string{
	"Bill", "Period Start", "Period End", "Date", "Description", "Cardholder", "Bank", "Amount",
}

// Row flattens one transaction of bill into spreadsheet cells matching Columns.
// Amounts are written as fixed two-decimal strings.
func Row(bill core.Bill, tx core.Transaction) []string {
	return []string{
		bill.ID,
		bill.BillingPeriodStart.String(),
		bill.BillingPeriodEnd.String(),
		tx.ExpenseDate.String(),
		tx.ExpenseName,
		tx.CardholderName,
		tx.Bank,
		core.Round2(tx.Amount).StringFixed(2),
	}
}
