package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"spendtrack/internal/core"
)

const userExpensesFrom = `
	FROM expenses e
	JOIN cardholders c ON e.cardholder_id = c.id
	JOIN credit_cards cc ON c.credit_card_id = cc.id
	JOIN users u ON cc.user_id = u.id
	WHERE u.id = ?`

const dateFilter = ` AND e.expense_date BETWEEN ? AND ?`

func scopedArgs(userID string, r core.DateRange) (string, []any) {
	if !r.Active() {
		return "", []any{userID}
	}
	return dateFilter, []any{userID, r.Start, r.End}
}

// CardholderTotals sums a user's expenses per cardholder name. The range is
// inclusive and only applied when both bounds are set.
func (q *Queries) CardholderTotals(ctx context.Context, userID string, r core.DateRange) ([]core.CardholderTotal, error) {
	filter, args := scopedArgs(userID, r)
	query := `SELECT c.cardholder_name, ROUND(SUM(e.amount), 2) AS total_amount_spent` +
		userExpensesFrom + filter +
		` GROUP BY c.cardholder_name ORDER BY c.cardholder_name`

	totals := []core.CardholderTotal{}
	if err := sqlx.SelectContext(ctx, q.db, &totals, q.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("cardholder totals: %w", err)
	}
	return totals, nil
}

const transactionColumns = `SELECT e.expense_name, e.amount, e.expense_date, c.cardholder_name, e.bank, e.credit_card_bill_id`

// Transactions lists a user's expenses joined with their cardholder names.
func (q *Queries) Transactions(ctx context.Context, userID string, r core.DateRange) ([]core.Transaction, error) {
	filter, args := scopedArgs(userID, r)
	query := transactionColumns + userExpensesFrom + filter +
		` ORDER BY e.expense_date, e.expense_name`

	txns := []core.Transaction{}
	if err := sqlx.SelectContext(ctx, q.db, &txns, q.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return txns, nil
}

// BillTransactions lists the expenses imported with one bill.
func (q *Queries) BillTransactions(ctx context.Context, billID string) ([]core.Transaction, error) {
	query := transactionColumns + `
		FROM expenses e
		JOIN cardholders c ON e.cardholder_id = c.id
		WHERE e.credit_card_bill_id = ?
		ORDER BY e.expense_date, e.expense_name`

	txns := []core.Transaction{}
	if err := sqlx.SelectContext(ctx, q.db, &txns, q.db.Rebind(query), billID); err != nil {
		return nil, fmt.Errorf("bill transactions: %w", err)
	}
	return txns, nil
}
