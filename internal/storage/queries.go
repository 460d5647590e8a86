package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"spendtrack/internal/core"
)

// Queries holds every statement the application runs. Statements are written
// with ? placeholders and rebound for the active driver.
type Queries struct {
	db sqlx.ExtContext
}

// New binds queries to a database handle or a transaction.
func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateUser inserts a user. Users are provisioned out of band; the API
// never creates them.
func (q *Queries) CreateUser(ctx context.Context, name string) (core.User, error) {
	u := core.User{ID: uuid.NewString(), Name: name}
	_, err := q.db.ExecContext(ctx,
		q.db.Rebind(`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`),
		u.ID, u.Name, now())
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	users := []core.User{}
	if err := sqlx.SelectContext(ctx, q.db, &users, `SELECT id, name FROM users ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UserName returns the display name of a user or ErrNotFound.
func (q *Queries) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := sqlx.GetContext(ctx, q.db, &name, q.db.Rebind(`SELECT name FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user name: %w", err)
	}
	return name, nil
}

func (q *Queries) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = now()
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		INSERT INTO credit_cards (id, user_id, card_name, card_type, created_at)
		VALUES (:id, :user_id, :card_name, :card_type, :created_at)`, c)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("insert credit card: %w", err)
	}
	return c, nil
}

func (q *Queries) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	cards := []core.CreditCard{}
	err := sqlx.SelectContext(ctx, q.db, &cards, q.db.Rebind(`
		SELECT id, user_id, card_name, card_type, created_at
		FROM credit_cards
		WHERE user_id = ?
		ORDER BY created_at, card_name`), userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	return cards, nil
}

func (q *Queries) CreateBankAccount(ctx context.Context, a core.BankAccount) (core.BankAccount, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = now()
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		INSERT INTO bank_accounts (id, user_id, account_name, account_type, balance, created_at)
		VALUES (:id, :user_id, :account_name, :account_type, :balance, :created_at)`, a)
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("insert bank account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListBankAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	accounts := []core.BankAccount{}
	err := sqlx.SelectContext(ctx, q.db, &accounts, q.db.Rebind(`
		SELECT id, user_id, account_name, account_type, balance, created_at
		FROM bank_accounts
		WHERE user_id = ?
		ORDER BY created_at, account_name`), userID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	return accounts, nil
}

// InsertCreditCardBill stores a statement cycle and returns its id.
func (q *Queries) InsertCreditCardBill(ctx context.Context, b core.Bill) (string, error) {
	b.ID = uuid.NewString()
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		INSERT INTO credit_card_bills
			(id, credit_card_id, billing_period_start, billing_period_end, total_due, payment_due_date)
		VALUES
			(:id, :credit_card_id, :billing_period_start, :billing_period_end, :total_due, :payment_due_date)`, b)
	if err != nil {
		return "", fmt.Errorf("insert credit card bill: %w", err)
	}
	return b.ID, nil
}

func (q *Queries) GetBill(ctx context.Context, billID string) (core.Bill, error) {
	var b core.Bill
	err := sqlx.GetContext(ctx, q.db, &b, q.db.Rebind(`
		SELECT id, credit_card_id, billing_period_start, billing_period_end, total_due, payment_due_date
		FROM credit_card_bills
		WHERE id = ?`), billID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

// InsertOrGetCardholder returns the id of the cardholder named name on the
// card, creating it on first sight. Concurrent callers converge on one row
// through the (cardholder_name, credit_card_id) unique constraint.
func (q *Queries) InsertOrGetCardholder(ctx context.Context, name, cardID, userID string) (string, error) {
	var id string
	err := sqlx.GetContext(ctx, q.db, &id, q.db.Rebind(`
		SELECT id FROM cardholders WHERE cardholder_name = ? AND credit_card_id = ?`), name, cardID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get cardholder: %w", err)
	}

	err = sqlx.GetContext(ctx, q.db, &id, q.db.Rebind(`
		INSERT INTO cardholders (id, user_id, credit_card_id, cardholder_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cardholder_name, credit_card_id)
		DO UPDATE SET cardholder_name = excluded.cardholder_name
		RETURNING id`), uuid.NewString(), userID, cardID, name)
	if err != nil {
		return "", fmt.Errorf("insert cardholder: %w", err)
	}
	return id, nil
}

// InsertExpense stores one expense and returns it with its generated id.
func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		INSERT INTO expenses
			(id, cardholder_id, expense_name, amount, expense_date, credit_card_id, user_id, credit_card_bill_id, bank)
		VALUES
			(:id, :cardholder_id, :expense_name, :amount, :expense_date, :credit_card_id, :user_id, :credit_card_bill_id, :bank)`, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}
