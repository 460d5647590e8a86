package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Chequing AccountType = "chequing"
	Savings  AccountType = "savings"
)

type (
	AccountType string

	User struct {
		ID   string `db:"id" json:"id"`
		Name string `db:"name" json:"name"`
	}

	CreditCard struct {
		ID        string    `db:"id" json:"id"`
		UserID    string    `db:"user_id" json:"user_id"`
		CardName  string    `db:"card_name" json:"card_name"`
		CardType  string    `db:"card_type" json:"card_type"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	BankAccount struct {
		ID          string          `db:"id" json:"id"`
		UserID      string          `db:"user_id" json:"user_id"`
		AccountName string          `db:"account_name" json:"account_name"`
		AccountType AccountType     `db:"account_type" json:"account_type"`
		Balance     decimal.Decimal `db:"balance" json:"balance"`
		CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	}

	// Bill is one statement cycle of a credit card. TotalDue is always the
	// sum of the expenses imported with it.
	Bill struct {
		ID                 string          `db:"id" json:"id"`
		CreditCardID       string          `db:"credit_card_id" json:"credit_card_id"`
		BillingPeriodStart Date            `db:"billing_period_start" json:"billing_period_start"`
		BillingPeriodEnd   Date            `db:"billing_period_end" json:"billing_period_end"`
		TotalDue           decimal.Decimal `db:"total_due" json:"total_due"`
		PaymentDueDate     Date            `db:"payment_due_date" json:"payment_due_date"`
	}

	// Cardholder is the named person whose charges show up on a card
	// statement. Unique per (Name, CreditCardID).
	Cardholder struct {
		ID           string `db:"id" json:"id"`
		UserID       string `db:"user_id" json:"user_id"`
		CreditCardID string `db:"credit_card_id" json:"credit_card_id"`
		Name         string `db:"cardholder_name" json:"cardholder_name"`
	}

	Expense struct {
		ID           string          `db:"id" json:"id"`
		CardholderID string          `db:"cardholder_id" json:"cardholder_id"`
		Name         string          `db:"expense_name" json:"expense_name"`
		Amount       decimal.Decimal `db:"amount" json:"amount"`
		Date         Date            `db:"expense_date" json:"expense_date"`
		CreditCardID string          `db:"credit_card_id" json:"credit_card_id"`
		UserID       string          `db:"user_id" json:"user_id"`
		BillID       string          `db:"credit_card_bill_id" json:"credit_card_bill_id"`
		Bank         string          `db:"bank" json:"bank"`
	}

	// Transaction is the joined detail row served to the dashboard.
	Transaction struct {
		ExpenseName    string          `db:"expense_name" json:"expense_name"`
		Amount         decimal.Decimal `db:"amount" json:"amount"`
		ExpenseDate    Date            `db:"expense_date" json:"expense_date"`
		CardholderName string          `db:"cardholder_name" json:"cardholder_name"`
		Bank           string          `db:"bank" json:"bank"`
		BillID         string          `db:"credit_card_bill_id" json:"credit_card_bill_id"`
	}

	CardholderTotal struct {
		CardholderName   string          `db:"cardholder_name" json:"cardholder_name"`
		TotalAmountSpent decimal.Decimal `db:"total_amount_spent" json:"total_amount_spent"`
	}
)

var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrEmptyCardName      = errors.New("empty card name")
	ErrEmptyAccountName   = errors.New("empty account name")
)

// ParseAccountType accepts the two supported account kinds, case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.ToLower(strings.TrimSpace(s))); t {
	case Chequing, Savings:
		return t, nil
	default:
		return "", ErrInvalidAccountType
	}
}

func (a AccountType) String() string {
	return string(a)
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.CardName) == "" {
		return ErrEmptyCardName
	}
	if len(c.CardName) > 255 {
		return errors.New("card name too long (max 255 characters)")
	}
	return nil
}

func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.AccountName) == "" {
		return ErrEmptyAccountName
	}
	if _, err := ParseAccountType(string(a.AccountType)); err != nil {
		return err
	}
	return nil
}
