package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"spendtrack/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "spendtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	user core.User
	card core.CreditCard
	bill string
}

func seed(t *testing.T, repo *Repository) fixture {
	t.Helper()
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "Jane Doe")
	require.NoError(t, err)

	card, err := repo.CreateCreditCard(ctx, core.CreditCard{UserID: user.ID, CardName: "Gold", CardType: "Amex"})
	require.NoError(t, err)

	billID, err := repo.InsertCreditCardBill(ctx, core.Bill{
		CreditCardID:       card.ID,
		BillingPeriodStart: core.NewDate(2024, 1, 1),
		BillingPeriodEnd:   core.NewDate(2024, 1, 31),
		TotalDue:           decimal.RequireFromString("0"),
		PaymentDueDate:     core.NewDate(2024, 2, 20),
	})
	require.NoError(t, err)

	return fixture{user: user, card: card, bill: billID}
}

func addExpense(t *testing.T, repo *Repository, f fixture, cardholder, name, amount string, date core.Date) {
	t.Helper()
	ctx := context.Background()
	chID, err := repo.InsertOrGetCardholder(ctx, cardholder, f.card.ID, f.user.ID)
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, core.Expense{
		CardholderID: chID,
		Name:         name,
		Amount:       decimal.RequireFromString(amount),
		Date:         date,
		CreditCardID: f.card.ID,
		UserID:       f.user.ID,
		BillID:       f.bill,
		Bank:         "Amex",
	})
	require.NoError(t, err)
}

func TestUserName(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)

	name, err := repo.UserName(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	_, err = repo.UserName(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreditCardsAndBankAccounts(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()

	cards, err := repo.ListCreditCards(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Gold", cards[0].CardName)
	assert.False(t, cards[0].CreatedAt.IsZero())

	acct, err := repo.CreateBankAccount(ctx, core.BankAccount{
		UserID:      f.user.ID,
		AccountName: "Everyday",
		AccountType: core.Chequing,
		Balance:     decimal.RequireFromString("150.25"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)

	accounts, err := repo.ListBankAccounts(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, core.Chequing, accounts[0].AccountType)
	assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("150.25")))

	none, err := repo.ListBankAccounts(ctx, "someone-else")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreditCardRequiresExistingUser(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateCreditCard(context.Background(), core.CreditCard{UserID: "missing", CardName: "X", CardType: "Visa"})
	assert.Error(t, err)
}

func TestBankAccountTypeConstraint(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	_, err := repo.CreateBankAccount(context.Background(), core.BankAccount{
		UserID: f.user.ID, AccountName: "Brokerage", AccountType: "brokerage",
	})
	assert.Error(t, err)
}

func TestInsertOrGetCardholderIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()

	first, err := repo.InsertOrGetCardholder(ctx, "JANE DOE", f.card.ID, f.user.ID)
	require.NoError(t, err)
	second, err := repo.InsertOrGetCardholder(ctx, "JANE DOE", f.card.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := repo.InsertOrGetCardholder(ctx, "JOHN DOE", f.card.ID, f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	card2, err := repo.CreateCreditCard(ctx, core.CreditCard{UserID: f.user.ID, CardName: "Platinum", CardType: "Amex"})
	require.NoError(t, err)
	onOtherCard, err := repo.InsertOrGetCardholder(ctx, "JANE DOE", card2.ID, f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, onOtherCard)
}

func TestInsertOrGetCardholderConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)

	const workers = 8
	ids := make([]string, workers)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range workers {
		g.Go(func() error {
			id, err := repo.InsertOrGetCardholder(ctx, "SHARED", f.card.ID, f.user.ID)
			ids[i] = id
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var count int
	require.NoError(t, repo.db.Get(&count, `SELECT COUNT(*) FROM cardholders WHERE cardholder_name = 'SHARED'`))
	assert.Equal(t, 1, count)
}

func TestInTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()
	boom := errors.New("boom")

	var billID string
	err := repo.InTx(ctx, func(q *Queries) error {
		id, err := q.InsertCreditCardBill(ctx, core.Bill{
			CreditCardID:       f.card.ID,
			BillingPeriodStart: core.NewDate(2024, 2, 1),
			BillingPeriodEnd:   core.NewDate(2024, 2, 29),
			TotalDue:           decimal.RequireFromString("10"),
			PaymentDueDate:     core.NewDate(2024, 3, 20),
		})
		billID = id
		if err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetBill(ctx, billID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInTxCommits(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()

	var billID string
	err := repo.InTx(ctx, func(q *Queries) error {
		var err error
		billID, err = q.InsertCreditCardBill(ctx, core.Bill{
			CreditCardID:       f.card.ID,
			BillingPeriodStart: core.NewDate(2024, 2, 1),
			BillingPeriodEnd:   core.NewDate(2024, 2, 29),
			TotalDue:           decimal.RequireFromString("42.50"),
			PaymentDueDate:     core.NewDate(2024, 3, 20),
		})
		return err
	})
	require.NoError(t, err)

	bill, err := repo.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.True(t, bill.TotalDue.Equal(decimal.RequireFromString("42.5")))
	assert.Equal(t, "2024-02-29", bill.BillingPeriodEnd.String())
}

func TestAggregations(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()

	addExpense(t, repo, f, "JANE DOE", "COFFEE", "4.10", core.NewDate(2024, 1, 5))
	addExpense(t, repo, f, "JANE DOE", "BOOKS", "20.20", core.NewDate(2024, 1, 20))
	addExpense(t, repo, f, "JOHN DOE", "FUEL", "60.00", core.NewDate(2024, 2, 3))

	all, err := repo.Transactions(ctx, f.user.ID, core.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "COFFEE", all[0].ExpenseName)
	assert.Equal(t, "2024-01-05", all[0].ExpenseDate.String())
	assert.Equal(t, "JANE DOE", all[0].CardholderName)
	assert.Equal(t, "Amex", all[0].Bank)
	assert.Equal(t, f.bill, all[0].BillID)

	january, err := core.NewDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	txns, err := repo.Transactions(ctx, f.user.ID, january)
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	inclusive, err := core.NewDateRange("2024-01-05", "2024-01-20")
	require.NoError(t, err)
	txns, err = repo.Transactions(ctx, f.user.ID, inclusive)
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	totals, err := repo.CardholderTotals(ctx, f.user.ID, core.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "JANE DOE", totals[0].CardholderName)
	assert.True(t, totals[0].TotalAmountSpent.Equal(decimal.RequireFromString("24.30")), totals[0].TotalAmountSpent.String())
	assert.True(t, totals[1].TotalAmountSpent.Equal(decimal.RequireFromString("60")))

	totals, err = repo.CardholderTotals(ctx, f.user.ID, january)
	require.NoError(t, err)
	require.Len(t, totals, 1)

	empty, err := core.NewDateRange("2023-01-01", "2023-12-31")
	require.NoError(t, err)
	txns, err = repo.Transactions(ctx, f.user.ID, empty)
	require.NoError(t, err)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)

	billTxns, err := repo.BillTransactions(ctx, f.bill)
	require.NoError(t, err)
	assert.Len(t, billTxns, 3)
}

func TestAggregationsAreScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo)
	ctx := context.Background()
	addExpense(t, repo, f, "JANE DOE", "COFFEE", "4.10", core.NewDate(2024, 1, 5))

	other, err := repo.CreateUser(ctx, "Other")
	require.NoError(t, err)

	txns, err := repo.Transactions(ctx, other.ID, core.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, txns)

	totals, err := repo.CardholderTotals(ctx, other.ID, core.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
