package services

import (
	"context"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// ImportWriter is the write side an import needs inside its transaction.
type ImportWriter interface {
	InsertCreditCardBill(ctx context.Context, b core.Bill) (string, error)
	InsertOrGetCardholder(ctx context.Context, name, creditCardID, userID string) (string, error)
	InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
}

// UserNames resolves a user id to a display name, returning
// storage.ErrNotFound for unknown users.
type UserNames interface {
	UserName(ctx context.Context, userID string) (string, error)
}

// Store is the persistence used by ImportService.
type Store interface {
	UserNames
	WithinTx(ctx context.Context, fn func(w ImportWriter) error) error
}

type repositoryStore struct {
	repo *storage.Repository
}

// NewRepositoryStore adapts a storage.Repository to Store.
func NewRepositoryStore(repo *storage.Repository) Store {
	return repositoryStore{repo: repo}
}

func (s repositoryStore) UserName(ctx context.Context, userID string) (string, error) {
	return s.repo.UserName(ctx, userID)
}

func (s repositoryStore) WithinTx(ctx context.Context, fn func(w ImportWriter) error) error {
	return s.repo.InTx(ctx, func(q *storage.Queries) error {
		return fn(q)
	})
}
