// Package storage persists owners, ledger entries and rental income per user.
package storage

import (
	"context"

	"rateio/internal/core"
)

// OwnerStore persists a user's co-owners in display order.
type OwnerStore interface {
	ListOwners(ctx context.Context, userID string) ([]core.Owner, error)
	InsertOwners(ctx context.Context, userID string, owners []core.Owner) error
	UpdateOwner(ctx context.Context, userID string, owner core.Owner) error
}

// TransactionStore persists ledger entries.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Entry, error)
	ListTransactionsByPeriod(ctx context.Context, userID string, p core.Period) ([]core.Entry, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Entry, error)
	// InsertTransactions stores all entries or none of them.
	InsertTransactions(ctx context.Context, userID string, entries []core.Entry) error
	UpdateTransaction(ctx context.Context, userID string, entry core.Entry) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// RentalIncomeStore persists one rental record per user and period.
type RentalIncomeStore interface {
	ListRentalIncome(ctx context.Context, userID string) (map[core.Period]core.RentalIncome, error)
	// GetRentalIncome reports false when the period has no record.
	GetRentalIncome(ctx context.Context, userID string, p core.Period) (core.RentalIncome, bool, error)
	// UpsertRentalIncome returns the stored record, id included.
	UpsertRentalIncome(ctx context.Context, userID string, p core.Period, r core.RentalIncome) (core.RentalIncome, error)
}

// UserLister enumerates users with any stored data.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// Store is the full persistence surface of the ledger.
type Store interface {
	OwnerStore
	TransactionStore
	RentalIncomeStore
	UserLister
	Ping(ctx context.Context) error
	Close() error
}
