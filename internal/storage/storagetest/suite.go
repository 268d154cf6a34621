// Package storagetest holds behaviour tests shared by every storage.Store.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateio/internal/core"
	"rateio/internal/storage"
)

// Run exercises a store created fresh for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("owners", func(t *testing.T) { testOwners(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("batch insert is atomic", func(t *testing.T) { testAtomicInsert(t, newStore(t)) })
	t.Run("rental income", func(t *testing.T) { testRentalIncome(t, newStore(t)) })
	t.Run("users are isolated", func(t *testing.T) { testUserIsolation(t, newStore(t)) })
}

var (
	march = core.Period{Year: 2024, Month: time.March}
	april = core.Period{Year: 2024, Month: time.April}
)

func entry(id string, p core.Period, value string) core.Entry {
	return core.Entry{
		ID:                 id,
		Name:               "entry " + id,
		Value:              decimal.RequireFromString(value),
		Category:           core.OtherCategory,
		Periodicity:        core.Monthly,
		Type:               core.Expense,
		TotalInstallments:  1,
		CurrentInstallment: 1,
		Period:             p,
	}
}

func testOwners(t *testing.T, s storage.Store) {
	ctx := context.Background()

	owners, err := s.ListOwners(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, owners)

	seed := core.DefaultOwners()
	for i := range seed {
		seed[i].ID = []string{"o1", "o2", "o3"}[i]
	}
	require.NoError(t, s.InsertOwners(ctx, "alice", seed))

	owners, err = s.ListOwners(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owners, 3)
	assert.Equal(t, "Proprietário 1", owners[0].Name)
	assert.True(t, owners[2].Percentage.Equal(decimal.RequireFromString("33.34")))

	owners[1].Name = "Maria"
	owners[1].ImageRef = "maria.png"
	require.NoError(t, s.UpdateOwner(ctx, "alice", owners[1]))

	owners, err = s.ListOwners(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Maria", owners[1].Name)
	assert.Equal(t, "maria.png", owners[1].ImageRef)

	err = s.UpdateOwner(ctx, "alice", core.Owner{ID: "missing"})
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	day := 10
	start := april

	first := entry("t1", march, "1200")
	first.DueDay = &day
	first.ParentID = "p1"
	first.TotalInstallments = 2
	second := entry("t2", april, "1200")
	second.ParentID = "p1"
	second.TotalInstallments = 2
	second.CurrentInstallment = 2
	second.StartDate = &start

	require.NoError(t, s.InsertTransactions(ctx, "alice", []core.Entry{first, second}))

	inMarch, err := s.ListTransactionsByPeriod(ctx, "alice", march)
	require.NoError(t, err)
	require.Len(t, inMarch, 1)
	assert.Equal(t, "t1", inMarch[0].ID)
	require.NotNil(t, inMarch[0].DueDay)
	assert.Equal(t, 10, *inMarch[0].DueDay)
	assert.Equal(t, "p1", inMarch[0].ParentID)
	assert.True(t, inMarch[0].Value.Equal(decimal.NewFromInt(1200)))

	got, err := s.GetTransaction(ctx, "alice", "t2")
	require.NoError(t, err)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, april, *got.StartDate)
	assert.Equal(t, 2, got.CurrentInstallment)

	got.Name = "renamed"
	got.Value = decimal.RequireFromString("99.90")
	got.StartDate = nil
	require.NoError(t, s.UpdateTransaction(ctx, "alice", got))

	got, err = s.GetTransaction(ctx, "alice", "t2")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.Value.Equal(decimal.RequireFromString("99.9")))
	assert.Nil(t, got.StartDate)

	all, err := s.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteTransaction(ctx, "alice", "t1"))
	_, err = s.GetTransaction(ctx, "alice", "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteTransaction(ctx, "alice", "t1"), core.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateTransaction(ctx, "alice", entry("nope", march, "1")), core.ErrNotFound))

	inApril, err := s.ListTransactionsByPeriod(ctx, "alice", april)
	require.NoError(t, err)
	assert.Len(t, inApril, 1, "sibling installment survives deletion")
}

func testAtomicInsert(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTransactions(ctx, "alice", []core.Entry{entry("dup", march, "1")}))

	err := s.InsertTransactions(ctx, "alice", []core.Entry{entry("fresh", april, "2"), entry("dup", april, "3")})
	require.Error(t, err)

	inApril, err := s.ListTransactionsByPeriod(ctx, "alice", april)
	require.NoError(t, err)
	assert.Empty(t, inApril, "failed batch must not leave partial rows")
}

func testRentalIncome(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, ok, err := s.GetRentalIncome(ctx, "alice", march)
	require.NoError(t, err)
	assert.False(t, ok)

	duration := 6
	start := core.Period{Year: 2024, Month: time.January}
	stored, err := s.UpsertRentalIncome(ctx, "alice", march, core.RentalIncome{
		Name:              core.DefaultRentalName,
		Value:             decimal.NewFromInt(2000),
		IsActive:          true,
		ContractDuration:  &duration,
		ContractStartDate: &start,
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	again, err := s.UpsertRentalIncome(ctx, "alice", march, core.RentalIncome{Name: "Aluguel", Value: decimal.NewFromInt(2100)})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID, "upsert keeps the record id")

	got, ok, err := s.GetRentalIncome(ctx, "alice", march)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aluguel", got.Name)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.ContractDuration)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(2100)))

	_, err = s.UpsertRentalIncome(ctx, "alice", april, core.RentalIncome{
		Value: decimal.NewFromInt(1), ContractDuration: &duration, ContractStartDate: &start, IsActive: true,
	})
	require.NoError(t, err)

	all, err := s.ListRentalIncome(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[april].ContractStartDate)
	assert.Equal(t, start, *all[april].ContractStartDate)
	assert.Equal(t, 6, *all[april].ContractDuration)
}

func testUserIsolation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTransactions(ctx, "alice", []core.Entry{entry("a1", march, "10")}))
	require.NoError(t, s.InsertTransactions(ctx, "bob", []core.Entry{entry("b1", march, "20")}))

	bob, err := s.ListTransactionsByPeriod(ctx, "bob", march)
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, "b1", bob[0].ID)

	_, err = s.GetTransaction(ctx, "bob", "a1")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	require.NoError(t, s.Ping(ctx))
}
