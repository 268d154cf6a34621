package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries runs the ledger's SQL statements against a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx binds the queries to a transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ownerRow struct {
	ID         string
	UserID     string
	Name       string
	Percentage string
	ImageRef   sql.NullString
	Position   int64
}

type transactionRow struct {
	ID                 string
	UserID             string
	Name               string
	Value              string
	Category           string
	Periodicity        string
	Type               string
	DueDay             sql.NullInt64
	StartDate          sql.NullString
	TotalInstallments  int64
	CurrentInstallment int64
	ParentID           sql.NullString
	PeriodKey          string
}

type rentalIncomeRow struct {
	ID                string
	UserID            string
	PeriodKey         string
	Name              string
	Value             string
	IsActive          bool
	ContractDuration  sql.NullInt64
	ContractStartDate sql.NullString
	StartDate         sql.NullString
}

const listOwners = `
SELECT id, user_id, name, percentage, image_ref, position
FROM owners
WHERE user_id = ?
ORDER BY position, id`

func (q *Queries) ListOwners(ctx context.Context, userID string) ([]ownerRow, error) {
	rows, err := q.db.QueryContext(ctx, listOwners, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ownerRow
	for rows.Next() {
		var i ownerRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Percentage, &i.ImageRef, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertOwner = `
INSERT INTO owners (id, user_id, name, percentage, image_ref, position)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertOwner(ctx context.Context, arg ownerRow) error {
	_, err := q.db.ExecContext(ctx, insertOwner, arg.ID, arg.UserID, arg.Name, arg.Percentage, arg.ImageRef, arg.Position)
	return err
}

const updateOwner = `
UPDATE owners
SET name = ?, percentage = ?, image_ref = ?, position = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateOwner(ctx context.Context, arg ownerRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateOwner, arg.Name, arg.Percentage, arg.ImageRef, arg.Position, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, user_id, name, value, category, periodicity, type, due_day, start_date,
total_installments, current_installment, parent_id, period_key`

func scanTransaction(s interface{ Scan(...any) error }) (transactionRow, error) {
	var i transactionRow
	err := s.Scan(&i.ID, &i.UserID, &i.Name, &i.Value, &i.Category, &i.Periodicity, &i.Type, &i.DueDay,
		&i.StartDate, &i.TotalInstallments, &i.CurrentInstallment, &i.ParentID, &i.PeriodKey)
	return i, err
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []transactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY period_key, created_at, rowid`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]transactionRow, error) {
	return q.queryTransactions(ctx, listTransactions, userID)
}

const listTransactionsByPeriod = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND period_key = ?
ORDER BY created_at, rowid`

func (q *Queries) ListTransactionsByPeriod(ctx context.Context, userID, periodKey string) ([]transactionRow, error) {
	return q.queryTransactions(ctx, listTransactionsByPeriod, userID, periodKey)
}

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND id = ?`

func (q *Queries) GetTransaction(ctx context.Context, userID, id string) (transactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, userID, id))
}

const insertTransaction = `
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg transactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.UserID, arg.Name, arg.Value, arg.Category, arg.Periodicity, arg.Type, arg.DueDay,
		arg.StartDate, arg.TotalInstallments, arg.CurrentInstallment, arg.ParentID, arg.PeriodKey)
	return err
}

const updateTransaction = `
UPDATE transactions
SET name = ?, value = ?, category = ?, periodicity = ?, type = ?, due_day = ?, start_date = ?,
    total_installments = ?, current_installment = ?, parent_id = ?, period_key = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg transactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Name, arg.Value, arg.Category, arg.Periodicity, arg.Type, arg.DueDay, arg.StartDate,
		arg.TotalInstallments, arg.CurrentInstallment, arg.ParentID, arg.PeriodKey, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const rentalColumns = `id, user_id, period_key, name, value, is_active, contract_duration, contract_start_date, start_date`

func scanRentalIncome(s interface{ Scan(...any) error }) (rentalIncomeRow, error) {
	var i rentalIncomeRow
	err := s.Scan(&i.ID, &i.UserID, &i.PeriodKey, &i.Name, &i.Value, &i.IsActive,
		&i.ContractDuration, &i.ContractStartDate, &i.StartDate)
	return i, err
}

const listRentalIncome = `
SELECT ` + rentalColumns + `
FROM rental_income
WHERE user_id = ?
ORDER BY period_key`

func (q *Queries) ListRentalIncome(ctx context.Context, userID string) ([]rentalIncomeRow, error) {
	rows, err := q.db.QueryContext(ctx, listRentalIncome, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []rentalIncomeRow
	for rows.Next() {
		i, err := scanRentalIncome(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getRentalIncome = `
SELECT ` + rentalColumns + `
FROM rental_income
WHERE user_id = ? AND period_key = ?`

func (q *Queries) GetRentalIncome(ctx context.Context, userID, periodKey string) (rentalIncomeRow, error) {
	return scanRentalIncome(q.db.QueryRowContext(ctx, getRentalIncome, userID, periodKey))
}

const upsertRentalIncome = `
INSERT INTO rental_income (` + rentalColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, period_key) DO UPDATE SET
    name = excluded.name,
    value = excluded.value,
    is_active = excluded.is_active,
    contract_duration = excluded.contract_duration,
    contract_start_date = excluded.contract_start_date,
    start_date = excluded.start_date,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertRentalIncome(ctx context.Context, arg rentalIncomeRow) error {
	_, err := q.db.ExecContext(ctx, upsertRentalIncome,
		arg.ID, arg.UserID, arg.PeriodKey, arg.Name, arg.Value, arg.IsActive,
		arg.ContractDuration, arg.ContractStartDate, arg.StartDate)
	return err
}

const listUsers = `
SELECT user_id FROM owners
UNION
SELECT user_id FROM transactions
UNION
SELECT user_id FROM rental_income
ORDER BY user_id`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
