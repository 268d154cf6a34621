package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rateio/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a local SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListOwners(ctx context.Context, userID string) ([]core.Owner, error) {
	rows, err := r.queries.ListOwners(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	owners := make([]core.Owner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, core.Owner{
			ID:         row.ID,
			Name:       row.Name,
			Percentage: parseStoredDecimal(row.Percentage),
			ImageRef:   row.ImageRef.String,
			Position:   int(row.Position),
		})
	}
	return owners, nil
}

func (r *SQLiteRepository) InsertOwners(ctx context.Context, userID string, owners []core.Owner) error {
	return r.inTx(ctx, func(q *Queries) error {
		for _, o := range owners {
			if err := q.InsertOwner(ctx, ownerToRow(userID, o)); err != nil {
				return fmt.Errorf("insert owner %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateOwner(ctx context.Context, userID string, owner core.Owner) error {
	n, err := r.queries.UpdateOwner(ctx, ownerToRow(userID, owner))
	if err != nil {
		return fmt.Errorf("update owner %s: %w", owner.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("owner %s: %w", owner.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Entry, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rowsToEntries(rows)
}

func (r *SQLiteRepository) ListTransactionsByPeriod(ctx context.Context, userID string, p core.Period) ([]core.Entry, error) {
	rows, err := r.queries.ListTransactionsByPeriod(ctx, userID, p.Key())
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", p, err)
	}
	return rowsToEntries(rows)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Entry, error) {
	row, err := r.queries.GetTransaction(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return rowToEntry(row)
}

func (r *SQLiteRepository) InsertTransactions(ctx context.Context, userID string, entries []core.Entry) error {
	return r.inTx(ctx, func(q *Queries) error {
		for _, e := range entries {
			if err := q.InsertTransaction(ctx, entryToRow(userID, e)); err != nil {
				return fmt.Errorf("insert transaction %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID string, entry core.Entry) error {
	n, err := r.queries.UpdateTransaction(ctx, entryToRow(userID, entry))
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", entry.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", entry.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListRentalIncome(ctx context.Context, userID string) (map[core.Period]core.RentalIncome, error) {
	rows, err := r.queries.ListRentalIncome(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rental income: %w", err)
	}
	out := make(map[core.Period]core.RentalIncome, len(rows))
	for _, row := range rows {
		p, ri, err := rowToRental(row)
		if err != nil {
			return nil, err
		}
		out[p] = ri
	}
	return out, nil
}

func (r *SQLiteRepository) GetRentalIncome(ctx context.Context, userID string, p core.Period) (core.RentalIncome, bool, error) {
	row, err := r.queries.GetRentalIncome(ctx, userID, p.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return core.RentalIncome{}, false, nil
	}
	if err != nil {
		return core.RentalIncome{}, false, fmt.Errorf("get rental income for %s: %w", p, err)
	}
	_, ri, err := rowToRental(row)
	if err != nil {
		return core.RentalIncome{}, false, err
	}
	return ri, true, nil
}

func (r *SQLiteRepository) UpsertRentalIncome(ctx context.Context, userID string, p core.Period, ri core.RentalIncome) (core.RentalIncome, error) {
	var stored core.RentalIncome
	err := r.inTx(ctx, func(q *Queries) error {
		existing, err := q.GetRentalIncome(ctx, userID, p.Key())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			ri.ID = uuid.NewString()
		case err != nil:
			return fmt.Errorf("load rental income for %s: %w", p, err)
		default:
			ri.ID = existing.ID
		}
		if err := q.UpsertRentalIncome(ctx, rentalToRow(userID, p, ri)); err != nil {
			return fmt.Errorf("upsert rental income for %s: %w", p, err)
		}
		stored = ri
		return nil
	})
	return stored, err
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func ownerToRow(userID string, o core.Owner) ownerRow {
	return ownerRow{
		ID:         o.ID,
		UserID:     userID,
		Name:       o.Name,
		Percentage: o.Percentage.String(),
		ImageRef:   nullString(o.ImageRef),
		Position:   int64(o.Position),
	}
}

func entryToRow(userID string, e core.Entry) transactionRow {
	row := transactionRow{
		ID:                 e.ID,
		UserID:             userID,
		Name:               e.Name,
		Value:              e.Value.String(),
		Category:           string(e.Category),
		Periodicity:        string(e.Periodicity),
		Type:               string(e.Type),
		TotalInstallments:  int64(e.TotalInstallments),
		CurrentInstallment: int64(e.CurrentInstallment),
		ParentID:           nullString(e.ParentID),
		PeriodKey:          e.Period.Key(),
	}
	if e.DueDay != nil {
		row.DueDay = sql.NullInt64{Int64: int64(*e.DueDay), Valid: true}
	}
	if e.StartDate != nil {
		row.StartDate = nullString(e.StartDate.Key())
	}
	return row
}

func rowsToEntries(rows []transactionRow) ([]core.Entry, error) {
	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := rowToEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func rowToEntry(row transactionRow) (core.Entry, error) {
	p, err := core.ParsePeriod(row.PeriodKey)
	if err != nil {
		return core.Entry{}, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	e := core.Entry{
		ID:                 row.ID,
		Name:               row.Name,
		Value:              parseStoredDecimal(row.Value),
		Category:           core.Category(row.Category),
		Periodicity:        core.Periodicity(row.Periodicity),
		Type:               core.EntryType(row.Type),
		TotalInstallments:  int(row.TotalInstallments),
		CurrentInstallment: int(row.CurrentInstallment),
		ParentID:           row.ParentID.String,
		Period:             p,
	}
	if row.DueDay.Valid {
		day := int(row.DueDay.Int64)
		e.DueDay = &day
	}
	if start, ok := parseStoredPeriod(row.StartDate); ok {
		e.StartDate = &start
	}
	return e, nil
}

func rentalToRow(userID string, p core.Period, ri core.RentalIncome) rentalIncomeRow {
	row := rentalIncomeRow{
		ID:        ri.ID,
		UserID:    userID,
		PeriodKey: p.Key(),
		Name:      ri.Name,
		Value:     ri.Value.String(),
		IsActive:  ri.IsActive,
	}
	if ri.ContractDuration != nil {
		row.ContractDuration = sql.NullInt64{Int64: int64(*ri.ContractDuration), Valid: true}
	}
	if ri.ContractStartDate != nil {
		row.ContractStartDate = nullString(ri.ContractStartDate.Key())
	}
	if ri.StartDate != nil {
		row.StartDate = nullString(ri.StartDate.Key())
	}
	return row
}

func rowToRental(row rentalIncomeRow) (core.Period, core.RentalIncome, error) {
	p, err := core.ParsePeriod(row.PeriodKey)
	if err != nil {
		return core.Period{}, core.RentalIncome{}, fmt.Errorf("rental income %s: %w", row.ID, err)
	}
	ri := core.RentalIncome{
		ID:       row.ID,
		Name:     row.Name,
		Value:    parseStoredDecimal(row.Value),
		IsActive: row.IsActive,
	}
	if row.ContractDuration.Valid {
		d := int(row.ContractDuration.Int64)
		ri.ContractDuration = &d
	}
	if start, ok := parseStoredPeriod(row.ContractStartDate); ok {
		ri.ContractStartDate = &start
	}
	if start, ok := parseStoredPeriod(row.StartDate); ok {
		ri.StartDate = &start
	}
	return p, ri, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseStoredDecimal reads a TEXT amount; unreadable values load as zero.
func parseStoredDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseStoredPeriod(s sql.NullString) (core.Period, bool) {
	if !s.Valid || s.String == "" {
		return core.Period{}, false
	}
	p, err := core.ParsePeriod(s.String)
	if err != nil {
		return core.Period{}, false
	}
	return p, true
}
