// Package services orchestrates the ledger across storage, the period
// cache and change notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rateio/internal/amqp"
	"rateio/internal/core"
	"rateio/internal/ledger"
	applog "rateio/internal/log"
	"rateio/internal/storage"
)

// projectionLoadLimit bounds concurrent period loads for one projection.
const projectionLoadLimit = 4

// Publisher announces committed ledger writes.
type Publisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

// Options wires optional collaborators into a LedgerService.
type Options struct {
	Cache     *PeriodCache
	Publisher Publisher
	IDs       ledger.IDGenerator
	Balance   ledger.BalanceOptions
	Reporter  ErrorReporter
	Logger    *applog.Logger
}

// Projection is a year of monthly rows plus their summary.
type Projection struct {
	Year    int                      `json:"year"`
	Rows    []core.ProjectionRow     `json:"rows"`
	Summary ledger.ProjectionSummary `json:"summary"`
}

// LedgerService persists ledger writes, keeps the period cache coherent with
// storage and publishes a change message after every committed write.
type LedgerService struct {
	store     storage.Store
	cache     *PeriodCache
	publisher Publisher
	ids       ledger.IDGenerator
	balance   ledger.BalanceOptions
	reporter  ErrorReporter
	logger    *applog.Logger

	// Writers hold mu exclusively across commit and cache write-through so
	// a concurrent read can never put a pre-write bucket back in the cache.
	mu sync.RWMutex
}

func NewLedgerService(store storage.Store, opts Options) *LedgerService {
	s := &LedgerService{
		store:     store,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		ids:       opts.IDs,
		balance:   opts.Balance,
		reporter:  opts.Reporter,
		logger:    opts.Logger,
	}
	if s.ids == nil {
		s.ids = ledger.UUIDGenerator{}
	}
	if s.reporter == nil {
		s.reporter = SentryReporter{}
	}
	if s.logger == nil {
		s.logger = applog.Default()
	}
	s.logger = s.logger.WithComponent(applog.ComponentLedger)
	return s
}

// Owners lists the user's owners, seeding the default three on first use.
func (s *LedgerService) Owners(ctx context.Context, userID string) ([]core.Owner, error) {
	s.mu.RLock()
	owners, err := s.loadOwners(ctx, userID)
	s.mu.RUnlock()
	if err != nil || len(owners) > 0 {
		return owners, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err = s.loadOwners(ctx, userID)
	if err != nil || len(owners) > 0 {
		return owners, err
	}

	seed := core.DefaultOwners()
	for i := range seed {
		seed[i].ID = s.ids.NewID()
	}
	if err := s.store.InsertOwners(ctx, userID, seed); err != nil {
		return nil, s.fail(ctx, applog.OpSeed, userID, "", err)
	}
	s.cache.SetOwners(userID, seed)
	s.logger.InfoContext(ctx, "Seeded default owners", applog.FieldUserID, userID, "count", len(seed))
	return seed, nil
}

func (s *LedgerService) loadOwners(ctx context.Context, userID string) ([]core.Owner, error) {
	if owners, ok := s.cache.Owners(userID); ok {
		return owners, nil
	}
	owners, err := s.store.ListOwners(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	if len(owners) > 0 {
		s.cache.SetOwners(userID, owners)
	}
	return owners, nil
}

// UpdateOwner merges patch into the owner with the given id.
func (s *LedgerService) UpdateOwner(ctx context.Context, userID, ownerID string, patch core.OwnerPatch) (core.Owner, error) {
	if _, err := s.Owners(ctx, userID); err != nil {
		return core.Owner{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.store.ListOwners(ctx, userID)
	if err != nil {
		return core.Owner{}, fmt.Errorf("load owners: %w", err)
	}
	idx := -1
	for i := range owners {
		if owners[i].ID == ownerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Owner{}, fmt.Errorf("owner %s: %w", ownerID, core.ErrNotFound)
	}

	updated := patch.Apply(owners[idx])
	if err := updated.Validate(); err != nil {
		return core.Owner{}, err
	}
	if err := s.store.UpdateOwner(ctx, userID, updated); err != nil {
		return core.Owner{}, s.fail(ctx, applog.OpUpdate, userID, "", err)
	}
	owners[idx] = updated
	s.cache.SetOwners(userID, owners)

	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.KindOwner, applog.OpUpdate, userID, "", ownerID))
	return updated, nil
}

// Period returns the bucket for p. A period never written to yields an
// empty bucket with the default rental record.
func (s *LedgerService) Period(ctx context.Context, userID string, p core.Period) (ledger.Bucket, error) {
	if !p.Valid() {
		return ledger.Bucket{}, fmt.Errorf("%w: %s", core.ErrInvalidPeriod, p)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadPeriod(ctx, userID, p)
}

func (s *LedgerService) loadPeriod(ctx context.Context, userID string, p core.Period) (ledger.Bucket, error) {
	if b, ok := s.cache.Bucket(userID, p); ok {
		return b, nil
	}
	b, err := s.readPeriod(ctx, userID, p)
	if err != nil {
		return ledger.Bucket{}, err
	}
	s.cache.SetBucket(userID, p, b)
	return b, nil
}

// readPeriod loads entries and rental income for p concurrently, bypassing
// the cache.
func (s *LedgerService) readPeriod(ctx context.Context, userID string, p core.Period) (ledger.Bucket, error) {
	var (
		entries   []core.Entry
		rental    core.RentalIncome
		hasRental bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.ListTransactionsByPeriod(gctx, userID, p)
		return err
	})
	g.Go(func() error {
		var err error
		rental, hasRental, err = s.store.GetRentalIncome(gctx, userID, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return ledger.Bucket{}, fmt.Errorf("load period %s: %w", p, err)
	}

	b := ledger.EmptyBucket()
	if entries != nil {
		b.Entries = entries
	}
	if hasRental {
		b.Rental = rental
	}
	return b, nil
}

// writeThrough applies a committed write to the cached periods it touches.
// The store already holds the change, so a mutation that misses its target
// only means the cached bucket was stale and it is evicted.
func (s *LedgerService) writeThrough(ctx context.Context, userID string, periods []core.Period, mutate func(*ledger.Book) bool) {
	s.cache.Apply(userID, periods, func(book *ledger.Book) bool {
		if mutate(book) {
			return true
		}
		s.logger.WarnContext(ctx, "Cached period out of date, evicted",
			applog.FieldUserID, userID, applog.FieldPeriod, periods[0].Key())
		return false
	})
}

// AddEntry expands draft into installments anchored at p and stores them
// atomically.
func (s *LedgerService) AddEntry(ctx context.Context, userID string, p core.Period, draft core.EntryDraft) ([]core.Entry, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidPeriod, p)
	}
	entries := ledger.Expand(draft, p, s.ids)
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.InsertTransactions(ctx, userID, entries); err != nil {
		return nil, s.fail(ctx, applog.OpCreate, userID, p.Key(), err)
	}

	byPeriod := make(map[core.Period][]string, len(entries))
	periods := make([]core.Period, 0, len(entries))
	for _, e := range entries {
		if _, seen := byPeriod[e.Period]; !seen {
			periods = append(periods, e.Period)
		}
		byPeriod[e.Period] = append(byPeriod[e.Period], e.ID)
	}
	s.writeThrough(ctx, userID, periods, func(book *ledger.Book) bool {
		book.Insert(entries...)
		return true
	})

	s.logger.InfoContext(ctx, "Entry created",
		applog.FieldUserID, userID,
		applog.FieldPeriod, p.Key(),
		applog.FieldParentID, entries[0].ParentID,
		applog.FieldInstallments, len(entries))

	for _, period := range periods {
		s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.KindTransaction, applog.OpCreate, userID, period.Key(), byPeriod[period]...))
	}
	return entries, nil
}

// UpdateEntry merges patch into one entry. Sibling installments are left
// alone.
func (s *LedgerService) UpdateEntry(ctx context.Context, userID, entryID string, patch core.EntryPatch) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTransaction(ctx, userID, entryID)
	if err != nil {
		return core.Entry{}, s.fail(ctx, applog.OpRead, userID, "", err)
	}
	updated, err := patch.Apply(current)
	if err != nil {
		return core.Entry{}, err
	}
	if err := updated.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := s.store.UpdateTransaction(ctx, userID, updated); err != nil {
		return core.Entry{}, s.fail(ctx, applog.OpUpdate, userID, updated.Period.Key(), err)
	}
	s.writeThrough(ctx, userID, []core.Period{updated.Period}, func(book *ledger.Book) bool {
		return book.Replace(updated)
	})

	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.KindTransaction, applog.OpUpdate, userID, updated.Period.Key(), updated.ID))
	return updated, nil
}

// DeleteEntry removes one entry. Sibling installments are left alone.
func (s *LedgerService) DeleteEntry(ctx context.Context, userID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTransaction(ctx, userID, entryID)
	if err != nil {
		return s.fail(ctx, applog.OpRead, userID, "", err)
	}
	if err := s.store.DeleteTransaction(ctx, userID, entryID); err != nil {
		return s.fail(ctx, applog.OpDelete, userID, current.Period.Key(), err)
	}
	s.writeThrough(ctx, userID, []core.Period{current.Period}, func(book *ledger.Book) bool {
		return book.Remove(current.Period, entryID)
	})

	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.KindTransaction, applog.OpDelete, userID, current.Period.Key(), entryID))
	return nil
}

// SetRentalIncome replaces the rental record of period p.
func (s *LedgerService) SetRentalIncome(ctx context.Context, userID string, p core.Period, r core.RentalIncome) (core.RentalIncome, error) {
	if !p.Valid() {
		return core.RentalIncome{}, fmt.Errorf("%w: %s", core.ErrInvalidPeriod, p)
	}
	if err := r.Validate(); err != nil {
		return core.RentalIncome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.UpsertRentalIncome(ctx, userID, p, r)
	if err != nil {
		return core.RentalIncome{}, s.fail(ctx, applog.OpUpsert, userID, p.Key(), err)
	}
	s.writeThrough(ctx, userID, []core.Period{p}, func(book *ledger.Book) bool {
		book.SetRental(p, stored)
		return true
	})

	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.KindRentalIncome, applog.OpUpsert, userID, p.Key(), stored.ID))
	return stored, nil
}

// Balances splits period p across the user's owners.
func (s *LedgerService) Balances(ctx context.Context, userID string, p core.Period) ([]core.OwnerBalance, error) {
	var (
		owners []core.Owner
		bucket ledger.Bucket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owners, err = s.Owners(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		bucket, err = s.Period(gctx, userID, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ledger.BalancesFor(bucket.Entries, bucket.Rental, owners, s.balance), nil
}

// Projection projects the twelve months of year.
func (s *LedgerService) Projection(ctx context.Context, userID string, year int) (Projection, error) {
	start := core.Period{Year: year, Month: time.January}
	if !start.Valid() {
		return Projection{}, fmt.Errorf("%w: year %d", core.ErrInvalidPeriod, year)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make([]ledger.Bucket, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectionLoadLimit)
	for i := range buckets {
		g.Go(func() error {
			b, err := s.loadPeriod(gctx, userID, start.AddMonths(i))
			buckets[i] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Projection{}, err
	}

	book := ledger.NewBook()
	for i, b := range buckets {
		book.SetBucket(start.AddMonths(i), b)
	}
	rows := ledger.ProjectFor(year, book)
	return Projection{Year: year, Rows: rows, Summary: ledger.Summarize(rows)}, nil
}

// Snapshot loads every entry and rental record of the user into one Book,
// bypassing the cache.
func (s *LedgerService) Snapshot(ctx context.Context, userID string) (*ledger.Book, error) {
	var (
		entries []core.Entry
		rentals map[core.Period]core.RentalIncome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.ListTransactions(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		rentals, err = s.store.ListRentalIncome(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load ledger of %s: %w", userID, err)
	}

	book := ledger.NewBook()
	book.Insert(entries...)
	for p, r := range rentals {
		book.SetRental(p, r)
	}
	return book, nil
}

// Users lists every user with stored data, sorted.
func (s *LedgerService) Users(ctx context.Context) ([]string, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.Strings(users)
	return users, nil
}

// CacheStats reports period cache traffic.
func (s *LedgerService) CacheStats() (hits, misses uint64) {
	st := s.cache.Stats()
	return st.Hits, st.Misses
}

// Ready checks that storage answers.
func (s *LedgerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// fail wraps a storage error. Anything other than a missing record is
// logged and reported.
func (s *LedgerService) fail(ctx context.Context, op, userID, period string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	s.logger.LogError(ctx, "Ledger storage operation failed", err, op,
		applog.FieldUserID, userID,
		applog.FieldPeriod, period,
		applog.FieldErrorType, applog.ErrorTypeDatabase)
	s.reporter.Report(ctx, err, map[string]string{
		applog.FieldOperation: op,
		applog.FieldUserID:    userID,
		applog.FieldPeriod:    period,
	})
	return fmt.Errorf("%s ledger: %w", op, err)
}

// publish sends a change message. Failures are logged only: the write has
// already been committed.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangeMessage) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping change message", applog.FieldChangeKind, msg.Kind)
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			applog.FieldError, err,
			applog.FieldMessageID, msg.ID,
			applog.FieldChangeKind, msg.Kind,
			applog.FieldUserID, msg.UserID,
			applog.FieldPeriod, msg.Period)
	}
}
