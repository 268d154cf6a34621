// Package memory is an in-process storage.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"rateio/internal/core"
	"rateio/internal/storage"
)

type userData struct {
	owners  []core.Owner
	entries []core.Entry
	rentals map[core.Period]core.RentalIncome
}

// Store keeps every user's ledger in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userData
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{users: make(map[string]*userData)}
}

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{rentals: make(map[core.Period]core.RentalIncome)}
		s.users[userID] = u
	}
	return u
}

func (s *Store) ListOwners(_ context.Context, userID string) ([]core.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return []core.Owner{}, nil
	}
	out := append([]core.Owner(nil), u.owners...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) InsertOwners(_ context.Context, userID string, owners []core.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	for _, o := range owners {
		for _, existing := range u.owners {
			if existing.ID == o.ID {
				return fmt.Errorf("owner %s already exists", o.ID)
			}
		}
	}
	u.owners = append(u.owners, owners...)
	return nil
}

func (s *Store) UpdateOwner(_ context.Context, userID string, owner core.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if ok {
		for i := range u.owners {
			if u.owners[i].ID == owner.ID {
				u.owners[i] = owner
				return nil
			}
		}
	}
	return fmt.Errorf("owner %s: %w", owner.ID, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return []core.Entry{}, nil
	}
	out := make([]core.Entry, len(u.entries))
	for i, e := range u.entries {
		out[i] = e.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) ListTransactionsByPeriod(_ context.Context, userID string, p core.Period) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.Entry{}
	if u, ok := s.users[userID]; ok {
		for _, e := range u.entries {
			if e.Period == p {
				out = append(out, e.Clone())
			}
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID]; ok {
		for _, e := range u.entries {
			if e.ID == id {
				return e.Clone(), nil
			}
		}
	}
	return core.Entry{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) InsertTransactions(_ context.Context, userID string, entries []core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	seen := make(map[string]bool, len(u.entries)+len(entries))
	for _, e := range u.entries {
		seen[e.ID] = true
	}
	for _, e := range entries {
		if seen[e.ID] {
			return fmt.Errorf("transaction %s already exists", e.ID)
		}
		seen[e.ID] = true
	}
	for _, e := range entries {
		u.entries = append(u.entries, e.Clone())
	}
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID string, entry core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		for i := range u.entries {
			if u.entries[i].ID == entry.ID {
				u.entries[i] = entry.Clone()
				return nil
			}
		}
	}
	return fmt.Errorf("transaction %s: %w", entry.ID, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		for i := range u.entries {
			if u.entries[i].ID == id {
				u.entries = append(u.entries[:i], u.entries[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListRentalIncome(_ context.Context, userID string) (map[core.Period]core.RentalIncome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[core.Period]core.RentalIncome)
	if u, ok := s.users[userID]; ok {
		for p, r := range u.rentals {
			out[p] = r.Clone()
		}
	}
	return out, nil
}

func (s *Store) GetRentalIncome(_ context.Context, userID string, p core.Period) (core.RentalIncome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID]; ok {
		if r, ok := u.rentals[p]; ok {
			return r.Clone(), true, nil
		}
	}
	return core.RentalIncome{}, false, nil
}

func (s *Store) UpsertRentalIncome(_ context.Context, userID string, p core.Period, r core.RentalIncome) (core.RentalIncome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	if existing, ok := u.rentals[p]; ok {
		r.ID = existing.ID
	} else {
		r.ID = uuid.NewString()
	}
	u.rentals[p] = r.Clone()
	return r, nil
}

func (s *Store) ListUsers(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.users))
	for id := range s.users {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
