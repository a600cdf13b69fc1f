package testutil

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/domain/account"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/types"
)

// InMemoryAccountStore implements account.Repository, including the
// compare-and-swap expiry update.
type InMemoryAccountStore struct {
	store *InMemoryStore[account.Account]
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{store: NewInMemoryStore[account.Account]()}
}

func (s *InMemoryAccountStore) Create(_ context.Context, rec *account.Account) error {
	return s.store.Insert(rec.ID, *rec)
}

func (s *InMemoryAccountStore) Get(_ context.Context, id string) (*account.Account, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func matchServiceFilter(rec account.Account, filter *types.ServiceFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CustomerID != "" && rec.CustomerID != filter.CustomerID {
		return false
	}
	if filter.ProductID != "" && rec.ProductID != filter.ProductID {
		return false
	}
	if filter.AccountType != "" && rec.AccountType != filter.AccountType {
		return false
	}
	if filter.Status != "" && rec.ServiceStatus != filter.Status {
		return false
	}
	if filter.PanelFamily != "" && rec.PanelFamily != filter.PanelFamily {
		return false
	}
	if filter.PanelIndex != nil && rec.PanelIndex != *filter.PanelIndex {
		return false
	}
	if filter.ExpiringUntil != nil {
		if rec.ExpiryDate == nil || rec.ExpiryDate.After(*filter.ExpiringUntil) {
			return false
		}
	}
	if filter.SuspendedAtOrBefore != nil {
		if rec.SuspendedAt == nil || rec.SuspendedAt.After(*filter.SuspendedAtOrBefore) {
			return false
		}
	}
	return true
}

func (s *InMemoryAccountStore) List(_ context.Context, filter *types.ServiceFilter) ([]*account.Account, error) {
	matches := s.store.List(func(rec account.Account) bool {
		return matchServiceFilter(rec, filter)
	})
	out := make([]*account.Account, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryAccountStore) Count(_ context.Context, filter *types.ServiceFilter) (int, error) {
	return len(s.store.List(func(rec account.Account) bool {
		return matchServiceFilter(rec, filter)
	})), nil
}

func (s *InMemoryAccountStore) Update(_ context.Context, rec *account.Account) error {
	return s.store.Update(rec.ID, *rec)
}

func (s *InMemoryAccountStore) ExtendExpiry(_ context.Context, id string, prevExpiry *time.Time, newExpiry time.Time, termMonths int) error {
	applied, err := s.store.Mutate(id, func(rec account.Account) (account.Account, bool) {
		if !sameExpiry(rec.ExpiryDate, prevExpiry) {
			return rec, false
		}
		rec.ExpiryDate = &newExpiry
		rec.TermMonths = termMonths
		return rec, true
	})
	if err != nil {
		return err
	}
	if !applied {
		return ierr.NewErrorf("expiry of service %s changed concurrently", id).
			Mark(ierr.ErrVersionConflict)
	}
	return nil
}

func sameExpiry(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}
