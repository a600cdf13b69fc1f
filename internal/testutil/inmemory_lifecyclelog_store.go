package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/types"
)

// InMemoryLifecycleLogStore implements lifecyclelog.Repository.
type InMemoryLifecycleLogStore struct {
	store *InMemoryStore[lifecyclelog.Entry]
}

func NewInMemoryLifecycleLogStore() *InMemoryLifecycleLogStore {
	return &InMemoryLifecycleLogStore{store: NewInMemoryStore[lifecyclelog.Entry]()}
}

func (s *InMemoryLifecycleLogStore) Create(_ context.Context, entry *lifecyclelog.Entry) error {
	return s.store.Insert(entry.ID, *entry)
}

func (s *InMemoryLifecycleLogStore) ListByService(_ context.Context, serviceID string) ([]*lifecyclelog.Entry, error) {
	matches := s.store.List(func(e lifecyclelog.Entry) bool {
		return e.ServiceID == serviceID
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	out := make([]*lifecyclelog.Entry, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryLifecycleLogStore) LastActionSince(_ context.Context, serviceID string, action types.LifecycleAction, since time.Time) (*lifecyclelog.Entry, error) {
	matches := s.store.List(func(e lifecyclelog.Entry) bool {
		return e.ServiceID == serviceID && e.Action == action && !e.CreatedAt.Before(since)
	})
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return &matches[0], nil
}
