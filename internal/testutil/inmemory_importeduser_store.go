package testutil

import (
	"context"

	"github.com/streambill/streambill/internal/domain/importeduser"
	"github.com/streambill/streambill/internal/types"
)

// InMemoryImportedUserStore implements importeduser.Repository.
type InMemoryImportedUserStore struct {
	store *InMemoryStore[importeduser.ImportedUser]
}

func NewInMemoryImportedUserStore() *InMemoryImportedUserStore {
	return &InMemoryImportedUserStore{store: NewInMemoryStore[importeduser.ImportedUser]()}
}

func (s *InMemoryImportedUserStore) Create(_ context.Context, u *importeduser.ImportedUser) error {
	return s.store.Insert(u.ID, *u)
}

func (s *InMemoryImportedUserStore) Get(_ context.Context, id string) (*importeduser.ImportedUser, error) {
	u, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *InMemoryImportedUserStore) List(_ context.Context, filter *types.ImportedUserFilter) ([]*importeduser.ImportedUser, error) {
	matches := s.store.List(func(u importeduser.ImportedUser) bool {
		if filter == nil {
			return true
		}
		if filter.PanelFamily != "" && u.PanelFamily != filter.PanelFamily {
			return false
		}
		if filter.PanelIndex != nil && u.PanelIndex != *filter.PanelIndex {
			return false
		}
		if filter.AccountType != "" && u.AccountType != filter.AccountType {
			return false
		}
		return true
	})
	out := make([]*importeduser.ImportedUser, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryImportedUserStore) Update(_ context.Context, u *importeduser.ImportedUser) error {
	return s.store.Update(u.ID, *u)
}

func (s *InMemoryImportedUserStore) Delete(_ context.Context, id string) error {
	return s.store.Delete(id)
}

func (s *InMemoryImportedUserStore) ListByPanel(_ context.Context, family types.PanelFamily, panelIndex int) ([]*importeduser.ImportedUser, error) {
	matches := s.store.List(func(u importeduser.ImportedUser) bool {
		return u.PanelFamily == family && u.PanelIndex == panelIndex
	})
	out := make([]*importeduser.ImportedUser, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryImportedUserStore) DeleteByPanel(ctx context.Context, family types.PanelFamily, panelIndex int) (int, error) {
	matches, err := s.ListByPanel(ctx, family, panelIndex)
	if err != nil {
		return 0, err
	}
	for _, u := range matches {
		if err := s.store.Delete(u.ID); err != nil {
			return 0, err
		}
	}
	return len(matches), nil
}
