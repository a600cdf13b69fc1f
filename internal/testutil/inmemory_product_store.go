package testutil

import (
	"context"

	"github.com/streambill/streambill/internal/domain/product"
)

// InMemoryProductStore implements product.Repository.
type InMemoryProductStore struct {
	store *InMemoryStore[product.Product]
}

func NewInMemoryProductStore() *InMemoryProductStore {
	return &InMemoryProductStore{store: NewInMemoryStore[product.Product]()}
}

func (s *InMemoryProductStore) Create(_ context.Context, prod *product.Product) error {
	return s.store.Insert(prod.ID, *prod)
}

func (s *InMemoryProductStore) Get(_ context.Context, id string) (*product.Product, error) {
	prod, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func (s *InMemoryProductStore) List(_ context.Context) ([]*product.Product, error) {
	matches := s.store.List(nil)
	out := make([]*product.Product, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryProductStore) Update(_ context.Context, prod *product.Product) error {
	return s.store.Update(prod.ID, *prod)
}

func (s *InMemoryProductStore) Delete(_ context.Context, id string) error {
	return s.store.Delete(id)
}
