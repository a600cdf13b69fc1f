package testutil

import (
	"context"

	"github.com/streambill/streambill/internal/domain/customer"
)

// InMemoryCustomerStore implements customer.Repository.
type InMemoryCustomerStore struct {
	store *InMemoryStore[customer.Customer]
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{store: NewInMemoryStore[customer.Customer]()}
}

func (s *InMemoryCustomerStore) Create(_ context.Context, cust *customer.Customer) error {
	return s.store.Insert(cust.ID, *cust)
}

func (s *InMemoryCustomerStore) Get(_ context.Context, id string) (*customer.Customer, error) {
	cust, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (s *InMemoryCustomerStore) Update(_ context.Context, cust *customer.Customer) error {
	return s.store.Update(cust.ID, *cust)
}
