package testutil

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/domain/order"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/types"
)

// InMemoryOrderStore implements order.Repository against an in-memory store.
type InMemoryOrderStore struct {
	store *InMemoryStore[order.Order]
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{store: NewInMemoryStore[order.Order]()}
}

func (s *InMemoryOrderStore) Create(_ context.Context, ord *order.Order) error {
	return s.store.Insert(ord.ID, *ord)
}

func (s *InMemoryOrderStore) Get(_ context.Context, id string) (*order.Order, error) {
	ord, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (s *InMemoryOrderStore) List(_ context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	matches := s.store.List(func(o order.Order) bool {
		if filter == nil {
			return true
		}
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			return false
		}
		if filter.Status != "" && o.PaymentStatus != filter.Status {
			return false
		}
		return true
	})
	out := make([]*order.Order, 0, len(matches))
	for i := range matches {
		out = append(out, &matches[i])
	}
	return out, nil
}

func (s *InMemoryOrderStore) Update(_ context.Context, ord *order.Order) error {
	return s.store.Update(ord.ID, *ord)
}

func (s *InMemoryOrderStore) MarkPaid(_ context.Context, id string, method string, paidAt time.Time) (*order.Order, error) {
	applied, err := s.store.Mutate(id, func(o order.Order) (order.Order, bool) {
		if o.PaymentStatus != types.OrderStatusPending {
			return o, false
		}
		o.PaymentStatus = types.OrderStatusPaid
		o.PaymentMethod = method
		o.PaidAt = &paidAt
		return o, true
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ierr.NewErrorf("order %s is not pending", id).
			WithHint("The order was already paid or cancelled").
			Mark(ierr.ErrInvalidOperation)
	}
	ord, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &ord, nil
}
