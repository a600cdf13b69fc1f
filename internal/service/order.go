package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/order"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/types"
)

// OrderService owns the order lifecycle up to and including the payment
// confirmation that hands off to provisioning.
type OrderService interface {
	CreateOrder(ctx context.Context, ord *order.Order) error
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error)
	CancelOrder(ctx context.Context, id string) error

	// MarkOrderPaid confirms payment exactly once and schedules provisioning
	// in the background. A second confirmation for the same order is
	// rejected, which is what makes gateway webhook retries harmless.
	MarkOrderPaid(ctx context.Context, id string, method string) (*order.Order, error)
}

type orderService struct {
	ServiceParams
	provisioner ProvisioningService

	// dispatch runs the provisioning callback; the default runs it in a
	// goroutine so payment confirmation returns immediately.
	dispatch func(func())
}

func NewOrderService(params ServiceParams, provisioner ProvisioningService) OrderService {
	return &orderService{
		ServiceParams: params,
		provisioner:   provisioner,
		dispatch:      func(run func()) { go run() },
	}
}

// NewOrderServiceWithDispatcher overrides how the provisioning callback is
// scheduled. Tests pass a synchronous dispatcher to make the payment flow
// deterministic.
func NewOrderServiceWithDispatcher(params ServiceParams, provisioner ProvisioningService, dispatch func(func())) OrderService {
	return &orderService{
		ServiceParams: params,
		provisioner:   provisioner,
		dispatch:      dispatch,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, ord *order.Order) error {
	if ord.ID == "" {
		ord.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER)
	}
	if ord.Number == "" {
		ord.Number = types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER)
	}
	if ord.PaymentStatus == "" {
		ord.PaymentStatus = types.OrderStatusPending
	}
	ord.BaseModel = types.GetDefaultBaseModel(ctx)

	// Snapshot product names and amounts from the catalog so later product
	// edits never rewrite history.
	subtotal := decimal.Zero
	for i := range ord.Items {
		item := &ord.Items[i]
		prod, err := s.ProductRepo.Get(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if !prod.Active {
			return ierr.NewErrorf("product %s is not purchasable", prod.ID).
				Mark(ierr.ErrInvalidOperation)
		}
		if item.ProductName == "" {
			item.ProductName = prod.Name
		}
		if item.AccountType == "" {
			item.AccountType = prod.AccountType
		}
		subtotal = subtotal.Add(item.UnitPrice)
	}
	if ord.Subtotal.IsZero() {
		ord.Subtotal = subtotal
	}
	if ord.Total.IsZero() {
		ord.Total = ord.Subtotal.Sub(ord.DiscountAmount).Sub(ord.CreditsUsed)
	}

	if err := ord.Validate(); err != nil {
		return err
	}
	if err := s.deductCustomerCredits(ctx, ord); err != nil {
		return err
	}

	if err := s.OrderRepo.Create(ctx, ord); err != nil {
		return err
	}
	s.Logger.Infow("order created",
		"order_id", ord.ID, "order_number", ord.Number,
		"customer_id", ord.CustomerID, "total", ord.Total)
	return nil
}

func (s *orderService) deductCustomerCredits(ctx context.Context, ord *order.Order) error {
	if ord.CreditsUsed.IsZero() {
		return nil
	}
	cust, err := s.CustomerRepo.Get(ctx, ord.CustomerID)
	if err != nil {
		return err
	}
	if cust.CreditBalance.LessThan(ord.CreditsUsed) {
		return ierr.NewError("insufficient credit balance").
			WithReportableDetails(map[string]interface{}{
				"balance":   cust.CreditBalance,
				"requested": ord.CreditsUsed,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	cust.CreditBalance = cust.CreditBalance.Sub(ord.CreditsUsed)
	return s.CustomerRepo.Update(ctx, cust)
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return s.OrderRepo.Get(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	if filter == nil {
		filter = &types.OrderFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	return s.OrderRepo.List(ctx, filter)
}

func (s *orderService) CancelOrder(ctx context.Context, id string) error {
	ord, err := s.OrderRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ord.CanCancel() {
		return ierr.NewErrorf("order %s is %s and cannot be cancelled", ord.ID, ord.PaymentStatus).
			WithHint("Only pending orders can be cancelled").
			Mark(ierr.ErrInvalidOperation)
	}
	ord.PaymentStatus = types.OrderStatusCancelled

	// Refund any store credit that was reserved at checkout.
	if !ord.CreditsUsed.IsZero() {
		if cust, err := s.CustomerRepo.Get(ctx, ord.CustomerID); err == nil {
			cust.CreditBalance = cust.CreditBalance.Add(ord.CreditsUsed)
			if err := s.CustomerRepo.Update(ctx, cust); err != nil {
				s.Logger.Errorw("failed to refund credits on cancellation",
					"order_id", ord.ID, "error", err)
			}
		}
	}
	return s.OrderRepo.Update(ctx, ord)
}

func (s *orderService) MarkOrderPaid(ctx context.Context, id string, method string) (*order.Order, error) {
	ord, err := s.OrderRepo.MarkPaid(ctx, id, method, s.now())
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("order paid, scheduling provisioning",
		"order_id", ord.ID, "order_number", ord.Number, "method", method)

	// Provisioning talks to slow remote panels; it must not hold the
	// payment confirmation open or be cancelled with it.
	bgCtx := context.WithoutCancel(ctx)
	s.dispatch(func() {
		if err := s.provisioner.ProvisionPaidOrder(bgCtx, ord); err != nil {
			s.Logger.Errorw("background provisioning failed",
				"order_id", ord.ID, "error", err)
		}
	})
	return ord, nil
}
