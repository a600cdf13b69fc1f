package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/domain/order"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type OrderServiceSuite struct {
	fixtureSuite
	orders      service.OrderService
	provisioner service.ProvisioningService
}

func TestOrderService(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.Params()
	s.provisioner = service.NewProvisioningService(params)
	// Synchronous dispatch keeps the payment flow deterministic under test.
	s.orders = service.NewOrderServiceWithDispatcher(params, s.provisioner, func(run func()) { run() })
}

func (s *OrderServiceSuite) newPendingOrder(customerID string, items ...order.Item) *order.Order {
	ord := &order.Order{CustomerID: customerID, Items: items}
	s.Require().NoError(s.orders.CreateOrder(s.Ctx, ord))
	return ord
}

func (s *OrderServiceSuite) TestCreateOrderFillsDefaults() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	ord := s.newPendingOrder(cust.ID, subscriberItem("prod_1", 1))

	s.NotEmpty(ord.ID)
	s.True(len(ord.Number) > 4 && ord.Number[:4] == "ORD-")
	s.Equal(types.OrderStatusPending, ord.PaymentStatus)
	s.True(ord.Total.Equal(decimal.NewFromInt(10)))
}

func (s *OrderServiceSuite) TestCreateOrderRejectsInactiveProduct() {
	cust := s.seedCustomer("cust_1")
	prod := s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	prod.Active = false
	s.Require().NoError(s.ProductStore.Update(s.Ctx, prod))

	err := s.orders.CreateOrder(s.Ctx, &order.Order{
		CustomerID: cust.ID,
		Items:      []order.Item{subscriberItem("prod_1", 1)},
	})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *OrderServiceSuite) TestCreateOrderDeductsStoreCredit() {
	cust := s.seedCustomer("cust_1")
	cust.CreditBalance = decimal.NewFromInt(4)
	s.Require().NoError(s.CustomerStore.Update(s.Ctx, cust))
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	ord := &order.Order{
		CustomerID:  cust.ID,
		Items:       []order.Item{subscriberItem("prod_1", 1)},
		CreditsUsed: decimal.NewFromInt(4),
	}
	s.Require().NoError(s.orders.CreateOrder(s.Ctx, ord))
	s.True(ord.Total.Equal(decimal.NewFromInt(6)))

	reloaded, err := s.CustomerStore.Get(s.Ctx, cust.ID)
	s.Require().NoError(err)
	s.True(reloaded.CreditBalance.IsZero())
}

func (s *OrderServiceSuite) TestInsufficientCreditRejected() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	err := s.orders.CreateOrder(s.Ctx, &order.Order{
		CustomerID:  cust.ID,
		Items:       []order.Item{subscriberItem("prod_1", 1)},
		CreditsUsed: decimal.NewFromInt(4),
	})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *OrderServiceSuite) TestMarkPaidProvisionsOnce() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	ord := s.newPendingOrder(cust.ID, subscriberItem("prod_1", 1))

	paid, err := s.orders.MarkOrderPaid(s.Ctx, ord.ID, "gateway_webhook")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusPaid, paid.PaymentStatus)
	s.Require().NotNil(paid.PaidAt)
	s.Len(s.XtreamUIPanel.CallsFor("create_subscriber"), 1)

	// A replayed confirmation is rejected and provisions nothing more.
	_, err = s.orders.MarkOrderPaid(s.Ctx, ord.ID, "gateway_webhook")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Len(s.XtreamUIPanel.CallsFor("create_subscriber"), 1)
}

func (s *OrderServiceSuite) TestCancelPendingRestoresCredits() {
	cust := s.seedCustomer("cust_1")
	cust.CreditBalance = decimal.NewFromInt(4)
	s.Require().NoError(s.CustomerStore.Update(s.Ctx, cust))
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	ord := &order.Order{
		CustomerID:  cust.ID,
		Items:       []order.Item{subscriberItem("prod_1", 1)},
		CreditsUsed: decimal.NewFromInt(4),
	}
	s.Require().NoError(s.orders.CreateOrder(s.Ctx, ord))
	s.Require().NoError(s.orders.CancelOrder(s.Ctx, ord.ID))

	reloaded, err := s.CustomerStore.Get(s.Ctx, cust.ID)
	s.Require().NoError(err)
	s.True(reloaded.CreditBalance.Equal(decimal.NewFromInt(4)))

	cancelled, err := s.orders.GetOrder(s.Ctx, ord.ID)
	s.Require().NoError(err)
	s.Equal(types.OrderStatusCancelled, cancelled.PaymentStatus)

	// A cancelled order cannot be paid.
	_, err = s.orders.MarkOrderPaid(s.Ctx, ord.ID, "manual")
	s.Require().Error(err)
}

func (s *OrderServiceSuite) TestCancelPaidOrderRejected() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	ord := s.newPendingOrder(cust.ID, subscriberItem("prod_1", 1))

	_, err := s.orders.MarkOrderPaid(s.Ctx, ord.ID, "manual")
	s.Require().NoError(err)

	err = s.orders.CancelOrder(s.Ctx, ord.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
