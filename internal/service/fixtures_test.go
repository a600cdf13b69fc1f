package service_test

import (
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/customer"
	"github.com/streambill/streambill/internal/domain/order"
	"github.com/streambill/streambill/internal/domain/product"
	"github.com/streambill/streambill/internal/testutil"
	"github.com/streambill/streambill/internal/types"
)

// fixtureSuite adds common fixture builders on top of the base suite.
type fixtureSuite struct {
	testutil.BaseServiceTestSuite
}

func (s *fixtureSuite) seedCustomer(id string) *customer.Customer {
	cust := &customer.Customer{
		ID:            id,
		Email:         id + "@example.test",
		Name:          "Customer " + id,
		CreditBalance: decimal.Zero,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.CustomerStore.Create(s.Ctx, cust))
	return cust
}

func (s *fixtureSuite) seedSubscriberProduct(id string, family types.PanelFamily, panelIndex, packageID int) *product.Product {
	prod := &product.Product{
		ID:              id,
		Name:            "Product " + id,
		AccountType:     types.AccountTypeSubscriber,
		PanelFamily:     family,
		PanelIndex:      panelIndex,
		RemotePackageID: packageID,
		Bouquets:        []int{1, 4},
		MaxConnections:  2,
		Active:          true,
		BaseModel:       types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.ProductStore.Create(s.Ctx, prod))
	return prod
}

func (s *fixtureSuite) seedResellerProduct(id string, family types.PanelFamily, panelIndex int, credits int64) *product.Product {
	prod := &product.Product{
		ID:               id,
		Name:             "Reseller " + id,
		AccountType:      types.AccountTypeReseller,
		PanelFamily:      family,
		PanelIndex:       panelIndex,
		RemotePackageID:  1,
		ResellerCredits:  decimal.NewFromInt(credits),
		ResellerMaxLines: 50,
		Active:           true,
		BaseModel:        types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.ProductStore.Create(s.Ctx, prod))
	return prod
}

// paidOrder builds and stores an order already in the paid state, ready to
// hand to the provisioner directly.
func (s *fixtureSuite) paidOrder(customerID string, items ...order.Item) *order.Order {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice)
	}
	now := s.Now()
	ord := &order.Order{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		Number:        types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER),
		CustomerID:    customerID,
		Items:         items,
		Subtotal:      subtotal,
		Total:         subtotal,
		PaymentStatus: types.OrderStatusPaid,
		PaymentMethod: "manual",
		PaidAt:        &now,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.OrderStore.Create(s.Ctx, ord))
	return ord
}

func subscriberItem(productID string, months int) order.Item {
	return order.Item{
		ProductID:   productID,
		ProductName: "Product " + productID,
		TermMonths:  months,
		UnitPrice:   decimal.NewFromInt(10),
		AccountType: types.AccountTypeSubscriber,
	}
}

func resellerItem(productID string) order.Item {
	return order.Item{
		ProductID:   productID,
		ProductName: "Reseller " + productID,
		TermMonths:  1,
		UnitPrice:   decimal.NewFromInt(50),
		AccountType: types.AccountTypeReseller,
	}
}
