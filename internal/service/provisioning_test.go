package service_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/credentials"
	"github.com/streambill/streambill/internal/domain/account"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type ProvisioningServiceSuite struct {
	fixtureSuite
	provisioner service.ProvisioningService
}

func TestProvisioningService(t *testing.T) {
	suite.Run(t, new(ProvisioningServiceSuite))
}

func (s *ProvisioningServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.provisioner = service.NewProvisioningService(s.Params())
}

func (s *ProvisioningServiceSuite) services(filter *types.ServiceFilter) []*account.Account {
	recs, err := s.AccountStore.List(s.Ctx, filter)
	s.Require().NoError(err)
	return recs
}

func (s *ProvisioningServiceSuite) TestSubscriberOrderCreatesRemoteAccount() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	ord := s.paidOrder(cust.ID, subscriberItem("prod_1", 1))

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	creates := s.XtreamUIPanel.CallsFor("create_subscriber")
	s.Require().Len(creates, 1)
	s.Equal("52", creates[0].Package)

	recs := s.services(nil)
	s.Require().Len(recs, 1)
	rec := recs[0]
	s.Equal(types.ServiceStatusActive, rec.ServiceStatus)
	s.Equal(cust.ID, rec.CustomerID)
	s.Equal("panel-a", rec.PanelName)
	s.NotEmpty(rec.RemoteUserID)

	s.Require().NotNil(rec.ExpiryDate)
	s.Equal(s.Now().AddDate(0, 0, 30), *rec.ExpiryDate)

	s.Len(rec.Username, credentials.UsernameLength)
	s.Len(rec.Password, credentials.PasswordLength)
	for _, r := range rec.Username {
		s.Contains(credentials.Alphabet, string(r))
	}

	s.Require().Len(s.Notifier.Activated, 1)
	s.Equal(rec.Username, s.Notifier.Activated[0].Username)
	s.Equal("http://stream.panel-a.test", s.Notifier.Activated[0].StreamingURL)
}

func (s *ProvisioningServiceSuite) TestItemFailureDoesNotBlockLaterItems() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	s.seedSubscriberProduct("prod_2", types.PanelFamilyXtreamUI, 0, 53)
	ord := s.paidOrder(cust.ID, subscriberItem("prod_1", 1), subscriberItem("prod_2", 3))

	s.XtreamUIPanel.FailNext = ierr.NewError("panel rejected login").Mark(ierr.ErrAuthentication)
	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	failed := s.services(&types.ServiceFilter{Status: types.ServiceStatusFailed})
	s.Require().Len(failed, 1)
	s.Equal("prod_1", failed[0].ProductID)
	s.Contains(failed[0].LastError, "panel rejected login")

	active := s.services(&types.ServiceFilter{Status: types.ServiceStatusActive})
	s.Require().Len(active, 1)
	s.Equal("prod_2", active[0].ProductID)
	s.Require().NotNil(active[0].ExpiryDate)
	s.Equal(s.Now().AddDate(0, 0, 90), *active[0].ExpiryDate)

	s.Require().Len(s.Notifier.Failures, 1)
	s.Equal(ord.Number, s.Notifier.Failures[0].OrderNumber)
}

func (s *ProvisioningServiceSuite) TestExplicitRenewalTargetWinsOverFlag() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	expiry := s.Now().AddDate(0, 0, 10)
	target := &account.Account{
		ID:            "svc_target",
		CustomerID:    cust.ID,
		ProductID:     "prod_1",
		AccountType:   types.AccountTypeSubscriber,
		Username:      "existing01",
		Password:      "pw",
		RemoteUserID:  "300",
		PanelFamily:   types.PanelFamilyXtreamUI,
		ServiceStatus: types.ServiceStatusActive,
		ExpiryDate:    &expiry,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.AccountStore.Create(s.Ctx, target))

	// Another active service for the same product would be the flag's
	// first match; the explicit target must win over it.
	decoyExpiry := s.Now().AddDate(0, 0, 5)
	decoy := *target
	decoy.ID = "svc_decoy"
	decoy.Username = "decoy01"
	decoy.ExpiryDate = &decoyExpiry
	s.Require().NoError(s.AccountStore.Create(s.Ctx, &decoy))

	item := subscriberItem("prod_1", 1)
	item.RenewalServiceID = target.ID
	item.ActionType = types.OrderItemActionExtend
	ord := s.paidOrder(cust.ID, item)

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	extends := s.XtreamUIPanel.CallsFor("extend_subscriber")
	s.Require().Len(extends, 1)
	s.Equal("existing01", extends[0].Username)
	s.Empty(s.XtreamUIPanel.CallsFor("create_subscriber"))

	updated, err := s.AccountStore.Get(s.Ctx, target.ID)
	s.Require().NoError(err)
	s.Equal(expiry.AddDate(0, 0, 30), *updated.ExpiryDate)

	s.Require().Len(s.Notifier.Renewed, 1)
}

func (s *ProvisioningServiceSuite) TestRenewalOfExpiredServiceStartsFromNow() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	// Expiry already in the past: the new expiry counts from now, not from
	// the stale date.
	expiry := s.Now().AddDate(0, 0, -14)
	target := &account.Account{
		ID:            "svc_expired",
		CustomerID:    cust.ID,
		ProductID:     "prod_1",
		AccountType:   types.AccountTypeSubscriber,
		Username:      "lapsed01",
		Password:      "pw",
		PanelFamily:   types.PanelFamilyXtreamUI,
		ServiceStatus: types.ServiceStatusActive,
		ExpiryDate:    &expiry,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.AccountStore.Create(s.Ctx, target))

	item := subscriberItem("prod_1", 1)
	item.RenewalServiceID = target.ID
	ord := s.paidOrder(cust.ID, item)

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	updated, err := s.AccountStore.Get(s.Ctx, target.ID)
	s.Require().NoError(err)
	s.Equal(s.Now().AddDate(0, 0, 30), *updated.ExpiryDate)
}

func (s *ProvisioningServiceSuite) TestLegacyExtendFlagFallsBackToCreate() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)

	item := subscriberItem("prod_1", 1)
	item.ActionType = types.OrderItemActionExtend
	ord := s.paidOrder(cust.ID, item)

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	// No active service matched, so the item degraded to a creation.
	s.Len(s.XtreamUIPanel.CallsFor("create_subscriber"), 1)
	s.Empty(s.XtreamUIPanel.CallsFor("extend_subscriber"))
}

func (s *ProvisioningServiceSuite) TestResellerRepurchaseBecomesCreditTopUp() {
	cust := s.seedCustomer("cust_1")
	s.seedResellerProduct("prod_r", types.PanelFamilyXtreamUI, 0, 25)

	first := s.paidOrder(cust.ID, resellerItem("prod_r"))
	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, first))
	s.Require().Len(s.XtreamUIPanel.CallsFor("create_reseller"), 1)

	second := s.paidOrder(cust.ID, resellerItem("prod_r"))
	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, second))

	// Still exactly one remote account; the second purchase added credits.
	s.Len(s.XtreamUIPanel.CallsFor("create_reseller"), 1)
	topups := s.XtreamUIPanel.CallsFor("add_credits")
	s.Require().Len(topups, 1)
	s.True(topups[0].Credits.Equal(decimal.NewFromInt(25)))

	resellers := s.services(&types.ServiceFilter{AccountType: types.AccountTypeReseller})
	s.Require().Len(resellers, 2)

	var original, topup *account.Account
	for _, rec := range resellers {
		if rec.IsCreditTopUp {
			topup = rec
		} else {
			original = rec
		}
	}
	s.Require().NotNil(original)
	s.Require().NotNil(topup)
	s.True(original.ResellerCredits.Equal(decimal.NewFromInt(50)))
	s.Equal(original.Username, topup.Username)
}

func (s *ProvisioningServiceSuite) TestXuiOneResellerFailsFast() {
	cust := s.seedCustomer("cust_1")
	s.seedResellerProduct("prod_r", types.PanelFamilyXuiOne, 0, 25)
	ord := s.paidOrder(cust.ID, resellerItem("prod_r"))

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	failed := s.services(&types.ServiceFilter{Status: types.ServiceStatusFailed})
	s.Require().Len(failed, 1)
	s.Contains(strings.ToLower(failed[0].LastError), "reseller")
	s.Empty(s.XuiOnePanel.CallsFor("create_line"))
	s.Empty(s.XuiOnePanel.CallsFor("adjust_credits"))
}

func (s *ProvisioningServiceSuite) TestPanelIndexFallsBackToFirstInstance() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 7, 52)
	ord := s.paidOrder(cust.ID, subscriberItem("prod_1", 1))

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	s.Len(s.XtreamUIPanel.CallsFor("create_subscriber"), 1)
	recs := s.services(&types.ServiceFilter{Status: types.ServiceStatusActive})
	s.Require().Len(recs, 1)
	s.Equal("panel-a", recs[0].PanelName)
}

func (s *ProvisioningServiceSuite) TestAmbiguousExtensionStillApplies() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	s.XtreamUIPanel.AmbiguousExtends = true

	expiry := s.Now().AddDate(0, 0, 10)
	target := &account.Account{
		ID:            "svc_target",
		CustomerID:    cust.ID,
		ProductID:     "prod_1",
		AccountType:   types.AccountTypeSubscriber,
		Username:      "existing01",
		PanelFamily:   types.PanelFamilyXtreamUI,
		ServiceStatus: types.ServiceStatusActive,
		ExpiryDate:    &expiry,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.AccountStore.Create(s.Ctx, target))

	item := subscriberItem("prod_1", 1)
	item.RenewalServiceID = target.ID
	ord := s.paidOrder(cust.ID, item)

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	updated, err := s.AccountStore.Get(s.Ctx, target.ID)
	s.Require().NoError(err)
	s.Equal(expiry.AddDate(0, 0, 30), *updated.ExpiryDate)
}

func (s *ProvisioningServiceSuite) TestXuiOneSubscriberCreation() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_b", types.PanelFamilyXuiOne, 0, 9)
	ord := s.paidOrder(cust.ID, subscriberItem("prod_b", 2))

	s.Require().NoError(s.provisioner.ProvisionPaidOrder(s.Ctx, ord))

	creates := s.XuiOnePanel.CallsFor("create_line")
	s.Require().Len(creates, 1)
	s.Equal("9", creates[0].Package)

	recs := s.services(&types.ServiceFilter{Status: types.ServiceStatusActive})
	s.Require().Len(recs, 1)
	s.Equal("panel-b", recs[0].PanelName)
	s.Equal(s.Now().AddDate(0, 0, 60), *recs[0].ExpiryDate)
}

func (s *ProvisioningServiceSuite) TestUnpaidOrderRejected() {
	cust := s.seedCustomer("cust_1")
	s.seedSubscriberProduct("prod_1", types.PanelFamilyXtreamUI, 0, 52)
	ord := s.paidOrder(cust.ID, subscriberItem("prod_1", 1))
	ord.PaymentStatus = types.OrderStatusPending

	err := s.provisioner.ProvisionPaidOrder(s.Ctx, ord)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
