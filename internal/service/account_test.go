package service_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/domain/account"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type AccountServiceSuite struct {
	fixtureSuite
	accounts service.AccountService
}

func TestAccountService(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.accounts = service.NewAccountService(s.Params())
}

func (s *AccountServiceSuite) seedService(id string, family types.PanelFamily, status types.ServiceStatus) *account.Account {
	cust := s.seedCustomer("cust_" + id)
	expiry := s.Now().AddDate(0, 1, 0)
	panelName := "panel-a"
	if family == types.PanelFamilyXuiOne {
		panelName = "panel-b"
	}
	rec := &account.Account{
		ID:            id,
		CustomerID:    cust.ID,
		OrderID:       "ord_" + id,
		ProductID:     "prod_" + id,
		ProductName:   "Premium IPTV",
		AccountType:   types.AccountTypeSubscriber,
		Username:      "user_" + id,
		Password:      "pw",
		RemoteUserID:  "600",
		PanelFamily:   family,
		PanelIndex:    0,
		PanelName:     panelName,
		ServiceStatus: status,
		ExpiryDate:    &expiry,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	if status == types.ServiceStatusSuspended {
		at := s.Now()
		rec.SuspendedAt = &at
	}
	s.Require().NoError(s.AccountStore.Create(s.Ctx, rec))
	return rec
}

func (s *AccountServiceSuite) TestSuspendActivateRoundTrip() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)

	s.Require().NoError(s.accounts.SuspendService(s.Ctx, "svc_1", "payment dispute", "admin"))
	s.Require().Len(s.XtreamUIPanel.CallsFor("suspend"), 1)

	rec, err := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusSuspended, rec.ServiceStatus)
	s.Require().NotNil(rec.SuspendedAt)

	s.Require().NoError(s.accounts.ActivateService(s.Ctx, "svc_1", "dispute resolved", "admin"))
	s.Require().Len(s.XtreamUIPanel.CallsFor("activate"), 1)

	rec, err = s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, rec.ServiceStatus)
	s.Nil(rec.SuspendedAt)

	history, err := s.accounts.ServiceHistory(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(types.LifecycleActionSuspend, history[0].Action)
	s.Equal("payment dispute", history[0].Reason)
	s.Equal("admin", history[0].TriggeredBy)
	s.Equal(types.LifecycleActionActivate, history[1].Action)
}

func (s *AccountServiceSuite) TestSuspendRoutesToXuiOnePanel() {
	s.seedService("svc_1", types.PanelFamilyXuiOne, types.ServiceStatusActive)

	s.Require().NoError(s.accounts.SuspendService(s.Ctx, "svc_1", "abuse report", "admin"))

	s.Require().Len(s.XuiOnePanel.CallsFor("suspend"), 1)
	s.Empty(s.XtreamUIPanel.CallsFor("suspend"))
}

func (s *AccountServiceSuite) TestSuspendNonActiveRejected() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusSuspended)

	err := s.accounts.SuspendService(s.Ctx, "svc_1", "twice", "admin")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AccountServiceSuite) TestActivateNonSuspendedRejected() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)

	err := s.accounts.ActivateService(s.Ctx, "svc_1", "oops", "admin")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AccountServiceSuite) TestRemoteFailureLeavesStatusUntouched() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	s.XtreamUIPanel.FailNext = timeoutErr{}

	err := s.accounts.SuspendService(s.Ctx, "svc_1", "expired", "lifecycle")
	s.Require().Error(err)

	rec, getErr := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(getErr)
	s.Equal(types.ServiceStatusActive, rec.ServiceStatus)

	history, histErr := s.accounts.ServiceHistory(s.Ctx, "svc_1")
	s.Require().NoError(histErr)
	s.Empty(history)
}

func (s *AccountServiceSuite) TestCancelActiveDisablesRemote() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)

	s.Require().NoError(s.accounts.CancelService(s.Ctx, "svc_1", "customer request", "admin"))
	s.Require().Len(s.XtreamUIPanel.CallsFor("suspend"), 1)

	rec, err := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusCancelled, rec.ServiceStatus)
	s.Require().NotNil(rec.CancelledAt)
}

func (s *AccountServiceSuite) TestCancelSuspendedSkipsRemote() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusSuspended)

	s.Require().NoError(s.accounts.CancelService(s.Ctx, "svc_1", "grace period over", "lifecycle"))

	// The remote account was already disabled when the service was
	// suspended; cancelling again must not touch the panel.
	s.Empty(s.XtreamUIPanel.CallsFor("suspend"))
}

func (s *AccountServiceSuite) TestCancelTwiceRejected() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusSuspended)
	s.Require().NoError(s.accounts.CancelService(s.Ctx, "svc_1", "first", "admin"))

	err := s.accounts.CancelService(s.Ctx, "svc_1", "second", "admin")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *AccountServiceSuite) TestRefundActiveDisablesRemote() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)

	s.Require().NoError(s.accounts.RefundService(s.Ctx, "svc_1", "chargeback", "admin"))
	s.Require().Len(s.XtreamUIPanel.CallsFor("suspend"), 1)

	rec, err := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusRefunded, rec.ServiceStatus)

	history, err := s.accounts.ServiceHistory(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(types.LifecycleActionRefund, history[0].Action)
}

func (s *AccountServiceSuite) TestTopUpRecordMutationsSkipRemote() {
	rec := s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	rec.IsCreditTopUp = true
	s.Require().NoError(s.AccountStore.Update(s.Ctx, rec))

	s.Require().NoError(s.accounts.SuspendService(s.Ctx, "svc_1", "audit", "admin"))
	s.Empty(s.XtreamUIPanel.CallsFor("suspend"))
}

func (s *AccountServiceSuite) TestListServicesFilters() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	s.seedService("svc_2", types.PanelFamilyXuiOne, types.ServiceStatusActive)
	s.seedService("svc_3", types.PanelFamilyXtreamUI, types.ServiceStatusSuspended)

	active, err := s.accounts.ListServices(s.Ctx, &types.ServiceFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		Status:      types.ServiceStatusActive,
	})
	s.Require().NoError(err)
	s.Len(active, 2)

	family := types.PanelFamilyXuiOne
	onPanelB, err := s.accounts.ListServices(s.Ctx, &types.ServiceFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		PanelFamily: family,
	})
	s.Require().NoError(err)
	s.Require().Len(onPanelB, 1)
	s.Equal("svc_2", onPanelB[0].ID)
}

func (s *AccountServiceSuite) TestExtendAddsFromCurrentExpiry() {
	rec := s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	prevExpiry := *rec.ExpiryDate

	s.Require().NoError(s.accounts.ExtendService(s.Ctx, "svc_1", 52, 1, "manual renewal", "admin"))

	calls := s.XtreamUIPanel.CallsFor("extend_subscriber")
	s.Require().Len(calls, 1)
	s.Equal("52", calls[0].Package)

	rec, err := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Require().NotNil(rec.ExpiryDate)
	s.Equal(prevExpiry.AddDate(0, 0, 30), *rec.ExpiryDate)

	history, err := s.accounts.ServiceHistory(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(types.LifecycleActionExtend, history[0].Action)
}

func (s *AccountServiceSuite) TestExtendExpiredServiceStartsFromNow() {
	rec := s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	past := s.Now().AddDate(0, 0, -10)
	rec.ExpiryDate = &past
	s.Require().NoError(s.AccountStore.Update(s.Ctx, rec))

	s.Require().NoError(s.accounts.ExtendService(s.Ctx, "svc_1", 52, 2, "manual renewal", "admin"))

	rec, err := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Require().NotNil(rec.ExpiryDate)
	s.Equal(s.Now().AddDate(0, 0, 60), *rec.ExpiryDate)
}

func (s *AccountServiceSuite) TestExtendRoutesToXuiOnePanel() {
	s.seedService("svc_1", types.PanelFamilyXuiOne, types.ServiceStatusActive)

	s.Require().NoError(s.accounts.ExtendService(s.Ctx, "svc_1", 7, 1, "manual renewal", "admin"))

	s.Require().Len(s.XuiOnePanel.CallsFor("extend_line"), 1)
	s.Empty(s.XtreamUIPanel.Calls)
}

func (s *AccountServiceSuite) TestExtendNonActiveRejected() {
	s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusSuspended)

	err := s.accounts.ExtendService(s.Ctx, "svc_1", 52, 1, "manual renewal", "admin")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Empty(s.XtreamUIPanel.Calls)
}

func (s *AccountServiceSuite) TestExtendRemoteFailureLeavesExpiry() {
	rec := s.seedService("svc_1", types.PanelFamilyXtreamUI, types.ServiceStatusActive)
	prevExpiry := *rec.ExpiryDate
	s.XtreamUIPanel.FailNext = timeoutErr{}

	err := s.accounts.ExtendService(s.Ctx, "svc_1", 52, 1, "manual renewal", "admin")
	s.Require().Error(err)

	rec, getErr := s.accounts.GetService(s.Ctx, "svc_1")
	s.Require().NoError(getErr)
	s.Equal(prevExpiry, *rec.ExpiryDate)
}
