package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type LifecycleServiceSuite struct {
	fixtureSuite
	accounts  service.AccountService
	lifecycle service.LifecycleService
}

func TestLifecycleService(t *testing.T) {
	suite.Run(t, new(LifecycleServiceSuite))
}

func (s *LifecycleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.accounts = service.NewAccountService(s.Params())
	s.lifecycle = service.NewLifecycleService(s.Params(), s.accounts)
}

func (s *LifecycleServiceSuite) seedService(id, username string, status types.ServiceStatus, expiry *time.Time) *account.Account {
	cust := s.seedCustomer("cust_" + id)
	rec := &account.Account{
		ID:            id,
		CustomerID:    cust.ID,
		OrderID:       "ord_" + id,
		ProductID:     "prod_" + id,
		ProductName:   "Premium IPTV",
		AccountType:   types.AccountTypeSubscriber,
		Username:      username,
		Password:      "pw",
		RemoteUserID:  "500",
		PanelFamily:   types.PanelFamilyXtreamUI,
		PanelIndex:    0,
		PanelName:     "panel-a",
		ServiceStatus: status,
		ExpiryDate:    expiry,
		BaseModel:     types.GetDefaultBaseModel(s.Ctx),
	}
	if status == types.ServiceStatusSuspended {
		at := s.Now()
		rec.SuspendedAt = &at
	}
	s.Require().NoError(s.AccountStore.Create(s.Ctx, rec))
	return rec
}

func (s *LifecycleServiceSuite) expiresIn(d time.Duration) *time.Time {
	t := s.Now().Add(d)
	return &t
}

func (s *LifecycleServiceSuite) TestSuspendExpiredDisablesRemote() {
	s.seedService("svc_1", "expired01", types.ServiceStatusActive, s.expiresIn(-24*time.Hour))
	s.seedService("svc_2", "current01", types.ServiceStatusActive, s.expiresIn(30*24*time.Hour))

	suspended, failures, err := s.lifecycle.SuspendExpired(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, suspended)
	s.Zero(failures)

	calls := s.XtreamUIPanel.CallsFor("suspend")
	s.Require().Len(calls, 1)
	s.Equal("500", calls[0].RemoteID)

	rec, err := s.AccountStore.Get(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusSuspended, rec.ServiceStatus)
	s.Require().NotNil(rec.SuspendedAt)

	untouched, err := s.AccountStore.Get(s.Ctx, "svc_2")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, untouched.ServiceStatus)
}

func (s *LifecycleServiceSuite) TestSuspendSkipsTopUpRecords() {
	rec := s.seedService("svc_1", "resell01", types.ServiceStatusActive, s.expiresIn(-time.Hour))
	rec.IsCreditTopUp = true
	s.Require().NoError(s.AccountStore.Update(s.Ctx, rec))

	suspended, _, err := s.lifecycle.SuspendExpired(s.Ctx)
	s.Require().NoError(err)
	s.Zero(suspended)
	s.Empty(s.XtreamUIPanel.CallsFor("suspend"))
}

func (s *LifecycleServiceSuite) TestRemoteFailureCountedAndServiceLeftActive() {
	s.seedService("svc_1", "expired01", types.ServiceStatusActive, s.expiresIn(-time.Hour))
	s.XtreamUIPanel.FailNext = timeoutErr{}

	suspended, failures, err := s.lifecycle.SuspendExpired(s.Ctx)
	s.Require().NoError(err)
	s.Zero(suspended)
	s.Equal(1, failures)

	rec, err := s.AccountStore.Get(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, rec.ServiceStatus)
}

func (s *LifecycleServiceSuite) TestCancelAfterLongSuspension() {
	rec := s.seedService("svc_1", "stale01", types.ServiceStatusSuspended, s.expiresIn(-40*24*time.Hour))
	at := s.Now().AddDate(0, 0, -31)
	rec.SuspendedAt = &at
	s.Require().NoError(s.AccountStore.Update(s.Ctx, rec))

	s.seedService("svc_2", "fresh01", types.ServiceStatusSuspended, s.expiresIn(-time.Hour))

	cancelled, failures, err := s.lifecycle.CancelLongSuspended(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, cancelled)
	s.Zero(failures)

	stale, err := s.AccountStore.Get(s.Ctx, "svc_1")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusCancelled, stale.ServiceStatus)

	fresh, err := s.AccountStore.Get(s.Ctx, "svc_2")
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusSuspended, fresh.ServiceStatus)
}

func (s *LifecycleServiceSuite) TestSuspendThenCancelAcrossSweeps() {
	s.seedService("svc_1", "expired01", types.ServiceStatusActive, s.expiresIn(-time.Hour))

	report, err := s.lifecycle.RunSweeps(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Suspended)
	s.Zero(report.Cancelled)

	s.AdvanceClock(31 * 24 * time.Hour)

	report, err = s.lifecycle.RunSweeps(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Cancelled)
}

func (s *LifecycleServiceSuite) TestExpiryWarningSentOnceWithinInterval() {
	s.seedService("svc_1", "soon01", types.ServiceStatusActive, s.expiresIn(3*24*time.Hour))
	s.seedService("svc_2", "later01", types.ServiceStatusActive, s.expiresIn(20*24*time.Hour))

	warned, failures, err := s.lifecycle.SendExpiryWarnings(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, warned)
	s.Zero(failures)
	s.Require().Len(s.Notifier.Warnings, 1)
	s.Equal("Premium IPTV", s.Notifier.Warnings[0].ProductName)

	// Re-running inside the guard interval stays quiet.
	warned, _, err = s.lifecycle.SendExpiryWarnings(s.Ctx)
	s.Require().NoError(err)
	s.Zero(warned)
	s.Len(s.Notifier.Warnings, 1)
}

func (s *LifecycleServiceSuite) TestExpiryWarningRepeatsAfterInterval() {
	s.seedService("svc_1", "soon01", types.ServiceStatusActive, s.expiresIn(5*24*time.Hour))

	_, _, err := s.lifecycle.SendExpiryWarnings(s.Ctx)
	s.Require().NoError(err)

	s.AdvanceClock(13 * time.Hour)

	warned, _, err := s.lifecycle.SendExpiryWarnings(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, warned)
	s.Len(s.Notifier.Warnings, 2)
}

func (s *LifecycleServiceSuite) TestAlreadyExpiredServicesAreNotWarned() {
	s.seedService("svc_1", "gone01", types.ServiceStatusActive, s.expiresIn(-time.Hour))

	warned, _, err := s.lifecycle.SendExpiryWarnings(s.Ctx)
	s.Require().NoError(err)
	s.Zero(warned)
	s.Empty(s.Notifier.Warnings)
}
