package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/testutil"
	"github.com/streambill/streambill/internal/types"
)

type SyncServiceSuite struct {
	testutil.BaseServiceTestSuite
	sync service.SyncService
}

func TestSyncService(t *testing.T) {
	suite.Run(t, new(SyncServiceSuite))
}

func (s *SyncServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.sync = service.NewSyncService(s.Params())
}

func (s *SyncServiceSuite) seedRemoteListings() {
	exp := s.Now().AddDate(0, 1, 0)
	s.XtreamUIPanel.Listing = []panel.RemoteAccount{
		{RemoteUserID: "11", Username: "alpha", Password: "pw-alpha", ExpiryDate: &exp, Status: "active", MaxConnections: 1},
		{RemoteUserID: "12", Username: "bravo", Status: "active", MaxConnections: 2, CreatedByReseller: "subres1"},
	}
	s.XtreamUIPanel.Reseller = []panel.RemoteAccount{
		{RemoteUserID: "3", Username: "resell", Status: "active", IsReseller: true, Credits: decimal.NewFromInt(40)},
	}
	s.XuiOnePanel.Lines = []panel.RemoteAccount{
		{RemoteUserID: "701", Username: "charlie", ExpiryDate: &exp, Status: "active", MaxConnections: 3},
	}
	s.XuiOnePanel.Users = []panel.RemoteAccount{
		{RemoteUserID: "9", Username: "owner9", Status: "active", IsReseller: true, Credits: decimal.NewFromInt(12)},
	}
}

func (s *SyncServiceSuite) TestFirstRunImportsEverything() {
	s.seedRemoteListings()

	report, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Panels)
	s.Equal(5, report.Created)
	s.Zero(report.Updated)
	s.Zero(report.Deleted)
	s.Zero(report.Failures)

	stored, err := s.ImportedUserStore.ListByPanel(s.Ctx, types.PanelFamilyXtreamUI, 0)
	s.Require().NoError(err)
	s.Len(stored, 3)

	byUsername := map[string]bool{}
	var resellers int
	for _, u := range stored {
		byUsername[u.Username] = true
		s.Equal("panel-a", u.PanelName)
		s.Equal(s.Now(), u.LastSyncedAt)
		if u.AccountType == types.AccountTypeReseller {
			resellers++
			s.True(u.Credits.Equal(decimal.NewFromInt(40)))
		}
	}
	s.True(byUsername["alpha"] && byUsername["bravo"] && byUsername["resell"])
	s.Equal(1, resellers)
}

func (s *SyncServiceSuite) TestSecondRunConverges() {
	s.seedRemoteListings()

	_, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)

	report, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)
	s.Zero(report.Created)
	s.Zero(report.Updated)
	s.Zero(report.Deleted)
}

func (s *SyncServiceSuite) TestChangedFieldUpdatesRecord() {
	s.seedRemoteListings()
	_, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)

	s.XtreamUIPanel.Listing[1].Status = "disabled"

	report, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Updated)
	s.Zero(report.Created)

	stored, err := s.ImportedUserStore.ListByPanel(s.Ctx, types.PanelFamilyXtreamUI, 0)
	s.Require().NoError(err)
	for _, u := range stored {
		if u.Username == "bravo" {
			s.Equal("disabled", u.RemoteStatus)
		}
	}
}

func (s *SyncServiceSuite) TestUpdatePreservesStoredPassword() {
	s.seedRemoteListings()
	_, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)

	// The panel stops returning the plaintext password but reports a status
	// change on the same account.
	s.XtreamUIPanel.Listing[0].Password = ""
	s.XtreamUIPanel.Listing[0].Status = "disabled"

	_, err = s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)

	stored, err := s.ImportedUserStore.ListByPanel(s.Ctx, types.PanelFamilyXtreamUI, 0)
	s.Require().NoError(err)
	for _, u := range stored {
		if u.Username == "alpha" {
			s.Equal("pw-alpha", u.Password)
			s.Equal("disabled", u.RemoteStatus)
		}
	}
}

func (s *SyncServiceSuite) TestVanishedAccountIsDeleted() {
	s.seedRemoteListings()
	_, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)

	s.XuiOnePanel.Lines = nil

	report, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Deleted)

	stored, err := s.ImportedUserStore.ListByPanel(s.Ctx, types.PanelFamilyXuiOne, 0)
	s.Require().NoError(err)
	s.Len(stored, 1)
	s.Equal("owner9", stored[0].Username)
}

func (s *SyncServiceSuite) TestUnreachablePanelCountedNotFatal() {
	s.seedRemoteListings()
	s.XtreamUIPanel.FailNext = timeoutErr{}

	report, err := s.sync.SyncPanels(s.Ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Panels)
	// The one-shot failure is retried and the listing succeeds on the
	// second attempt, so nothing is lost.
	s.Zero(report.Failures)
	s.Equal(5, report.Created)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "read tcp: i/o timeout" }
