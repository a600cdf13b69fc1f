package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/streambill/streambill/internal/cache"
	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/credentials"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/service"
)

// MockPanelClients implements service.PanelClients over panel doubles, with
// the same fall-back-to-instance-0 semantics as the real factory.
type MockPanelClients struct {
	XtreamUIPanels  []*MockXtreamUIPanel
	XuiOnePanels    []*MockXuiOnePanel
	XtreamUIConfigs []config.XtreamUIPanelConfig
	XuiOneConfigs   []config.XuiOnePanelConfig
}

func (m *MockPanelClients) XtreamUI(_ context.Context, index int) (service.XtreamUIClient, config.XtreamUIPanelConfig, bool, error) {
	if len(m.XtreamUIPanels) == 0 {
		return nil, config.XtreamUIPanelConfig{}, false, ierr.NewError("no xtreamui panels configured").
			Mark(ierr.ErrConfiguration)
	}
	ok := index >= 0 && index < len(m.XtreamUIPanels)
	if !ok {
		index = 0
	}
	cfg := config.XtreamUIPanelConfig{}
	if index < len(m.XtreamUIConfigs) {
		cfg = m.XtreamUIConfigs[index]
	}
	return m.XtreamUIPanels[index], cfg, ok, nil
}

func (m *MockPanelClients) XuiOne(_ context.Context, index int) (service.XuiOneClient, config.XuiOnePanelConfig, bool, error) {
	if len(m.XuiOnePanels) == 0 {
		return nil, config.XuiOnePanelConfig{}, false, ierr.NewError("no xuione panels configured").
			Mark(ierr.ErrConfiguration)
	}
	ok := index >= 0 && index < len(m.XuiOnePanels)
	if !ok {
		index = 0
	}
	cfg := config.XuiOnePanelConfig{}
	if index < len(m.XuiOneConfigs) {
		cfg = m.XuiOneConfigs[index]
	}
	return m.XuiOnePanels[index], cfg, ok, nil
}

// BaseServiceTestSuite wires in-memory stores and panel doubles into a
// ServiceParams ready for service tests. The clock is pinned; tests advance
// it through AdvanceClock.
type BaseServiceTestSuite struct {
	suite.Suite

	Ctx context.Context

	OrderStore        *InMemoryOrderStore
	ProductStore      *InMemoryProductStore
	CustomerStore     *InMemoryCustomerStore
	AccountStore      *InMemoryAccountStore
	ImportedUserStore *InMemoryImportedUserStore
	LifecycleLogStore *InMemoryLifecycleLogStore

	XtreamUIPanel *MockXtreamUIPanel
	XuiOnePanel   *MockXuiOnePanel
	PanelClients  *MockPanelClients
	Notifier      *MockNotifier

	Config *config.Configuration

	now time.Time
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.Ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.OrderStore = NewInMemoryOrderStore()
	s.ProductStore = NewInMemoryProductStore()
	s.CustomerStore = NewInMemoryCustomerStore()
	s.AccountStore = NewInMemoryAccountStore()
	s.ImportedUserStore = NewInMemoryImportedUserStore()
	s.LifecycleLogStore = NewInMemoryLifecycleLogStore()

	s.XtreamUIPanel = NewMockXtreamUIPanel()
	s.XuiOnePanel = NewMockXuiOnePanel()
	s.PanelClients = &MockPanelClients{
		XtreamUIPanels: []*MockXtreamUIPanel{s.XtreamUIPanel},
		XuiOnePanels:   []*MockXuiOnePanel{s.XuiOnePanel},
		XtreamUIConfigs: []config.XtreamUIPanelConfig{{
			Name:         "panel-a",
			PanelURL:     "http://panel-a.test",
			StreamingURL: "http://stream.panel-a.test",
			Active:       true,
		}},
		XuiOneConfigs: []config.XuiOnePanelConfig{{
			Name:     "panel-b",
			PanelURL: "http://panel-b.test",
			Active:   true,
		}},
	}
	s.Notifier = NewMockNotifier()

	s.Config = config.GetDefaultConfig()
	s.Config.Panels = config.PanelsConfig{
		XtreamUI: s.PanelClients.XtreamUIConfigs,
		XuiOne:   s.PanelClients.XuiOneConfigs,
	}
}

// Params assembles a ServiceParams over the suite's fixtures.
func (s *BaseServiceTestSuite) Params() service.ServiceParams {
	return service.ServiceParams{
		Logger:           logger.NewNopLogger(),
		Config:           s.Config,
		Panels:           s.PanelClients,
		CredGen:          credentials.NewGenerator(),
		Notifier:         s.Notifier,
		Cache:            cache.NewInMemoryCache(),
		OrderRepo:        s.OrderStore,
		ProductRepo:      s.ProductStore,
		CustomerRepo:     s.CustomerStore,
		AccountRepo:      s.AccountStore,
		ImportedUserRepo: s.ImportedUserStore,
		LifecycleLogRepo: s.LifecycleLogStore,
		Now:              func() time.Time { return s.now },
	}
}

// Now returns the pinned test clock.
func (s *BaseServiceTestSuite) Now() time.Time {
	return s.now
}

// AdvanceClock moves the pinned clock forward.
func (s *BaseServiceTestSuite) AdvanceClock(d time.Duration) {
	s.now = s.now.Add(d)
}
