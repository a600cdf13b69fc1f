package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/panel/session"
	"github.com/streambill/streambill/internal/panel/xtreamui"
	"github.com/streambill/streambill/internal/panel/xuione"
)

// XtreamUIClient is the slice of the session-panel client the services use.
type XtreamUIClient interface {
	CreateSubscriber(ctx context.Context, req xtreamui.CreateSubscriberRequest) (*panel.CreateResult, error)
	ExtendSubscriber(ctx context.Context, req xtreamui.ExtendSubscriberRequest) (*panel.ExtendResult, error)
	SuspendSubscriber(ctx context.Context, remoteID, username string) error
	ActivateSubscriber(ctx context.Context, remoteID, username string) error
	CreateReseller(ctx context.Context, req xtreamui.CreateResellerRequest) error
	AddCredits(ctx context.Context, username string, credits decimal.Decimal) error
	ListSubscribers(ctx context.Context) ([]panel.RemoteAccount, error)
	ListResellers(ctx context.Context) ([]panel.RemoteAccount, error)
	GetPackages(ctx context.Context) ([]panel.Package, error)
	GetTrialPackages(ctx context.Context) ([]panel.Package, error)
	GetBouquets(ctx context.Context) ([]panel.Bouquet, error)
}

// XuiOneClient is the slice of the access-code panel client the services use.
type XuiOneClient interface {
	CreateLine(ctx context.Context, req xuione.CreateLineRequest) (*panel.CreateResult, error)
	ExtendLine(ctx context.Context, req xuione.ExtendLineRequest) (*panel.ExtendResult, error)
	SuspendLine(ctx context.Context, remoteID, username string) error
	ActivateLine(ctx context.Context, remoteID, username string) error
	CreateReseller(ctx context.Context) error
	AdjustCredits(ctx context.Context, remoteID string, credits decimal.Decimal) error
	ListLines(ctx context.Context) ([]panel.RemoteAccount, error)
	ListUsers(ctx context.Context) ([]panel.RemoteAccount, error)
	GetPackages(ctx context.Context) ([]panel.Package, error)
	GetTrialPackages(ctx context.Context) ([]panel.Package, error)
}

// PanelClients hands out clients for configured panel instances. The ok
// result reports whether the REQUESTED index existed; when it did not, the
// client returned targets instance 0 and the caller must log the fallback.
type PanelClients interface {
	XtreamUI(ctx context.Context, index int) (XtreamUIClient, config.XtreamUIPanelConfig, bool, error)
	XuiOne(ctx context.Context, index int) (XuiOneClient, config.XuiOnePanelConfig, bool, error)
}

// panelClientFactory builds real clients lazily and caches them per instance
// so the session cookie survives across calls within the process.
type panelClientFactory struct {
	cfg      config.PanelsConfig
	sessions session.Store
	logger   *logger.Logger

	mu       sync.Mutex
	xtreamui map[string]*xtreamui.Client
	xuione   map[string]*xuione.Client
}

func NewPanelClients(cfg config.PanelsConfig, sessions session.Store, log *logger.Logger) PanelClients {
	return &panelClientFactory{
		cfg:      cfg,
		sessions: sessions,
		logger:   log,
		xtreamui: make(map[string]*xtreamui.Client),
		xuione:   make(map[string]*xuione.Client),
	}
}

func (f *panelClientFactory) XtreamUI(ctx context.Context, index int) (XtreamUIClient, config.XtreamUIPanelConfig, bool, error) {
	panelCfg, ok, err := f.cfg.XtreamUIPanel(index)
	if err != nil {
		return nil, config.XtreamUIPanelConfig{}, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, exists := f.xtreamui[panelCfg.PanelURL]; exists {
		return client, panelCfg, ok, nil
	}
	client, err := xtreamui.NewClient(ctx, panelCfg, f.sessions, f.logger)
	if err != nil {
		return nil, panelCfg, ok, err
	}
	f.xtreamui[panelCfg.PanelURL] = client
	return client, panelCfg, ok, nil
}

func (f *panelClientFactory) XuiOne(ctx context.Context, index int) (XuiOneClient, config.XuiOnePanelConfig, bool, error) {
	panelCfg, ok, err := f.cfg.XuiOnePanel(index)
	if err != nil {
		return nil, config.XuiOnePanelConfig{}, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, exists := f.xuione[panelCfg.PanelURL]; exists {
		return client, panelCfg, ok, nil
	}
	client, err := xuione.NewClient(ctx, panelCfg, f.sessions, f.logger)
	if err != nil {
		return nil, panelCfg, ok, err
	}
	f.xuione[panelCfg.PanelURL] = client
	return client, panelCfg, ok, nil
}
