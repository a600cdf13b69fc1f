package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/panel/xtreamui"
	"github.com/streambill/streambill/internal/panel/xuione"
)

// PanelCall records one mutating call received by a panel double.
type PanelCall struct {
	Op       string
	Username string
	RemoteID string
	Package  string
	Credits  decimal.Decimal
}

// MockXtreamUIPanel is a recording double for the session panel family.
type MockXtreamUIPanel struct {
	mu     sync.Mutex
	nextID int

	Calls []PanelCall

	// FailNext, when set, fails the next mutating call with this error.
	FailNext error

	// AmbiguousExtends makes every extension report tentative success.
	AmbiguousExtends bool

	Packages []panel.Package
	Bouquets []panel.Bouquet
	Listing  []panel.RemoteAccount
	Reseller []panel.RemoteAccount
}

func NewMockXtreamUIPanel() *MockXtreamUIPanel {
	return &MockXtreamUIPanel{nextID: 100}
}

func (m *MockXtreamUIPanel) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *MockXtreamUIPanel) record(call PanelCall) {
	m.Calls = append(m.Calls, call)
}

// CallsFor filters recorded calls by operation name.
func (m *MockXtreamUIPanel) CallsFor(op string) []PanelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PanelCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockXtreamUIPanel) CreateSubscriber(_ context.Context, req xtreamui.CreateSubscriberRequest) (*panel.CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.nextID++
	m.record(PanelCall{Op: "create_subscriber", Username: req.Username, Package: req.PackageID})
	return &panel.CreateResult{RemoteUserID: strconv.Itoa(m.nextID), Username: req.Username}, nil
}

func (m *MockXtreamUIPanel) ExtendSubscriber(_ context.Context, req xtreamui.ExtendSubscriberRequest) (*panel.ExtendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.record(PanelCall{Op: "extend_subscriber", Username: req.Username, Package: req.PackageID})
	result := &panel.ExtendResult{RemoteUserID: "100"}
	if m.AmbiguousExtends {
		result.AmbiguityDetail = "panel expiry unchanged after extension"
	}
	return result, nil
}

func (m *MockXtreamUIPanel) SuspendSubscriber(_ context.Context, remoteID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.record(PanelCall{Op: "suspend", RemoteID: remoteID, Username: username})
	return nil
}

func (m *MockXtreamUIPanel) ActivateSubscriber(_ context.Context, remoteID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.record(PanelCall{Op: "activate", RemoteID: remoteID, Username: username})
	return nil
}

func (m *MockXtreamUIPanel) CreateReseller(_ context.Context, req xtreamui.CreateResellerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.record(PanelCall{Op: "create_reseller", Username: req.Username, Credits: req.Credits})
	return nil
}

func (m *MockXtreamUIPanel) AddCredits(_ context.Context, username string, credits decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.record(PanelCall{Op: "add_credits", Username: username, Credits: credits})
	return nil
}

func (m *MockXtreamUIPanel) ListSubscribers(context.Context) ([]panel.RemoteAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return m.Listing, nil
}

func (m *MockXtreamUIPanel) ListResellers(context.Context) ([]panel.RemoteAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reseller, nil
}

func (m *MockXtreamUIPanel) GetPackages(context.Context) ([]panel.Package, error) {
	return m.Packages, nil
}

func (m *MockXtreamUIPanel) GetTrialPackages(context.Context) ([]panel.Package, error) {
	return m.Packages, nil
}

func (m *MockXtreamUIPanel) GetBouquets(context.Context) ([]panel.Bouquet, error) {
	return m.Bouquets, nil
}

// MockXuiOnePanel is a recording double for the access-code panel family.
type MockXuiOnePanel struct {
	mu     sync.Mutex
	nextID int

	Calls    []PanelCall
	FailNext error

	Packages []panel.Package
	Lines    []panel.RemoteAccount
	Users    []panel.RemoteAccount
}

func NewMockXuiOnePanel() *MockXuiOnePanel {
	return &MockXuiOnePanel{nextID: 700}
}

func (m *MockXuiOnePanel) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *MockXuiOnePanel) CallsFor(op string) []PanelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PanelCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockXuiOnePanel) CreateLine(_ context.Context, req xuione.CreateLineRequest) (*panel.CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.nextID++
	m.Calls = append(m.Calls, PanelCall{Op: "create_line", Username: req.Username, Package: req.PackageID})
	return &panel.CreateResult{RemoteUserID: strconv.Itoa(m.nextID), Username: req.Username}, nil
}

func (m *MockXuiOnePanel) ExtendLine(_ context.Context, req xuione.ExtendLineRequest) (*panel.ExtendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.Calls = append(m.Calls, PanelCall{Op: "extend_line", RemoteID: req.RemoteUserID, Package: req.PackageID})
	return &panel.ExtendResult{RemoteUserID: req.RemoteUserID}, nil
}

func (m *MockXuiOnePanel) SuspendLine(_ context.Context, remoteID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.Calls = append(m.Calls, PanelCall{Op: "suspend", RemoteID: remoteID, Username: username})
	return nil
}

func (m *MockXuiOnePanel) ActivateLine(_ context.Context, remoteID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.Calls = append(m.Calls, PanelCall{Op: "activate", RemoteID: remoteID, Username: username})
	return nil
}

func (m *MockXuiOnePanel) CreateReseller(context.Context) error {
	return ierr.NewError("reseller accounts cannot be created on this panel family").
		Mark(ierr.ErrUnsupported)
}

func (m *MockXuiOnePanel) AdjustCredits(_ context.Context, remoteID string, credits decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.Calls = append(m.Calls, PanelCall{Op: "adjust_credits", RemoteID: remoteID, Credits: credits})
	return nil
}

func (m *MockXuiOnePanel) ListLines(context.Context) ([]panel.RemoteAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return m.Lines, nil
}

func (m *MockXuiOnePanel) ListUsers(context.Context) ([]panel.RemoteAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Users, nil
}

func (m *MockXuiOnePanel) GetPackages(context.Context) ([]panel.Package, error) {
	return m.Packages, nil
}

func (m *MockXuiOnePanel) GetTrialPackages(context.Context) ([]panel.Package, error) {
	return m.Packages, nil
}
