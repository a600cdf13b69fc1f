package testutil

import (
	"context"
	"sync"

	"github.com/streambill/streambill/internal/notification"
)

// MockNotifier records every notification event for assertions.
type MockNotifier struct {
	mu sync.Mutex

	Activated []notification.ServiceEvent
	Renewed   []notification.ServiceEvent
	Warnings  []notification.ServiceEvent
	Failures  []notification.FailureEvent
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) ServiceActivated(_ context.Context, event notification.ServiceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activated = append(m.Activated, event)
	return nil
}

func (m *MockNotifier) ServiceRenewed(_ context.Context, event notification.ServiceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Renewed = append(m.Renewed, event)
	return nil
}

func (m *MockNotifier) ExpiryWarning(_ context.Context, event notification.ServiceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warnings = append(m.Warnings, event)
	return nil
}

func (m *MockNotifier) ProvisioningFailed(_ context.Context, event notification.FailureEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, event)
	return nil
}
