// Package notification fans provisioning events out to customers and
// operators. Every sink is best effort: a failed notification is logged and
// never fails the operation that produced it.
package notification

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/logger"
)

// ServiceEvent describes a provisioned, renewed or expiring service for
// notification purposes.
type ServiceEvent struct {
	CustomerEmail string
	CustomerName  string
	ProductName   string
	Username      string
	Password      string
	StreamingURL  string
	PanelName     string
	ExpiryDate    *time.Time
	IsCreditTopUp bool
}

// FailureEvent describes a provisioning failure for operator alerting.
type FailureEvent struct {
	OrderNumber string
	ProductName string
	PanelName   string
	Reason      string
}

// Notifier is one delivery sink.
type Notifier interface {
	ServiceActivated(ctx context.Context, event ServiceEvent) error
	ServiceRenewed(ctx context.Context, event ServiceEvent) error
	ExpiryWarning(ctx context.Context, event ServiceEvent) error
	ProvisioningFailed(ctx context.Context, event FailureEvent) error
}

// Dispatcher fans events out to all configured sinks, swallowing and logging
// per-sink errors.
type Dispatcher struct {
	sinks  []Notifier
	logger *logger.Logger
}

func NewDispatcher(log *logger.Logger, sinks ...Notifier) *Dispatcher {
	return &Dispatcher{sinks: sinks, logger: log}
}

func (d *Dispatcher) ServiceActivated(ctx context.Context, event ServiceEvent) error {
	d.dispatch(ctx, "service_activated", func(n Notifier) error {
		return n.ServiceActivated(ctx, event)
	})
	return nil
}

func (d *Dispatcher) ServiceRenewed(ctx context.Context, event ServiceEvent) error {
	d.dispatch(ctx, "service_renewed", func(n Notifier) error {
		return n.ServiceRenewed(ctx, event)
	})
	return nil
}

func (d *Dispatcher) ExpiryWarning(ctx context.Context, event ServiceEvent) error {
	d.dispatch(ctx, "expiry_warning", func(n Notifier) error {
		return n.ExpiryWarning(ctx, event)
	})
	return nil
}

func (d *Dispatcher) ProvisioningFailed(ctx context.Context, event FailureEvent) error {
	d.dispatch(ctx, "provisioning_failed", func(n Notifier) error {
		return n.ProvisioningFailed(ctx, event)
	})
	return nil
}

func (d *Dispatcher) dispatch(_ context.Context, kind string, send func(Notifier) error) {
	for _, sink := range d.sinks {
		if err := send(sink); err != nil {
			d.logger.Warnw("notification delivery failed",
				"kind", kind, "error", err)
		}
	}
}

// Noop discards every event. Used when no sink is configured and in tests.
type Noop struct{}

func (Noop) ServiceActivated(context.Context, ServiceEvent) error   { return nil }
func (Noop) ServiceRenewed(context.Context, ServiceEvent) error     { return nil }
func (Noop) ExpiryWarning(context.Context, ServiceEvent) error      { return nil }
func (Noop) ProvisioningFailed(context.Context, FailureEvent) error { return nil }
