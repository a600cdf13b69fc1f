package service

import (
	"context"
	"fmt"
	"time"

	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/notification"
	"github.com/streambill/streambill/internal/types"
)

// rewarnInterval guards against duplicate expiry warnings when the sweep
// runs more often than once per interval.
const rewarnInterval = 12 * time.Hour

// LifecycleReport summarises one sweep run.
type LifecycleReport struct {
	Suspended int `json:"suspended"`
	Cancelled int `json:"cancelled"`
	Warned    int `json:"warned"`
	Failures  int `json:"failures"`
}

// LifecycleService runs the periodic housekeeping sweeps: suspend services
// past their expiry, cancel services that stayed suspended too long, and
// warn customers ahead of expiry.
type LifecycleService interface {
	RunSweeps(ctx context.Context) (*LifecycleReport, error)
	SuspendExpired(ctx context.Context) (int, int, error)
	CancelLongSuspended(ctx context.Context) (int, int, error)
	SendExpiryWarnings(ctx context.Context) (int, int, error)
}

type lifecycleService struct {
	ServiceParams
	accounts AccountService
}

func NewLifecycleService(params ServiceParams, accounts AccountService) LifecycleService {
	return &lifecycleService{ServiceParams: params, accounts: accounts}
}

func (s *lifecycleService) RunSweeps(ctx context.Context) (*LifecycleReport, error) {
	report := &LifecycleReport{}

	suspended, failures, err := s.SuspendExpired(ctx)
	if err != nil {
		return report, err
	}
	report.Suspended = suspended
	report.Failures += failures

	cancelled, failures, err := s.CancelLongSuspended(ctx)
	if err != nil {
		return report, err
	}
	report.Cancelled = cancelled
	report.Failures += failures

	warned, failures, err := s.SendExpiryWarnings(ctx)
	if err != nil {
		return report, err
	}
	report.Warned = warned
	report.Failures += failures

	s.Logger.Infow("lifecycle sweeps finished",
		"suspended", report.Suspended,
		"cancelled", report.Cancelled,
		"warned", report.Warned,
		"failures", report.Failures,
	)
	return report, nil
}

// SuspendExpired suspends every active service whose expiry has passed.
func (s *lifecycleService) SuspendExpired(ctx context.Context) (int, int, error) {
	now := s.now()
	expired, err := s.AccountRepo.List(ctx, &types.ServiceFilter{
		QueryFilter:   types.NewNoLimitQueryFilter(),
		Status:        types.ServiceStatusActive,
		ExpiringUntil: &now,
	})
	if err != nil {
		return 0, 0, err
	}

	var done, failures int
	for _, rec := range expired {
		if rec.ExpiryDate == nil || rec.IsCreditTopUp {
			continue
		}
		reason := fmt.Sprintf("expired %s", rec.ExpiryDate.Format("2006-01-02"))
		if err := s.accounts.SuspendService(ctx, rec.ID, reason, "lifecycle"); err != nil {
			failures++
			s.Logger.Errorw("failed to suspend expired service",
				"service_id", rec.ID, "error", err)
			continue
		}
		done++
	}
	return done, failures, nil
}

// CancelLongSuspended cancels services that have been suspended longer than
// the configured grace period. Their remote accounts are already disabled.
func (s *lifecycleService) CancelLongSuspended(ctx context.Context) (int, int, error) {
	cutoff := s.now().AddDate(0, 0, -s.Config.Lifecycle.CancelAfterSuspendedDays)
	stale, err := s.AccountRepo.List(ctx, &types.ServiceFilter{
		QueryFilter:         types.NewNoLimitQueryFilter(),
		Status:              types.ServiceStatusSuspended,
		SuspendedAtOrBefore: &cutoff,
	})
	if err != nil {
		return 0, 0, err
	}

	var done, failures int
	for _, rec := range stale {
		reason := fmt.Sprintf("suspended for over %d days", s.Config.Lifecycle.CancelAfterSuspendedDays)
		if err := s.accounts.CancelService(ctx, rec.ID, reason, "lifecycle"); err != nil {
			failures++
			s.Logger.Errorw("failed to cancel long-suspended service",
				"service_id", rec.ID, "error", err)
			continue
		}
		done++
	}
	return done, failures, nil
}

// SendExpiryWarnings notifies customers whose active services expire within
// the configured warning window. The lifecycle log doubles as the guard
// against re-warning the same service within rewarnInterval.
func (s *lifecycleService) SendExpiryWarnings(ctx context.Context) (int, int, error) {
	now := s.now()
	horizon := now.AddDate(0, 0, s.Config.Lifecycle.ExpiryWarningDays)
	expiring, err := s.AccountRepo.List(ctx, &types.ServiceFilter{
		QueryFilter:   types.NewNoLimitQueryFilter(),
		Status:        types.ServiceStatusActive,
		ExpiringUntil: &horizon,
	})
	if err != nil {
		return 0, 0, err
	}

	var warned, failures int
	for _, rec := range expiring {
		if rec.ExpiryDate == nil || rec.IsCreditTopUp || rec.ExpiryDate.Before(now) {
			continue
		}

		recent, err := s.LifecycleLogRepo.LastActionSince(ctx, rec.ID,
			types.LifecycleActionExpiryWarning, now.Add(-rewarnInterval))
		if err != nil {
			failures++
			continue
		}
		if recent != nil {
			continue
		}

		s.notifyExpiry(ctx, rec)
		s.logWarning(ctx, rec)
		warned++
	}
	return warned, failures, nil
}

func (s *lifecycleService) notifyExpiry(ctx context.Context, rec *account.Account) {
	event := notification.ServiceEvent{
		ProductName: rec.ProductName,
		Username:    rec.Username,
		PanelName:   rec.PanelName,
		ExpiryDate:  rec.ExpiryDate,
	}
	if cust, err := s.CustomerRepo.Get(ctx, rec.CustomerID); err == nil {
		event.CustomerEmail = cust.Email
		event.CustomerName = cust.Name
	}
	_ = s.Notifier.ExpiryWarning(ctx, event)
}

func (s *lifecycleService) logWarning(ctx context.Context, rec *account.Account) {
	entry := &lifecyclelog.Entry{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LIFECYCLE_LOG),
		ServiceID:   rec.ID,
		CustomerID:  rec.CustomerID,
		Action:      types.LifecycleActionExpiryWarning,
		Reason:      fmt.Sprintf("expires %s", rec.ExpiryDate.Format("2006-01-02")),
		TriggeredBy: "lifecycle",
		OldStatus:   rec.ServiceStatus,
		NewStatus:   rec.ServiceStatus,
		CreatedAt:   s.now(),
	}
	if err := s.LifecycleLogRepo.Create(ctx, entry); err != nil {
		s.Logger.Warnw("failed to record expiry warning",
			"service_id", rec.ID, "error", err)
	}
}
