package service

import (
	"context"
	"strconv"

	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel/xtreamui"
	"github.com/streambill/streambill/internal/panel/xuione"
	"github.com/streambill/streambill/internal/types"
)

// AccountService exposes lifecycle operations on provisioned services. Every
// remote-state mutation goes through the owning panel adapter first and only
// then updates the local record, so the local mirror never races ahead of
// the panel.
type AccountService interface {
	GetService(ctx context.Context, id string) (*account.Account, error)
	ListServices(ctx context.Context, filter *types.ServiceFilter) ([]*account.Account, error)
	ServiceHistory(ctx context.Context, id string) ([]*lifecyclelog.Entry, error)

	SuspendService(ctx context.Context, id, reason, actor string) error
	ActivateService(ctx context.Context, id, reason, actor string) error
	CancelService(ctx context.Context, id, reason, actor string) error
	RefundService(ctx context.Context, id, reason, actor string) error

	// ExtendService adds termMonths of runtime to an active service using the
	// given remote package. Admin counterpart of order-driven renewals.
	ExtendService(ctx context.Context, id string, remotePackageID, termMonths int, reason, actor string) error
}

type accountService struct {
	ServiceParams
}

func NewAccountService(params ServiceParams) AccountService {
	return &accountService{ServiceParams: params}
}

func (s *accountService) GetService(ctx context.Context, id string) (*account.Account, error) {
	return s.AccountRepo.Get(ctx, id)
}

func (s *accountService) ListServices(ctx context.Context, filter *types.ServiceFilter) ([]*account.Account, error) {
	if filter == nil {
		filter = &types.ServiceFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	return s.AccountRepo.List(ctx, filter)
}

func (s *accountService) ServiceHistory(ctx context.Context, id string) ([]*lifecyclelog.Entry, error) {
	if _, err := s.AccountRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.LifecycleLogRepo.ListByService(ctx, id)
}

func (s *accountService) SuspendService(ctx context.Context, id, reason, actor string) error {
	rec, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.ServiceStatus != types.ServiceStatusActive {
		return ierr.NewErrorf("service %s is %s, not active", rec.ID, rec.ServiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.disableRemote(ctx, rec); err != nil {
		return err
	}

	now := s.now()
	old := rec.ServiceStatus
	rec.ServiceStatus = types.ServiceStatusSuspended
	rec.SuspendedAt = &now
	if err := s.AccountRepo.Update(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionSuspend, reason, actor, old, rec.ServiceStatus)
	return nil
}

func (s *accountService) ActivateService(ctx context.Context, id, reason, actor string) error {
	rec, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.ServiceStatus != types.ServiceStatusSuspended {
		return ierr.NewErrorf("service %s is %s, not suspended", rec.ID, rec.ServiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.enableRemote(ctx, rec); err != nil {
		return err
	}

	old := rec.ServiceStatus
	rec.ServiceStatus = types.ServiceStatusActive
	rec.SuspendedAt = nil
	if err := s.AccountRepo.Update(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionActivate, reason, actor, old, rec.ServiceStatus)
	return nil
}

func (s *accountService) CancelService(ctx context.Context, id, reason, actor string) error {
	rec, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch rec.ServiceStatus {
	case types.ServiceStatusCancelled, types.ServiceStatusRefunded:
		return ierr.NewErrorf("service %s is already %s", rec.ID, rec.ServiceStatus).
			Mark(ierr.ErrInvalidOperation)
	case types.ServiceStatusActive:
		// Suspended and failed services have nothing left to disable.
		if err := s.disableRemote(ctx, rec); err != nil {
			return err
		}
	}

	now := s.now()
	old := rec.ServiceStatus
	rec.ServiceStatus = types.ServiceStatusCancelled
	rec.CancelledAt = &now
	if err := s.AccountRepo.Update(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionCancel, reason, actor, old, rec.ServiceStatus)
	return nil
}

func (s *accountService) RefundService(ctx context.Context, id, reason, actor string) error {
	rec, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.ServiceStatus == types.ServiceStatusRefunded {
		return ierr.NewErrorf("service %s is already refunded", rec.ID).
			Mark(ierr.ErrInvalidOperation)
	}

	if rec.ServiceStatus == types.ServiceStatusActive {
		if err := s.disableRemote(ctx, rec); err != nil {
			return err
		}
	}

	now := s.now()
	old := rec.ServiceStatus
	rec.ServiceStatus = types.ServiceStatusRefunded
	rec.CancelledAt = &now
	if err := s.AccountRepo.Update(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionRefund, reason, actor, old, rec.ServiceStatus)
	return nil
}

func (s *accountService) ExtendService(ctx context.Context, id string, remotePackageID, termMonths int, reason, actor string) error {
	rec, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rec.IsExtendable() {
		return ierr.NewErrorf("service %s is %s and cannot be extended", rec.ID, rec.ServiceStatus).
			WithHint("Only active services can be extended").
			Mark(ierr.ErrInvalidOperation)
	}
	if termMonths < 1 {
		termMonths = 1
	}
	packageID := strconv.Itoa(remotePackageID)

	switch rec.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, _, err := s.panelClient(ctx, rec)
		if err != nil {
			return err
		}
		result, err := client.ExtendSubscriber(ctx, xtreamui.ExtendSubscriberRequest{
			Username:       rec.Username,
			Password:       rec.Password,
			PackageID:      packageID,
			Bouquets:       rec.Bouquets,
			MaxConnections: rec.MaxConnections,
			Note:           reason,
		})
		if err != nil {
			return err
		}
		if result.Ambiguous() {
			s.Logger.Warnw("extension applied without positive confirmation",
				"service_id", rec.ID, "detail", result.AmbiguityDetail)
		}
	case types.PanelFamilyXuiOne:
		client, err := s.xuionePanelClient(ctx, rec)
		if err != nil {
			return err
		}
		if _, err := client.ExtendLine(ctx, xuione.ExtendLineRequest{
			RemoteUserID: rec.RemoteUserID,
			Username:     rec.Username,
			PackageID:    packageID,
		}); err != nil {
			return err
		}
	default:
		return ierr.NewErrorf("service %s references unknown panel family %s", rec.ID, rec.PanelFamily).
			Mark(ierr.ErrConfiguration)
	}

	now := s.now()
	newExpiry := account.NextExpiry(rec.ExpiryDate, now, termMonths*types.DaysPerTermMonth)
	if err := s.AccountRepo.ExtendExpiry(ctx, rec.ID, rec.ExpiryDate, newExpiry, termMonths); err != nil {
		if ierr.IsVersionConflict(err) {
			s.Logger.Errorw("expiry conflict after remote extension",
				"service_id", rec.ID, "actor", actor)
		}
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionExtend, reason, actor,
		rec.ServiceStatus, rec.ServiceStatus)
	return nil
}

func (s *accountService) disableRemote(ctx context.Context, rec *account.Account) error {
	if rec.IsCreditTopUp {
		// Top-up records document a purchase, not a remote account.
		return nil
	}
	switch rec.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, _, err := s.panelClient(ctx, rec)
		if err != nil {
			return err
		}
		return client.SuspendSubscriber(ctx, rec.RemoteUserID, rec.Username)
	case types.PanelFamilyXuiOne:
		client, err := s.xuionePanelClient(ctx, rec)
		if err != nil {
			return err
		}
		return client.SuspendLine(ctx, rec.RemoteUserID, rec.Username)
	}
	return ierr.NewErrorf("service %s references unknown panel family %s", rec.ID, rec.PanelFamily).
		Mark(ierr.ErrConfiguration)
}

func (s *accountService) enableRemote(ctx context.Context, rec *account.Account) error {
	if rec.IsCreditTopUp {
		return nil
	}
	switch rec.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, _, err := s.panelClient(ctx, rec)
		if err != nil {
			return err
		}
		return client.ActivateSubscriber(ctx, rec.RemoteUserID, rec.Username)
	case types.PanelFamilyXuiOne:
		client, err := s.xuionePanelClient(ctx, rec)
		if err != nil {
			return err
		}
		return client.ActivateLine(ctx, rec.RemoteUserID, rec.Username)
	}
	return ierr.NewErrorf("service %s references unknown panel family %s", rec.ID, rec.PanelFamily).
		Mark(ierr.ErrConfiguration)
}

func (s *accountService) panelClient(ctx context.Context, rec *account.Account) (XtreamUIClient, bool, error) {
	client, _, ok, err := s.Panels.XtreamUI(ctx, rec.PanelIndex)
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHintf("No usable panel instance for service %s", rec.ID).
			Mark(ierr.ErrConfiguration)
	}
	if !ok {
		s.Logger.Warnw("panel index out of range, falling back to instance 0",
			"service_id", rec.ID, "panel_index", rec.PanelIndex)
	}
	return client, ok, nil
}

func (s *accountService) xuionePanelClient(ctx context.Context, rec *account.Account) (XuiOneClient, error) {
	client, _, ok, err := s.Panels.XuiOne(ctx, rec.PanelIndex)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("No usable panel instance for service %s", rec.ID).
			Mark(ierr.ErrConfiguration)
	}
	if !ok {
		s.Logger.Warnw("panel index out of range, falling back to instance 0",
			"service_id", rec.ID, "panel_index", rec.PanelIndex)
	}
	return client, nil
}

func (s *accountService) logLifecycle(ctx context.Context, rec *account.Account, action types.LifecycleAction, reason, actor string, oldStatus, newStatus types.ServiceStatus) {
	entry := &lifecyclelog.Entry{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LIFECYCLE_LOG),
		ServiceID:   rec.ID,
		CustomerID:  rec.CustomerID,
		Action:      action,
		Reason:      reason,
		TriggeredBy: actor,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		CreatedAt:   s.now(),
	}
	if err := s.LifecycleLogRepo.Create(ctx, entry); err != nil {
		s.Logger.Warnw("failed to write lifecycle log entry",
			"service_id", rec.ID, "action", action, "error", err)
	}
}
