package service

import (
	"context"
	"strconv"

	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/domain/order"
	"github.com/streambill/streambill/internal/domain/product"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/notification"
	"github.com/streambill/streambill/internal/panel/xtreamui"
	"github.com/streambill/streambill/internal/panel/xuione"
	"github.com/streambill/streambill/internal/types"
)

// ProvisioningService turns a paid order into remote panel accounts and local
// service records. Items within one order are processed strictly in sequence;
// a failed item is recorded and never blocks the items after it.
type ProvisioningService interface {
	ProvisionPaidOrder(ctx context.Context, ord *order.Order) error
}

type provisioningService struct {
	ServiceParams
}

func NewProvisioningService(params ServiceParams) ProvisioningService {
	return &provisioningService{ServiceParams: params}
}

func (s *provisioningService) ProvisionPaidOrder(ctx context.Context, ord *order.Order) error {
	if ord.PaymentStatus != types.OrderStatusPaid {
		return ierr.NewError("order is not paid").
			WithHint("Only paid orders can be provisioned").
			Mark(ierr.ErrInvalidOperation)
	}

	log := s.Logger.With("order_id", ord.ID, "order_number", ord.Number)
	log.Infow("provisioning order", "items", len(ord.Items))

	var failed int
	for i := range ord.Items {
		item := &ord.Items[i]
		if err := s.provisionItem(ctx, ord, item); err != nil {
			failed++
			log.Errorw("order item provisioning failed",
				"product_id", item.ProductID,
				"product_name", item.ProductName,
				"error", err,
			)
		}
	}

	log.Infow("order provisioning finished", "items", len(ord.Items), "failed", failed)
	return nil
}

// intent is the resolved plan for one line item.
type intent struct {
	action types.ProvisionAction
	// target is the existing service record for extend and top-up intents.
	target *account.Account
}

func (s *provisioningService) provisionItem(ctx context.Context, ord *order.Order, item *order.Item) error {
	prod, err := s.ProductRepo.Get(ctx, item.ProductID)
	if err != nil {
		return s.recordFailure(ctx, ord, item, nil, err)
	}

	plan, err := s.resolveIntent(ctx, ord, item, prod)
	if err != nil {
		return s.recordFailure(ctx, ord, item, prod, err)
	}

	switch plan.action {
	case types.ProvisionActionCreateSubscriber:
		err = s.createSubscriber(ctx, ord, item, prod)
	case types.ProvisionActionExtendSubscriber:
		err = s.extendSubscriber(ctx, ord, item, prod, plan.target)
	case types.ProvisionActionCreateReseller:
		err = s.createReseller(ctx, ord, item, prod)
	case types.ProvisionActionTopUpReseller:
		err = s.topUpReseller(ctx, ord, item, prod, plan.target)
	default:
		err = ierr.NewErrorf("unknown provisioning action %s", plan.action).
			Mark(ierr.ErrInternal)
	}

	if err != nil {
		return s.recordFailure(ctx, ord, item, prod, err)
	}
	return nil
}

// resolveIntent maps one line item to a provisioning action. An explicit
// renewal target always wins over the legacy action flag; the flag in turn
// falls back to the first active service matching customer and product, and
// a missing match degrades to a fresh creation. A repeat reseller purchase on
// the same panel instance becomes a credit top-up of the existing account.
func (s *provisioningService) resolveIntent(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product) (*intent, error) {
	if item.RenewalServiceID != "" {
		target, err := s.AccountRepo.Get(ctx, item.RenewalServiceID)
		if err != nil {
			return nil, err
		}
		if target.CustomerID != ord.CustomerID {
			return nil, ierr.NewError("renewal target belongs to another customer").
				Mark(ierr.ErrPermissionDenied)
		}
		if !target.IsExtendable() {
			return nil, ierr.NewErrorf("service %s is %s and cannot be extended",
				target.ID, target.ServiceStatus).
				Mark(ierr.ErrInvalidOperation)
		}
		if prod.AccountType == types.AccountTypeReseller {
			return &intent{action: types.ProvisionActionTopUpReseller, target: target}, nil
		}
		return &intent{action: types.ProvisionActionExtendSubscriber, target: target}, nil
	}

	if item.ActionType == types.OrderItemActionExtend {
		target, err := s.firstActiveService(ctx, ord.CustomerID, item.ProductID)
		if err != nil {
			return nil, err
		}
		if target != nil {
			if prod.AccountType == types.AccountTypeReseller {
				return &intent{action: types.ProvisionActionTopUpReseller, target: target}, nil
			}
			return &intent{action: types.ProvisionActionExtendSubscriber, target: target}, nil
		}
		s.Logger.Warnw("extend requested but no active service matches, creating instead",
			"order_id", ord.ID, "customer_id", ord.CustomerID, "product_id", item.ProductID)
	}

	if prod.AccountType == types.AccountTypeReseller {
		// A customer holds at most one reseller account per panel instance;
		// buying the product again tops up that account's credits.
		existing, err := s.activeResellerOnPanel(ctx, ord.CustomerID, prod.PanelFamily, prod.PanelIndex)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &intent{action: types.ProvisionActionTopUpReseller, target: existing}, nil
		}
		return &intent{action: types.ProvisionActionCreateReseller}, nil
	}

	return &intent{action: types.ProvisionActionCreateSubscriber}, nil
}

func (s *provisioningService) firstActiveService(ctx context.Context, customerID, productID string) (*account.Account, error) {
	matches, err := s.AccountRepo.List(ctx, &types.ServiceFilter{
		QueryFilter: types.NewDefaultQueryFilter(),
		CustomerID:  customerID,
		ProductID:   productID,
		Status:      types.ServiceStatusActive,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.IsExtendable() {
			return m, nil
		}
	}
	return nil, nil
}

func (s *provisioningService) activeResellerOnPanel(ctx context.Context, customerID string, family types.PanelFamily, index int) (*account.Account, error) {
	matches, err := s.AccountRepo.List(ctx, &types.ServiceFilter{
		QueryFilter: types.NewDefaultQueryFilter(),
		CustomerID:  customerID,
		AccountType: types.AccountTypeReseller,
		Status:      types.ServiceStatusActive,
		PanelFamily: family,
		PanelIndex:  &index,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if !m.IsCreditTopUp {
			return m, nil
		}
	}
	return nil, nil
}

func (s *provisioningService) createSubscriber(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product) error {
	username, password := s.CredGen.NewPair()
	now := s.now()
	days := prod.DurationDays(item.TermMonths)
	packageID := strconv.Itoa(prod.RemotePackageID)
	note := "order " + ord.Number

	rec := s.newAccountRecord(ctx, ord, item, prod)
	rec.Username = username
	rec.Password = password

	switch prod.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, panelCfg, err := s.xtreamuiClient(ctx, prod)
		if err != nil {
			return err
		}
		rec.PanelName = panelCfg.Name
		result, err := client.CreateSubscriber(ctx, xtreamui.CreateSubscriberRequest{
			Username:       username,
			Password:       password,
			PackageID:      packageID,
			Bouquets:       prod.Bouquets,
			MaxConnections: prod.MaxConnections,
			Note:           note,
		})
		if err != nil {
			return err
		}
		rec.RemoteUserID = result.RemoteUserID

	case types.PanelFamilyXuiOne:
		client, panelCfg, err := s.xuioneClient(ctx, prod)
		if err != nil {
			return err
		}
		rec.PanelName = panelCfg.Name
		result, err := client.CreateLine(ctx, xuione.CreateLineRequest{
			Username:       username,
			Password:       password,
			PackageID:      packageID,
			Bouquets:       prod.Bouquets,
			MaxConnections: prod.MaxConnections,
			Note:           note,
			Trial:          prod.IsTrial,
		})
		if err != nil {
			return err
		}
		rec.RemoteUserID = result.RemoteUserID

	default:
		return ierr.NewErrorf("product %s references unknown panel family %s", prod.ID, prod.PanelFamily).
			Mark(ierr.ErrConfiguration)
	}

	expiry := account.NextExpiry(nil, now, days)
	rec.ServiceStatus = types.ServiceStatusActive
	rec.ActivatedAt = &now
	rec.ExpiryDate = &expiry

	if err := s.AccountRepo.Create(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionProvision, "order "+ord.Number, "system",
		types.ServiceStatusPending, types.ServiceStatusActive)
	s.notifyService(ctx, rec, notification.Notifier.ServiceActivated)
	return nil
}

func (s *provisioningService) extendSubscriber(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product, target *account.Account) error {
	now := s.now()
	days := prod.DurationDays(item.TermMonths)
	packageID := strconv.Itoa(prod.RemotePackageID)

	switch target.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, _, err := s.xtreamuiClient(ctx, prod)
		if err != nil {
			return err
		}
		result, err := client.ExtendSubscriber(ctx, xtreamui.ExtendSubscriberRequest{
			Username:       target.Username,
			Password:       target.Password,
			PackageID:      packageID,
			Bouquets:       prod.Bouquets,
			MaxConnections: target.MaxConnections,
			Note:           "order " + ord.Number,
		})
		if err != nil {
			return err
		}
		if result.Ambiguous() {
			s.Logger.Warnw("extension applied without positive confirmation",
				"service_id", target.ID, "detail", result.AmbiguityDetail)
		}

	case types.PanelFamilyXuiOne:
		client, _, err := s.xuioneClient(ctx, prod)
		if err != nil {
			return err
		}
		if _, err := client.ExtendLine(ctx, xuione.ExtendLineRequest{
			RemoteUserID: target.RemoteUserID,
			Username:     target.Username,
			PackageID:    packageID,
		}); err != nil {
			return err
		}

	default:
		return ierr.NewErrorf("service %s references unknown panel family %s", target.ID, target.PanelFamily).
			Mark(ierr.ErrConfiguration)
	}

	newExpiry := account.NextExpiry(target.ExpiryDate, now, days)
	if err := s.AccountRepo.ExtendExpiry(ctx, target.ID, target.ExpiryDate, newExpiry, item.TermMonths); err != nil {
		if ierr.IsVersionConflict(err) {
			// The remote extension went through but another writer moved the
			// local expiry first. Surface loudly so an operator reconciles.
			s.Logger.Errorw("expiry conflict after remote extension",
				"service_id", target.ID, "order_id", ord.ID)
		}
		return err
	}

	target.ExpiryDate = &newExpiry
	s.logLifecycle(ctx, target, types.LifecycleActionExtend, "order "+ord.Number, "system",
		types.ServiceStatusActive, types.ServiceStatusActive)
	s.notifyService(ctx, target, notification.Notifier.ServiceRenewed)
	return nil
}

func (s *provisioningService) createReseller(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product) error {
	if prod.PanelFamily == types.PanelFamilyXuiOne {
		client, _, err := s.xuioneClient(ctx, prod)
		if err != nil {
			return err
		}
		// Fails fast before any remote call.
		return client.CreateReseller(ctx)
	}

	username, password := s.CredGen.NewPair()
	if ord.ResellerCredentials != nil {
		username = ord.ResellerCredentials.Username
		password = ord.ResellerCredentials.Password
	}

	var email string
	if cust, err := s.CustomerRepo.Get(ctx, ord.CustomerID); err == nil {
		email = cust.Email
	}

	client, panelCfg, err := s.xtreamuiClient(ctx, prod)
	if err != nil {
		return err
	}
	if err := client.CreateReseller(ctx, xtreamui.CreateResellerRequest{
		Username: username,
		Password: password,
		Email:    email,
		Credits:  prod.ResellerCredits,
		MaxLines: prod.ResellerMaxLines,
	}); err != nil {
		return err
	}

	now := s.now()
	rec := s.newAccountRecord(ctx, ord, item, prod)
	rec.Username = username
	rec.Password = password
	rec.PanelName = panelCfg.Name
	rec.ResellerCredits = prod.ResellerCredits
	rec.ResellerMaxLines = prod.ResellerMaxLines
	rec.ServiceStatus = types.ServiceStatusActive
	rec.ActivatedAt = &now

	if err := s.AccountRepo.Create(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionProvision, "order "+ord.Number, "system",
		types.ServiceStatusPending, types.ServiceStatusActive)
	s.notifyService(ctx, rec, notification.Notifier.ServiceActivated)
	return nil
}

func (s *provisioningService) topUpReseller(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product, target *account.Account) error {
	switch target.PanelFamily {
	case types.PanelFamilyXtreamUI:
		client, _, err := s.xtreamuiClient(ctx, prod)
		if err != nil {
			return err
		}
		if err := client.AddCredits(ctx, target.Username, prod.ResellerCredits); err != nil {
			return err
		}
	case types.PanelFamilyXuiOne:
		client, _, err := s.xuioneClient(ctx, prod)
		if err != nil {
			return err
		}
		if err := client.AdjustCredits(ctx, target.RemoteUserID, prod.ResellerCredits); err != nil {
			return err
		}
	default:
		return ierr.NewErrorf("service %s references unknown panel family %s", target.ID, target.PanelFamily).
			Mark(ierr.ErrConfiguration)
	}

	// The running balance lives on the original reseller record.
	target.ResellerCredits = target.ResellerCredits.Add(prod.ResellerCredits)
	if err := s.AccountRepo.Update(ctx, target); err != nil {
		return err
	}

	// A separate top-up record keeps the purchase history auditable without
	// pretending a second remote account exists.
	now := s.now()
	rec := s.newAccountRecord(ctx, ord, item, prod)
	rec.Username = target.Username
	rec.Password = target.Password
	rec.RemoteUserID = target.RemoteUserID
	rec.PanelName = target.PanelName
	rec.ResellerCredits = prod.ResellerCredits
	rec.IsCreditTopUp = true
	rec.ServiceStatus = types.ServiceStatusActive
	rec.ActivatedAt = &now

	if err := s.AccountRepo.Create(ctx, rec); err != nil {
		return err
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionProvision, "credit top-up, order "+ord.Number, "system",
		types.ServiceStatusPending, types.ServiceStatusActive)
	s.notifyService(ctx, rec, notification.Notifier.ServiceActivated)
	return nil
}

// recordFailure persists a failed service record with the adapter error
// preserved verbatim, alerts operators, and reports the original error.
func (s *provisioningService) recordFailure(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product, cause error) error {
	rec := s.newAccountRecord(ctx, ord, item, prod)
	rec.ServiceStatus = types.ServiceStatusFailed
	rec.LastError = cause.Error()

	if err := s.AccountRepo.Create(ctx, rec); err != nil {
		s.Logger.Errorw("failed to persist failed service record",
			"order_id", ord.ID, "product_id", item.ProductID, "error", err)
	}
	s.logLifecycle(ctx, rec, types.LifecycleActionProvision, cause.Error(), "system",
		types.ServiceStatusPending, types.ServiceStatusFailed)

	_ = s.Notifier.ProvisioningFailed(ctx, notification.FailureEvent{
		OrderNumber: ord.Number,
		ProductName: item.ProductName,
		PanelName:   rec.PanelName,
		Reason:      cause.Error(),
	})
	return cause
}

func (s *provisioningService) newAccountRecord(ctx context.Context, ord *order.Order, item *order.Item, prod *product.Product) *account.Account {
	rec := &account.Account{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		CustomerID:  ord.CustomerID,
		OrderID:     ord.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		AccountType: item.AccountType,
		TermMonths:  item.TermMonths,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if prod != nil {
		rec.PanelFamily = prod.PanelFamily
		rec.PanelIndex = prod.PanelIndex
		rec.Bouquets = prod.Bouquets
		rec.MaxConnections = prod.MaxConnections
		rec.ResellerMaxLines = prod.ResellerMaxLines
	}
	return rec
}

func (s *provisioningService) xtreamuiClient(ctx context.Context, prod *product.Product) (XtreamUIClient, config.XtreamUIPanelConfig, error) {
	client, panelCfg, ok, err := s.Panels.XtreamUI(ctx, prod.PanelIndex)
	if err != nil {
		return nil, panelCfg, ierr.WithError(err).
			WithHintf("No usable panel instance for product %s", prod.ID).
			Mark(ierr.ErrConfiguration)
	}
	if !ok {
		s.Logger.Warnw("panel index out of range, falling back to instance 0",
			"product_id", prod.ID, "panel_index", prod.PanelIndex, "panel_family", prod.PanelFamily)
	}
	return client, panelCfg, nil
}

func (s *provisioningService) xuioneClient(ctx context.Context, prod *product.Product) (XuiOneClient, config.XuiOnePanelConfig, error) {
	client, panelCfg, ok, err := s.Panels.XuiOne(ctx, prod.PanelIndex)
	if err != nil {
		return nil, panelCfg, ierr.WithError(err).
			WithHintf("No usable panel instance for product %s", prod.ID).
			Mark(ierr.ErrConfiguration)
	}
	if !ok {
		s.Logger.Warnw("panel index out of range, falling back to instance 0",
			"product_id", prod.ID, "panel_index", prod.PanelIndex, "panel_family", prod.PanelFamily)
	}
	return client, panelCfg, nil
}

func (s *provisioningService) logLifecycle(ctx context.Context, rec *account.Account, action types.LifecycleAction, reason, actor string, oldStatus, newStatus types.ServiceStatus) {
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

// notifyService resolves the customer and delivers one service event.
func (s *provisioningService) notifyService(ctx context.Context, rec *account.Account, deliver func(notification.Notifier, context.Context, notification.ServiceEvent) error) {
	event := notification.ServiceEvent{
		ProductName:   rec.ProductName,
		Username:      rec.Username,
		Password:      rec.Password,
		PanelName:     rec.PanelName,
		ExpiryDate:    rec.ExpiryDate,
		IsCreditTopUp: rec.IsCreditTopUp,
	}
	if cust, err := s.CustomerRepo.Get(ctx, rec.CustomerID); err == nil {
		event.CustomerEmail = cust.Email
		event.CustomerName = cust.Name
	}
	if rec.PanelFamily == types.PanelFamilyXtreamUI {
		if panelCfg, _, err := s.Config.Panels.XtreamUIPanel(rec.PanelIndex); err == nil {
			event.StreamingURL = panelCfg.StreamingURL
		}
	}
	_ = deliver(s.Notifier, ctx, event)
}
