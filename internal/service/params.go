package service

import (
	"time"

	"github.com/streambill/streambill/internal/cache"
	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/credentials"
	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/customer"
	"github.com/streambill/streambill/internal/domain/importeduser"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/domain/order"
	"github.com/streambill/streambill/internal/domain/product"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/notification"
)

// ServiceParams bundles the dependencies every service needs. Each service
// picks what it uses; the struct exists so constructors stay stable as
// dependencies grow.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	Panels   PanelClients
	CredGen  *credentials.Generator
	Notifier notification.Notifier
	Cache    cache.Cache

	OrderRepo        order.Repository
	ProductRepo      product.Repository
	CustomerRepo     customer.Repository
	AccountRepo      account.Repository
	ImportedUserRepo importeduser.Repository
	LifecycleLogRepo lifecyclelog.Repository

	// Now is the clock; tests pin it.
	Now func() time.Time
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	panels PanelClients,
	credGen *credentials.Generator,
	notifier notification.Notifier,
	cache cache.Cache,
	orderRepo order.Repository,
	productRepo product.Repository,
	customerRepo customer.Repository,
	accountRepo account.Repository,
	importedUserRepo importeduser.Repository,
	lifecycleLogRepo lifecyclelog.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		Panels:           panels,
		CredGen:          credGen,
		Notifier:         notifier,
		Cache:            cache,
		OrderRepo:        orderRepo,
		ProductRepo:      productRepo,
		CustomerRepo:     customerRepo,
		AccountRepo:      accountRepo,
		ImportedUserRepo: importedUserRepo,
		LifecycleLogRepo: lifecycleLogRepo,
		Now:              time.Now,
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
