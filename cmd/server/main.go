package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/streambill/streambill/internal/api"
	v1 "github.com/streambill/streambill/internal/api/v1"
	"github.com/streambill/streambill/internal/cache"
	"github.com/streambill/streambill/internal/config"
	"github.com/streambill/streambill/internal/credentials"
	"github.com/streambill/streambill/internal/httpclient"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/notification"
	"github.com/streambill/streambill/internal/panel/session"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/repository"
	"github.com/streambill/streambill/internal/sentry"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/validator"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Panel access
			provideSessionStore,
			providePanelClients,
			credentials.NewGenerator,

			// Notifications
			provideNotifier,

			// Repositories
			repository.NewOrderRepository,
			repository.NewProductRepository,
			repository.NewCustomerRepository,
			repository.NewAccountRepository,
			repository.NewImportedUserRepository,
			repository.NewLifecycleLogRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewProvisioningService,
			service.NewOrderService,
			service.NewAccountService,
			service.NewLifecycleService,
			service.NewSyncService,
			service.NewCatalogService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			v1.NewHealthHandler,
			v1.NewOrderHandler,
			v1.NewServiceHandler,
			v1.NewCatalogHandler,
			v1.NewSyncHandler,
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideSessionStore(cfg *config.Configuration) (session.Store, error) {
	return session.NewFileStore(cfg.Sessions.Dir)
}

func providePanelClients(cfg *config.Configuration, sessions session.Store, log *logger.Logger) service.PanelClients {
	return service.NewPanelClients(cfg.Panels, sessions, log)
}

func provideNotifier(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) notification.Notifier {
	var sinks []notification.Notifier
	if cfg.Notifications.Email.Enabled {
		sinks = append(sinks, notification.NewEmailSink(cfg.Notifications.Email))
	}
	if cfg.Notifications.Chat.Enabled {
		sinks = append(sinks, notification.NewChatSink(client, cfg.Notifications.Chat))
	}
	return notification.NewDispatcher(log, sinks...)
}

func provideHandlers(
	health *v1.HealthHandler,
	order *v1.OrderHandler,
	svc *v1.ServiceHandler,
	catalog *v1.CatalogHandler,
	sync *v1.SyncHandler,
) api.Handlers {
	return api.Handlers{
		Health:  health,
		Order:   order,
		Service: svc,
		Catalog: catalog,
		Sync:    sync,
	}
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
