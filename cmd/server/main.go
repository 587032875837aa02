package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/plexbill/plexbill/internal/api"
	"github.com/plexbill/plexbill/internal/api/cron"
	v1 "github.com/plexbill/plexbill/internal/api/v1"
	"github.com/plexbill/plexbill/internal/cache"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/httpclient"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
	pubsubRouter "github.com/plexbill/plexbill/internal/pubsub/router"
	"github.com/plexbill/plexbill/internal/repository"
	"github.com/plexbill/plexbill/internal/sentry"
	"github.com/plexbill/plexbill/internal/service"
	"github.com/plexbill/plexbill/internal/validator"
	"github.com/plexbill/plexbill/internal/webhook"
	"github.com/plexbill/plexbill/internal/webhook/handler"
	"github.com/plexbill/plexbill/internal/webhook/publisher"
	"go.uber.org/fx"
)

// @title PlexBill API
// @version 1.0
// @description Billing and subscription service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	_ = godotenv.Load()
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
			cache.Initialize,

			// Postgres
			postgres.NewDB,
			postgres.NewClient,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Provider gateways
			provideGatewayFactory,

			// Repositories
			repository.NewPlanRepository,
			repository.NewCouponRepository,
			repository.NewRuleRepository,
			repository.NewSubscriptionRepository,
			repository.NewCustomerRepository,
			repository.NewDowngradeRepository,
			repository.NewInvoiceRepository,
			repository.NewPaymentRepository,

			// PubSub
			pubsubRouter.NewRouter,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewTaskRunner,
			service.NewServiceParams,

			service.NewPlanService,
			service.NewCouponService,
			service.NewEntitlementService,
			service.NewSubscriptionService,
			provideWebhookService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideGatewayFactory registers both configured gateways. fx cannot feed a
// variadic constructor, so the two gateways are named here.
func provideGatewayFactory(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) integration.Factory {
	return integration.NewFactory(
		integration.NewRazorpayGateway(cfg, client, log),
		integration.NewPaddleGateway(cfg, client, log),
	)
}

func provideWebhookService(params service.ServiceParams, entitlements service.EntitlementService) service.WebhookService {
	return service.NewWebhookService(params, entitlements)
}

func provideHandlers(
	logger *logger.Logger,
	planService service.PlanService,
	couponService service.CouponService,
	entitlementService service.EntitlementService,
	subscriptionService service.SubscriptionService,
	eventPublisher publisher.EventPublisher,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(logger),
		Plan:         v1.NewPlanHandler(planService, logger),
		Coupon:       v1.NewCouponHandler(couponService, logger),
		Rule:         v1.NewRuleHandler(entitlementService, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Webhook:      v1.NewWebhookHandler(eventPublisher, logger),
		CronSub:      cron.NewSubscriptionCronHandler(subscriptionService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	eventHandler handler.Handler,
	entitlementService service.EntitlementService,
	log *logger.Logger,
) {
	startAPIServer(lc, r, cfg, log)
	startMessageRouter(lc, router, eventHandler, log)
	warmEntitlementCache(lc, entitlementService, log)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
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

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	eventHandler handler.Handler,
	log *logger.Logger,
) {
	eventHandler.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting message router...")
			go func() {
				if err := router.Run(); err != nil {
					log.Errorw("message router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}

// warmEntitlementCache rebuilds every plan rule cache entry on boot so reads
// do not pay the store round trip after a restart.
func warmEntitlementCache(
	lc fx.Lifecycle,
	entitlementService service.EntitlementService,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := entitlementService.RebuildAll(context.Background()); err != nil {
					log.Errorw("entitlement cache warmup failed", "error", err)
				}
			}()
			return nil
		},
	})
}
