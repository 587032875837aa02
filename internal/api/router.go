package api

import (
	"github.com/gin-gonic/gin"
	"github.com/plexbill/plexbill/internal/api/cron"
	v1 "github.com/plexbill/plexbill/internal/api/v1"
	"github.com/plexbill/plexbill/internal/rest/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Plan         *v1.PlanHandler
	Coupon       *v1.CouponHandler
	Rule         *v1.RuleHandler
	Subscription *v1.SubscriptionHandler
	Webhook      *v1.WebhookHandler
	CronSub      *cron.SubscriptionCronHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	// Provider webhooks sit outside the versioned API and behind a limiter
	webhooks := router.Group("/webhook", middleware.RateLimiter(rate.Limit(50), 100))
	{
		webhooks.POST("/razorpay/capture", handlers.Webhook.CaptureRazorpay)
		webhooks.POST("/paddle/capture", handlers.Webhook.CapturePaddle)
	}

	// Cron routes invoked by the scheduler
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/subscriptions/downgrade-trials", handlers.CronSub.DowngradeExpiredTrials)
	}

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Plan routes
	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.PUT("/:id", handlers.Plan.UpdatePlan)
		plans.DELETE("/:id", handlers.Plan.DeletePlan)

		plans.POST("/:id/rules", handlers.Rule.AddRuleToPlan)
		plans.GET("/:id/rules", handlers.Rule.GetPlanRules)
		plans.DELETE("/:id/rules/:rule_id", handlers.Rule.RemoveRuleFromPlan)
	}

	// Coupon routes
	coupons := router.Group("/coupons")
	{
		coupons.POST("", handlers.Coupon.CreateCoupon)
		coupons.GET("", handlers.Coupon.ListCoupons)
		coupons.GET("/:id", handlers.Coupon.GetCoupon)
		coupons.DELETE("/:id", handlers.Coupon.DeactivateCoupon)
	}

	// Rule routes
	rules := router.Group("/rules")
	{
		rules.POST("", handlers.Rule.CreateRule)
		rules.GET("", handlers.Rule.ListRules)
	}

	// Subscription routes
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.POST("/upgrade", handlers.Subscription.UpgradeSubscription)
		subscriptions.POST("/unsubscribe", handlers.Subscription.Unsubscribe)
		subscriptions.GET("/current", handlers.Subscription.GetCurrentSubscription)
	}
}
