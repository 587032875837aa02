package service

import (
	"github.com/plexbill/plexbill/internal/cache"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/domain/coupon"
	"github.com/plexbill/plexbill/internal/domain/invoice"
	"github.com/plexbill/plexbill/internal/domain/payment"
	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/domain/rule"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Tasks  TaskRunner

	// Repositories
	PlanRepo      plan.Repository
	CouponRepo    coupon.Repository
	RuleRepo      rule.Repository
	SubRepo       subscription.Repository
	CustomerRepo  subscription.CustomerRepository
	DowngradeRepo subscription.DowngradeRepository
	InvoiceRepo   invoice.Repository
	PaymentRepo   payment.Repository

	// Provider gateways
	Gateways integration.Factory
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	tasks TaskRunner,
	planRepo plan.Repository,
	couponRepo coupon.Repository,
	ruleRepo rule.Repository,
	subRepo subscription.Repository,
	customerRepo subscription.CustomerRepository,
	downgradeRepo subscription.DowngradeRepository,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	gateways integration.Factory,
) ServiceParams {
	return ServiceParams{
		Logger:        logger,
		Config:        config,
		DB:            db,
		Cache:         cache,
		Tasks:         tasks,
		PlanRepo:      planRepo,
		CouponRepo:    couponRepo,
		RuleRepo:      ruleRepo,
		SubRepo:       subRepo,
		CustomerRepo:  customerRepo,
		DowngradeRepo: downgradeRepo,
		InvoiceRepo:   invoiceRepo,
		PaymentRepo:   paymentRepo,
		Gateways:      gateways,
	}
}
