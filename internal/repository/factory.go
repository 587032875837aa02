package repository

import (
	"github.com/plexbill/plexbill/internal/domain/coupon"
	"github.com/plexbill/plexbill/internal/domain/invoice"
	"github.com/plexbill/plexbill/internal/domain/payment"
	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/domain/rule"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

func NewPlanRepository(client postgres.IClient, logger *logger.Logger) plan.Repository {
	return NewPlanRepo(client, logger)
}

func NewCouponRepository(client postgres.IClient, logger *logger.Logger) coupon.Repository {
	return NewCouponRepo(client, logger)
}

func NewRuleRepository(client postgres.IClient, logger *logger.Logger) rule.Repository {
	return NewRuleRepo(client, logger)
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return NewSubscriptionRepo(client, logger)
}

func NewCustomerRepository(client postgres.IClient, logger *logger.Logger) subscription.CustomerRepository {
	return NewCustomerRepo(client, logger)
}

func NewDowngradeRepository(client postgres.IClient, logger *logger.Logger) subscription.DowngradeRepository {
	return NewDowngradeRepo(client, logger)
}

func NewInvoiceRepository(client postgres.IClient, logger *logger.Logger) invoice.Repository {
	return NewInvoiceRepo(client, logger)
}

func NewPaymentRepository(client postgres.IClient, logger *logger.Logger) payment.Repository {
	return NewPaymentRepo(client, logger)
}
