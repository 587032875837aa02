package testutil

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/cache"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/domain/coupon"
	"github.com/plexbill/plexbill/internal/domain/invoice"
	"github.com/plexbill/plexbill/internal/domain/payment"
	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/domain/rule"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PlanRepo      plan.Repository
	CouponRepo    coupon.Repository
	RuleRepo      rule.Repository
	SubRepo       subscription.Repository
	CustomerRepo  subscription.CustomerRepository
	DowngradeRepo subscription.DowngradeRepository
	InvoiceRepo   invoice.Repository
	PaymentRepo   payment.Repository

	// Concrete handles for call-count assertions
	Rules *InMemoryRuleStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	var err error
	s.logger, err = logger.NewLogger()
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	s.config = config.GetDefaultConfig()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.Initialize(s.config, s.logger)
	s.cache.Flush(s.ctx)
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, "user_test")
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	rules := NewInMemoryRuleStore()
	s.stores = Stores{
		PlanRepo:      NewInMemoryPlanStore(),
		CouponRepo:    NewInMemoryCouponStore(),
		RuleRepo:      rules,
		SubRepo:       NewInMemorySubscriptionStore(),
		CustomerRepo:  NewInMemoryCustomerStore(),
		DowngradeRepo: NewInMemoryDowngradeStore(),
		InvoiceRepo:   NewInMemoryInvoiceStore(),
		PaymentRepo:   NewInMemoryPaymentStore(),
		Rules:         rules,
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock db client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the cache store
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
