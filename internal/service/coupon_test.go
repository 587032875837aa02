package service

import (
	"testing"
	"time"

	"github.com/plexbill/plexbill/internal/api/dto"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/testutil"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CouponServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CouponService
}

func TestCouponService(t *testing.T) {
	suite.Run(t, new(CouponServiceSuite))
}

func (s *CouponServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCouponService(s.newParams())
}

func (s *CouponServiceSuite) newParams() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:        s.GetLogger(),
		Config:        s.GetConfig(),
		DB:            s.GetDB(),
		Cache:         s.GetCache(),
		Tasks:         testutil.NewSyncTaskRunner(),
		PlanRepo:      stores.PlanRepo,
		CouponRepo:    stores.CouponRepo,
		RuleRepo:      stores.RuleRepo,
		SubRepo:       stores.SubRepo,
		CustomerRepo:  stores.CustomerRepo,
		DowngradeRepo: stores.DowngradeRepo,
		InvoiceRepo:   stores.InvoiceRepo,
		PaymentRepo:   stores.PaymentRepo,
		Gateways:      integration.NewFactory(testutil.NewMockGateway(types.ProviderRazorpay)),
	}
}

func (s *CouponServiceSuite) createCoupon(req *dto.CreateCouponRequest) *dto.CouponResponse {
	resp, err := s.service.CreateCoupon(s.GetContext(), req)
	s.NoError(err)
	return resp
}

func (s *CouponServiceSuite) TestCreateCouponDuplicateCode() {
	req := &dto.CreateCouponRequest{
		Code:          "LAUNCH20",
		DiscountType:  types.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(20),
	}
	s.createCoupon(req)

	_, err := s.service.CreateCoupon(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *CouponServiceSuite) TestValidateAndApplyCoupon() {
	resp := s.createCoupon(&dto.CreateCouponRequest{
		Code:          "FLAT300",
		DiscountType:  types.DiscountTypeFlat,
		DiscountValue: decimal.NewFromInt(300),
	})

	discount, c, err := s.service.ValidateAndApplyCoupon(s.GetContext(), &resp.Coupon.ID, decimal.NewFromInt(1000))
	s.NoError(err)
	s.NotNil(c)
	s.True(discount.Equal(decimal.NewFromInt(300)))
}

func (s *CouponServiceSuite) TestValidateWithoutCoupon() {
	discount, c, err := s.service.ValidateAndApplyCoupon(s.GetContext(), nil, decimal.NewFromInt(1000))
	s.NoError(err)
	s.Nil(c)
	s.True(discount.IsZero())

	empty := ""
	discount, c, err = s.service.ValidateAndApplyCoupon(s.GetContext(), &empty, decimal.NewFromInt(1000))
	s.NoError(err)
	s.Nil(c)
	s.True(discount.IsZero())
}

func (s *CouponServiceSuite) TestValidateDeactivatedCoupon() {
	resp := s.createCoupon(&dto.CreateCouponRequest{
		Code:          "OLD10",
		DiscountType:  types.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
	})
	s.NoError(s.service.DeactivateCoupon(s.GetContext(), resp.Coupon.ID))

	_, _, err := s.service.ValidateAndApplyCoupon(s.GetContext(), &resp.Coupon.ID, decimal.NewFromInt(1000))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CouponServiceSuite) TestValidateExpiredCoupon() {
	past := time.Now().UTC().Add(-time.Hour)
	resp := s.createCoupon(&dto.CreateCouponRequest{
		Code:          "BYGONE",
		DiscountType:  types.DiscountTypeFlat,
		DiscountValue: decimal.NewFromInt(100),
		EndDate:       &past,
	})

	_, _, err := s.service.ValidateAndApplyCoupon(s.GetContext(), &resp.Coupon.ID, decimal.NewFromInt(1000))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CouponServiceSuite) TestValidateUsageLimitExceeded() {
	limit := 1
	resp := s.createCoupon(&dto.CreateCouponRequest{
		Code:          "ONCE",
		DiscountType:  types.DiscountTypeFlat,
		DiscountValue: decimal.NewFromInt(100),
		UsageLimit:    &limit,
	})

	_, _, err := s.service.ValidateAndApplyCoupon(s.GetContext(), &resp.Coupon.ID, decimal.NewFromInt(1000))
	s.NoError(err)

	s.NoError(s.service.IncrementUsage(s.GetContext(), resp.Coupon.ID))

	_, _, err = s.service.ValidateAndApplyCoupon(s.GetContext(), &resp.Coupon.ID, decimal.NewFromInt(1000))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CouponServiceSuite) TestValidateUnknownCoupon() {
	unknown := "coupon_missing"
	_, _, err := s.service.ValidateAndApplyCoupon(s.GetContext(), &unknown, decimal.NewFromInt(1000))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
