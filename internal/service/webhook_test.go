package service

import (
	"fmt"
	"testing"

	"github.com/plexbill/plexbill/internal/domain/invoice"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/testutil"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  WebhookService
	razorpay *testutil.MockGateway
	paddle   *testutil.MockGateway
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.razorpay = testutil.NewMockGateway(types.ProviderRazorpay)
	s.paddle = testutil.NewMockGateway(types.ProviderPaddle)

	stores := s.GetStores()
	params := ServiceParams{
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
		Gateways:      integration.NewFactory(s.razorpay, s.paddle),
	}
	s.service = NewWebhookService(params, NewEntitlementService(params))
}

func (s *WebhookServiceSuite) seedSub(provider types.ProviderName, pspID *string, status types.SubscriptionStatus, active bool) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:            "u1",
		PlanID:            "plan_paid",
		StartDate:         s.GetNow().Unix(),
		IsActive:          active,
		BillingCycle:      types.BillingCycleMonthly,
		Amount:            decimal.NewFromInt(999),
		Currency:          "INR",
		PSPName:           provider,
		PSPSubscriptionID: pspID,
		Status:            status,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *WebhookServiceSuite) TestRazorpaySubscriptionActivated() {
	pspID := "rzp_sub_1"
	sub := s.seedSub(types.ProviderRazorpay, &pspID, types.SubscriptionStatus("created"), false)

	// A lingering basic subscription of the same identity
	basic := &subscription.Subscription{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:       "u1",
		PlanID:       "plan_basic",
		IsActive:     true,
		IsBasic:      true,
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
		Currency:     "INR",
		PSPName:      types.ProviderRazorpay,
		Status:       types.SubscriptionStatusActive,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), basic))

	issued := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: sub.ID,
		UserID:         "u1",
		Amount:         sub.Amount,
		Currency:       "INR",
		Status:         invoice.StatusIssued,
		PSPName:        types.ProviderRazorpay,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), issued))

	payload := []byte(`{
		"event": "subscription.activated",
		"payload": {"subscription": {"entity": {"id": "rzp_sub_1", "status": "active", "current_end": 1790000000}}}
	}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(got.IsActive)
	s.Equal(types.SubscriptionStatusActive, got.Status)

	// The basic subscription gave way to the paid one
	gotBasic, err := s.GetStores().SubRepo.Get(s.GetContext(), basic.ID)
	s.NoError(err)
	s.False(gotBasic.IsActive)
	s.Equal(types.SubscriptionStatusCancelled, gotBasic.Status)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), issued.ID)
	s.NoError(err)
	s.Equal(invoice.StatusPaid, inv.Status)
	s.NotNil(inv.NextDueDate)
	s.Equal(int64(1790000000), *inv.NextDueDate)
}

func (s *WebhookServiceSuite) TestRazorpayPaymentCaptured() {
	pspID := "rzp_sub_1"
	sub := s.seedSub(types.ProviderRazorpay, &pspID, types.SubscriptionStatusActive, true)

	s.razorpay.InvoiceDetail = &integration.InvoiceDetails{
		ID:             "inv_rzp_1",
		Amount:         decimal.NewFromInt(999),
		Currency:       "INR",
		Status:         "paid",
		ShortURL:       "https://rzp.io/i/abc",
		SubscriptionID: pspID,
	}
	s.razorpay.SubscriptionDetail = &integration.SubscriptionDetails{
		Status:     "active",
		CurrentEnd: 1790000000,
	}

	payload := []byte(`{
		"event": "payment.captured",
		"created_at": 1756700000,
		"payload": {"payment": {"entity": {"id": "pay_rzp_1", "invoice_id": "inv_rzp_1", "amount": 999, "currency": "INR", "status": "captured"}}}
	}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(invoices, 1)
	inv := invoices[0]
	s.Equal("inv_rzp_1", *inv.PSPInvoiceID)
	s.Equal(invoice.StatusPaid, inv.Status)
	s.Equal(int64(1790000000), *inv.NextDueDate)
	s.Equal("https://rzp.io/i/abc", *inv.ShortURL)

	payments, err := s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
	s.Equal("pay_rzp_1", payments[0].PSPPaymentID)
	s.Equal(types.PaymentStatusCaptured, payments[0].Status)
	s.Equal(int64(1756700000), payments[0].PaymentDate)

	// Redelivery is recognized and dropped
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))
	payments, err = s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
	invoices, err = s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *WebhookServiceSuite) TestRazorpayPaymentFailed() {
	pspID := "rzp_sub_1"
	sub := s.seedSub(types.ProviderRazorpay, &pspID, types.SubscriptionStatusActive, true)

	s.razorpay.InvoiceDetail = &integration.InvoiceDetails{
		ID:             "inv_rzp_2",
		Amount:         decimal.NewFromInt(999),
		Currency:       "INR",
		Status:         "issued",
		SubscriptionID: pspID,
	}

	payload := []byte(`{
		"event": "payment.failed",
		"created_at": 1756700000,
		"payload": {"payment": {"entity": {"id": "pay_rzp_2", "invoice_id": "inv_rzp_2", "amount": 999, "currency": "INR", "status": "failed"}}}
	}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	// A failed payment is recorded without minting an invoice
	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(invoices, 0)

	payments, err := s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].Status)
}

func (s *WebhookServiceSuite) TestRazorpaySubscriptionCancelled() {
	pspID := "rzp_sub_1"
	sub := s.seedSub(types.ProviderRazorpay, &pspID, types.SubscriptionStatusActive, true)

	payload := []byte(`{
		"event": "subscription.cancelled",
		"payload": {"subscription": {"entity": {"id": "rzp_sub_1", "status": "cancelled"}}}
	}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(got.IsActive)
	s.Equal(types.SubscriptionStatusCancelled, got.Status)
	s.NotNil(got.EndDate)

	endDate := *got.EndDate
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	got, err = s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(endDate, *got.EndDate)
}

func (s *WebhookServiceSuite) TestRazorpayInvoiceExpired() {
	pspID := "rzp_sub_1"
	sub := s.seedSub(types.ProviderRazorpay, &pspID, types.SubscriptionStatusActive, true)

	pspInvoiceID := "inv_rzp_3"
	issued := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: sub.ID,
		PSPInvoiceID:   &pspInvoiceID,
		UserID:         "u1",
		Amount:         sub.Amount,
		Currency:       "INR",
		Status:         invoice.StatusIssued,
		PSPName:        types.ProviderRazorpay,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), issued))

	payload := []byte(`{
		"event": "invoice.expired",
		"payload": {"invoice": {"entity": {"id": "inv_rzp_3", "subscription_id": "rzp_sub_1", "status": "expired"}}}
	}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, payload))

	// The unpaid subscription was ended at the provider immediately
	cancelAtCycleEnd, ended := s.razorpay.EndedSubscriptions[pspID]
	s.True(ended)
	s.False(cancelAtCycleEnd)

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(got.IsActive)
	s.Equal(types.SubscriptionStatusCancelled, got.Status)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), issued.ID)
	s.NoError(err)
	s.Equal("failed", inv.Status)
}

func (s *WebhookServiceSuite) TestUnknownEventsAreAcknowledged() {
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderRazorpay, []byte(`{"event": "subscription.pending"}`)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderPaddle, []byte(`{"event_type": "subscription.updated"}`)))
}

func (s *WebhookServiceSuite) TestPaddleTransactionCompleted() {
	sub := s.seedSub(types.ProviderPaddle, nil, types.SubscriptionStatusDraft, false)

	payload := []byte(fmt.Sprintf(`{
		"event_type": "transaction.completed",
		"data": {
			"id": "txn_1",
			"status": "completed",
			"subscription_id": "pdl_sub_1",
			"invoice_id": "pinv_1",
			"created_at": "2026-09-01T10:00:00Z",
			"custom_data": {"plan_id": "plan_paid", "subscription_id": "%s"},
			"payments": [{"status": "captured"}],
			"billing_period": {"ends_at": "2026-10-01T10:00:00Z"}
		}
	}`, sub.ID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderPaddle, payload))

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(got.IsActive)
	s.Equal(types.SubscriptionStatusActive, got.Status)
	s.Equal("pdl_sub_1", *got.PSPSubscriptionID)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(invoices, 1)
	inv := invoices[0]
	s.Equal("txn_1", *inv.TransactionID)
	s.Equal("pinv_1", *inv.PSPInvoiceID)
	s.Equal(invoice.StatusPaid, inv.Status)
	s.Equal("https://invoices.test/txn_1", *inv.ShortURL)
	s.NotNil(inv.NextDueDate)
	s.Equal(types.ParseRFC3339Epoch("2026-10-01T10:00:00Z"), *inv.NextDueDate)

	payments, err := s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
	s.Equal("txn_1", payments[0].PSPPaymentID)
	s.Equal(types.PaymentStatusCaptured, payments[0].Status)
	s.Equal(types.ParseRFC3339Epoch("2026-09-01T10:00:00Z"), payments[0].PaymentDate)

	// Redelivery is recognized and dropped
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderPaddle, payload))
	payments, err = s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
}

func (s *WebhookServiceSuite) TestPaddleTransactionPaymentFailed() {
	sub := s.seedSub(types.ProviderPaddle, nil, types.SubscriptionStatusDraft, false)

	payload := []byte(fmt.Sprintf(`{
		"event_type": "transaction.payment_failed",
		"data": {
			"id": "txn_2",
			"status": "failed",
			"created_at": "2026-09-01T10:00:00Z",
			"custom_data": {"subscription_id": "%s"},
			"payments": [{"status": "failed"}]
		}
	}`, sub.ID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderPaddle, payload))

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(got.IsActive)
	s.Equal(types.SubscriptionStatusFailed, got.Status)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(invoices, 1)
	s.Equal("failed", invoices[0].Status)

	payments, err := s.GetStores().PaymentRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].Status)
}

func (s *WebhookServiceSuite) TestPaddleSubscriptionCanceled() {
	pspID := "pdl_sub_9"
	sub := s.seedSub(types.ProviderPaddle, &pspID, types.SubscriptionStatusActive, true)

	payload := []byte(`{"event_type": "subscription.canceled", "data": {"id": "pdl_sub_9", "status": "canceled"}}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), types.ProviderPaddle, payload))

	got, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(got.IsActive)
	s.Equal(types.SubscriptionStatusCancelled, got.Status)
	s.NotNil(got.EndDate)
}
