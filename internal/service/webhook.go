package service

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/domain/invoice"
	"github.com/plexbill/plexbill/internal/domain/payment"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// WebhookService reconciles provider webhook events with local state. Every
// handler is idempotent: providers redeliver events, so re-applying an event
// to an already transitioned subscription is a no-op, not an error. Unknown
// event types are acknowledged and ignored.
type WebhookService interface {
	ProcessEvent(ctx context.Context, provider types.ProviderName, payload []byte) error
}

type webhookService struct {
	ServiceParams
	entitlements EntitlementService
}

// NewWebhookService creates a new webhook service
func NewWebhookService(params ServiceParams, entitlements EntitlementService) WebhookService {
	return &webhookService{ServiceParams: params, entitlements: entitlements}
}

func (s *webhookService) ProcessEvent(ctx context.Context, provider types.ProviderName, payload []byte) error {
	switch provider {
	case types.ProviderRazorpay:
		return s.processRazorpayEvent(ctx, payload)
	case types.ProviderPaddle:
		return s.processPaddleEvent(ctx, payload)
	default:
		return ierr.NewError("unsupported webhook provider").
			WithHintf("Provider %s has no webhook handler", provider).
			Mark(ierr.ErrValidation)
	}
}

// Razorpay envelope shapes. Only consumed fields are modeled.

type razorpayEvent struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Subscription struct {
			Entity razorpaySubscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity razorpayPaymentEntity `json:"entity"`
		} `json:"payment"`
		Invoice struct {
			Entity razorpayInvoiceEntity `json:"entity"`
		} `json:"invoice"`
	} `json:"payload"`
}

type razorpaySubscriptionEntity struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CurrentEnd int64  `json:"current_end"`
}

type razorpayPaymentEntity struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
}

type razorpayInvoiceEntity struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
}

func (s *webhookService) processRazorpayEvent(ctx context.Context, payload []byte) error {
	var event razorpayEvent
	if err := jsonCodec.Unmarshal(payload, &event); err != nil {
		return ierr.WithError(err).
			WithHint("Unreadable webhook payload").
			Mark(ierr.ErrValidation)
	}

	s.Logger.Infow("processing provider event", "provider", types.ProviderRazorpay, "event", event.Event)

	switch event.Event {
	case "subscription.activated":
		return s.handleSubscriptionActivated(ctx, &event)
	case "payment.captured", "payment.failed":
		return s.handlePaymentEvent(ctx, &event)
	case "subscription.cancelled":
		return s.handleSubscriptionCancelled(ctx, event.Payload.Subscription.Entity.ID, event.Payload.Subscription.Entity.Status)
	case "invoice.paid":
		return s.handleInvoicePaid(ctx, &event)
	case "invoice.expired":
		return s.handleInvoiceExpired(ctx, &event)
	default:
		s.Logger.Warnw("ignoring unhandled event type", "event", event.Event)
		return nil
	}
}

func (s *webhookService) handleSubscriptionActivated(ctx context.Context, event *razorpayEvent) error {
	entity := event.Payload.Subscription.Entity

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		sub, err := s.SubRepo.GetByProviderSubscriptionID(txCtx, entity.ID)
		if err != nil {
			return err
		}

		// Any lingering basic subscription of the identity gives way
		actives, err := s.SubRepo.GetActiveByIdentity(txCtx, sub.UserID, sub.OrgID)
		if err != nil {
			return err
		}
		for _, active := range actives {
			if active.ID == sub.ID || !active.IsBasic {
				continue
			}
			active.IsActive = false
			active.Status = types.SubscriptionStatusCancelled
			active.UpdatedAt = time.Now().UTC()
			if err := s.SubRepo.Update(txCtx, active); err != nil {
				return err
			}
		}

		if !sub.IsActive || sub.Status != types.SubscriptionStatusActive {
			sub.IsActive = true
			sub.Status = types.SubscriptionStatusActive
			sub.UpdatedAt = time.Now().UTC()
			if err := s.SubRepo.Update(txCtx, sub); err != nil {
				return err
			}
		}

		invoices, err := s.InvoiceRepo.ListBySubscription(txCtx, sub.ID)
		if err != nil {
			return err
		}
		if len(invoices) > 0 {
			latest := invoices[0]
			if latest.Status != invoice.StatusPaid {
				latest.Status = invoice.StatusPaid
				if entity.CurrentEnd > 0 {
					latest.NextDueDate = &entity.CurrentEnd
				}
				latest.UpdatedAt = time.Now().UTC()
				if err := s.InvoiceRepo.Update(txCtx, latest); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *webhookService) handlePaymentEvent(ctx context.Context, event *razorpayEvent) error {
	entity := event.Payload.Payment.Entity

	// Redelivered payment events are recognized by the provider payment id
	if _, err := s.PaymentRepo.GetByProviderPaymentID(ctx, entity.ID); err == nil {
		s.Logger.Infow("payment already recorded", "psp_payment_id", entity.ID)
		return nil
	} else if !ierr.IsNotFound(err) {
		return err
	}

	gateway, err := s.Gateways.GetGateway(types.ProviderRazorpay)
	if err != nil {
		return err
	}

	invoiceDetails, err := gateway.GetInvoiceDetails(ctx, entity.InvoiceID)
	if err != nil {
		return err
	}

	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, invoiceDetails.SubscriptionID)
	if err != nil {
		return err
	}

	subDetails, err := gateway.GetSubscriptionDetails(ctx, *sub.PSPSubscriptionID)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if entity.Status == string(types.PaymentStatusCaptured) {
			inv := &invoice.Invoice{
				ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
				SubscriptionID: sub.ID,
				PSPInvoiceID:   &entity.InvoiceID,
				UserID:         sub.UserID,
				OrgID:          sub.OrgID,
				Amount:         invoiceDetails.Amount,
				Currency:       invoiceDetails.Currency,
				Status:         invoiceDetails.Status,
				PSPName:        types.ProviderRazorpay,
				BaseModel:      types.GetDefaultBaseModel(txCtx),
			}
			if subDetails.CurrentEnd > 0 {
				inv.NextDueDate = &subDetails.CurrentEnd
			}
			if invoiceDetails.ShortURL != "" {
				inv.ShortURL = &invoiceDetails.ShortURL
			}
			if err := s.InvoiceRepo.Create(txCtx, inv); err != nil {
				return err
			}
		}

		p := &payment.Payment{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			OrgID:          sub.OrgID,
			PaymentDate:    event.CreatedAt,
			Amount:         entity.Amount,
			Currency:       entity.Currency,
			PSPPaymentID:   entity.ID,
			PSPName:        types.ProviderRazorpay,
			Status:         types.PaymentStatus(entity.Status),
			BaseModel:      types.GetDefaultBaseModel(txCtx),
		}
		return s.PaymentRepo.Create(txCtx, p)
	})
}

func (s *webhookService) handleSubscriptionCancelled(ctx context.Context, pspSubscriptionID, providerStatus string) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		sub, err := s.SubRepo.GetByProviderSubscriptionID(txCtx, pspSubscriptionID)
		if err != nil {
			return err
		}

		// Redelivery of a cancellation for a dead subscription is a no-op
		if !sub.IsActive && sub.Status == types.SubscriptionStatusCancelled {
			return nil
		}

		endDate := time.Now().UTC().Unix()
		sub.EndDate = &endDate
		sub.IsActive = false
		sub.Status = types.SubscriptionStatusCancelled
		if providerStatus != "" {
			sub.Status = types.SubscriptionStatus(providerStatus)
		}
		sub.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(txCtx, sub); err != nil {
			return err
		}

		s.entitlements.InvalidateUsageCounters(txCtx, sub.UserID, sub.OrgID)
		return nil
	})
}

func (s *webhookService) handleInvoicePaid(ctx context.Context, event *razorpayEvent) error {
	entity := event.Payload.Invoice.Entity

	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, entity.SubscriptionID)
	if err != nil {
		return err
	}

	gateway, err := s.Gateways.GetGateway(types.ProviderRazorpay)
	if err != nil {
		return err
	}
	subDetails, err := gateway.GetSubscriptionDetails(ctx, *sub.PSPSubscriptionID)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.InvoiceRepo.GetByProviderInvoiceID(txCtx, entity.ID)
		if err == nil {
			if inv.Status != entity.Status {
				inv.Status = entity.Status
				if subDetails.CurrentEnd > 0 {
					inv.NextDueDate = &subDetails.CurrentEnd
				}
				inv.UpdatedAt = time.Now().UTC()
				if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
					return err
				}
			}
		} else if !ierr.IsNotFound(err) {
			return err
		}

		if !sub.IsActive || sub.Status != types.SubscriptionStatusActive {
			sub.IsActive = true
			sub.Status = types.SubscriptionStatusActive
			sub.UpdatedAt = time.Now().UTC()
			return s.SubRepo.Update(txCtx, sub)
		}
		return nil
	})
}

func (s *webhookService) handleInvoiceExpired(ctx context.Context, event *razorpayEvent) error {
	entity := event.Payload.Invoice.Entity

	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, entity.SubscriptionID)
	if err != nil {
		return err
	}

	gateway, err := s.Gateways.GetGateway(types.ProviderRazorpay)
	if err != nil {
		return err
	}
	// The unpaid subscription is cancelled at the provider right away
	if err := gateway.EndSubscription(ctx, entity.SubscriptionID, false); err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.InvoiceRepo.GetByProviderInvoiceID(txCtx, entity.ID)
		if err == nil {
			inv.Status = "failed"
			inv.UpdatedAt = time.Now().UTC()
			if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
				return err
			}
		} else if !ierr.IsNotFound(err) {
			return err
		}

		endDate := time.Now().UTC().Unix()
		sub.EndDate = &endDate
		sub.Status = types.SubscriptionStatusCancelled
		sub.IsActive = false
		sub.UpdatedAt = time.Now().UTC()
		return s.SubRepo.Update(txCtx, sub)
	})
}

// Paddle envelope shapes

type paddleEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		SubscriptionID string `json:"subscription_id"`
		InvoiceID      string `json:"invoice_id"`
		CreatedAt      string `json:"created_at"`
		CustomData     struct {
			PlanID         string `json:"plan_id"`
			SubscriptionID string `json:"subscription_id"`
		} `json:"custom_data"`
		Payments []struct {
			Status string `json:"status"`
		} `json:"payments"`
		BillingPeriod struct {
			EndsAt string `json:"ends_at"`
		} `json:"billing_period"`
	} `json:"data"`
}

func (s *webhookService) processPaddleEvent(ctx context.Context, payload []byte) error {
	var event paddleEvent
	if err := jsonCodec.Unmarshal(payload, &event); err != nil {
		return ierr.WithError(err).
			WithHint("Unreadable webhook payload").
			Mark(ierr.ErrValidation)
	}

	s.Logger.Infow("processing provider event", "provider", types.ProviderPaddle, "event", event.EventType)

	switch event.EventType {
	case "transaction.completed", "transaction.payment_failed":
		return s.handlePaddleTransaction(ctx, &event)
	case "subscription.canceled":
		return s.handleSubscriptionCancelled(ctx, event.Data.ID, "")
	default:
		s.Logger.Warnw("ignoring unhandled event type", "event", event.EventType)
		return nil
	}
}

// handlePaddleTransaction settles a Paddle checkout: it links the provider
// subscription id to the local draft, flips it active or failed, and records
// the invoice and payment.
func (s *webhookService) handlePaddleTransaction(ctx context.Context, event *paddleEvent) error {
	data := event.Data

	// Redelivered transactions are recognized by the provider payment id
	if _, err := s.PaymentRepo.GetByProviderPaymentID(ctx, data.ID); err == nil {
		s.Logger.Infow("transaction already recorded", "transaction_id", data.ID)
		return nil
	} else if !ierr.IsNotFound(err) {
		return err
	}

	captured := len(data.Payments) > 0 && data.Payments[0].Status == "captured"

	var sub *subscription.Subscription
	var err error
	if data.CustomData.SubscriptionID != "" {
		sub, err = s.SubRepo.Get(ctx, data.CustomData.SubscriptionID)
	} else {
		sub, err = s.SubRepo.GetByProviderSubscriptionID(ctx, data.SubscriptionID)
	}
	if err != nil {
		return err
	}

	invoiceURL := ""
	if data.InvoiceID != "" {
		gateway, gerr := s.Gateways.GetGateway(types.ProviderPaddle)
		if gerr == nil {
			url, uerr := gateway.GetTransactionInvoice(ctx, data.ID)
			if uerr != nil {
				s.Logger.Warnw("failed to fetch transaction invoice", "transaction_id", data.ID)
			} else {
				invoiceURL = url
			}
		}
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if data.SubscriptionID != "" {
			sub.PSPSubscriptionID = &data.SubscriptionID
		}
		sub.IsActive = captured
		if captured {
			sub.Status = types.SubscriptionStatusActive
		} else {
			sub.Status = types.SubscriptionStatusFailed
		}
		sub.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(txCtx, sub); err != nil {
			return err
		}

		invoiceStatus := invoice.StatusPaid
		paymentStatus := types.PaymentStatusCaptured
		if !captured {
			invoiceStatus = "failed"
			paymentStatus = types.PaymentStatusFailed
		}

		inv := &invoice.Invoice{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			SubscriptionID: sub.ID,
			TransactionID:  &data.ID,
			UserID:         sub.UserID,
			OrgID:          sub.OrgID,
			Amount:         sub.Amount,
			Currency:       sub.Currency,
			Status:         invoiceStatus,
			PSPName:        types.ProviderPaddle,
			BaseModel:      types.GetDefaultBaseModel(txCtx),
		}
		if data.InvoiceID != "" {
			inv.PSPInvoiceID = &data.InvoiceID
		}
		if invoiceURL != "" {
			inv.ShortURL = &invoiceURL
		}
		if ends := types.ParseRFC3339Epoch(data.BillingPeriod.EndsAt); ends > 0 {
			inv.NextDueDate = &ends
		}
		if err := s.InvoiceRepo.Create(txCtx, inv); err != nil {
			return err
		}

		p := &payment.Payment{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			OrgID:          sub.OrgID,
			PaymentDate:    types.ParseRFC3339Epoch(data.CreatedAt),
			Amount:         sub.Amount,
			Currency:       sub.Currency,
			PSPPaymentID:   data.ID,
			PSPName:        types.ProviderPaddle,
			Status:         paymentStatus,
			BaseModel:      types.GetDefaultBaseModel(txCtx),
		}
		return s.PaymentRepo.Create(txCtx, p)
	})
}
