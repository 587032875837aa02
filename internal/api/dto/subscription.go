package dto

import (
	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/validator"
)

type CreateSubscriptionRequest struct {
	PlanID   string             `json:"plan_id" validate:"required"`
	CouponID *string            `json:"coupon_id"`
	Provider types.ProviderName `json:"psp_name" validate:"required"`
	Identity *types.Identity    `json:"identity" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Provider.Validate() {
		return ierr.NewError("invalid payment provider").
			WithHintf("Provider %s is not supported", r.Provider).
			Mark(ierr.ErrValidation)
	}
	return nil
}

type SubscriptionResponse struct {
	*subscription.Subscription
	PlanName        string `json:"plan_name,omitempty"`
	PlanDescription string `json:"plan_description,omitempty"`
	// TransactionID is set on Paddle paid subscribes; the frontend opens the
	// checkout with it
	TransactionID  string `json:"transaction_id,omitempty"`
	CheckoutURL    string `json:"checkout_url,omitempty"`
	PSPClientToken string `json:"psp_client_token,omitempty"`
}

type UnsubscribeResponse struct {
	// Immediate is true when the subscription was cancelled synchronously;
	// false when cancellation is deferred to cycle end.
	Immediate bool   `json:"immediate"`
	Message   string `json:"message"`
}

// CurrentSubscriptionResponse is returned by the read endpoint. When the
// identity has no subscription row the fallback plan is presented with no
// subscription attached.
type CurrentSubscriptionResponse struct {
	Subscription    *subscription.Subscription `json:"subscription,omitempty"`
	Amount          string                     `json:"amount"`
	BillingCycle    types.BillingCycle         `json:"billing_cycle"`
	PlanName        string                     `json:"plan_name"`
	PlanDescription string                     `json:"plan_description"`
	CurrentStart    int64                      `json:"current_start,omitempty"`
	CurrentEnd      int64                      `json:"current_end,omitempty"`
}
