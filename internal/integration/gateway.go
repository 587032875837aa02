package integration

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// ProviderPlan is the provider-side identity of a created plan. Razorpay
// returns a single plan id; Paddle returns a product and a price.
type ProviderPlan struct {
	PlanID    string
	ProductID string
	PriceID   string
}

// ProviderSubscription is the result of creating a provider-side
// subscription or transaction.
type ProviderSubscription struct {
	ID       string
	Status   string
	ShortURL string
}

// SubscriptionDetails is the subset of a provider subscription consumed by
// the webhook reconciler.
type SubscriptionDetails struct {
	Status       string
	CurrentStart int64
	CurrentEnd   int64
}

// InvoiceDetails is the subset of a provider invoice consumed locally
type InvoiceDetails struct {
	ID             string
	Amount         decimal.Decimal
	Currency       string
	Status         string
	ShortURL       string
	SubscriptionID string
}

// CreateSubscriptionRequest carries everything either provider needs to
// start billing. PlanRef is the provider plan id for Razorpay and the price
// id for Paddle.
type CreateSubscriptionRequest struct {
	PlanRef        string
	TotalCount     int
	Quantity       int
	PlanID         string
	SubscriptionID string
	Identity       *types.Identity
}

// DraftInvoiceRequest describes a one-off invoice to draft at the provider
type DraftInvoiceRequest struct {
	CustomerID  string
	Name        string
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// Gateway abstracts the payment provider operations the orchestrator and the
// webhook reconciler depend on.
type Gateway interface {
	ProviderName() types.ProviderName
	CreatePlan(ctx context.Context, p *plan.Plan) (*ProviderPlan, error)
	CreateCustomer(ctx context.Context, identity *types.Identity) (string, error)
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*ProviderSubscription, error)
	EndSubscription(ctx context.Context, pspSubscriptionID string, cancelAtCycleEnd bool) error
	GetSubscriptionDetails(ctx context.Context, pspSubscriptionID string) (*SubscriptionDetails, error)
	GetInvoiceDetails(ctx context.Context, pspInvoiceID string) (*InvoiceDetails, error)
	IssueInvoice(ctx context.Context, pspInvoiceID string) error
	DraftInvoice(ctx context.Context, req *DraftInvoiceRequest) (*InvoiceDetails, error)
	GetTransactionInvoice(ctx context.Context, transactionID string) (string, error)
}

// Factory resolves the gateway for a provider name
type Factory interface {
	GetGateway(provider types.ProviderName) (Gateway, error)
}

type factory struct {
	gateways map[types.ProviderName]Gateway
}

// NewFactory builds a factory over the given gateways
func NewFactory(gateways ...Gateway) Factory {
	m := make(map[types.ProviderName]Gateway, len(gateways))
	for _, g := range gateways {
		m[g.ProviderName()] = g
	}
	return &factory{gateways: m}
}

func (f *factory) GetGateway(provider types.ProviderName) (Gateway, error) {
	g, ok := f.gateways[provider]
	if !ok {
		return nil, ierr.NewError("unsupported payment provider").
			WithHintf("Provider %s is not configured", provider).
			WithReportableDetails(map[string]any{"provider": provider}).
			Mark(ierr.ErrValidation)
	}
	return g, nil
}
