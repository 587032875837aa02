package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

var _ integration.Gateway = (*MockGateway)(nil)

// MockGateway is a configurable in-memory payment provider. It records every
// call so tests can assert on the provider interaction.
type MockGateway struct {
	mu       sync.Mutex
	provider types.ProviderName
	seq      int

	// Calls records method names in invocation order
	Calls []string

	// EndedSubscriptions records (id, cancelAtCycleEnd) pairs
	EndedSubscriptions map[string]bool

	// Overridable responses
	SubscriptionStatus string
	SubscriptionDetail *integration.SubscriptionDetails
	InvoiceDetail      *integration.InvoiceDetails
	Err                error
}

func NewMockGateway(provider types.ProviderName) *MockGateway {
	return &MockGateway{
		provider:           provider,
		EndedSubscriptions: make(map[string]bool),
		SubscriptionStatus: "created",
	}
}

func (g *MockGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, call)
	g.seq++
}

func (g *MockGateway) nextID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s_%s_%d", prefix, g.provider, g.seq)
}

func (g *MockGateway) ProviderName() types.ProviderName {
	return g.provider
}

func (g *MockGateway) CreatePlan(ctx context.Context, p *plan.Plan) (*integration.ProviderPlan, error) {
	g.record("CreatePlan")
	if g.Err != nil {
		return nil, g.Err
	}
	return &integration.ProviderPlan{
		PlanID:    g.nextID("plan"),
		ProductID: g.nextID("pro"),
		PriceID:   g.nextID("pri"),
	}, nil
}

func (g *MockGateway) CreateCustomer(ctx context.Context, identity *types.Identity) (string, error) {
	g.record("CreateCustomer")
	if g.Err != nil {
		return "", g.Err
	}
	return g.nextID("cust"), nil
}

func (g *MockGateway) CreateSubscription(ctx context.Context, req *integration.CreateSubscriptionRequest) (*integration.ProviderSubscription, error) {
	g.record("CreateSubscription")
	if g.Err != nil {
		return nil, g.Err
	}
	return &integration.ProviderSubscription{
		ID:       g.nextID("sub"),
		Status:   g.SubscriptionStatus,
		ShortURL: "https://checkout.test/" + req.PlanRef,
	}, nil
}

func (g *MockGateway) EndSubscription(ctx context.Context, pspSubscriptionID string, cancelAtCycleEnd bool) error {
	g.record("EndSubscription")
	if g.Err != nil {
		return g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.EndedSubscriptions[pspSubscriptionID] = cancelAtCycleEnd
	return nil
}

func (g *MockGateway) GetSubscriptionDetails(ctx context.Context, pspSubscriptionID string) (*integration.SubscriptionDetails, error) {
	g.record("GetSubscriptionDetails")
	if g.Err != nil {
		return nil, g.Err
	}
	if g.SubscriptionDetail != nil {
		return g.SubscriptionDetail, nil
	}
	return &integration.SubscriptionDetails{Status: "active"}, nil
}

func (g *MockGateway) GetInvoiceDetails(ctx context.Context, pspInvoiceID string) (*integration.InvoiceDetails, error) {
	g.record("GetInvoiceDetails")
	if g.Err != nil {
		return nil, g.Err
	}
	if g.InvoiceDetail != nil {
		return g.InvoiceDetail, nil
	}
	return &integration.InvoiceDetails{
		ID:       pspInvoiceID,
		Amount:   decimal.NewFromInt(100),
		Currency: "INR",
		Status:   "paid",
	}, nil
}

func (g *MockGateway) IssueInvoice(ctx context.Context, pspInvoiceID string) error {
	g.record("IssueInvoice")
	return g.Err
}

func (g *MockGateway) DraftInvoice(ctx context.Context, req *integration.DraftInvoiceRequest) (*integration.InvoiceDetails, error) {
	g.record("DraftInvoice")
	if g.Err != nil {
		return nil, g.Err
	}
	return &integration.InvoiceDetails{ID: g.nextID("inv"), Amount: req.Amount, Currency: req.Currency, Status: "draft"}, nil
}

func (g *MockGateway) GetTransactionInvoice(ctx context.Context, transactionID string) (string, error) {
	g.record("GetTransactionInvoice")
	if g.Err != nil {
		return "", g.Err
	}
	return "https://invoices.test/" + transactionID, nil
}

// CallCount returns how many times the named method was invoked
func (g *MockGateway) CallCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	for _, call := range g.Calls {
		if call == method {
			count++
		}
	}
	return count
}
