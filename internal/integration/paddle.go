package integration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/httpclient"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

type paddleGateway struct {
	baseURL string
	auth    string
	client  httpclient.Client
	logger  *logger.Logger
}

// NewPaddleGateway creates the Paddle gateway
func NewPaddleGateway(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) Gateway {
	return &paddleGateway{
		baseURL: cfg.Paddle.BaseURL,
		auth:    "Bearer " + cfg.Paddle.APISecret,
		client:  client,
		logger:  logger,
	}
}

func (g *paddleGateway) ProviderName() types.ProviderName {
	return types.ProviderPaddle
}

func (g *paddleGateway) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode provider request").
				Mark(ierr.ErrSystem)
		}
	}

	resp, err := g.client.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     g.baseURL + path,
		Headers: map[string]string{"Authorization": g.auth},
		Body:    payload,
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to decode provider response").
				Mark(ierr.ErrHTTPClient)
		}
	}
	return nil
}

// CreateSubscription drafts a Paddle transaction for the plan's price. The
// provider subscription id arrives later on the transaction completed
// webhook; the returned id is the transaction id.
func (g *paddleGateway) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*ProviderSubscription, error) {
	body := map[string]interface{}{
		"items": []map[string]interface{}{{
			"price_id": req.PlanRef,
			"quantity": 1,
		}},
		"custom_data": map[string]string{
			"plan_id":         req.PlanID,
			"subscription_id": req.SubscriptionID,
		},
	}
	if req.Identity != nil {
		body["customer"] = map[string]string{"email": req.Identity.Email}
	}

	var out struct {
		Data struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Checkout struct {
				URL string `json:"url"`
			} `json:"checkout"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodPost, "/transactions", body, &out); err != nil {
		return nil, err
	}
	return &ProviderSubscription{
		ID:       out.Data.ID,
		Status:   out.Data.Status,
		ShortURL: out.Data.Checkout.URL,
	}, nil
}

func (g *paddleGateway) EndSubscription(ctx context.Context, pspSubscriptionID string, cancelAtCycleEnd bool) error {
	effectiveFrom := "immediately"
	if cancelAtCycleEnd {
		effectiveFrom = "next_billing_period"
	}
	body := map[string]interface{}{"effective_from": effectiveFrom}
	return g.send(ctx, http.MethodPost,
		fmt.Sprintf("/subscriptions/%s/cancel", pspSubscriptionID), body, nil)
}

// CreatePlan mints a Paddle product and a price for it
func (g *paddleGateway) CreatePlan(ctx context.Context, p *plan.Plan) (*ProviderPlan, error) {
	productBody := map[string]interface{}{
		"name":         p.Name,
		"tax_category": "digital-goods",
		"description":  p.Description,
	}

	var product struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodPost, "/products", productBody, &product); err != nil {
		return nil, err
	}

	priceBody := map[string]interface{}{
		"name":        p.Name,
		"product_id":  product.Data.ID,
		"description": p.Description,
		"unit_price": map[string]string{
			"amount":        p.Amount.String(),
			"currency_code": p.Currency,
		},
		"billing_cycle": map[string]interface{}{
			"interval":  "day",
			"frequency": 1,
		},
		"tax_mode": "account_setting",
		"quantity": map[string]int{
			"minimum": 1,
			"maximum": 1,
		},
	}

	var price struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodPost, "/prices", priceBody, &price); err != nil {
		return nil, err
	}

	return &ProviderPlan{ProductID: product.Data.ID, PriceID: price.Data.ID}, nil
}

// CreateCustomer is a no-op for Paddle. Customers are created implicitly by
// the transaction checkout using the email on the transaction.
func (g *paddleGateway) CreateCustomer(ctx context.Context, identity *types.Identity) (string, error) {
	return "", nil
}

func (g *paddleGateway) GetSubscriptionDetails(ctx context.Context, pspSubscriptionID string) (*SubscriptionDetails, error) {
	var out struct {
		Data struct {
			Status               string `json:"status"`
			CurrentBillingPeriod struct {
				StartsAt string `json:"starts_at"`
				EndsAt   string `json:"ends_at"`
			} `json:"current_billing_period"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodGet,
		fmt.Sprintf("/subscriptions/%s", pspSubscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return &SubscriptionDetails{
		Status:       out.Data.Status,
		CurrentStart: types.ParseRFC3339Epoch(out.Data.CurrentBillingPeriod.StartsAt),
		CurrentEnd:   types.ParseRFC3339Epoch(out.Data.CurrentBillingPeriod.EndsAt),
	}, nil
}

func (g *paddleGateway) GetInvoiceDetails(ctx context.Context, pspInvoiceID string) (*InvoiceDetails, error) {
	var out struct {
		Data struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Details struct {
				Totals struct {
					Total        string `json:"total"`
					CurrencyCode string `json:"currency_code"`
				} `json:"totals"`
			} `json:"details"`
			SubscriptionID string `json:"subscription_id"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodGet,
		fmt.Sprintf("/transactions/%s", pspInvoiceID), nil, &out); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(out.Data.Details.Totals.Total)
	if err != nil {
		amount = decimal.Zero
	}
	return &InvoiceDetails{
		ID:             out.Data.ID,
		Amount:         amount,
		Currency:       out.Data.Details.Totals.CurrencyCode,
		Status:         out.Data.Status,
		SubscriptionID: out.Data.SubscriptionID,
	}, nil
}

// IssueInvoice is a no-op for Paddle. Transactions are billed by the
// provider without an explicit issue step.
func (g *paddleGateway) IssueInvoice(ctx context.Context, pspInvoiceID string) error {
	return nil
}

func (g *paddleGateway) DraftInvoice(ctx context.Context, req *DraftInvoiceRequest) (*InvoiceDetails, error) {
	return nil, ierr.NewError("draft invoices are not supported").
		WithHint("Paddle bills through transactions, not drafted invoices").
		Mark(ierr.ErrInvalidOperation)
}

func (g *paddleGateway) GetTransactionInvoice(ctx context.Context, transactionID string) (string, error) {
	var out struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := g.send(ctx, http.MethodGet,
		fmt.Sprintf("/transactions/%s/invoice", transactionID), nil, &out); err != nil {
		return "", err
	}
	return out.Data.URL, nil
}
