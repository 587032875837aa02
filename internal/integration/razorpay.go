package integration

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/httpclient"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type razorpayGateway struct {
	baseURL string
	auth    string
	client  httpclient.Client
	logger  *logger.Logger
}

// NewRazorpayGateway creates the Razorpay gateway
func NewRazorpayGateway(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) Gateway {
	creds := base64.StdEncoding.EncodeToString(
		[]byte(cfg.Razorpay.APIKey + ":" + cfg.Razorpay.APISecret))
	return &razorpayGateway{
		baseURL: cfg.Razorpay.BaseURL,
		auth:    "Basic " + creds,
		client:  client,
		logger:  logger,
	}
}

func (g *razorpayGateway) ProviderName() types.ProviderName {
	return types.ProviderRazorpay
}

func (g *razorpayGateway) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
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

type razorpaySubscriptionResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ShortURL     string `json:"short_url"`
	CurrentStart int64  `json:"current_start"`
	CurrentEnd   int64  `json:"current_end"`
}

func (g *razorpayGateway) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*ProviderSubscription, error) {
	body := map[string]interface{}{
		"plan_id":         req.PlanRef,
		"total_count":     req.TotalCount,
		"quantity":        req.Quantity,
		"customer_notify": 1,
	}

	var out razorpaySubscriptionResponse
	if err := g.send(ctx, http.MethodPost, "/subscriptions", body, &out); err != nil {
		return nil, err
	}
	return &ProviderSubscription{ID: out.ID, Status: out.Status, ShortURL: out.ShortURL}, nil
}

func (g *razorpayGateway) EndSubscription(ctx context.Context, pspSubscriptionID string, cancelAtCycleEnd bool) error {
	body := map[string]interface{}{"cancel_at_cycle_end": cancelAtCycleEnd}
	return g.send(ctx, http.MethodPost,
		fmt.Sprintf("/subscriptions/%s/cancel", pspSubscriptionID), body, nil)
}

func (g *razorpayGateway) CreatePlan(ctx context.Context, p *plan.Plan) (*ProviderPlan, error) {
	body := map[string]interface{}{
		"period":   string(p.BillingCycle),
		"interval": 1,
		"item": map[string]interface{}{
			"name":        p.Name,
			"amount":      p.Amount.IntPart(),
			"currency":    p.Currency,
			"description": p.Description,
		},
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := g.send(ctx, http.MethodPost, "/plans", body, &out); err != nil {
		return nil, err
	}
	return &ProviderPlan{PlanID: out.ID}, nil
}

func (g *razorpayGateway) CreateCustomer(ctx context.Context, identity *types.Identity) (string, error) {
	body := map[string]interface{}{
		"name":          identity.FullName(),
		"email":         identity.Email,
		"fail_existing": 0,
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := g.send(ctx, http.MethodPost, "/customers", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (g *razorpayGateway) GetSubscriptionDetails(ctx context.Context, pspSubscriptionID string) (*SubscriptionDetails, error) {
	var out razorpaySubscriptionResponse
	if err := g.send(ctx, http.MethodGet,
		fmt.Sprintf("/subscriptions/%s", pspSubscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return &SubscriptionDetails{
		Status:       out.Status,
		CurrentStart: out.CurrentStart,
		CurrentEnd:   out.CurrentEnd,
	}, nil
}

type razorpayInvoiceResponse struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	ShortURL       string          `json:"short_url"`
	SubscriptionID string          `json:"subscription_id"`
}

func (g *razorpayGateway) GetInvoiceDetails(ctx context.Context, pspInvoiceID string) (*InvoiceDetails, error) {
	var out razorpayInvoiceResponse
	if err := g.send(ctx, http.MethodGet,
		fmt.Sprintf("/invoices/%s", pspInvoiceID), nil, &out); err != nil {
		return nil, err
	}
	return &InvoiceDetails{
		ID:             out.ID,
		Amount:         out.Amount,
		Currency:       out.Currency,
		Status:         out.Status,
		ShortURL:       out.ShortURL,
		SubscriptionID: out.SubscriptionID,
	}, nil
}

func (g *razorpayGateway) IssueInvoice(ctx context.Context, pspInvoiceID string) error {
	return g.send(ctx, http.MethodPost,
		fmt.Sprintf("/invoices/%s/issue", pspInvoiceID), nil, nil)
}

func (g *razorpayGateway) DraftInvoice(ctx context.Context, req *DraftInvoiceRequest) (*InvoiceDetails, error) {
	now := time.Now().UTC()
	body := map[string]interface{}{
		"type":        "invoice",
		"date":        now.Unix(),
		"customer_id": req.CustomerID,
		"line_items": []map[string]interface{}{{
			"name":        req.Name,
			"description": req.Description,
			"amount":      req.Amount.IntPart(),
			"currency":    req.Currency,
		}},
		"expire_by": now.Add(48 * time.Hour).Unix(),
		"draft":     1,
	}

	var out razorpayInvoiceResponse
	if err := g.send(ctx, http.MethodPost, "/invoices", body, &out); err != nil {
		return nil, err
	}
	return &InvoiceDetails{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Status:   out.Status,
		ShortURL: out.ShortURL,
	}, nil
}

func (g *razorpayGateway) GetTransactionInvoice(ctx context.Context, transactionID string) (string, error) {
	return "", ierr.NewError("transaction invoices are not supported").
		WithHint("Razorpay exposes invoices directly, not per transaction").
		Mark(ierr.ErrInvalidOperation)
}
