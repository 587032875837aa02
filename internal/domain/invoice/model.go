package invoice

import (
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice mirrors a provider invoice or transaction for a subscription
type Invoice struct {
	ID             string             `json:"id" db:"id"`
	SubscriptionID string             `json:"subscription_id" db:"subscription_id"`
	PSPInvoiceID   *string            `json:"psp_invoice_id" db:"psp_invoice_id"`
	TransactionID  *string            `json:"transaction_id" db:"transaction_id"`
	UserID         string             `json:"user_id" db:"user_id"`
	OrgID          *string            `json:"org_id" db:"org_id"`
	Amount         decimal.Decimal    `json:"amount" db:"amount"`
	Currency       string             `json:"currency" db:"currency"`
	Status         string             `json:"status" db:"status"`
	NextDueDate    *int64             `json:"next_due_date" db:"next_due_date"`
	ShortURL       *string            `json:"short_url" db:"short_url"`
	PSPName        types.ProviderName `json:"psp_name" db:"psp_name"`
	types.BaseModel
}

// Invoice statuses as reported by the providers
const (
	StatusPaid    = "paid"
	StatusExpired = "expired"
	StatusIssued  = "issued"
)
