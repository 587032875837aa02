package payment

import (
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// Payment records a provider payment event against a subscription
type Payment struct {
	ID             string              `json:"id" db:"id"`
	SubscriptionID string              `json:"subscription_id" db:"subscription_id"`
	UserID         string              `json:"user_id" db:"user_id"`
	OrgID          *string             `json:"org_id" db:"org_id"`
	PaymentDate    int64               `json:"payment_date" db:"payment_date"`
	Amount         decimal.Decimal     `json:"amount" db:"amount"`
	Currency       string              `json:"currency" db:"currency"`
	PSPPaymentID   string              `json:"psp_payment_id" db:"psp_payment_id"`
	PSPName        types.ProviderName  `json:"psp_name" db:"psp_name"`
	Status         types.PaymentStatus `json:"status" db:"status"`
	types.BaseModel
}
