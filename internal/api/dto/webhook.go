package dto

import (
	"github.com/plexbill/plexbill/internal/types"
)

// WebhookEnvelope is the message carried from the HTTP intake to the
// reconciler consumer. Payload is the raw provider body.
type WebhookEnvelope struct {
	ID       string             `json:"id"`
	Provider types.ProviderName `json:"provider"`
	Payload  []byte             `json:"payload"`
}
