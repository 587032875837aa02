package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plexbill/plexbill/internal/api/dto"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/webhook/publisher"
)

// WebhookHandler is the provider-facing intake. It enqueues the raw body and
// acknowledges immediately so providers do not redeliver on slow processing.
type WebhookHandler struct {
	publisher publisher.EventPublisher
	logger    *logger.Logger
}

func NewWebhookHandler(publisher publisher.EventPublisher, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// @Summary Capture a Razorpay webhook event
// @Tags Webhooks
// @Accept json
// @Success 200
// @Router /webhook/razorpay/capture [post]
func (h *WebhookHandler) CaptureRazorpay(c *gin.Context) {
	h.capture(c, types.ProviderRazorpay)
}

// @Summary Capture a Paddle webhook event
// @Tags Webhooks
// @Accept json
// @Success 200
// @Router /webhook/paddle/capture [post]
func (h *WebhookHandler) CapturePaddle(c *gin.Context) {
	h.capture(c, types.ProviderPaddle)
}

func (h *WebhookHandler) capture(c *gin.Context, provider types.ProviderName) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Unreadable request body").
			Mark(ierr.ErrValidation))
		return
	}

	envelope := &dto.WebhookEnvelope{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		Provider: provider,
		Payload:  body,
	}

	if err := h.publisher.PublishEvent(c.Request.Context(), envelope); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "queued", "event_id": envelope.ID})
}
