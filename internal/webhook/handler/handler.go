package handler

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/pubsub"
	pubsubRouter "github.com/plexbill/plexbill/internal/pubsub/router"
	"github.com/plexbill/plexbill/internal/service"
)

// Handler consumes queued provider events and hands them to the reconciler
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub   pubsub.PubSub
	config   *config.WebhookConfig
	webhooks service.WebhookService
	logger   *logger.Logger
}

// NewHandler creates a new provider event handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	webhooks service.WebhookService,
	logger *logger.Logger,
) (Handler, error) {
	return &handler{
		pubSub:   pubSub,
		config:   &cfg.Webhook,
		webhooks: webhooks,
		logger:   logger,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"provider_event_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage reconciles a single queued provider event. Processing
// errors are returned so the router retries; unreadable messages are
// dropped since a retry cannot fix them.
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var envelope dto.WebhookEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		h.logger.Errorw("failed to unmarshal provider event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	if err := h.webhooks.ProcessEvent(ctx, envelope.Provider, envelope.Payload); err != nil {
		h.logger.Errorw("failed to process provider event",
			"error", err,
			"event_id", envelope.ID,
			"provider", envelope.Provider,
		)
		return err
	}

	return nil
}
