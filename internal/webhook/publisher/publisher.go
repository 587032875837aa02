package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/pubsub"
)

// EventPublisher enqueues raw provider events for the reconciler. The HTTP
// intake calls it so providers get their 200 without waiting on processing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, envelope *dto.WebhookEnvelope) error
	Close() error
}

type eventPublisher struct {
	pubSub pubsub.PubSub
	config *config.WebhookConfig
	logger *logger.Logger
}

// NewPublisher creates a new provider event publisher
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (EventPublisher, error) {
	return &eventPublisher{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}, nil
}

func (p *eventPublisher) PublishEvent(ctx context.Context, envelope *dto.WebhookEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	messageID := envelope.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("provider", string(envelope.Provider))

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish provider event",
			"error", err,
			"event_id", envelope.ID,
			"provider", envelope.Provider,
		)
		return err
	}

	p.logger.Infow("published provider event",
		"event_id", envelope.ID,
		"provider", envelope.Provider,
		"topic", p.config.Topic,
	)

	return nil
}

// Close closes the publisher
func (p *eventPublisher) Close() error {
	return p.pubSub.Close()
}
