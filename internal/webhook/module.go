package webhook

import (
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/pubsub"
	"github.com/plexbill/plexbill/internal/pubsub/memory"
	"github.com/plexbill/plexbill/internal/webhook/handler"
	"github.com/plexbill/plexbill/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides the provider event pipeline dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		publisher.NewPublisher,
		handler.NewHandler,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) pubsub.PubSub {
	return memory.NewPubSub(cfg, logger)
}
