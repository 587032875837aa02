package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/service"
)

// SubscriptionCronHandler handles subscription related cron jobs
type SubscriptionCronHandler struct {
	subscriptionService service.SubscriptionService
	logger              *logger.Logger
}

// NewSubscriptionCronHandler creates a new subscription cron handler
func NewSubscriptionCronHandler(
	subscriptionService service.SubscriptionService,
	logger *logger.Logger,
) *SubscriptionCronHandler {
	return &SubscriptionCronHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// DowngradeExpiredTrials reverts every due trial to the basic plan. The
// scheduler invokes this endpoint; each trial is handled independently so a
// single failure does not abort the sweep.
func (h *SubscriptionCronHandler) DowngradeExpiredTrials(c *gin.Context) {
	h.logger.Infow("starting trial downgrade cron job",
		"time", time.Now().UTC().Format(time.RFC3339))

	count, err := h.subscriptionService.DowngradeExpiredTrials(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "completed",
		"downgraded": count,
	})
}
