package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plexbill/plexbill/internal/api/dto"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/service"
	"github.com/plexbill/plexbill/internal/types"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	logger              *logger.Logger
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, logger *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// @Summary Subscribe to a plan
// @Description Creates a subscription; paid plans return provider checkout details
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription request"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.subscriptionService.CreateSubscription(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// @Summary Upgrade to a different plan
// @Description Ends the current subscription at the provider and creates a new one
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Upgrade request"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/upgrade [post]
func (h *SubscriptionHandler) UpgradeSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.subscriptionService.UpgradeSubscription(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Cancel the active subscription
// @Description Free subscriptions end immediately; paid ones at cycle end
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param identity body types.Identity true "Caller identity"
// @Success 200 {object} dto.UnsubscribeResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/unsubscribe [post]
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	var identity types.Identity
	if err := c.ShouldBindJSON(&identity); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if identity.UserID == "" {
		c.Error(ierr.NewError("user ID is required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.subscriptionService.Unsubscribe(c.Request.Context(), &identity)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Get the current subscription
// @Description Returns the fallback plan when the identity has no subscription
// @Tags Subscriptions
// @Produce json
// @Param user_id query string true "User ID"
// @Param org_id query string false "Organisation ID"
// @Success 200 {object} dto.CurrentSubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/current [get]
func (h *SubscriptionHandler) GetCurrentSubscription(c *gin.Context) {
	identity := types.Identity{
		UserID: c.Query("user_id"),
		OrgID:  c.Query("org_id"),
	}
	if identity.UserID == "" {
		c.Error(ierr.NewError("user ID is required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.subscriptionService.GetCurrentSubscription(c.Request.Context(), &identity)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
