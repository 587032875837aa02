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

type RuleHandler struct {
	entitlementService service.EntitlementService
	logger             *logger.Logger
}

func NewRuleHandler(entitlementService service.EntitlementService, logger *logger.Logger) *RuleHandler {
	return &RuleHandler{
		entitlementService: entitlementService,
		logger:             logger,
	}
}

// @Summary Create an entitlement rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param rule body dto.CreateRuleRequest true "Rule request"
// @Success 201 {object} dto.RuleResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.entitlementService.CreateRule(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// @Summary List entitlement rules
// @Tags Rules
// @Produce json
// @Param service query string false "Backend service slug"
// @Success 200 {object} dto.ListRulesResponse
// @Router /rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	service := types.BackendService(c.Query("service"))

	response, err := h.entitlementService.ListRules(c.Request.Context(), service)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Attach a rule to a plan
// @Description Attaches a rule and schedules a cache refresh for the pair
// @Tags Rules
// @Accept json
// @Param id path string true "Plan ID"
// @Param rule body dto.AttachRuleRequest true "Attach request"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /plans/{id}/rules [post]
func (h *RuleHandler) AddRuleToPlan(c *gin.Context) {
	planID := c.Param("id")
	if planID == "" {
		c.Error(ierr.NewError("plan ID is required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.AttachRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	if err := h.entitlementService.AddRuleToPlan(c.Request.Context(), planID, req.RuleID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Detach a rule from a plan
// @Tags Rules
// @Param id path string true "Plan ID"
// @Param rule_id path string true "Rule ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{id}/rules/{rule_id} [delete]
func (h *RuleHandler) RemoveRuleFromPlan(c *gin.Context) {
	planID := c.Param("id")
	ruleID := c.Param("rule_id")
	if planID == "" || ruleID == "" {
		c.Error(ierr.NewError("plan ID and rule ID are required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.entitlementService.RemoveRuleFromPlan(c.Request.Context(), planID, ruleID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get the cached rules of a plan for a service
// @Tags Rules
// @Produce json
// @Param id path string true "Plan ID"
// @Param service query string true "Backend service slug"
// @Success 200 {array} rule.View
// @Router /plans/{id}/rules [get]
func (h *RuleHandler) GetPlanRules(c *gin.Context) {
	planID := c.Param("id")
	service := types.BackendService(c.Query("service"))
	if planID == "" || service == "" {
		c.Error(ierr.NewError("plan ID and service are required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	views, err := h.entitlementService.GetPlanRules(c.Request.Context(), planID, service)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, views)
}
