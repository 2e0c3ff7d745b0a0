package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

type GeneratePlanRequest struct {
	GoalID string `json:"goalId"`
}

// HandleGeneratePlan creates and stores a plan: POST /api/plans.
func (h *Handler) HandleGeneratePlan(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Planner == nil {
		unavailable(c, "Plan generation")
		return
	}
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "generate plan", err))
		return
	}
	plan, err := h.Planner.Generate(c.Request.Context(), uid, req.GoalID)
	if err != nil {
		respondError(c, "Failed to generate plan", err)
		return
	}
	logger.Get().Info("plan created", zap.String("user_id", uid), zap.String("plan_id", plan.ID))
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}

// HandleListPlans: GET /api/plans.
func (h *Handler) HandleListPlans(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Plans == nil {
		unavailable(c, "Plan storage")
		return
	}
	plans, err := h.Plans.Plans(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to list plans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": plans})
}
