package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleGetContext returns what the assistant knows about the caller:
// GET /api/context.
func (h *Handler) HandleGetContext(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	snap, err := h.Loader.Load(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to load user context", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"summary":          snap.Summary(),
		"completeness":     snap.Completeness(),
		"ready":            snap.Ready(),
		"hasFinancialData": snap.HasFinancialData(),
	})
}
