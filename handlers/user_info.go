package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/schema"
)

type FinancialMergeRequest struct {
	FinancialData *models.FinancialUpdate `json:"financialData"`
	Confidence    float64                 `json:"confidence"`
	Source        string                  `json:"source"`
}

type AIUpdateRequest struct {
	ExtractedData jsonx.RawMessage `json:"extractedData"`
	Confidence    *float64         `json:"confidence"`
	SessionID     string           `json:"sessionId"`
}

func summaryBody(sum *reconcile.Summary) gin.H {
	return gin.H{
		"success":         true,
		"updatedSections": sum.UpdatedSections,
		"counts":          sum.Counts,
		"warnings":        sum.Warnings,
		"message":         sum.UserMessage(),
	}
}

// HandleFinancialMerge applies a confidence-gated financial update:
// POST /api/ai/financial-merge.
func (h *Handler) HandleFinancialMerge(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req FinancialMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "financial merge", err))
		return
	}
	sum, err := h.Reconciler.MergeFinancial(c.Request.Context(), uid, req.FinancialData, req.Confidence, req.Source)
	if err != nil {
		respondError(c, "Failed to merge financial data", err)
		return
	}
	c.JSON(http.StatusOK, summaryBody(sum))
}

// HandleAIUpdate applies an extraction envelope directly: POST /api/ai/update.
// The envelope goes through the same closed-shape validation as model output.
func (h *Handler) HandleAIUpdate(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "ai update", err))
		return
	}
	var req AIUpdateRequest
	if err := jsonx.UnmarshalStrict(body, &req); err != nil {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "ai update", err))
		return
	}
	if len(req.ExtractedData) == 0 || jsonx.IsNull(req.ExtractedData) {
		respondError(c, "extractedData is required", models.Errorf(models.KindValidation, "ai update", "extractedData is required"))
		return
	}
	env, err := schema.ParseEnvelope(req.ExtractedData)
	if err != nil {
		respondError(c, "Invalid extractedData", models.NewError(models.KindValidation, "ai update", err))
		return
	}
	confidence := 0.8
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	if confidence < 0 || confidence > 1 {
		respondError(c, "confidence must be within [0,1]", models.Errorf(models.KindValidation, "ai update", "confidence %v", confidence))
		return
	}
	sum, err := h.Reconciler.Apply(c.Request.Context(), uid, env, reconcile.Meta{
		Source:     reconcile.SourceUpdate,
		Confidence: confidence,
		SessionID:  req.SessionID,
	})
	if err != nil {
		respondError(c, "Failed to update user data", err)
		return
	}
	c.JSON(http.StatusOK, summaryBody(sum))
}
