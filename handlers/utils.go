package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/middleware"
	"github.com/qiuethan/RT1M-sub001/models"
)

// currentUser returns the authenticated uid or answers 401.
func currentUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		logger.Get().Error("user not authenticated")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": models.KindAuth})
		return "", false
	}
	return uid, true
}

func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindAuth:
		return http.StatusUnauthorized
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindExtractionParse, models.KindEntityValidation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Get().Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
	}
	body := gin.H{"success": false, "error": msg}
	if kind := models.KindOf(err); kind != "" {
		body["code"] = kind
	}
	if status < http.StatusInternalServerError {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": what + " is not configured"})
}
