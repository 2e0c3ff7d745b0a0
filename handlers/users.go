package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

// HandleDeleteUser removes the caller's data from every store: DELETE /api/user.
// Every store is attempted even if an earlier one fails.
func (h *Handler) HandleDeleteUser(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	logger.Get().Info("HandleDeleteUser called", zap.String("user_id", uid))

	var failed []string
	for _, d := range h.Deleters {
		if err := d.Delete(c.Request.Context(), uid); err != nil {
			logger.Get().Error("error deleting user data", zap.String("store", d.Name), zap.String("user_id", uid), zap.Error(err))
			failed = append(failed, d.Name)
			continue
		}
		logger.Get().Info("deleted user data", zap.String("store", d.Name), zap.String("user_id", uid))
	}
	if len(failed) > 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error deleting user data", "failed": failed})
		return
	}
	logger.Get().Info("HandleDeleteUser completed successfully", zap.String("user_id", uid))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SupabaseUserDeleter removes the auth account through the Supabase admin API.
func SupabaseUserDeleter(client *http.Client, supabaseURL, serviceRoleKey string) UserDeleter {
	return UserDeleter{Name: "supabase", Delete: func(ctx context.Context, userID string) error {
		url := fmt.Sprintf("%s/auth/v1/admin/users/%s", supabaseURL, userID)

		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("apikey", serviceRoleKey)
		req.Header.Set("Authorization", "Bearer "+serviceRoleKey)

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code deleting user: %d", resp.StatusCode)
		}
		return nil
	}}
}
