package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

// RateLimit allows perMinute requests per user in a fixed one-minute window
// counted in Redis. It lets requests through when Redis is unavailable.
func RateLimit(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if rdb == nil || perMinute <= 0 || uid == "" {
			c.Next()
			return
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("rt1m:ratelimit:%s:%d", uid, window)

		ctx := c.Request.Context()
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 2*time.Minute)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Get().Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(perMinute) - incr.Val()
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if incr.Val() > int64(perMinute) {
			c.Header("Retry-After", strconv.FormatInt(60-time.Now().Unix()%60, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
