package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/qiuethan/RT1M-sub001/cache"
	"github.com/qiuethan/RT1M-sub001/middleware"
)

// RouterOptions configures the middleware around the handlers.
type RouterOptions struct {
	FrontendOrigin     string
	Redis              *redis.Client
	RateLimitPerMinute int
	InternalAPIKey     string
	// PlaidVerifier guards /webhook/plaid. The route is not mounted without it.
	PlaidVerifier gin.HandlerFunc
	Metrics       http.HandlerFunc
	CacheStats    func() cache.Stats
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine, opts RouterOptions) {
	r.Use(middleware.Cors(opts.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Token in the query string for both; see the handlers.
	r.GET("/api/ws", h.HandleWebSocket)
	r.GET("/sse/updates", h.HandleSSE)

	api := r.Group("/api",
		middleware.Auth(h.JWTSecret, h.SupabaseURL),
		middleware.RateLimit(opts.Redis, opts.RateLimitPerMinute))
	{
		api.POST("/chat", h.HandleChat)
		api.GET("/context", h.HandleGetContext)

		api.POST("/ai/financial-merge", h.HandleFinancialMerge)
		api.POST("/ai/update", h.HandleAIUpdate)

		api.POST("/plans", h.HandleGeneratePlan)
		api.GET("/plans", h.HandleListPlans)

		api.POST("/sessions", h.HandleCreateSession)
		api.GET("/sessions", h.HandleListSessions)
		api.GET("/sessions/:id/messages", h.HandleGetSessionMessages)
		api.DELETE("/sessions/:id", h.HandleDeleteSession)

		api.DELETE("/user", h.HandleDeleteUser)

		api.POST("/plaid/link-token", h.CreateLinkToken)
		api.POST("/plaid/exchange", h.ExchangePublicToken)
		api.GET("/plaid/items", h.GetItems)
		api.POST("/plaid/sync", h.SyncAccounts)
	}

	if opts.PlaidVerifier != nil {
		r.POST("/webhook/plaid", opts.PlaidVerifier, h.HandlePlaidWebhook)
	}

	internal := r.Group("/internal", middleware.InternalAPIKey(opts.InternalAPIKey))
	{
		if opts.Metrics != nil {
			internal.GET("/metrics", gin.WrapF(opts.Metrics))
		}
		internal.GET("/stats", func(c *gin.Context) {
			body := gin.H{}
			if h.Hub != nil {
				body["sse_connections"] = h.Hub.Connections()
			}
			if opts.CacheStats != nil {
				body["answer_cache"] = opts.CacheStats()
			}
			c.JSON(http.StatusOK, body)
		})
	}
}
