package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/bankimport"
	"github.com/qiuethan/RT1M-sub001/cache"
	"github.com/qiuethan/RT1M-sub001/chat"
	"github.com/qiuethan/RT1M-sub001/config"
	"github.com/qiuethan/RT1M-sub001/db"
	"github.com/qiuethan/RT1M-sub001/handlers"
	"github.com/qiuethan/RT1M-sub001/kafka"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/middleware"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/mongodb"
	"github.com/qiuethan/RT1M-sub001/planner"
	"github.com/qiuethan/RT1M-sub001/qdrant"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/routing"
	"github.com/qiuethan/RT1M-sub001/sse"
	"github.com/qiuethan/RT1M-sub001/usercontext"
	"github.com/qiuethan/RT1M-sub001/worker"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rt1m-api",
		Short:        "RT1M personal-finance chat API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Development, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := db.InitDB(cfg.DatabaseURL); err != nil {
				return err
			}
			defer db.CloseDB()
			if err := db.Migrate(cmd.Context(), db.DB); err != nil {
				return err
			}
			logger.Get().Info("migrations applied")
			return nil
		},
	}
}

// events is satisfied by both the Kafka producer and the local worker pool.
type events interface {
	PublishProfileUpdate(ctx context.Context, ev models.ProfileUpdateEvent) error
	PublishBankSync(ctx context.Context, job models.BankSyncJob) error
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p := cfg.Pipeline

	if err := mongodb.InitMongoDB(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		return err
	}
	defer mongodb.CloseMongoDB()
	gw := mongodb.NewGateway(mongodb.MongoClient, cfg.MongoDatabase)
	conversations := mongodb.NewConversationLog(mongodb.Database())

	var pg *db.Store
	if cfg.DatabaseURL != "" {
		if err := db.InitDB(cfg.DatabaseURL); err != nil {
			return err
		}
		defer db.CloseDB()
		if err := db.Migrate(ctx, db.DB); err != nil {
			return err
		}
		pg = db.New(db.DB)
	} else {
		logger.Get().Warn("DATABASE_URL not set, sessions and bank linking disabled")
	}

	rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Get().Warn("redis unavailable, running without L2 cache and rate limits", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}
	answers, err := cache.New(0, p.AnswerCacheTTL, rdb)
	if err != nil {
		return err
	}
	defer answers.Close()

	routerOpts := []routing.Option{
		routing.WithAnswerCache(answers),
		routing.WithFAQThreshold(p.FAQThreshold),
	}
	if opt, ok := semanticCache(ctx, cfg); ok {
		routerOpts = append(routerOpts, opt)
		defer qdrant.CloseQdrantClient()
	}

	matcher, err := reconcile.ParseGoalMatchPolicy(p.GoalMatchPolicy)
	if err != nil {
		return err
	}
	rec := reconcile.New(gw,
		reconcile.WithLimits(reconcile.Limits{MaxAssets: p.MaxAssets, MaxDebts: p.MaxDebts, MaxGoals: p.MaxGoals}),
		reconcile.WithGoalMatcher(matcher),
		reconcile.WithSmartMergeThreshold(p.SmartMergeThreshold),
		reconcile.WithMaxAttempts(p.MaxReconcileAttempts),
	)

	hub := sse.NewHub()
	pool := worker.NewWorkerPool(cfg.KafkaWorkers)
	pool.Handle(worker.ProfileUpdatesTopic, hub.HandleProfileUpdate)

	var publisher events = pool
	if cfg.KafkaBootstrapServers != "" {
		kcfg := kafka.Config{
			BootstrapServers: cfg.KafkaBootstrapServers,
			APIKey:           cfg.KafkaAPIKey,
			APISecret:        cfg.KafkaAPISecret,
		}
		producer, err := kafka.NewProducer(kcfg)
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = producer
		if err := kafka.StartConsumer(ctx, kcfg, []string{worker.ProfileUpdatesTopic, worker.BankSyncTopic}, pool); err != nil {
			return err
		}
	} else {
		logger.Get().Info("KAFKA_BOOTSTRAP_SERVERS not set, delivering events in-process")
	}

	completer := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMTimeout)
	loader := usercontext.NewLoader(gw)
	h := &handlers.Handler{
		Chat: chat.NewService(chat.Deps{
			Router:         routing.New(routerOpts...),
			Loader:         loader,
			Orchestrator:   chat.NewOrchestrator(completer, cfg.OpenAIModel, cfg.LLMTimeout, p.HistoryTurns),
			General:        chat.NewGeneralAdvisor(completer, cfg.OpenAIGeneralModel, p.GeneralAnswerMaxChars),
			Reconciler:     rec,
			Conversations:  conversations,
			Events:         publisher,
			Policy:         usercontext.PlanSuggestionPolicy{Probability: p.PlanSuggestionChance},
			MaxInputLength: p.MaxInputLength,
			SmartMerge:     p.SmartMergeChat,
		}),
		Loader:       loader,
		Reconciler:   rec,
		Planner:      planner.New(completer, cfg.OpenAIModel, 0, gw),
		Plans:        gw,
		History:      conversations,
		Titles:       completer,
		TitleModel:   cfg.OpenAIGeneralModel,
		BankSync:     publisher,
		Hub:          hub,
		JWTSecret:    cfg.SupabaseJWTSecret,
		SupabaseURL:  cfg.SupabaseURL,
		HistoryTurns: p.HistoryTurns,
	}
	if pg != nil {
		h.Sessions = pg
		h.Items = pg
	}

	var verifier gin.HandlerFunc
	if cfg.PlaidClientID != "" {
		client := handlers.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
		h.Plaid = handlers.PlaidAPI{Client: client}
		verifier = middleware.PlaidWebhookVerifier(middleware.PlaidKeyFetcher(client))
		if pg != nil {
			h.Bank = bankimport.NewSyncer(pg, bankimport.NewPlaidFetcher(client), rec, publisher)
			pool.Handle(worker.BankSyncTopic, h.Bank.HandleJob)
		}
	}

	h.Deleters = []handlers.UserDeleter{{
		Name: "mongodb",
		Delete: func(ctx context.Context, uid string) error {
			_, err := gw.DeleteUser(ctx, uid)
			return err
		},
	}}
	if pg != nil {
		h.Deleters = append(h.Deleters, handlers.PlaidItemRemover(h.Plaid, pg.DeleteUserData))
	}
	if cfg.SupabaseRoleKey != "" {
		h.Deleters = append(h.Deleters,
			handlers.SupabaseUserDeleter(&http.Client{Timeout: 10 * time.Second}, cfg.SupabaseURL, cfg.SupabaseRoleKey))
	}

	pool.Start()
	defer pool.Stop()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})
	h.Register(router, handlers.RouterOptions{
		FrontendOrigin:     cfg.FrontendOrigin,
		Redis:              rdb,
		RateLimitPerMinute: p.RateLimitPerMinute,
		InternalAPIKey:     cfg.InternalAPIKey,
		PlaidVerifier:      verifier,
		Metrics:            pool.MetricsHandler,
		CacheStats:         answers.Stats,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Get().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// semanticCache wires the Qdrant-backed embedding lookup when both Qdrant
// and Gemini are configured.
func semanticCache(ctx context.Context, cfg *config.Config) (routing.Option, bool) {
	if cfg.QdrantURL == "" || cfg.GeminiAPIKey == "" {
		return nil, false
	}
	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel)
	if err != nil {
		logger.Get().Warn("semantic cache disabled", zap.Error(err))
		return nil, false
	}
	probe, err := embedder.Embed(ctx, "dimension probe")
	if err != nil {
		logger.Get().Warn("semantic cache disabled", zap.Error(err))
		return nil, false
	}
	if err := qdrant.InitQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey); err != nil {
		logger.Get().Warn("semantic cache disabled", zap.Error(err))
		return nil, false
	}
	index := qdrant.NewAnswerIndex(qdrant.QdrantClient)
	if err := index.EnsureCollection(ctx, uint64(len(probe))); err != nil {
		logger.Get().Warn("semantic cache disabled", zap.Error(err))
		qdrant.CloseQdrantClient()
		return nil, false
	}
	return routing.WithSemanticCache(embedder, index, cfg.Pipeline.SemanticThreshold), true
}
