package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/qiuethan/RT1M-sub001/logger"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port           string
	Development    bool
	LogLevel       logger.LogLevel
	FrontendOrigin string

	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	RedisURL      string

	SupabaseURL       string
	SupabaseJWTSecret string
	SupabaseRoleKey   string
	InternalAPIKey    string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIGeneralModel string
	LLMTimeout         time.Duration
	GeminiAPIKey       string
	GeminiEmbedModel   string

	KafkaBootstrapServers string
	KafkaAPIKey           string
	KafkaAPISecret        string
	KafkaWorkers          int

	QdrantURL    string
	QdrantAPIKey string

	PlaidClientID string
	PlaidSecret   string
	PlaidEnv      string

	Pipeline Pipeline
}

// Pipeline carries the tunables of the extraction pipeline.
type Pipeline struct {
	MaxAssets             int
	MaxDebts              int
	MaxGoals              int
	SmartMergeThreshold   float64
	SmartMergeChat        bool
	GoalMatchPolicy       string
	FAQThreshold          float64
	SemanticThreshold     float64
	PlanSuggestionChance  float64
	HistoryTurns          int
	RateLimitPerMinute    int
	AnswerCacheTTL        time.Duration
	MaxInputLength        int
	MaxReconcileAttempts  int
	GeneralAnswerMaxChars int
}

// DefaultPipeline returns the tunables used when no environment override is present.
func DefaultPipeline() Pipeline {
	return Pipeline{
		MaxAssets:             10,
		MaxDebts:              10,
		MaxGoals:              15,
		SmartMergeThreshold:   0.8,
		GoalMatchPolicy:       "substring",
		FAQThreshold:          0.8,
		SemanticThreshold:     0.92,
		PlanSuggestionChance:  0.3,
		HistoryTurns:          5,
		RateLimitPerMinute:    30,
		AnswerCacheTTL:        10 * time.Minute,
		MaxInputLength:        2000,
		MaxReconcileAttempts:  3,
		GeneralAnswerMaxChars: 1000,
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using process environment")
	}

	p := DefaultPipeline()
	p.MaxAssets = intEnv("MAX_ASSETS", p.MaxAssets)
	p.MaxDebts = intEnv("MAX_DEBTS", p.MaxDebts)
	p.MaxGoals = intEnv("MAX_GOALS", p.MaxGoals)
	p.SmartMergeThreshold = floatEnv("SMART_MERGE_THRESHOLD", p.SmartMergeThreshold)
	p.SmartMergeChat = boolEnv("SMART_MERGE_CHAT", p.SmartMergeChat)
	p.GoalMatchPolicy = stringEnv("GOAL_MATCH_POLICY", p.GoalMatchPolicy)
	p.FAQThreshold = floatEnv("ROUTER_FAQ_THRESHOLD", p.FAQThreshold)
	p.SemanticThreshold = floatEnv("ROUTER_SEMANTIC_THRESHOLD", p.SemanticThreshold)
	p.PlanSuggestionChance = floatEnv("PLAN_SUGGESTION_CHANCE", p.PlanSuggestionChance)
	p.HistoryTurns = intEnv("CHAT_HISTORY_TURNS", p.HistoryTurns)
	p.RateLimitPerMinute = intEnv("RATE_LIMIT_PER_MINUTE", p.RateLimitPerMinute)
	p.AnswerCacheTTL = time.Duration(intEnv("ANSWER_CACHE_TTL_SECONDS", int(p.AnswerCacheTTL.Seconds()))) * time.Second
	p.MaxInputLength = intEnv("MAX_INPUT_LENGTH", p.MaxInputLength)
	p.MaxReconcileAttempts = intEnv("MAX_RECONCILE_ATTEMPTS", p.MaxReconcileAttempts)
	p.GeneralAnswerMaxChars = intEnv("GENERAL_ANSWER_MAX_CHARS", p.GeneralAnswerMaxChars)

	cfg := &Config{
		Port:           stringEnv("PORT", "8080"),
		Development:    boolEnv("DEVELOPMENT", false),
		LogLevel:       logger.LogLevel(stringEnv("LOG_LEVEL", string(logger.InfoLevel))),
		FrontendOrigin: stringEnv("FRONTEND_URL", "http://localhost:3000"),

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: stringEnv("MONGO_DATABASE", "rt1m"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseRoleKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		InternalAPIKey:    os.Getenv("INTERNAL_API_KEY"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      stringEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        stringEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIGeneralModel: stringEnv("OPENAI_GENERAL_MODEL", "gpt-4o-mini"),
		LLMTimeout:         time.Duration(intEnv("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiEmbedModel:   stringEnv("GEMINI_EMBED_MODEL", "gemini-embedding-001"),

		KafkaBootstrapServers: os.Getenv("KAFKA_BOOTSTRAP_SERVERS"),
		KafkaAPIKey:           os.Getenv("KAFKA_API_KEY"),
		KafkaAPISecret:        os.Getenv("KAFKA_API_SECRET"),
		KafkaWorkers:          intEnv("KAFKA_WORKERS", 4),

		QdrantURL:    os.Getenv("QDRANT_URL"),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),

		PlaidClientID: os.Getenv("PLAID_CLIENT_ID"),
		PlaidSecret:   os.Getenv("PLAID_SECRET"),
		PlaidEnv:      stringEnv("PLAID_ENV", "sandbox"),

		Pipeline: p,
	}
	return cfg, nil
}

// Validate reports the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.SupabaseJWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func stringEnv(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func intEnv(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func floatEnv(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolEnv(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
