package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"loom/internal/auth"
	"loom/internal/catalog"
	"loom/internal/config"
	"loom/internal/domain/repositories"
	llmsvc "loom/internal/domain/services/llm"
	"loom/internal/handler"
	"loom/internal/llm"
	llmAnthropic "loom/internal/llm/anthropic"
	llmOpenAI "loom/internal/llm/openai"
	"loom/internal/middleware"
	"loom/internal/ratelimit"
	"loom/internal/repository/memory"
	"loom/internal/repository/postgres"
	chatsvc "loom/internal/service/chat"
	"loom/internal/storage"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	// JWT verifier against the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Repositories: postgres when DATABASE_URL is set, in-memory otherwise
	ctx := context.Background()
	var (
		convRepo  repositories.ConversationRepository
		txManager repositories.TransactionManager
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()
		logger.Info("database connected")

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(""),
			Logger: logger,
		}
		convRepo = postgres.NewConversationRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store (data is not durable)")
		store := memory.NewStore()
		convRepo = store
		txManager = memory.NewTxManager()
	}

	// LLM providers
	var providers []llmsvc.Provider
	if cfg.OpenAIAPIKey != "" {
		p, err := llmOpenAI.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			log.Fatalf("Failed to create OpenAI provider: %v", err)
		}
		providers = append(providers, p)
	}
	if cfg.AnthropicAPIKey != "" {
		p, err := llmAnthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			log.Fatalf("Failed to create Anthropic provider: %v", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		log.Fatal("No LLM providers configured: set OPENAI_API_KEY and/or ANTHROPIC_API_KEY")
	}
	registry := llm.NewRegistry(providers...)

	// Model catalog
	modelCatalog, err := catalog.NewCatalog()
	if err != nil {
		log.Fatalf("Failed to load model catalog: %v", err)
	}

	// Services
	completion := chatsvc.NewCompletion(convRepo, logger)
	conversations := chatsvc.NewConversations(convRepo, txManager, logger)
	windower := chatsvc.NewTurnCountWindower(cfg.MaxHistoryMessages)

	// Handlers
	chatHandler := handler.NewChatHandler(registry, completion, windower, modelCatalog, cfg.DefaultModel, logger)
	conversationHandler := handler.NewConversationHandler(conversations, logger)
	messageHandler := handler.NewMessageHandler(conversations, logger)
	modelsHandler := handler.NewModelsHandler(modelCatalog)

	logger.Info("services initialized")

	// Rate limiter, only when redis is configured
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr,
			cfg.RedisPassword,
			"loom:ratelimit",
			cfg.ChatRateLimit,
			time.Duration(cfg.ChatRateWindowS)*time.Second,
		)
		if err != nil {
			log.Fatalf("Failed to create rate limiter: %v", err)
		}
		logger.Info("rate limiting enabled", "limit", cfg.ChatRateLimit, "window_seconds", cfg.ChatRateWindowS)
	}

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Chat streaming. Completion turns are the expensive path; only this
	// route is rate limited.
	mux.Handle("POST /api/chat", middleware.RateLimit(limiter)(http.HandlerFunc(chatHandler.StreamChat)))

	// Conversation routes
	mux.HandleFunc("GET /api/conversations", conversationHandler.ListConversations)
	mux.HandleFunc("POST /api/conversations", conversationHandler.CreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", conversationHandler.GetConversation)
	mux.HandleFunc("PATCH /api/conversations/{id}", conversationHandler.RenameConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", conversationHandler.DeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", conversationHandler.ListMessages)

	// Message mutation routes (edit + prune, regenerate)
	mux.HandleFunc("PATCH /api/messages/{id}", messageHandler.EditMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", messageHandler.DeleteMessage)

	// Model catalog
	mux.HandleFunc("GET /api/models", modelsHandler.ListModels)

	// Upload signing, only when object storage is configured
	if cfg.StorageEndpoint != "" {
		store, err := storage.NewMinioStore(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicURL,
			cfg.StorageUseSSL,
		)
		if err != nil {
			log.Fatalf("Failed to init object storage: %v", err)
		}
		uploadHandler := handler.NewUploadHandler(store, logger)
		mux.HandleFunc("POST /api/uploads/sign", uploadHandler.SignUpload)
		logger.Info("object storage connected", "bucket", cfg.StorageBucket)
	}

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.Auth(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Conversation-Id", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
