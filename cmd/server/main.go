// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/calyra-app/calyra/internal/config"
	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/handlers"
	"github.com/calyra-app/calyra/internal/middleware"
	"github.com/calyra-app/calyra/internal/ratelimit"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/goal"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/repository/stream"
	"github.com/calyra-app/calyra/internal/services"
	"github.com/calyra-app/calyra/internal/services/ai"
	"github.com/calyra-app/calyra/internal/services/tools"
	"github.com/calyra-app/calyra/internal/services/turn"
	"github.com/calyra-app/calyra/internal/services/user_services"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// newStreamBackend picks the configured stream backend. A backend that
// fails to come up degrades streaming to non-resumable instead of
// blocking startup.
func newStreamBackend(cfg *config.Config, logger services.Logger) turn.Backend {
	switch cfg.StreamBackend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		backend, err := turn.NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis stream backend unavailable, falling back to direct streaming", "error", err)
			return nil
		}
		return backend
	case "memory":
		return turn.NewMemoryBackend()
	default:
		return nil
	}
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("calyra")

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(&domain.Chat{}, &domain.Message{}, &domain.StreamHandle{}, &domain.Goal{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	chatRepo := chat.NewChatRepository(db)
	messageRepo := message.NewMessageRepository(db)
	streamRepo := stream.NewStreamRepository(db)
	goalRepo := goal.NewGoalRepository(db)

	// --- Generation Engine ---
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.GatewayAPIKey
	aiConfig.BaseURL = cfg.GatewayBaseURL
	engine, err := ai.NewOpenAIProvider(aiConfig)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize generation engine: %v", err)
	}

	// --- Tools ---
	registry := tools.NewRegistry(
		tools.NewWeatherTool(""),
		tools.NewCreateGoalTool(goalRepo),
	)

	// --- Turn Pipeline ---
	backend := newStreamBackend(cfg, logger)
	publisher := turn.NewPublisher(backend, logger)
	assembler := turn.NewAssembler(chatRepo, messageRepo, logger)
	entitlements := turn.NewEntitlementResolver(messageRepo, cfg.GuestMessagesPerDay, cfg.RegularMessagesPerDay, logger)
	sink := turn.NewSink(chatRepo, messageRepo, logger)

	turnConfig := turn.DefaultConfig()
	turnConfig.DefaultModel = cfg.DefaultModel
	turnConfig.TitleModel = cfg.TitleModel
	turnConfig.TurnTimeout = cfg.TurnTimeout
	turnConfig.MaxSteps = cfg.MaxTurnSteps

	turnService, err := turn.NewService(
		turnConfig, assembler, entitlements, engine, registry,
		publisher, sink, chatRepo, streamRepo, logger,
	)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Turn Service: %v", err)
	}

	authService, err := user_services.NewAuthService(cfg.JWTSecretKey, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Auth Service: %v", err)
	}

	// --- Handlers ---
	chatHandler := handlers.NewChatHandler(turnService, chatRepo, messageRepo)

	// --- Router Setup ---
	r := mux.NewRouter()
	authMiddleware := middleware.NewJWTMiddleware(authService)
	apiLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAPIConfig())
	turnLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.TurnConfig())
	defer apiLimiter.Close()
	defer turnLimiter.Close()

	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware)

	// --- Public Routes ---
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	// --- Protected Routes ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)
	api.Use(middleware.RateLimitMiddleware(apiLimiter, "api"))

	turnRoutes := api.PathPrefix("/chat").Subrouter()
	turnRoutes.Use(middleware.RateLimitMiddleware(turnLimiter, "turn"))
	turnRoutes.HandleFunc("", chatHandler.HandleTurn).Methods("POST")
	turnRoutes.HandleFunc("", chatHandler.DeleteChat).Methods("DELETE")
	turnRoutes.HandleFunc("/{id}/stream", chatHandler.ResumeStream).Methods("GET")

	api.HandleFunc("/chats", chatHandler.GetUserChats).Methods("GET")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")

	// --- Server Configuration ---
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("==================================================")
	log.Printf("Calyra - Personal Assistant")
	log.Printf("==================================================")
	log.Printf("Server starting on port %s", cfg.ServerPort)
	log.Printf("Stream backend: %s", cfg.StreamBackend)
	log.Printf("Server ready to accept connections!")
	log.Printf("==================================================")

	// --- Start Server in Goroutine ---
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped.")
}
