package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"counsel-backend/cmd"
	"counsel-backend/internal/api"
	"counsel-backend/internal/database"
	"counsel-backend/internal/dialogue"
	"counsel-backend/internal/line"
	"counsel-backend/internal/llm"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

type APIConfig struct {
	ChannelAccessToken string `env:"CHANNEL_ACCESS_TOKEN,notEmpty,required"`
	ChannelSecret      string `env:"CHANNEL_SECRET,notEmpty,required"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY,notEmpty,required"`
	OpenAIModel        string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	DatabaseURL        string `env:"DATABASE_URL"`
	PromptsPath        string `env:"PROMPTS_PATH"`
	APIPort            string `env:"API_PORT" envDefault:"8000"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	prompts, err := llm.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		log.Fatalf("error loading prompts: %v", err)
	}

	// Missing DATABASE_URL degrades to no-persistence mode rather than
	// failing startup: histories start fresh each turn and nothing is
	// written.
	var db *gorm.DB
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, running without persistence")
	} else {
		db, err = database.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}

	generator, err := llm.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, prompts.Fallback)
	if err != nil {
		log.Fatalf("Failed to create reply generator: %v", err)
	}
	extractor := llm.NewExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel, prompts.Extraction)

	orchestrator := dialogue.NewOrchestrator(
		dialogue.NewGormHistoryStore(db, prompts.Directive),
		dialogue.NewGormKnowledgeLog(db),
		generator,
		extractor,
		prompts.Directive,
	)

	lineClient := line.NewClient(cfg.ChannelAccessToken)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Line-Signature"},
	}))

	r.Get("/health", api.RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	api.NewWebhookService(orchestrator, lineClient, cfg.ChannelSecret).AddRoutes(r)
	if db != nil {
		api.NewKnowledgeService(db).AddRoutes(r)
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
