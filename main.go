package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/api"
	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/database"
	"github.com/jingxuan-bi/report-service/internal/export"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

var version = "dev"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Msg("Starting report service")

	// Load configuration
	cfg := config.Load()
	if problems := cfg.Validate(); len(problems) > 0 {
		log.Fatal().Str("problems", strings.Join(problems, "; ")).Msg("Invalid configuration")
	}
	log.Info().Str("config", cfg.SafeString()).Msg("Configuration loaded")

	// Initialize data sources
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := database.NewManager(cfg)
	if err := db.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize data sources")
	}
	defer db.CloseAll()

	// Load SQL templates
	templates := sqltemplate.NewManager(cfg.Templates.Path)
	if err := templates.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load SQL templates")
	}

	// Export pipeline
	store := export.NewMemoryStore()
	runner := export.NewRunner(cfg, store, templates, db)
	export.StartRetentionSweep(ctx, store, cfg.Export.RetentionDays)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(cfg, templates, db, runner, store),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		close(done)
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	<-done
	log.Info().Msg("Server stopped")
}
