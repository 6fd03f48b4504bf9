package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiredeck/hiredeck-backend/internal/config"
	"github.com/hiredeck/hiredeck-backend/internal/database"
	"github.com/hiredeck/hiredeck-backend/internal/grading"
	"github.com/hiredeck/hiredeck-backend/internal/handler"
	"github.com/hiredeck/hiredeck-backend/internal/judge"
	"github.com/hiredeck/hiredeck-backend/internal/logger"
	"github.com/hiredeck/hiredeck-backend/internal/realtime"
	"github.com/hiredeck/hiredeck-backend/internal/repository"
	"github.com/hiredeck/hiredeck-backend/internal/router"
	"github.com/hiredeck/hiredeck-backend/internal/service"
	"github.com/hiredeck/hiredeck-backend/internal/sessiontimer"
	"github.com/hiredeck/hiredeck-backend/internal/validator"
	"github.com/hiredeck/hiredeck-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting HireDeck Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	reviewerRepo := repository.NewReviewerRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	// ─── Initialize Judge + Grading ────────────────────────────────────
	judgeClient := judge.NewClient(judge.Config{
		BaseURL:      cfg.JudgeURL,
		LanguageID:   cfg.JudgeLanguageID,
		PollInterval: cfg.JudgePollInterval,
		MaxPolls:     cfg.JudgeMaxPolls,
	}, log)
	grader := grading.NewGrader(judgeClient, cfg.FreeTextCaseInsensitive, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, reviewerRepo)
	guard := sessiontimer.NewGuard(sessiontimer.NewRedisStore(rdb))
	sessionService := service.NewSessionService(invitationRepo, answerRepo, templateRepo, candidateRepo, guard, grader, log)
	invitationService := service.NewInvitationService(invitationRepo, candidateRepo, templateRepo, answerRepo, log)

	// ─── Initialize Realtime Registry ─────────────────────────────────
	registry := realtime.NewRegistry(judgeClient, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService, rdb, log),
		Staff:   handler.NewStaffHandler(authService, invitationService, candidateRepo, log),
		InterviewWS: handler.NewInterviewWSHandler(
			registry, invitationRepo, templateRepo, candidateRepo, answerRepo, log, cfg.AllowedOrigins,
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	proctorWorker := worker.NewProctorWorker(pool, rdb, log)
	go proctorWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
