package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hiredeck/hiredeck-backend/internal/config"
	"github.com/hiredeck/hiredeck-backend/internal/handler"
	"github.com/hiredeck/hiredeck-backend/internal/middleware"
	"github.com/hiredeck/hiredeck-backend/internal/response"
	"github.com/hiredeck/hiredeck-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session     *handler.SessionHandler
	Staff       *handler.StaffHandler
	InterviewWS *handler.InterviewWSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for link-addressed routes (60 requests per minute per
	// IP). Links are unauthenticated, so this is the brute-force brake.
	sessionLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Staff.Login)
	}

	// ─── 2. Candidate Session Group (Link Token, Rate Limited) ─────────
	sessionAPI := router.Group("/api/v1/session")
	sessionAPI.Use(
		sessionLimiter.Middleware(),
		middleware.ClientSession(),
	)
	{
		sessionAPI.GET("/:link", handlers.Session.OpenSession)
		sessionAPI.GET("/:link/questions/:question_id", handlers.Session.GetQuestion)
		sessionAPI.POST("/:link/questions/:question_id/answer", handlers.Session.SubmitAnswer)
		sessionAPI.POST("/:link/finish", handlers.Session.FinishSession)
		sessionAPI.POST("/:link/log-switch", handlers.Session.LogTabSwitch)
	}

	// ─── 3. WebSocket Group (Optional Reviewer Auth) ───────────────────
	// Candidates connect anonymously; reviewers attach ?token=... and must
	// be the assigned reviewer of the invitation.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.OptionalReviewerJWT(authService))
	{
		ws.GET("/interview/:link", handlers.InterviewWS.InterviewStream)
	}

	// ─── 4. Staff Group (Reviewer JWT) ─────────────────────────────────
	staffAPI := router.Group("/api/v1/staff")
	staffAPI.Use(middleware.RequireReviewerJWT(authService))
	{
		staffAPI.POST("/candidates", handlers.Staff.CreateCandidate)
		staffAPI.POST("/invitations", handlers.Staff.CreateInvitation)
		staffAPI.POST("/invitations/:id/send", handlers.Staff.SendInvitation)
		staffAPI.GET("/invitations/:id/report", handlers.Staff.GetReport)
	}

	return router
}
